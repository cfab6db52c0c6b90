package bootstrap

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docgate-backend/internal/shared/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := Build(config.Config{Env: "dev"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return app
}

func doJSON(t *testing.T, app *App, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w := doJSON(t, app, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health returned %d", w.Code)
	}
}

func TestIntakeFlowEndToEnd(t *testing.T) {
	app := newTestApp(t)

	// Broker opens a request for two documents.
	w := doJSON(t, app, http.MethodPost, "/api/v1/doc-requests", map[string]any{
		"brokerOrgId":    "broker-1",
		"verificationId": "verif-1",
		"ttlMinutes":     120,
		"requiredDocs": []map[string]any{
			{"docType": "cab_card", "required": true},
			{"docType": "coi", "required": true},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		DocRequestID string `json:"docRequestId"`
		Token        string `json:"token"`
	}
	decode(t, w, &created)
	if created.DocRequestID == "" || created.Token == "" {
		t.Fatalf("create response missing fields: %s", w.Body.String())
	}

	// The broker view carries the full lifecycle timestamps.
	w = doJSON(t, app, http.MethodGet, "/api/v1/doc-requests/"+created.DocRequestID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get returned %d: %s", w.Code, w.Body.String())
	}
	var fetched struct {
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
	decode(t, w, &fetched)
	if fetched.Status != "OPEN" {
		t.Fatalf("expected OPEN, got %s", fetched.Status)
	}
	if fetched.UpdatedAt.IsZero() || fetched.UpdatedAt.Before(fetched.CreatedAt) {
		t.Fatalf("unexpected updatedAt: %s", w.Body.String())
	}

	// Carrier redeems the token on the public route.
	w = doJSON(t, app, http.MethodPost, "/api/v1/access/resolve", map[string]any{"token": created.Token})
	if w.Code != http.StatusOK {
		t.Fatalf("resolve returned %d: %s", w.Code, w.Body.String())
	}
	var resolved struct {
		DocRequest struct {
			DocRequestID string `json:"docRequestId"`
			Status       string `json:"status"`
		} `json:"docRequest"`
	}
	decode(t, w, &resolved)
	if resolved.DocRequest.DocRequestID != created.DocRequestID {
		t.Fatalf("resolve returned wrong request: %s", w.Body.String())
	}

	// A second redemption must fail.
	w = doJSON(t, app, http.MethodPost, "/api/v1/access/resolve", map[string]any{"token": created.Token})
	if w.Code != http.StatusConflict {
		t.Fatalf("second resolve returned %d: %s", w.Code, w.Body.String())
	}

	// Submit before both documents are registered fails with the missing list.
	w = doJSON(t, app, http.MethodPost, "/api/v1/doc-requests/"+created.DocRequestID+"/submit", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("early submit returned %d: %s", w.Code, w.Body.String())
	}
	var conflict struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Missing []string `json:"missing"`
			} `json:"details"`
		} `json:"error"`
	}
	decode(t, w, &conflict)
	if conflict.Error.Code != "missing_documents" || len(conflict.Error.Details.Missing) != 2 {
		t.Fatalf("unexpected conflict body: %s", w.Body.String())
	}

	// Register both uploads.
	uploadIDs := make(map[string]string)
	for _, docType := range []string{"cab_card", "coi"} {
		w = doJSON(t, app, http.MethodPost, "/api/v1/doc-requests/"+created.DocRequestID+"/uploads", map[string]any{
			"docType":       docType,
			"fileName":      docType + ".pdf",
			"contentType":   "application/pdf",
			"sizeBytes":     4096,
			"storageBucket": "docs",
			"storageKey":    "doc-requests/" + created.DocRequestID + "/" + docType,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("register %s returned %d: %s", docType, w.Code, w.Body.String())
		}
		var up struct {
			UploadID string `json:"uploadId"`
			Status   string `json:"status"`
		}
		decode(t, w, &up)
		if up.Status != "RECEIVED" {
			t.Fatalf("expected RECEIVED, got %s", up.Status)
		}
		uploadIDs[docType] = up.UploadID
	}

	// Broker accepts one and rejects the other.
	w = doJSON(t, app, http.MethodPost, "/api/v1/uploads/"+uploadIDs["cab_card"]+"/decision", map[string]any{
		"status": "ACCEPTED",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("accept returned %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, app, http.MethodPost, "/api/v1/uploads/"+uploadIDs["coi"]+"/decision", map[string]any{
		"status": "REJECTED",
		"note":   "expired certificate",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("reject returned %d: %s", w.Code, w.Body.String())
	}

	// The audit trail carries the decision note.
	w = doJSON(t, app, http.MethodGet, "/api/v1/uploads/"+uploadIDs["coi"]+"/events", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("events returned %d: %s", w.Code, w.Body.String())
	}
	var events []struct {
		EventType string `json:"eventType"`
		Note      string `json:"note"`
	}
	decode(t, w, &events)
	if len(events) != 2 {
		t.Fatalf("expected CREATED + STATUS_CHANGED, got %s", w.Body.String())
	}
	if events[1].EventType != "STATUS_CHANGED" || events[1].Note != "expired certificate" {
		t.Fatalf("unexpected decision event: %+v", events[1])
	}

	// Submission now succeeds; presence counts regardless of decisions.
	w = doJSON(t, app, http.MethodPost, "/api/v1/doc-requests/"+created.DocRequestID+"/submit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit returned %d: %s", w.Code, w.Body.String())
	}
	var submitted struct {
		Status string `json:"status"`
	}
	decode(t, w, &submitted)
	if submitted.Status != "SUBMITTED" {
		t.Fatalf("expected SUBMITTED, got %s", submitted.Status)
	}

	// The request is closed to further registrations.
	w = doJSON(t, app, http.MethodPost, "/api/v1/doc-requests/"+created.DocRequestID+"/uploads", map[string]any{
		"docType":       "coi",
		"fileName":      "late.pdf",
		"contentType":   "application/pdf",
		"sizeBytes":     4096,
		"storageBucket": "docs",
		"storageKey":    "doc-requests/" + created.DocRequestID + "/coi",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("late register returned %d: %s", w.Code, w.Body.String())
	}
}

func TestRevokedTokenCannotResolve(t *testing.T) {
	app := newTestApp(t)

	w := doJSON(t, app, http.MethodPost, "/api/v1/doc-requests", map[string]any{
		"brokerOrgId": "broker-1",
		"requiredDocs": []map[string]any{
			{"docType": "coi", "required": true},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		DocRequestID string `json:"docRequestId"`
		Token        string `json:"token"`
	}
	decode(t, w, &created)

	w = doJSON(t, app, http.MethodPost, "/api/v1/doc-requests/"+created.DocRequestID+"/revoke-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("revoke returned %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, app, http.MethodPost, "/api/v1/access/resolve", map[string]any{"token": created.Token})
	if w.Code != http.StatusForbidden {
		t.Fatalf("resolve after revoke returned %d: %s", w.Code, w.Body.String())
	}
}

func TestBrokerRoutesRequireServerKeyWhenConfigured(t *testing.T) {
	app, err := Build(config.Config{Env: "dev", ServerAPIKey: "secret-key"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/doc-requests", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create returned %d", w.Code)
	}

	// The resolve route stays public even when a key is configured.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/access/resolve", bytes.NewBufferString(`{"token":"bogus"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("public resolve returned %d, want 404 for unknown token", w.Code)
	}
}

func TestPreflightSucceedsWithoutServerKey(t *testing.T) {
	app, err := Build(config.Config{
		Env:             "dev",
		ServerAPIKey:    "secret-key",
		CORSAllowOrigin: []string{"http://broker.example"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/doc-requests", nil)
	req.Header.Set("Origin", "http://broker.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight returned %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://broker.example" {
		t.Fatalf("unexpected allow-origin header %q", got)
	}
}
