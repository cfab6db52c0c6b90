package uploads

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docgate-backend/internal/shared/metrics"
	"docgate-backend/internal/shared/server/middleware"
	"docgate-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches upload routes. All of them sit behind the
// server-key middleware; the server proxies carrier registrations after
// validating the carrier's resolved grant.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/doc-requests/:id/uploads", h.register)
	rg.GET("/doc-requests/:id/uploads", h.list)
	rg.GET("/uploads/:id", h.get)
	rg.POST("/uploads/:id/decision", h.decide)
	rg.POST("/uploads/:id/notes", h.addNote)
	rg.GET("/uploads/:id/events", h.events)
}

func (h *Handler) register(c *gin.Context) {
	docRequestID := c.Param("id")
	c.Set("docRequestId", docRequestID)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	up, err := h.Svc.Register(c.Request.Context(), RegisterInput{
		DocRequestID:  docRequestID,
		DocType:       req.DocType,
		FileName:      req.FileName,
		ContentType:   req.ContentType,
		SizeBytes:     req.SizeBytes,
		Checksum:      req.Checksum,
		StorageBucket: req.StorageBucket,
		StorageKey:    req.StorageKey,
		ActorID:       middleware.ActorIDFromContext(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "docType, fileName, storage locator and a positive sizeBytes are required", nil)
		case errors.Is(err, ErrRequestNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "doc request not found", nil)
		case errors.Is(err, ErrRequestClosed):
			respond.Error(c, http.StatusConflict, "request_closed", "doc request no longer accepts uploads", nil)
		case errors.Is(err, ErrReplaceDenied):
			respond.Error(c, http.StatusConflict, "replace_denied", "upload was already decided and cannot be replaced", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to register upload", nil)
		}
		return
	}

	c.Set("uploadId", up.ID)
	metrics.IncUploadsRegistered()
	respond.Created(c, toResponse(up))
}

func (h *Handler) list(c *gin.Context) {
	docRequestID := c.Param("id")
	c.Set("docRequestId", docRequestID)

	ups, err := h.Svc.ListByRequest(c.Request.Context(), docRequestID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list uploads", nil)
		return
	}
	resp := make([]uploadResponse, 0, len(ups))
	for _, up := range ups {
		resp = append(resp, toResponse(up))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	up, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "upload not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch upload", nil)
		}
		return
	}
	c.Set("uploadId", up.ID)
	respond.JSON(c, http.StatusOK, toResponse(up))
}

func (h *Handler) decide(c *gin.Context) {
	id := c.Param("id")
	c.Set("uploadId", id)

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	up, err := h.Svc.Decide(c.Request.Context(), id, Status(req.Status), req.Note, middleware.ActorIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "upload not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			respond.Error(c, http.StatusConflict, "invalid_transition", "status change is not allowed from the upload's current status", gin.H{"requested": req.Status})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to decide upload", nil)
		}
		return
	}

	metrics.IncUploadDecisions()
	respond.JSON(c, http.StatusOK, toResponse(up))
}

func (h *Handler) addNote(c *gin.Context) {
	id := c.Param("id")
	c.Set("uploadId", id)

	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ev, err := h.Svc.AppendNote(c.Request.Context(), id, req.Note, middleware.ActorIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "upload not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "note is required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to add note", nil)
		}
		return
	}
	respond.Created(c, toEventResponse(ev))
}

func (h *Handler) events(c *gin.Context) {
	id := c.Param("id")
	c.Set("uploadId", id)

	events, err := h.Svc.Events(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "upload not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list events", nil)
		}
		return
	}
	resp := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toEventResponse(ev))
	}
	respond.JSON(c, http.StatusOK, resp)
}
