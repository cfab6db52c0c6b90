package docrequests

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a document request.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusSubmitted Status = "SUBMITTED"
	StatusExpired   Status = "EXPIRED"
	StatusCanceled  Status = "CANCELED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusSubmitted, StatusExpired, StatusCanceled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a request may move from one status to
// another. EXPIRED and CANCELED are terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusOpen:
		return to == StatusSubmitted || to == StatusCanceled || to == StatusExpired
	case StatusSubmitted:
		return to == StatusExpired
	case StatusExpired, StatusCanceled:
		return false
	default:
		return false
	}
}

// RequiredDoc is one entry of a request's required-documents list.
type RequiredDoc struct {
	DocType  string `json:"doc_type"`
	Required bool   `json:"required"`
}

// DocRequest is a broker's time-boxed intake request for carrier documents.
type DocRequest struct {
	ID             string
	BrokerOrgID    string
	CarrierOrgID   string
	VerificationID string
	RequiredDocs   []RequiredDoc
	Status         Status
	ExpiresAt      time.Time
	SubmittedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const (
	minTTLMinutes     = 1
	maxTTLMinutes     = 1440
	defaultTTLMinutes = 60
)

// ClampTTL normalizes a requested ttl in minutes to the allowed window.
// Absent or non-positive values fall back to the default; out-of-range
// values are clamped rather than rejected.
func ClampTTL(minutes int) time.Duration {
	if minutes <= 0 {
		minutes = defaultTTLMinutes
	}
	if minutes < minTTLMinutes {
		minutes = minTTLMinutes
	}
	if minutes > maxTTLMinutes {
		minutes = maxTTLMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// ValidateRequiredDocs checks the list is non-empty and every doc_type is a
// distinct non-blank string. Performed once at creation; reads trust the
// stored form.
func ValidateRequiredDocs(docs []RequiredDoc) error {
	if len(docs) == 0 {
		return ErrInvalidInput
	}
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		docType := strings.TrimSpace(d.DocType)
		if docType == "" {
			return ErrInvalidInput
		}
		if _, dup := seen[docType]; dup {
			return ErrInvalidInput
		}
		seen[docType] = struct{}{}
	}
	return nil
}

// RequiredTypes returns the doc_type values marked required.
func (r DocRequest) RequiredTypes() []string {
	var out []string
	for _, d := range r.RequiredDocs {
		if d.Required {
			out = append(out, d.DocType)
		}
	}
	return out
}
