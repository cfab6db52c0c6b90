package uploads

import "time"

// Status is the lifecycle state of an upload.
type Status string

const (
	StatusReceived    Status = "RECEIVED"
	StatusQuarantined Status = "QUARANTINED"
	StatusAccepted    Status = "ACCEPTED"
	StatusRejected    Status = "REJECTED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusQuarantined, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an upload may move from one status to
// another. ACCEPTED and REJECTED are terminal; RECEIVED is never a target.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusReceived:
		return to == StatusAccepted || to == StatusRejected || to == StatusQuarantined
	case StatusQuarantined:
		return to == StatusAccepted || to == StatusRejected
	case StatusAccepted, StatusRejected:
		return false
	default:
		return false
	}
}

// EventType identifies one kind of audit event.
type EventType string

const (
	EventCreated       EventType = "CREATED"
	EventFileUploaded  EventType = "FILE_UPLOADED"
	EventStatusChanged EventType = "STATUS_CHANGED"
	EventNoteAdded     EventType = "NOTE_ADDED"
)

// ActorType identifies who performed an audited action.
type ActorType string

const (
	ActorBroker  ActorType = "BROKER"
	ActorCarrier ActorType = "CARRIER"
	ActorSystem  ActorType = "SYSTEM"
	ActorAPI     ActorType = "API"
)

// Upload is the latest submitted file for one (doc_request_id, doc_type)
// pair. A later upload for the same type replaces this row in place while
// the status is still RECEIVED.
type Upload struct {
	ID            string
	DocRequestID  string
	DocType       string
	FileName      string
	ContentType   string
	SizeBytes     int64
	Checksum      string
	StorageBucket string
	StorageKey    string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Event is one immutable audit record. Ordering by (created_at, id) defines
// the canonical history of an upload.
type Event struct {
	ID        int64
	UploadID  string
	EventType EventType
	ActorType ActorType
	ActorID   string
	Note      string
	CreatedAt time.Time
}
