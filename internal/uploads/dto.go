package uploads

import "time"

type registerRequest struct {
	DocType       string `json:"docType"`
	FileName      string `json:"fileName"`
	ContentType   string `json:"contentType"`
	SizeBytes     int64  `json:"sizeBytes"`
	Checksum      string `json:"checksum"`
	StorageBucket string `json:"storageBucket"`
	StorageKey    string `json:"storageKey"`
}

type decisionRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type uploadResponse struct {
	UploadID     string    `json:"uploadId"`
	DocRequestID string    `json:"docRequestId"`
	DocType      string    `json:"docType"`
	FileName     string    `json:"fileName"`
	ContentType  string    `json:"contentType,omitempty"`
	SizeBytes    int64     `json:"sizeBytes"`
	Checksum     string    `json:"checksum,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type eventResponse struct {
	EventID   int64     `json:"eventId"`
	EventType string    `json:"eventType"`
	ActorType string    `json:"actorType"`
	ActorID   string    `json:"actorId,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toResponse(up Upload) uploadResponse {
	return uploadResponse{
		UploadID:     up.ID,
		DocRequestID: up.DocRequestID,
		DocType:      up.DocType,
		FileName:     up.FileName,
		ContentType:  up.ContentType,
		SizeBytes:    up.SizeBytes,
		Checksum:     up.Checksum,
		Status:       string(up.Status),
		CreatedAt:    up.CreatedAt,
		UpdatedAt:    up.UpdatedAt,
	}
}

func toEventResponse(ev Event) eventResponse {
	return eventResponse{
		EventID:   ev.ID,
		EventType: string(ev.EventType),
		ActorType: string(ev.ActorType),
		ActorID:   ev.ActorID,
		Note:      ev.Note,
		CreatedAt: ev.CreatedAt,
	}
}
