package docrequests

import "time"

type requiredDocDTO struct {
	DocType  string `json:"docType"`
	Required bool   `json:"required"`
}

type createRequest struct {
	BrokerOrgID    string           `json:"brokerOrgId"`
	CarrierOrgID   string           `json:"carrierOrgId"`
	VerificationID string           `json:"verificationId"`
	RequiredDocs   []requiredDocDTO `json:"requiredDocs"`
	TTLMinutes     int              `json:"ttlMinutes"`
}

type createResponse struct {
	DocRequestID string    `json:"docRequestId"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type docRequestResponse struct {
	DocRequestID   string           `json:"docRequestId"`
	BrokerOrgID    string           `json:"brokerOrgId"`
	CarrierOrgID   string           `json:"carrierOrgId,omitempty"`
	VerificationID string           `json:"verificationId,omitempty"`
	RequiredDocs   []requiredDocDTO `json:"requiredDocs"`
	Status         string           `json:"status"`
	ExpiresAt      time.Time        `json:"expiresAt"`
	SubmittedAt    *time.Time       `json:"submittedAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

type resolveRequest struct {
	Token string `json:"token"`
}

type resolveResponse struct {
	DocRequest docRequestResponse `json:"docRequest"`
	TokenMeta  tokenMetaDTO       `json:"token"`
}

type tokenMetaDTO struct {
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
}

func toRequiredDocDTOs(docs []RequiredDoc) []requiredDocDTO {
	out := make([]requiredDocDTO, 0, len(docs))
	for _, d := range docs {
		out = append(out, requiredDocDTO{DocType: d.DocType, Required: d.Required})
	}
	return out
}

func fromRequiredDocDTOs(docs []requiredDocDTO) []RequiredDoc {
	out := make([]RequiredDoc, 0, len(docs))
	for _, d := range docs {
		out = append(out, RequiredDoc{DocType: d.DocType, Required: d.Required})
	}
	return out
}

func toResponse(req DocRequest) docRequestResponse {
	return docRequestResponse{
		DocRequestID:   req.ID,
		BrokerOrgID:    req.BrokerOrgID,
		CarrierOrgID:   req.CarrierOrgID,
		VerificationID: req.VerificationID,
		RequiredDocs:   toRequiredDocDTOs(req.RequiredDocs),
		Status:         string(req.Status),
		ExpiresAt:      req.ExpiresAt,
		SubmittedAt:    req.SubmittedAt,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.UpdatedAt,
	}
}
