package docrequests

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docgate-backend/internal/shared/metrics"
	"docgate-backend/internal/shared/server/respond"
	"docgate-backend/internal/tokens"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the broker-facing routes. The group must sit behind
// the server-key middleware; carriers never reach these.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/doc-requests", h.create)
	rg.GET("/doc-requests/:id", h.get)
	rg.POST("/doc-requests/:id/submit", h.submit)
	rg.POST("/doc-requests/:id/cancel", h.cancel)
	rg.POST("/doc-requests/:id/revoke-token", h.revokeToken)
}

// RegisterPublicRoutes attaches the single carrier-facing route. Resolve is
// the only operation a token holder may invoke.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/access/resolve", h.resolve)
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	result, err := h.Svc.Create(c.Request.Context(), CreateInput{
		BrokerOrgID:    req.BrokerOrgID,
		CarrierOrgID:   req.CarrierOrgID,
		VerificationID: req.VerificationID,
		RequiredDocs:   fromRequiredDocDTOs(req.RequiredDocs),
		TTLMinutes:     req.TTLMinutes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "brokerOrgId and a distinct, non-empty requiredDocs list are required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create doc request", nil)
		}
		return
	}

	c.Set("docRequestId", result.Request.ID)
	metrics.IncDocRequestsCreated()
	respond.Created(c, createResponse{
		DocRequestID: result.Request.ID,
		Token:        result.RawToken,
		ExpiresAt:    result.Request.ExpiresAt,
	})
}

func (h *Handler) get(c *gin.Context) {
	req, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "doc request not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch doc request", nil)
		}
		return
	}
	c.Set("docRequestId", req.ID)
	respond.JSON(c, http.StatusOK, toResponse(req))
}

func (h *Handler) submit(c *gin.Context) {
	id := c.Param("id")
	c.Set("docRequestId", id)

	req, err := h.Svc.Submit(c.Request.Context(), id)
	if err != nil {
		var missing *MissingDocumentsError
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "doc request not found", nil)
		case errors.As(err, &missing):
			respond.Error(c, http.StatusConflict, "missing_documents", "required documents are not all uploaded", gin.H{"missing": missing.Missing})
		case errors.Is(err, ErrInvalidTransition):
			respond.Error(c, http.StatusConflict, "invalid_transition", "doc request is not open", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to submit doc request", nil)
		}
		return
	}

	metrics.IncDocRequestsSubmitted()
	respond.JSON(c, http.StatusOK, toResponse(req))
}

func (h *Handler) cancel(c *gin.Context) {
	id := c.Param("id")
	c.Set("docRequestId", id)

	req, err := h.Svc.Cancel(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "doc request not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			respond.Error(c, http.StatusConflict, "invalid_transition", "doc request is not open", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to cancel doc request", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(req))
}

func (h *Handler) revokeToken(c *gin.Context) {
	id := c.Param("id")
	c.Set("docRequestId", id)

	if err := h.Svc.RevokeToken(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, tokens.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "no active token for doc request", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to revoke token", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"revoked": true})
}

func (h *Handler) resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	access, err := h.Svc.Resolve(c.Request.Context(), req.Token)
	if err != nil {
		metrics.IncTokenResolveFailed()
		switch {
		case errors.Is(err, tokens.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "unknown token", nil)
		case errors.Is(err, tokens.ErrRevoked):
			respond.Error(c, http.StatusForbidden, "token_revoked", "token has been revoked", nil)
		case errors.Is(err, tokens.ErrAlreadyUsed):
			respond.Error(c, http.StatusConflict, "token_used", "token has already been used", nil)
		case errors.Is(err, tokens.ErrExpired):
			respond.Error(c, http.StatusGone, "token_expired", "token has expired", nil)
		case errors.Is(err, ErrRequestClosed):
			respond.Error(c, http.StatusConflict, "request_closed", "doc request is no longer open", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to resolve token", nil)
		}
		return
	}

	c.Set("docRequestId", access.Request.ID)
	metrics.IncTokensResolved()
	respond.JSON(c, http.StatusOK, resolveResponse{
		DocRequest: toResponse(access.Request),
		TokenMeta: tokenMetaDTO{
			ExpiresAt: access.Token.ExpiresAt,
			UsedAt:    access.Token.UsedAt,
		},
	})
}
