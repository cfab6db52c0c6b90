package presign

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docgate-backend/internal/shared/server/respond"
	"docgate-backend/internal/shared/telemetry"
	"docgate-backend/internal/shared/util"
)

const (
	maxUploadBytes = 25 << 20
	presignExpires = 15 * time.Minute
	defaultRegion  = "us-east-1"
	defaultPrefix  = "doc-requests/"
)

var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
	"image/tiff":      {},
}

// Handler issues presigned PUT URLs so carriers upload file bytes straight to
// object storage. The resulting bucket/key pair becomes the opaque storage
// locator the workflow core records and never interprets.
type Handler struct {
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// New builds a Handler for the given region, bucket, and key prefix.
// Returns nil when no bucket is configured so the route can be skipped.
func New(ctx context.Context, region, bucket, prefix string) (*Handler, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, nil
	}
	region = strings.TrimSpace(region)
	if region == "" {
		region = defaultRegion
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &Handler{
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		prefix:  prefix,
	}, nil
}

type presignRequest struct {
	DocRequestID string `json:"docRequestId"`
	DocType      string `json:"docType"`
	FileName     string `json:"fileName"`
	ContentType  string `json:"contentType"`
	SizeBytes    int64  `json:"sizeBytes"`
}

type presignResponse struct {
	UploadURL        string `json:"uploadUrl"`
	StorageBucket    string `json:"storageBucket"`
	StorageKey       string `json:"storageKey"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// RegisterRoutes attaches the presign route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads/presign", h.handle)
}

func (h *Handler) handle(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	req.DocRequestID = strings.TrimSpace(req.DocRequestID)
	req.DocType = strings.TrimSpace(req.DocType)
	req.FileName = strings.TrimSpace(req.FileName)
	req.ContentType = strings.TrimSpace(req.ContentType)

	if req.DocRequestID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "docRequestId is required", nil)
		return
	}
	if req.DocType == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "docType is required", nil)
		return
	}
	if req.FileName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName is required", nil)
		return
	}
	if _, ok := allowedContentTypes[req.ContentType]; !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "contentType is not allowed", nil)
		return
	}
	if req.SizeBytes <= 0 || req.SizeBytes > maxUploadBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "sizeBytes exceeds limit", nil)
		return
	}

	sanitized, err := util.SanitizeFileName(req.FileName)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileName", nil)
		return
	}

	fileID := uuid.NewString()
	key := path.Join(h.prefix, req.DocRequestID, req.DocType, fileID+"-"+sanitized)

	out, err := h.presign.PresignPutObject(c.Request.Context(), &s3.PutObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignExpires
	})
	if err != nil {
		telemetry.Error("presign.failed", map[string]any{
			"err":            err.Error(),
			"bucket":         h.bucket,
			"key":            key,
			"contentType":    req.ContentType,
			"sizeBytes":      req.SizeBytes,
			"doc_request_id": req.DocRequestID,
			"request_id":     c.GetString("requestId"),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate upload url", nil)
		return
	}

	respond.JSON(c, http.StatusOK, presignResponse{
		UploadURL:        out.URL,
		StorageBucket:    h.bucket,
		StorageKey:       key,
		ExpiresInSeconds: int64(presignExpires.Seconds()),
	})
}
