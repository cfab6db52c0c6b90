package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docgate-backend/internal/docrequests"
	"docgate-backend/internal/presign"
	"docgate-backend/internal/shared/config"
	"docgate-backend/internal/shared/metrics"
	"docgate-backend/internal/shared/server/middleware"
	"docgate-backend/internal/shared/server/respond"
	"docgate-backend/internal/uploads"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config            config.Config
	DocRequestHandler *docrequests.Handler
	UploadHandler     *uploads.Handler
	PresignHandler    *presign.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
// The broker surface sits behind the server key; the only public mutating
// route is token resolution.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	deps.DocRequestHandler.RegisterPublicRoutes(api)

	broker := api.Group("")
	broker.Use(middleware.ServerAuth(deps.Config.ServerAPIKey, deps.Config.Env))
	deps.DocRequestHandler.RegisterRoutes(broker)
	deps.UploadHandler.RegisterRoutes(broker)
	if deps.PresignHandler != nil {
		deps.PresignHandler.RegisterRoutes(broker)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
