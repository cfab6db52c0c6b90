package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"docgate-backend/internal/docrequests"
	"docgate-backend/internal/presign"
	"docgate-backend/internal/shared/config"
	"docgate-backend/internal/shared/server"
	"docgate-backend/internal/shared/storage/db"
	"docgate-backend/internal/uploads"
)

// App holds shared dependencies.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	DB                *sql.DB
	DocRequestRepo    docrequests.Repo
	UploadRepo        uploads.Repo
	DocRequestService *docrequests.Service
	UploadService     *uploads.Service
	DocRequestHandler *docrequests.Handler
	UploadHandler     *uploads.Handler
	PresignHandler    *presign.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
	}
	buildServices(app)

	presignHandler, err := presign.New(ctx, cfg.AWSRegion, cfg.UploadsBucket, cfg.UploadsPrefix)
	if err != nil {
		return nil, err
	}
	app.PresignHandler = presignHandler

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            app.Config,
		DocRequestHandler: app.DocRequestHandler,
		UploadHandler:     app.UploadHandler,
		PresignHandler:    app.PresignHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildServices(app *App) {
	var docRepo docrequests.Repo
	var uploadRepo uploads.Repo

	if app.DB != nil {
		docRepo = &docrequests.PGRepo{DB: app.DB}
		uploadRepo = &uploads.PGRepo{DB: app.DB}
	} else {
		// The memory repos hold separate entities, so their cross-entity
		// reads (request-open check, submit completeness check) are wired
		// explicitly here. Both repos share one mutex so those checks and
		// the writes they guard form a single critical section.
		memDocRepo := docrequests.NewMemoryRepo()
		memUploadRepo := uploads.NewMemoryRepo(memDocRepo.Locker(), memDocRepo.StatusOf)
		memDocRepo.SetUploadedTypesFunc(memUploadRepo.UploadedTypes)
		docRepo = memDocRepo
		uploadRepo = memUploadRepo
	}

	docSvc := &docrequests.Service{Repo: docRepo}
	uploadSvc := &uploads.Service{Repo: uploadRepo}

	app.DocRequestRepo = docRepo
	app.UploadRepo = uploadRepo
	app.DocRequestService = docSvc
	app.UploadService = uploadSvc
	app.DocRequestHandler = docrequests.NewHandler(docSvc)
	app.UploadHandler = uploads.NewHandler(uploadSvc)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
