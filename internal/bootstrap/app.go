package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "easyread/internal/auth"
	"easyread/internal/documents"
	"easyread/internal/extract"
	"easyread/internal/llm"
	openai "easyread/internal/llm/openai"
	"easyread/internal/ocr"
	"easyread/internal/ocr/vision"
	"easyread/internal/pdfrender"
	"easyread/internal/shared/config"
	"easyread/internal/shared/server"
	"easyread/internal/shared/storage/db"
	"easyread/internal/shared/storage/object"
	localstore "easyread/internal/shared/storage/object/local"
	s3store "easyread/internal/shared/storage/object/s3"
	"easyread/internal/shared/telemetry"
	"easyread/internal/simplify"
	"easyread/internal/users"
)

// App holds the wired application dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	UsersRepo     users.Repo
	DocumentsRepo documents.DocumentsRepo

	UsersService     *users.Service
	DocumentsService *documents.Service
	SimplifyService  *simplify.Service

	UsersHandler     *users.Handler
	DocumentsHandler *documents.Handler
	ExtractHandler   *extract.Handler
	SimplifyHandler  *simplify.Handler
	RenderHandler    *pdfrender.Handler
	GoogleAuth       *googleauth.GoogleService
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		UsersHandler:     app.UsersHandler,
		DocumentsHandler: app.DocumentsHandler,
		ExtractHandler:   app.ExtractHandler,
		SimplifyHandler:  app.SimplifyHandler,
		RenderHandler:    app.RenderHandler,
		GoogleAuth:       app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repos", map[string]any{
				"reason": "DATABASE_URL empty",
			})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Error("bootstrap.db_connect_failed", map[string]any{
				"error": err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) error {
	cfg := app.Config

	var userRepo users.Repo
	var docRepo documents.DocumentsRepo
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		docRepo = documents.NewMemoryRepo()
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if strings.TrimSpace(cfg.LLMAPIKey) != "" {
		client, err := openai.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
		if err != nil {
			return err
		}
		llmClient = client
	}

	var ocrEngine ocr.Engine
	if strings.TrimSpace(cfg.OCRAPIKey) != "" {
		engine, err := vision.NewClient(cfg.OCRBaseURL, cfg.OCRAPIKey, cfg.OCRModel)
		if err != nil {
			return err
		}
		ocrEngine = engine
	}

	var renderClient *pdfrender.Client
	if strings.TrimSpace(cfg.PDFRenderURL) != "" {
		renderClient = pdfrender.NewClient(cfg.PDFRenderURL)
	}

	userSvc := users.NewService(userRepo)
	docSvc := documents.NewService(docRepo)
	simplifySvc := simplify.NewService(llmClient)

	app.UsersRepo = userRepo
	app.DocumentsRepo = docRepo
	app.UsersService = userSvc
	app.DocumentsService = docSvc
	app.SimplifyService = simplifySvc

	app.UsersHandler = users.NewHandler(userSvc)
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.ExtractHandler = extract.NewHandler(
		app.Store,
		ocrEngine,
		int64(cfg.MaxPDFUploadMB)<<20,
		int64(cfg.MaxScanUploadMB)<<20,
		cfg.OCRFallback,
	)
	app.SimplifyHandler = simplify.NewHandler(simplifySvc)
	app.RenderHandler = pdfrender.NewHandler(renderClient)
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		userSvc,
	)

	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
