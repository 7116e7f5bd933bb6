package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"voicecare-backend/internal/analysis"
	"voicecare-backend/internal/calls"
	"voicecare-backend/internal/events"
	"voicecare-backend/internal/notify"
	"voicecare-backend/internal/queue"
	"voicecare-backend/internal/relay"
	"voicecare-backend/internal/services/health"
	"voicecare-backend/internal/shared/auth"
	"voicecare-backend/internal/shared/config"
	"voicecare-backend/internal/shared/server"
	"voicecare-backend/internal/shared/storage/db"
	"voicecare-backend/internal/shared/storage/object"
	localstore "voicecare-backend/internal/shared/storage/object/local"
	miniostore "voicecare-backend/internal/shared/storage/object/minio"
	s3store "voicecare-backend/internal/shared/storage/object/s3"
	"voicecare-backend/internal/shared/telemetry"
	"voicecare-backend/internal/users"
)

// EventSource delivers storage finalize events until ctx is done.
type EventSource interface {
	Run(ctx context.Context, handle events.Handler) error
}

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Firebase  *firebase.App
	Firestore *firestore.Client
	Store     object.ObjectStore
	Queue     queue.Client
	KeyPrefix string

	CallsRepo     calls.Repo
	SummariesRepo calls.SummaryRepo
	UsersRepo     users.Repo

	CallsService *calls.Service
	UsersService *users.Service
	Analyzer     analysis.Analyzer
	Notifier     *notify.Dispatcher
	Relay        *relay.Service
	Runner       *relay.Runner
	Verifier     auth.Verifier
	Health       *health.Service
	Sources      []EventSource

	CallsHandler *calls.Handler
	UsersHandler *users.Handler
	RelayHandler *relay.Handler
}

// Build prepares dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()
	app := &App{Config: cfg, Health: health.NewService()}

	if needsFirebase(cfg) {
		fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID})
		if err != nil {
			return nil, fmt.Errorf("firebase app: %w", err)
		}
		app.Firebase = fbApp
	}

	if err := buildRecords(ctx, app); err != nil {
		return nil, err
	}
	if err := buildStore(ctx, app); err != nil {
		return nil, err
	}
	if err := buildQueue(ctx, app); err != nil {
		return nil, err
	}
	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       app.Config,
		Verifier:     app.Verifier,
		Health:       app.Health,
		CallsHandler: app.CallsHandler,
		UsersHandler: app.UsersHandler,
		RelayHandler: app.RelayHandler,
	})
	return app, nil
}

// RunSources runs the configured event sources until ctx is done or one fails.
func (a *App) RunSources(ctx context.Context) error {
	if len(a.Sources) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range a.Sources {
		src := src
		g.Go(func() error {
			err := src.Run(gctx, a.Runner.Submit)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// Close waits for in-flight relay work and releases clients.
func (a *App) Close() {
	if a.Runner != nil {
		a.Runner.Wait()
	}
	if a.Firestore != nil {
		if err := a.Firestore.Close(); err != nil {
			telemetry.Warn("bootstrap.firestore_close_failed", map[string]any{"error": err})
		}
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
	telemetry.Sync()
}

func needsFirebase(cfg config.Config) bool {
	return cfg.RecordStore == "firestore" || cfg.PushProvider == "fcm" || strings.TrimSpace(cfg.FirebaseProjectID) != ""
}

func buildRecords(ctx context.Context, app *App) error {
	cfg := app.Config
	switch cfg.RecordStore {
	case "postgres":
		sqlDB, err := buildDB(ctx, cfg)
		if err != nil {
			return err
		}
		if sqlDB == nil {
			break
		}
		app.DB = sqlDB
		repo := &calls.PGRepo{DB: sqlDB}
		app.CallsRepo, app.SummariesRepo = repo, repo
		app.UsersRepo = &users.PGRepo{DB: sqlDB}
		app.Health.Add("database", sqlDB.PingContext)
		return nil
	case "firestore":
		client, err := app.Firebase.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("firestore client: %w", err)
		}
		app.Firestore = client
		repo := &calls.FirestoreRepo{Client: client}
		app.CallsRepo, app.SummariesRepo = repo, repo
		app.UsersRepo = &users.FirestoreRepo{Client: client}
		return nil
	}

	if cfg.Env == "production" {
		return fmt.Errorf("RECORD_STORE=%s is not allowed in production", cfg.RecordStore)
	}
	telemetry.Warn("bootstrap.memory_records", map[string]any{"record_store": cfg.RecordStore})
	repo := calls.NewMemoryRepo()
	app.CallsRepo, app.SummariesRepo = repo, repo
	app.UsersRepo = users.NewMemoryRepo()
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_url_empty", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_connect_failed", map[string]any{"fallback": "memory", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, app *App) error {
	cfg := app.Config
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return err
		}
		app.Store = store
		app.KeyPrefix = store.Prefix()
	case "minio":
		store, err := miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return err
		}
		app.Store = store
		app.Sources = append(app.Sources, &events.MinioSource{
			Client: store.Client(),
			Bucket: store.Bucket(),
		})
	default:
		store := localstore.New(cfg.LocalStoreDir)
		app.Store = store
		if cfg.LocalWatch {
			app.Sources = append(app.Sources, &events.LocalWatcher{Root: store.BaseDir(), Resolver: store})
		}
	}
	return nil
}

func buildQueue(ctx context.Context, app *App) error {
	if strings.TrimSpace(app.Config.QueueURL) == "" {
		return nil
	}
	client, err := queue.NewSQSClient(ctx, app.Config.QueueURL, app.Config.AWSRegion)
	if err != nil {
		return err
	}
	app.Queue = client
	return nil
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config

	verifier, err := buildVerifier(ctx, app)
	if err != nil {
		return err
	}
	app.Verifier = verifier

	if cfg.AnalysisServiceURL != "" {
		client, err := analysis.NewClient(cfg.AnalysisServiceURL, cfg.AnalysisServiceToken, cfg.AnalysisTimeout)
		if err != nil {
			return err
		}
		app.Analyzer = client
	} else {
		telemetry.Warn("bootstrap.analysis_unconfigured", map[string]any{"effect": "uploads end in pending_config"})
	}

	sender, err := buildSender(ctx, app)
	if err != nil {
		return err
	}

	app.UsersService = users.NewService(app.UsersRepo)
	app.CallsService = &calls.Service{
		Repo:      app.CallsRepo,
		Summaries: app.SummariesRepo,
		Store:     app.Store,
	}
	app.Notifier = &notify.Dispatcher{
		Tokens:    app.UsersService,
		Sender:    sender,
		WebAppURL: cfg.WebAppURL,
	}

	relaySvc := &relay.Service{
		Calls:      app.CallsRepo,
		Summaries:  app.SummariesRepo,
		Notifier:   app.Notifier,
		URIFor:     app.Store.URI,
		SummaryTTL: cfg.PublicSummaryTTL,
	}
	if app.Analyzer != nil {
		relaySvc.Analyzer = app.Analyzer
	}
	app.Relay = relaySvc
	app.Runner = relay.NewRunner(relaySvc, cfg.WorkerConcurrency)

	app.CallsHandler = calls.NewHandler(app.CallsService)
	app.UsersHandler = users.NewHandler(app.UsersService)
	app.RelayHandler = relay.NewHandler(relaySvc, app.Runner, app.KeyPrefix)
	return nil
}

func buildVerifier(ctx context.Context, app *App) (auth.Verifier, error) {
	if app.Firebase != nil && strings.TrimSpace(app.Config.JWTSecret) == "" {
		return auth.NewFirebaseVerifier(ctx, app.Firebase)
	}
	return auth.NewHMACVerifier(app.Config.JWTSecret, app.Config.Env)
}

func buildSender(ctx context.Context, app *App) (notify.Sender, error) {
	if app.Config.PushProvider != "fcm" {
		return notify.NoopSender{}, nil
	}
	return notify.NewFCMSender(ctx, app.Firebase)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
