package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	firestorestore "github.com/HammerMeetNail/widgetshare/internal/backend/firestore"
	"github.com/HammerMeetNail/widgetshare/internal/backend/memory"
	"github.com/HammerMeetNail/widgetshare/internal/backend/postgres"
	"github.com/HammerMeetNail/widgetshare/internal/config"
	"github.com/HammerMeetNail/widgetshare/internal/database"
	"github.com/HammerMeetNail/widgetshare/internal/handlers"
	"github.com/HammerMeetNail/widgetshare/internal/logging"
	"github.com/HammerMeetNail/widgetshare/internal/mailer"
	"github.com/HammerMeetNail/widgetshare/internal/middleware"
	"github.com/HammerMeetNail/widgetshare/internal/objectstore"
	"github.com/HammerMeetNail/widgetshare/internal/presence"
	"github.com/HammerMeetNail/widgetshare/internal/push"
	"github.com/HammerMeetNail/widgetshare/internal/triggers"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

// closers run in reverse order on shutdown.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func run() error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := resolveLogLevel(cfg)
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)
	logger.Info("Starting widgetshare server...", map[string]interface{}{
		"env":       cfg.Server.Environment,
		"documents": cfg.Backend.Documents,
		"objects":   cfg.Backend.Objects,
		"push":      cfg.Push.Provider,
	})

	ctx := context.Background()
	var cleanup closers
	defer cleanup.run()

	var fb *database.FirebaseApp
	if cfg.UsesFirebase() {
		fb, err = database.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile, cfg.Firebase.StorageBucket)
		if err != nil {
			return fmt.Errorf("initializing firebase: %w", err)
		}
		logger.Info("Firebase app ready", map[string]interface{}{"project": cfg.Firebase.ProjectID})
	}

	docs, docsHealth, err := openDocuments(ctx, cfg, fb, logger, &cleanup)
	if err != nil {
		return err
	}
	objects, err := openObjects(ctx, cfg, fb, &cleanup)
	if err != nil {
		return err
	}

	var redisDB *database.RedisDB
	if cfg.Redis.Host != "" {
		logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
		redisDB, err = database.NewRedisDB(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		cleanup.add(func() { _ = redisDB.Close() })
		logger.Info("Connected to Redis")
	} else {
		logger.Warn("Redis disabled; presence, event dedupe and rate limits are off")
	}

	sender, err := newPushSender(ctx, cfg, fb, logger)
	if err != nil {
		return err
	}
	dispatcher := push.NewDispatcher(sender, cfg.Push.RatePerSec, cfg.Push.Burst)

	var (
		tracker     presence.Tracker
		dedupe      triggers.Deduper
		hub         *presence.Hub
		rateLimiter middleware.Evaler
		redisHealth handlers.HealthChecker
	)
	if redisDB != nil {
		redisAdapter := database.NewRedisAdapter(redisDB.Client)
		redisTracker := presence.NewRedisTracker(redisAdapter)
		tracker = redisTracker
		dedupe = triggers.NewRedisDeduper(redisAdapter, cfg.Triggers.DedupeTTL)
		hub = presence.NewHub(redisTracker, docs, logger, cfg.Server.AllowedOrigins)
		rateLimiter = redisDB.Client
		redisHealth = redisDB
	}

	trig := triggers.New(docs, objects, dispatcher, tracker, mailer.New(cfg.Email, logger), logger, triggers.Options{
		ThumbnailMaxSize: cfg.Thumbnails.MaxSize,
		FanoutParallel:   cfg.Triggers.FanoutParallel,
	})

	tokens, err := newTokenResolver(ctx, cfg, logger)
	if err != nil {
		return err
	}

	healthHandler := handlers.NewHealthHandler(map[string]handlers.HealthChecker{
		"documents": docsHealth,
		"redis":     redisHealth,
	})
	triggerHandler := handlers.NewTriggerHandler(trig, dedupe, logger)

	requireTrigger := func(h http.Handler) http.Handler { return h }
	if cfg.Triggers.Audience != "" {
		verifier, err := middleware.NewGoogleVerifier(ctx, cfg.Triggers.Audience, logger)
		if err != nil {
			return fmt.Errorf("initializing trigger verifier: %w", err)
		}
		requireTrigger = verifier.Require
	} else {
		logger.Warn("TRIGGER_AUDIENCE unset; trigger endpoints accept unauthenticated calls")
	}

	presenceLimit := resolvePresenceRateLimit(cfg, logger, os.LookupEnv)
	presenceLimiter := middleware.NewRateLimiter(rateLimiter, presenceLimit, time.Minute, "ratelimit:presence:", nil, true, logger)

	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Trigger endpoints
	mux.Handle("POST /triggers/widgets.updated", requireTrigger(http.HandlerFunc(triggerHandler.WidgetUpdated)))
	mux.Handle("POST /triggers/friends.created", requireTrigger(http.HandlerFunc(triggerHandler.FriendshipCreated)))
	mux.Handle("POST /triggers/friends.updated", requireTrigger(http.HandlerFunc(triggerHandler.FriendshipUpdated)))
	mux.Handle("POST /triggers/chats.messages.created", requireTrigger(http.HandlerFunc(triggerHandler.ChatMessageCreated)))
	mux.Handle("POST /triggers/storage.finalized", requireTrigger(http.HandlerFunc(triggerHandler.ObjectFinalized)))
	mux.Handle("POST /triggers/photos.deleted", requireTrigger(http.HandlerFunc(triggerHandler.PhotoDeleted)))

	// Presence socket
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	if hub != nil {
		presenceHandler := handlers.NewPresenceHandler(tokens, hub, logger)
		mux.Handle("GET /ws/presence", presenceLimiter.Middleware(http.HandlerFunc(presenceHandler.Connect)))
		go hub.Run(hubCtx)
	}

	requestLogger := middleware.NewRequestLogger(logger)
	handler := requestLogger.Apply(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")
		hubCancel()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

func openDocuments(ctx context.Context, cfg *config.Config, fb *database.FirebaseApp, logger *logging.Logger, cleanup *closers) (backend.Documents, handlers.HealthChecker, error) {
	switch cfg.Backend.Documents {
	case "firestore":
		client, err := fb.App.Firestore(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to firestore: %w", err)
		}
		store := firestorestore.NewStore(client)
		cleanup.add(func() { _ = store.Close() })
		return store, handlers.DocumentsChecker{Docs: store}, nil

	case "postgres":
		logger.Info("Connecting to PostgreSQL", map[string]interface{}{
			"host":      cfg.Database.Host,
			"port":      cfg.Database.Port,
			"max_conns": cfg.Database.MaxConns,
		})
		db, err := database.NewPostgresDB(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		cleanup.add(db.Close)

		logger.Info("Running database migrations...")
		migrator, err := database.NewMigrator(cfg.Database.DSN(), cfg.Database.MigrationsDir)
		if err != nil {
			return nil, nil, fmt.Errorf("creating migrator: %w", err)
		}
		if err := migrator.Up(); err != nil {
			_ = migrator.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		_ = migrator.Close()
		logger.Info("Migrations completed")
		return postgres.NewStore(database.NewPoolAdapter(db.Pool)), db, nil

	default:
		logger.Warn("Using in-memory document store; data is lost on restart")
		docs := memory.NewDocuments()
		return docs, handlers.DocumentsChecker{Docs: docs}, nil
	}
}

func openObjects(ctx context.Context, cfg *config.Config, fb *database.FirebaseApp, cleanup *closers) (backend.Objects, error) {
	switch cfg.Backend.Objects {
	case "gcs":
		client, err := storage.NewClient(ctx, fb.Options...)
		if err != nil {
			return nil, fmt.Errorf("connecting to cloud storage: %w", err)
		}
		cleanup.add(func() { _ = client.Close() })
		return objectstore.NewGCS(client, cfg.Firebase.StorageBucket, cfg.ObjectStore.PublicBaseURL), nil
	case "s3":
		s3, err := objectstore.NewS3(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("connecting to s3: %w", err)
		}
		return s3, nil
	default:
		return memory.NewObjects(cfg.ObjectStore.PublicBaseURL), nil
	}
}

func newPushSender(ctx context.Context, cfg *config.Config, fb *database.FirebaseApp, logger *logging.Logger) (push.Sender, error) {
	if cfg.Push.Provider != "fcm" {
		return push.NewConsoleSender(logger), nil
	}
	client, err := fb.App.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing fcm: %w", err)
	}
	return push.NewFCMSender(client), nil
}

// newTokenResolver verifies Firebase ID tokens. Without a project id, only
// development runs may fall back to treating the token as the uid.
func newTokenResolver(ctx context.Context, cfg *config.Config, logger *logging.Logger) (handlers.UIDResolver, error) {
	if cfg.Firebase.ProjectID != "" {
		v, err := middleware.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing token verifier: %w", err)
		}
		return v, nil
	}
	if cfg.Server.Environment == "development" || cfg.Server.Environment == "test" {
		logger.Warn("FIREBASE_PROJECT_ID unset; presence tokens are trusted as uids")
		return middleware.DevTokens{}, nil
	}
	return nil, errors.New("FIREBASE_PROJECT_ID is required to verify presence tokens")
}

func resolveLogLevel(cfg *config.Config) logging.Level {
	if cfg.Server.Debug {
		return logging.LevelDebug
	}
	return logging.ParseLevel(cfg.Server.LogLevel)
}

func resolvePresenceRateLimit(cfg *config.Config, logger *logging.Logger, lookupEnv func(string) (string, bool)) int64 {
	limit := int64(30)
	if cfg.Server.Environment == "development" {
		limit = 300
	}
	if v, ok := lookupEnv("PRESENCE_RATE_LIMIT"); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			limit = parsed
			logger.Info("Using presence rate limit from env", map[string]interface{}{"limit": limit})
		} else {
			logger.Warn("Invalid PRESENCE_RATE_LIMIT; using default", map[string]interface{}{
				"value": v,
				"limit": limit,
			})
		}
	}
	return limit
}
