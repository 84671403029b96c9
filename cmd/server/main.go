package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"health-companion/internal/agent"
	"health-companion/internal/analytics"
	"health-companion/internal/config"
	"health-companion/internal/consultation"
	"health-companion/internal/knowledge"
	"health-companion/internal/logging"
	"health-companion/internal/metrics"
	"health-companion/internal/patient"
	"health-companion/internal/platform/telegram"
	"health-companion/internal/report"
)

const serviceName = "health-companion"

func main() {
	config.LoadEnv(nil)
	cfg := config.Load()

	logger, err := logging.NewServiceLogger(serviceName, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 1. Storage
	repo := openRepository(cfg, logger)

	// 2. Core
	kb := knowledge.NewDefaultStore()
	companion := agent.NewCompanion(kb)
	patients := patient.NewDemoStore()
	if cfg.DefaultPatientID != "" {
		if err := patients.SetDefault(cfg.DefaultPatientID); err != nil {
			logger.Fatal("invalid DEFAULT_PATIENT_ID", zap.String("patient_id", cfg.DefaultPatientID), zap.Error(err))
		}
	}

	cache, err := analytics.NewCache(analytics.NewGenerator(cfg.AnalyticsSeed), cfg.AnalyticsMaxSessions, logger)
	if err != nil {
		logger.Fatal("analytics cache init failed", zap.Error(err))
	}
	defer cache.Close()

	// 3. Integrations
	var reports *report.Service
	fontPaths := cfg.FontPaths(report.DefaultFontPaths)
	if cfg.TelegramToken != "" {
		reports = report.NewService(telegram.NewClient(cfg.TelegramToken), cfg.CareTeamChatID, fontPaths, logger)
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, transcripts can be downloaded but not shared")
		reports = report.NewService(nil, 0, fontPaths, logger)
	}
	voice := agent.NewVoiceClient(cfg.STTURL, cfg.TTSURL, cfg.TTSSpeaker)
	collector := metrics.NewCollector(serviceName)

	svc := consultation.NewService(repo, companion, patients, consultation.Options{
		ThinkDelay: cfg.ThinkDelay,
		Analytics:  cache,
		Reports:    reports,
		Speech:     voice,
		Recorder:   collector,
		Logger:     logger,
	})
	handler := consultation.NewHandler(svc, patients, logger)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// CORS for the demo frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding")
			if r.Method == http.MethodOptions {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", collector.Handler())
	r.Route("/api", func(r chi.Router) {
		consultation.RegisterRoutes(r, handler)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.Duration("think_delay", cfg.ThinkDelay))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

// openRepository uses Postgres when DATABASE_URL is set and reachable, and
// the in-memory store otherwise.
func openRepository(cfg config.Config, logger *zap.Logger) consultation.Repository {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, sessions are kept in memory")
		return consultation.NewMemoryRepository()
	}

	db, err := connectWithRetry(func() (*sql.DB, error) {
		return sql.Open("postgres", cfg.DatabaseURL)
	}, 10, time.Second, logger)
	if err != nil {
		logger.Warn("could not connect to database, falling back to memory sessions", zap.Error(err))
		return consultation.NewMemoryRepository()
	}
	logger.Info("connected to database")

	m, err := migrate.New(cfg.MigrationsPath, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("migration init failed", zap.Error(err))
	} else if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Warn("migration up failed", zap.Error(err))
	} else {
		logger.Info("migrations applied")
	}

	return consultation.NewPostgresRepository(db)
}

// connectWithRetry opens and pings until the database answers. Handles from
// failed attempts are closed.
func connectWithRetry(open func() (*sql.DB, error), attempts int, wait time.Duration, logger *zap.Logger) (*sql.DB, error) {
	var err error
	for i := 0; i < attempts; i++ {
		var db *sql.DB
		db, err = open()
		if err == nil {
			if err = db.Ping(); err == nil {
				return db, nil
			}
			db.Close()
		}
		logger.Info("waiting for database", zap.Int("attempt", i+1), zap.Error(err))
		if i < attempts-1 {
			time.Sleep(wait)
		}
	}
	return nil, err
}
