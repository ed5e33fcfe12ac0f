// cmd/api/main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"trendcatch/internal/adapter/creativecenter"
	"trendcatch/internal/adapter/gemini"
	"trendcatch/internal/adapter/httpclient"
	"trendcatch/internal/adapter/mailer"
	"trendcatch/internal/adapter/openai"
	"trendcatch/internal/adapter/storage"
	"trendcatch/internal/adapter/webhook"
	"trendcatch/internal/adapter/ytdlp"
	"trendcatch/internal/config"
	"trendcatch/internal/logger"
	"trendcatch/internal/server"
	"trendcatch/internal/server/handlers"
	"trendcatch/internal/service/alerts"
	"trendcatch/internal/service/auth"
	"trendcatch/internal/service/content"
	"trendcatch/internal/service/trending"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger with sentry integration
	if err := logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service":     "trendcatch-api",
			"environment": cfg.Environment,
		},
	}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync(2 * time.Second)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		natsConn, err = initNATS(cfg.NATS)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Close()
	} else {
		logger.Warn("NATS URL not configured, snapshot events stay in-process")
	}

	// Initialize storage adapters
	soundStore := storage.NewSoundStore(db)
	userStore := storage.NewUserStore(db)

	// Initialize outbound clients
	alertsHTTP := httpclient.New(cfg.Alerts.HTTPTimeout)
	contentHTTP := httpclient.New(cfg.Content.HTTPTimeout)

	mail := mailer.New(mailer.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	if !mail.Enabled() {
		logger.Warn("SMTP host not configured, emails will only be logged")
	}

	// Initialize trend ingestion
	catcher := trending.NewCatcher(
		creativecenter.NewClient(creativecenter.Config{
			BaseURL:   cfg.Trend.CreativeCenterURL,
			UserAgent: cfg.Trend.UserAgent,
			Timeout:   cfg.Trend.HTTPTimeout,
		}),
		soundStore,
		trending.NewFetchCache(cfg.Trend.CacheTTL, time.Now),
		trending.NewRotation(cfg.Trend.Regions, cfg.Trend.RotationOffset, cfg.Trend.RotationSize),
		natsConn,
		trending.CatcherConfig{
			RequestDelay:      cfg.Trend.RequestDelay,
			RefreshDelay:      cfg.Trend.RefreshDelay,
			TopLimit:          cfg.Trend.TopLimit,
			SnapshotRetention: cfg.Trend.SnapshotRetention,
			EventsTopic:       cfg.Trend.EventsTopic,
			ScrapeBudget:      cfg.Trend.ScrapeBudget,
			FailureCooldown:   cfg.Trend.FailureCooldown,
		},
	)

	// Initialize alert delivery
	notifier := alerts.NewNotifier(
		ctx,
		userStore,
		soundStore,
		mail,
		webhook.NewDiscord(alertsHTTP),
		webhook.NewTelegram(cfg.Alerts.TelegramBotToken, "", alertsHTTP),
		alerts.Config{Workers: cfg.Alerts.Workers},
	)
	catcher.RegisterEventHandler(notifier.HandleEvent)

	scheduler := trending.NewScheduler(catcher, notifier, trending.SchedulerConfig{
		RefreshInterval: cfg.Trend.RefreshInterval,
		DigestInterval:  cfg.Alerts.DigestInterval,
	})
	scheduler.Start(ctx)

	// Initialize user-facing services
	authService := auth.NewService(userStore, mail, auth.Config{
		Secret: cfg.Auth.TokenSecret,
		TTL:    cfg.Auth.TokenTTL,
		AppURL: cfg.Auth.AppURL,
	})

	contentService := content.NewService(
		openai.NewTranscriber(cfg.Content.OpenAIAPIKey, cfg.Content.OpenAIURL, contentHTTP),
		gemini.NewGenerator(cfg.Content.GeminiAPIKey, cfg.Content.GeminiURL, cfg.Content.GeminiModel, contentHTTP),
		ytdlp.NewDownloader(ytdlp.Config{
			Path:    cfg.Content.YtDlpPath,
			Proxy:   cfg.Content.YtDlpProxy,
			Timeout: cfg.Content.DownloadTimeout,
		}),
		content.Config{MaxAudioBytes: cfg.Content.MaxAudioBytes},
	)

	deps := server.Dependencies{
		Catcher:       catcher,
		Auth:          authService,
		Content:       contentService,
		CronSecret:    cfg.Trend.CronSecret,
		EventsSubject: trending.SnapshotSubject(cfg.Trend.EventsTopic),
		RateLimit:     cfg.Content.RateLimit,
		RateBurst:     cfg.Content.RateBurst,
	}
	if natsConn != nil {
		deps.Events = handlers.NewNATSEventSource(natsConn)
	}

	// Initialize HTTP server
	httpServer := server.NewServer(cfg.Server, deps)

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server", zap.String("host", cfg.Server.Host), zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	logger.Info("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(fmt.Errorf("HTTP server shutdown error: %w", err))
	}

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error(fmt.Errorf("scheduler shutdown error: %w", err))
	}

	notifier.Stop()
	cancel()

	logger.Info("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.Name("trendcatch-api"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
