package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/aidentify/internal/application"
	appanalysis "github.com/bryanwahyu/aidentify/internal/application/analysis"
	appchats "github.com/bryanwahyu/aidentify/internal/application/chats"
	"github.com/bryanwahyu/aidentify/internal/config"
	"github.com/bryanwahyu/aidentify/internal/infra/ai/openai"
	"github.com/bryanwahyu/aidentify/internal/infra/executor/ffmpeg"
	"github.com/bryanwahyu/aidentify/internal/infra/features"
	"github.com/bryanwahyu/aidentify/internal/infra/httpserver"
	"github.com/bryanwahyu/aidentify/internal/infra/metrics"
	"github.com/bryanwahyu/aidentify/internal/infra/staging"
	minioStore "github.com/bryanwahyu/aidentify/internal/infra/storage"
	"github.com/bryanwahyu/aidentify/internal/middleware"
	"github.com/bryanwahyu/aidentify/internal/telemetry"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("config load error")
	}
	setupLogger(cfg.Server)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("telemetry init error")
	}
	metrics.Init()

	// repositories
	repos, err := openRepositories(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("database init error")
	}
	defer repos.Close()

	// init minio
	store, err := minioStore.New(ctx, minioStore.Options{
		Endpoint:      cfg.Minio.Endpoint,
		Region:        cfg.Minio.Region,
		Bucket:        cfg.Minio.BucketName,
		AccessKey:     cfg.Minio.AccessKey,
		SecretKey:     cfg.Minio.SecretKey,
		UseSSL:        cfg.Minio.UseSSL,
		PublicBaseURL: cfg.Minio.PublicBaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("minio init error")
	}

	stager, err := staging.NewLocal(cfg.Staging.Dir, cfg.Staging.MaxBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("staging init error")
	}

	runner := ffmpeg.NewRunner(cfg.Features.FFmpegPath, cfg.Features.FFprobePath, cfg.Features.CommandTimeout)
	runner.MaxPixels = cfg.Features.MaxPixels
	registry, err := features.NewDefaultRegistry(runner, runner, cfg.Features.Workers, cfg.Features.MaxPixels)
	if err != nil {
		log.Fatal().Err(err).Msg("feature registry error")
	}

	oracle := openai.NewClient(cfg.Oracle.APIKey, openai.Options{
		BaseURL:      cfg.Oracle.BaseURL,
		Model:        cfg.Oracle.Model,
		FilePurpose:  cfg.Oracle.FilePurpose,
		PollInterval: cfg.Oracle.PollInterval,
		ReadyTimeout: cfg.Oracle.ReadyTimeout,
		Frames:       runner,
	})

	analysisSvc := &appanalysis.Service{
		Stager:       stager,
		Assets:       store,
		Extractors:   registry,
		Oracle:       oracle,
		Chats:        repos.Chats,
		Results:      repos.Results,
		Failures:     repos.Failures,
		Recorder:     metrics.Pipeline{},
		Clock:        application.SystemClock{},
		Mode:         appanalysis.Mode(cfg.Pipeline.Persistence),
		DropDegraded: !cfg.Pipeline.KeepDegraded(),
		KeyPrefix:    cfg.Pipeline.KeyPrefix,
	}

	var limiter *middleware.RateLimiter
	stopSweep := make(chan struct{})
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateRefill)
		go limiter.Run(stopSweep)
	}

	checks := map[string]middleware.HealthChecker{"storage": middleware.CheckFunc(store.Ping)}
	if repos.Ping != nil {
		checks["database"] = repos.Ping
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Analysis:       analysisSvc,
		Chats:          &appchats.Service{Repo: repos.Chats},
		Health:         checks,
		ClientURL:      cfg.Server.ClientURL,
		MaxUploadBytes: cfg.Staging.MaxBytes,
		Limiter:        limiter,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// run server
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("db", cfg.Database.Driver).
			Str("persistence", cfg.Pipeline.Persistence).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down server...")
	close(stopSweep)

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	if err := shutdownTracing(ctx2); err != nil {
		log.Error().Err(err).Msg("tracing shutdown error")
	}
}

func setupLogger(cfg config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "aidentify-api").Logger()
}
