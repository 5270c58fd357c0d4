package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hyobinnSeo/VoiceSync/config"
	_ "github.com/hyobinnSeo/VoiceSync/docs"
	"github.com/hyobinnSeo/VoiceSync/handlers"
	"github.com/hyobinnSeo/VoiceSync/internal/aiclient"
	"github.com/hyobinnSeo/VoiceSync/internal/cache"
	"github.com/hyobinnSeo/VoiceSync/internal/db"
	"github.com/hyobinnSeo/VoiceSync/internal/fetch"
	"github.com/hyobinnSeo/VoiceSync/internal/ffmpeg"
	"github.com/hyobinnSeo/VoiceSync/internal/session"
	"github.com/hyobinnSeo/VoiceSync/internal/storage"
	"github.com/hyobinnSeo/VoiceSync/internal/tts"
	"github.com/hyobinnSeo/VoiceSync/internal/worker"
	"github.com/hyobinnSeo/VoiceSync/middleware"
	"github.com/hyobinnSeo/VoiceSync/utils"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(runCtx, cfg, log)
		},
	}
}

func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (db.Store, error) {
	switch cfg.Store.Backend {
	case "postgrest":
		return db.NewPostgrestStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey, log)
	default:
		store, err := db.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.Store.SQLitePath).Info("SQLite video store opened")
		return store, nil
	}
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open video store: %w", err)
	}
	defer store.Close()

	deps := handlers.ApplicationHandler{
		Resolver: &fetch.Resolver{Extractor: &fetch.YtDlp{
			Path:    cfg.Tools.YtDlp,
			Timeout: time.Duration(cfg.Tools.ExtractSeconds) * time.Second,
			Log:     log,
		}},
		Prober:         ffmpeg.Prober{Path: cfg.Tools.FFprobe},
		Store:          store,
		Logger:         log,
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}

	if cfg.Redis.Addr != "" {
		rc, err := cache.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix, cfg.CacheTTL())
		if err != nil {
			log.WithError(err).Warn("Transcript cache disabled")
		} else {
			defer rc.Close()
			deps.Cache = rc
		}
	}

	if cfg.AI.Addr != "" {
		ai, err := aiclient.NewAIClient(cfg.AI.Addr, time.Duration(cfg.AI.TimeoutSeconds)*time.Second, log)
		if err != nil {
			return err
		}
		defer ai.Close()
		deps.AIClient = ai
	} else {
		log.Warn("No AI service address configured; narration is disabled")
	}

	if cfg.TTS.URL != "" {
		deps.Synthesizer = tts.NewClient(cfg.TTS.URL, cfg.TTS.Voice, time.Duration(cfg.TTS.TimeoutSeconds)*time.Second)
	}

	if cfg.Supabase.MirrorUploads() {
		mirror, err := storage.NewSupabaseMirror(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Supabase.Bucket, log)
		if err != nil {
			return err
		}
		deps.Mirror = mirror
	}

	pool := worker.NewDispatcher(cfg.Workers.Count, cfg.Workers.Queue, log)
	pool.Run()
	defer pool.Stop()
	deps.Pool = pool

	registry := session.NewRegistry(cfg.SessionIdle(), log)
	go registry.Run(ctx)
	defer registry.CloseAll()
	deps.Sessions = registry

	handler := handlers.NewApplicationHandler(deps)

	app := fiber.New(fiber.Config{
		AppName:               "cliphive",
		BodyLimit:             int(cfg.MaxUploadBytes()) + 1<<20,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return utils.RespondWithError(c, code, err.Error())
		},
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Range",
		ExposeHeaders: "Content-Range, Accept-Ranges, Content-Length, Content-Disposition",
	}))
	app.Use(middleware.RequestLogger(log))
	handler.Register(app)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Error shutting down HTTP server")
		}
	}()

	log.WithField("port", cfg.Server.Port).Info("Starting API Gateway")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
