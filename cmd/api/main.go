// @title MindSpero API
// @version 1.0
// @description PDF summaries and audio explanations for students, gated by subscription tier.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mindspero/mindspero/internal/api/handlers"
	"github.com/mindspero/mindspero/internal/api/router"
	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/validator"
	"github.com/mindspero/mindspero/internal/providers"
	"github.com/mindspero/mindspero/internal/repository/postgres"
	"github.com/mindspero/mindspero/internal/services"
	"github.com/mindspero/mindspero/internal/storage"
	"github.com/mindspero/mindspero/internal/worker"
	"github.com/mindspero/mindspero/migrations"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mindspero: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
		Service:    "mindspero-api",
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	applied, err := postgres.RunMigrations(ctx, db, migrations.GetFS())
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if len(applied) > 0 {
		log.WithFields(map[string]interface{}{"migrations": applied}).Info("Applied migrations")
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	clk := clock.Real{}

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	subRepo := postgres.NewSubscriptionRepository(db)
	docRepo := postgres.NewDocumentRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)

	// Services
	subs := services.NewSubscriptionService(subRepo, clk, cfg.Billing.TrialDays, log)
	users := services.NewUserService(userRepo, subRepo, clk, cfg.Auth, log)
	docs := services.NewDocumentService(docRepo, store, clk, log)
	gate := services.NewGateService(subs, docRepo, clk, log)
	billing := services.NewBillingService(cfg.Billing, subs, paymentRepo, userRepo, clk, log)
	adminSvc := services.NewAdminService(userRepo, subRepo, docRepo, paymentRepo, clk, log)
	accounts := services.NewAccountService(users, docs, log)

	val := validator.New()
	h := &router.Handlers{
		Health:       handlers.NewHealthHandler(db, migrations.GetFS(), store, log),
		Auth:         handlers.NewAuthHandler(users, accounts, gate, cfg, clk, log, val),
		Document:     handlers.NewDocumentHandler(docs, gate, store, cfg.Server.MaxUploadBytes, log),
		Subscription: handlers.NewSubscriptionHandler(subs, gate, log),
		Billing:      handlers.NewBillingHandler(billing, gate, cfg.Billing, log),
		Admin:        handlers.NewAdminHandler(adminSvc, accounts, subs, cfg.Billing, val, log),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Worker.Enabled {
		var processor *worker.Processor
		if cfg.AI.Enabled() {
			narrator := providers.NewOpenAI(cfg.AI)
			var summarizer worker.Summarizer = narrator
			if cfg.AI.SummaryProvider == "gemini" {
				summarizer = providers.NewGemini(cfg.AI)
			}
			processor = worker.NewProcessor(docs, docRepo, store,
				providers.PDFText{MaxBytes: cfg.Server.MaxUploadBytes}, summarizer, narrator, clk, cfg.Worker, log)
			log.With("summary_provider", cfg.AI.SummaryProvider).Info("Document processing enabled")
		} else {
			log.Warn("AI keys not set, document processing disabled")
		}
		w := worker.New(processor, adminSvc, cfg.Worker, log)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Server stopped")
	return nil
}
