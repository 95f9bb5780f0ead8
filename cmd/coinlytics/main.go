package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Richmiz/Coinlytics/internal/amqp"
	"github.com/Richmiz/Coinlytics/internal/backend"
	"github.com/Richmiz/Coinlytics/internal/config"
	apphttp "github.com/Richmiz/Coinlytics/internal/http"
	applog "github.com/Richmiz/Coinlytics/internal/log"
	"github.com/Richmiz/Coinlytics/internal/services"
	"github.com/Richmiz/Coinlytics/internal/session"
	"github.com/Richmiz/Coinlytics/internal/subscription"
	"github.com/Richmiz/Coinlytics/internal/viewstate"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := session.NewHub()
	defer hub.Close()
	views := viewstate.NewStore()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if be.Cleanup != nil {
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", "error", err)
			}
		}()
	}

	manager := subscription.NewManager(be.Feed, views, cfg.RecentLimit)
	defer manager.Close()
	txService := services.NewTransactionService(be.Creator, be.Publisher)

	srv := apphttp.NewServer(":"+cfg.Port, hub, manager, views, txService)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		manager.Run(gctx, hub.Events())
		return nil
	})

	if be.AMQP != nil {
		g.Go(func() error {
			err := be.AMQP.ConsumeChanges(gctx, func(msg *amqp.LedgerChangeMessage) {
				be.SQLiteFeed.HandleChange(gctx, msg.UserID)
			})
			if err == context.Canceled {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		logger.Info("Starting coinlytics server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.InitialUserID != "" {
		hub.SignIn(cfg.InitialUserID)
		logger.Info("Signed in initial user", "user_id", cfg.InitialUserID)
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
