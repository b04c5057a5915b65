// Command chirpolly runs the vocabulary review service: the Telegram bot, the
// HTTP API for the web app and daily reminders.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/chirpolly/internal/bot"
	"github.com/example/chirpolly/internal/config"
	"github.com/example/chirpolly/internal/httpapi"
	"github.com/example/chirpolly/internal/logger"
	"github.com/example/chirpolly/internal/quiz"
	"github.com/example/chirpolly/internal/scheduler"
)

var envFile string

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "chirpolly",
		Short:        "Spaced repetition vocabulary review service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newDueCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newRebuildCmd())
	return rootCmd
}

// setup loads the configuration and builds the logger.
func setup() (config.Config, *logger.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the HTTP API and reminders",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
}

func runServeCmd(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	errCh := make(chan error, 2)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		ReviewHandler: httpapi.NewReviewHandler(log, a.review, a.catalog),
		Log:           log,
		AllowOrigins:  cfg.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP API listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var sched *scheduler.Scheduler
	if cfg.TelegramToken == "" {
		log.Warn("TELEGRAM_BOT_TOKEN is not set, the bot and reminders are disabled")
	} else {
		botCfg := bot.DefaultConfig()
		botCfg.ReviewLimit = cfg.DefaultWordsPerDay
		tg, err := bot.New(cfg.TelegramToken, botCfg, bot.Deps{
			Review:  a.review,
			Users:   a.users,
			Catalog: a.catalog,
			Quiz:    quiz.NewBuilder(cfg.Quiz, rand.New(rand.NewSource(time.Now().UnixNano()))),
			Log:     log,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := tg.Start(ctx); err != nil {
				errCh <- fmt.Errorf("bot: %w", err)
			}
		}()

		if cfg.EnableScheduler {
			sched = scheduler.New(scheduler.Config{
				StartHour:          cfg.NotificationStartHour,
				EndHour:            cfg.NotificationEndHour,
				DefaultWordsPerDay: cfg.DefaultWordsPerDay,
			}, tg, a.users, a.review, log)
			if err := sched.Start(ctx); err != nil {
				return err
			}
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case runErr = <-errCh:
		log.Error("service failed", "error", runErr)
	}
	stop()

	if sched != nil {
		sched.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("stopped")
	return runErr
}
