package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/auth"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/infra/memory"
	infraredis "quiz-attempt-service/internal/infra/redis"
	"quiz-attempt-service/internal/logger"
	"quiz-attempt-service/internal/notify"
	transport "quiz-attempt-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret not configured")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.deps.Close()

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      svc.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting quiz service", "port", finalPort, "driver", cfg.StorageDriver())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-serverErr:
		log.Error("server failed", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := svc.dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("notifications still in flight at shutdown", "error", err)
	}
	return nil
}

// service is the wired HTTP stack of a running server.
type service struct {
	deps       *deps
	dispatcher *notify.Dispatcher
	handler    http.Handler
}

func buildService(ctx context.Context, cfg config.Config, log *logger.Logger) (*service, error) {
	d, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	quizService := app.NewQuizService(d.store, d.catalog, log)
	// the memory store lives only as long as this process, so it is seeded here
	if cfg.StorageDriver() == config.DriverMemory {
		if err := seed(ctx, d.store, quizService, log); err != nil {
			d.Close()
			return nil, err
		}
	}

	hub := memory.NewNotificationHub()
	sinks := notify.MultiSink{notify.NewLogSink(log), hub}
	if d.redis != nil {
		sinks = append(sinks, infraredis.NewNotificationPublisher(d.redis, cfg.Notify.Channel))
	}
	dispatcher := notify.NewDispatcher(sinks, log, notify.Options{
		Timeout:     config.TTLDuration(cfg.Notify.Timeout, 10*time.Second),
		MaxInFlight: cfg.Notify.MaxInFlight,
	})

	router := transport.NewRouter(transport.RouterConfig{
		Attempts:     app.WithLogging(app.NewAttemptService(d.store, dispatcher), log),
		Quizzes:      app.WithQuizLogging(quizService, log),
		Tokens:       auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Feed:         hub,
		Log:          log,
		AllowOrigins: cfg.Server.AllowOrigins,
	})
	return &service{deps: d, dispatcher: dispatcher, handler: router}, nil
}
