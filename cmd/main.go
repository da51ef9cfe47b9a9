package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpapi "github.com/immxrtalbeast/callrelay/internal/api/http"
	"github.com/immxrtalbeast/callrelay/internal/api/ws"
	"github.com/immxrtalbeast/callrelay/internal/calltimer"
	"github.com/immxrtalbeast/callrelay/internal/config"
	"github.com/immxrtalbeast/callrelay/internal/repository"
	"github.com/immxrtalbeast/callrelay/internal/service"
	"github.com/immxrtalbeast/callrelay/lib/logger/sl"
	"github.com/immxrtalbeast/callrelay/lib/logger/slogpretty"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	presenceRepo := repository.NewInMemoryPresenceRepository()
	callRepo := repository.NewInMemoryCallStateRepository()
	timers := calltimer.NewManager(nil)

	hub := ws.NewHub(cfg.Signaling, log)
	signalingService := service.NewSignalingService(hub, presenceRepo, callRepo, timers, cfg.Signaling.CallTimeout, log)

	signalingController := httpapi.NewSignalingController(hub, signalingService, cfg.HTTP.AllowedOrigins, log)
	statusController := httpapi.NewStatusController(signalingService, cfg.WebRTC.STUNServers)

	router := httpapi.SetupRouter(signalingController, statusController, cfg.HTTP.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("starting application",
			slog.String("env", cfg.Env),
			slog.String("addr", cfg.HTTP.Address),
			slog.Duration("call_timeout", cfg.Signaling.CallTimeout),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", sl.Err(err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("shutting down", slog.String("signal", sig.String()))

	signalingService.Shutdown()
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", sl.Err(err))
		return
	}
	log.Info("server stopped")
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
