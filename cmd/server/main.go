package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"revivatech-realtime/internal/auth"
	"revivatech-realtime/internal/config"
	"revivatech-realtime/internal/realtime"
	"revivatech-realtime/internal/redis"
	"revivatech-realtime/internal/ws"
)

func main() {
	cfg, err := config.Load(slog.Default(), "config")
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gate := auth.NewGate(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	limiter := auth.NewLimiter(cfg.Auth.MaxAttempts, cfg.Auth.AttemptWindow)
	hub := realtime.NewHub(gate, logger)

	var bridge *redis.Bridge
	if cfg.Redis.URL != "" {
		bridge, err = redis.NewBridge(cfg.Redis.URL, cfg.Redis.Channel, hub.Origin(), logger)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer bridge.Close()
		hub.SetPublisher(bridge)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(hub, limiter, logger, w, req)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/api/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(hub.Stats()); err != nil {
			logger.Error("failed to encode stats", slog.Any("error", err))
		}
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("realtime server starting", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if bridge != nil {
		g.Go(func() error {
			return bridge.Run(gctx, hub)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server shut down gracefully")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
