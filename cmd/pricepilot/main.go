package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tuhin-SnapD/pricepilot/internal/api"
	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
	"github.com/Tuhin-SnapD/pricepilot/internal/clients/interceptors"
	"github.com/Tuhin-SnapD/pricepilot/internal/config"
	bffhttp "github.com/Tuhin-SnapD/pricepilot/internal/http"
	"github.com/Tuhin-SnapD/pricepilot/internal/metrics"
	"github.com/Tuhin-SnapD/pricepilot/internal/session"
	"github.com/Tuhin-SnapD/pricepilot/internal/tokenstore"
)

const (
	envDev  = "dev"
	envProd = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting pricepilot", slog.String("env", cfg.Env), slog.String("api", cfg.API.BaseURL))

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	store, err := tokenstore.Open(rootCtx, cfg.Tokens)
	if err != nil {
		log.Error("tokenstore_open_failed", slog.String("driver", cfg.Tokens.Driver), slog.String("err", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("tokenstore_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)

	client, err := clients.New(cfg.API.BaseURL, store)
	if err != nil {
		log.Error("api_client_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	mgr := session.New(client, store, session.WithMetrics(m))

	// Цепочка (внешний -> внутренний): повтор после refresh снаружи, чтобы
	// каждая попытка отдельно логировалась, мерилась и получала свой дедлайн.
	client.Use(
		interceptors.WithMetadata(cfg.API.UserAgent),
		interceptors.RetryAfterRefresh(mgr, m),
		interceptors.Logging(log),
		interceptors.Metrics(m),
		interceptors.WithTimeout(cfg.Timeouts.Upstream),
	)

	log.Info("api_client_initialized", slog.String("tokens", cfg.Tokens.Driver))

	wsDone := make(chan struct{})
	apiHandler := bffhttp.NewRouter(mgr, api.New(client), bffhttp.Options{
		Logger:         log,
		Timeout:        cfg.Timeouts.Service,
		AllowedOrigins: cfg.WS.AllowedOrigins,
		Done:           wsDone,
	})

	var ready atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if ready.Load() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	httpSrv.RegisterOnShutdown(func() { close(wsDone) })

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	// UI видит restoring, пока сессия поднимается из хранилища; /auth/login
	// до конца Restore отвечает 503.
	restoreCtx, restoreCancel := context.WithTimeout(rootCtx, cfg.Timeouts.Restore)
	snap := mgr.Restore(restoreCtx)
	restoreCancel()

	ready.Store(true)
	log.Info("bff_ready", slog.String("session", snap.State.String()))

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default: // local
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
