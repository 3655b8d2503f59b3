package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qrledger/qrledger/server/internal/api"
	"github.com/qrledger/qrledger/server/internal/config"
	"github.com/qrledger/qrledger/server/internal/generate"
	"github.com/qrledger/qrledger/server/internal/metrics"
	"github.com/qrledger/qrledger/server/internal/qr"
	"github.com/qrledger/qrledger/server/internal/store"
	"github.com/qrledger/qrledger/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file; built-in defaults are used when empty")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("qrledger-server starting", "config", *configPath)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
	}
	level.Set(cfg.Server.SlogLevel())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"store_path", cfg.Store.Path,
		"malformed", cfg.Store.Malformed,
		"image_dir", cfg.Images.Dir,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Only the log level is applied live; everything else needs a restart.
	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, func(c *config.Config) {
				level.Set(c.Server.SlogLevel())
				slog.Info("log level updated", "level", c.Server.LogLevel)
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	policy, err := store.ParsePolicy(cfg.Store.Malformed)
	if err != nil {
		slog.Error("invalid store policy", "err", err)
		os.Exit(1)
	}
	st := store.New(cfg.Store.Path,
		store.WithPolicy(policy),
		store.WithTimeout(cfg.Store.Timeout),
	)

	enc, err := qr.NewPNG(cfg.QR.Size, cfg.QR.Level)
	if err != nil {
		slog.Error("invalid QR settings", "err", err)
		os.Exit(1)
	}

	reg := metrics.New()
	gen := generate.New(st, enc, cfg.Images.Dir, reg)

	// WebSocket hub: pushes the record list on every store change and on a
	// slow ticker as a fallback.
	hub := ws.New(st, cfg.Server.HubInterval)
	go hub.Run(ctx)

	refresh := func() {
		loadCtx, cancelLoad := context.WithTimeout(ctx, 5*time.Second)
		defer cancelLoad()
		records, err := st.Load(loadCtx)
		if err != nil {
			slog.Warn("record store reload failed", "err", err)
			return
		}
		reg.SetRecords(len(records))
		hub.Notify()
	}
	refresh()

	go func() {
		if err := st.Watch(ctx, refresh); err != nil {
			slog.Error("store watcher stopped", "err", err)
		}
	}()

	apiHandler := api.New(st, gen, cfg.Images.Dir)
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/images/", apiHandler)
	httpMux.Handle("/image/", apiHandler)
	httpMux.Handle("/generer", apiHandler)
	httpMux.Handle("/ws/records", hub)
	httpMux.Handle("/metrics", reg)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("qrledger-server shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
