// Command dirwatch watches one or more directories and serves their change
// events over HTTP: a websocket stream per directory, recent history, and
// Prometheus metrics. It is a thin caller of the dirwatch Handle API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"dirwatch"
	"dirwatch/internal/api"
	"dirwatch/internal/config"
	"dirwatch/internal/logging"
	"dirwatch/internal/metrics"
)

func main() {
	settings, err := config.Load(os.Getenv("DIRWATCH_CONFIG"))
	if err != nil {
		logging.NewLogger(nil, logging.LevelError).Error("load config failed", map[string]string{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	level, ok := logging.ParseLevel(settings.LogLevel)
	if !ok {
		level = logging.LevelInfo
	}
	logger := logging.NewLogger(logging.NewEntryBuffer(logging.DefaultBufferSize), level)

	if len(settings.Directories) == 0 {
		logger.Error("no directories configured", map[string]string{
			"hint": "set DIRWATCH_DIRS or the directories key in the config file",
		})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metrics.Default
	hubs := make(map[string]*dirwatch.Hub, len(settings.Directories))
	for _, dir := range settings.Directories {
		hub, err := dirwatch.NewHub(ctx, dir, dirwatch.Options{
			Logger:      logger,
			Registry:    registry,
			HistorySize: settings.HistorySize,
		})
		if err != nil {
			logger.Error("watch directory failed", map[string]string{
				"dir":   dir,
				"error": err.Error(),
			})
			os.Exit(1)
		}
		hubs[dir] = hub
		logger.Info("watching directory", map[string]string{"dir": dir})
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, &api.Service{
		Hubs:      hubs,
		Registry:  registry,
		Logger:    logger,
		AuthToken: settings.AuthToken,
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(settings.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("dirwatch listening", map[string]string{
		"addr": server.Addr,
		"dirs": strings.Join(settings.Directories, ","),
	})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server stopped", map[string]string{"error": err.Error()})
	}

	for dir, hub := range hubs {
		if err := hub.Close(); err != nil {
			logger.Warn("hub close failed", map[string]string{"dir": dir, "error": err.Error()})
		}
	}
}
