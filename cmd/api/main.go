package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"web/arkmap/config"
	"web/arkmap/logger"
	"web/arkmap/runner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	gin.SetMode(gin.ReleaseMode)

	var svc runner.Service
	if cfg.Runner.Addr != "" {
		client, err := runner.Dial(cfg.Runner.Addr)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to connect to view runner")
		}
		defer client.Close()
		svc = client
		logger.Log.WithField("addr", cfg.Runner.Addr).Info("using remote view runner")
	} else {
		viewRunner := runner.NewViewRunner(cfg.RunnerOptions())
		defer viewRunner.Close()
		svc = viewRunner
		logger.Log.WithField("catalogs", cfg.Runner.CatalogDir).Info("using in-process view runner")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(NewServer(svc)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Create a channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Log.WithFields(logrus.Fields{"addr": srv.Addr}).Info("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Error("server error")
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	logger.Log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Warn("graceful shutdown failed")
	}
}
