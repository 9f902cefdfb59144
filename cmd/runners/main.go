package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

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

	// Command line flags override the loaded config
	port := flag.Int("port", cfg.Runner.Port, "The gRPC server port")
	maxViews := flag.Int("max-views", cfg.Runner.MaxViews, "Maximum number of views to keep mounted")
	catalogDir := flag.String("catalogs", cfg.Runner.CatalogDir, "Directory holding catalog snapshots")
	flag.Parse()

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	opts := cfg.RunnerOptions()
	opts.MaxViews = *maxViews
	opts.CatalogDir = *catalogDir

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to listen")
	}

	s := grpc.NewServer()
	viewRunner := runner.NewViewRunner(opts)
	runner.RegisterServer(s, viewRunner)

	// Enable reflection for debugging
	reflection.Register(s)

	// Handle shutdown gracefully
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Log.Info("shutting down gRPC server")
		s.GracefulStop()
	}()

	logger.Log.WithFields(logrus.Fields{
		"port":      *port,
		"max_views": opts.MaxViews,
		"catalogs":  opts.CatalogDir,
	}).Info("starting view runner")
	if err := s.Serve(lis); err != nil {
		logger.Log.WithError(err).Error("failed to serve")
	}
	viewRunner.Close()
}
