package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tradelake/datamanager/massive"
	"github.com/tradelake/datamanager/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	config, err := LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	logger.Info("starting service",
		zap.String("name", config.Service.Name),
		zap.Int("port", config.Service.Port),
		zap.String("bucket", config.S3.Bucket))

	awsCfg, err := store.LoadAWSConfig(context.Background(), config.S3.Region)
	if err != nil {
		logger.Fatal("failed to load aws config", zap.Error(err))
	}

	sessions := store.NewSessionFactory(config.S3, awsCfg.Credentials, logger)
	reader := store.NewReader(sessions, config.S3.Bucket, logger)
	objects := store.NewS3ObjectStore(awsCfg, config.S3.Bucket, config.S3.Endpoint)
	writer := store.NewWriter(objects, logger)
	upstream := massive.NewClient(config.Massive.BaseURL, config.Massive.APIKey, logger)
	if config.Massive.APIKey == "" {
		logger.Warn("massive api key not set, upstream syncs will fail")
	}

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	server := NewServer(reader, writer, objects, upstream, metrics, logger)

	router := mux.NewRouter()
	router.HandleFunc("/health", server.HandleHealth).Methods("GET")
	router.HandleFunc("/equity-bars", server.HandleSyncBars).Methods("POST")
	router.HandleFunc("/equity-bars", server.HandleQueryBars).Methods("GET")
	router.HandleFunc("/predictions", server.HandleWritePredictions).Methods("POST")
	router.HandleFunc("/predictions", server.HandleQueryPredictions).Methods("GET")
	router.HandleFunc("/portfolios", server.HandleWritePortfolio).Methods("POST")
	router.HandleFunc("/portfolios", server.HandleQueryPortfolio).Methods("GET")
	router.HandleFunc("/equity-details", server.HandleSyncDetails).Methods("POST")
	router.HandleFunc("/equity-details", server.HandleQueryDetails).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Service.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(config.Service.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(config.Service.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
