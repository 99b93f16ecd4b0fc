package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/fraudsight/fraudsight/pkg/database"
	"github.com/fraudsight/fraudsight/pkg/gnn"
	"github.com/fraudsight/fraudsight/pkg/graph"
	"github.com/fraudsight/fraudsight/pkg/graphrag"
	kafkautils "github.com/fraudsight/fraudsight/pkg/kafka"
	"github.com/fraudsight/fraudsight/pkg/repositories"
	"github.com/fraudsight/fraudsight/services/stream-worker/configs"
	"github.com/fraudsight/fraudsight/services/stream-worker/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// main initializes and runs the stream worker service.
func main() {
	// Initialize global logger with default configuration
	pkg.InitLogger()
	logger := pkg.Logger
	defer logger.Sync() // Ensure all buffered logs are flushed on exit

	// Load configuration from environment and optional config file
	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed_to_load_config", zap.Error(err))
	}

	// Initialize PostgreSQL database connection
	dbConfig := database.Config{
		PrimaryDSN: cfg.DatabaseURL,
		MaxConns:   cfg.MaxDbCons,
		MinConns:   cfg.MinDbCons,
	}
	if cfg.ReplicaDbAddr != "" {
		dbConfig.ReplicaDSNs = []string{cfg.ReplicaDbAddr}
	}
	db, disconnect, err := database.New(context.Background(), logger, dbConfig)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer disconnect() // Ensure database connections are closed on shutdown

	// Create a context that can be canceled for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the graph store and make sure constraints exist
	graphStore, graphCloser, err := graph.New(ctx, logger, graph.Config{
		URI:      cfg.Neo4jURI,
		Username: cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
	})
	if err != nil {
		logger.Fatal("failed to connect to neo4j", zap.Error(err))
	}
	defer graphCloser()
	if err := graphStore.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure graph schema", zap.Error(err))
	}

	// Load persisted weights when available, otherwise serve an untrained model
	model, err := gnn.Load(cfg.ModelPath)
	if err != nil {
		logger.Warn("no persisted model, starting untrained", zap.String("path", cfg.ModelPath), zap.Error(err))
		model, err = gnn.New(gnn.Config{
			InputDim:  cfg.InputDim,
			HiddenDim: cfg.HiddenDim,
			NumLayers: cfg.NumLayers,
			Dropout:   cfg.Dropout,
		}, time.Now().UnixNano())
		if err != nil {
			logger.Fatal("failed to build model", zap.Error(err))
		}
	}

	engine := graphrag.NewEngine(logger, graphStore, model, nil, graphrag.Config{
		Depth:          cfg.GraphDepth,
		AlertThreshold: cfg.AlertThreshold,
	})

	// Shared codec for the consumer and the alert publisher
	var codec kafkautils.Codec = kafkautils.JSONCodec{}
	if cfg.SchemaRegistryURL != "" {
		codec, err = kafkautils.NewAvroCodec(logger, kafkautils.SchemaRegistryConfig{
			URL:       cfg.SchemaRegistryURL,
			APIKey:    cfg.SchemaRegistryAPIKey,
			APISecret: cfg.SchemaRegistryAPISecret,
		}, cfg.TransactionsTopic, cfg.AlertsTopic)
		if err != nil {
			logger.Fatal("failed to create avro codec", zap.Error(err))
		}
	}

	alertPublisher := services.NewAlertPublisher(logger, ctx, cfg, codec)

	scoringService := services.NewScoringService(services.ScoringServiceConfig{
		Logger:          logger,
		DB:              db,
		Engine:          engine,
		AlertPublisher:  alertPublisher,
		TransactionRepo: repositories.NewTransactionRepository(),
		UserRepo:        repositories.NewUserRepository(),
		AlertRepo:       repositories.NewAlertRepository(),
		AlertThreshold:  cfg.AlertThreshold,
	})

	// Set up the transaction consumer
	transactionHandler := services.NewKafkaTransactionHandler(services.KafkaTransactionConfig{
		Context:        ctx,
		Logger:         logger,
		Config:         cfg,
		ScoringService: scoringService,
		Codec:          codec,
	})
	closeConsumer := transactionHandler.Start()

	// Periodic model evaluation
	evalJob := services.NewEvaluationJob(logger, cfg, engine)
	stopEval, err := evalJob.Start(ctx)
	if err != nil {
		logger.Fatal("failed to schedule evaluation job", zap.Error(err))
	}

	// Expose Prometheus metrics
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", nil); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	// Handle graceful shutdown on SIGINT or SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	osSignal := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", osSignal.String()))
	cancel() // Trigger context cancellation
	closeConsumer()
	stopEval()
	alertPublisher.Close()
	logger.Info("service shutdown completed successfully")
}
