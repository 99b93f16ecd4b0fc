package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/fraudsight/fraudsight/pkg/cache"
	"github.com/fraudsight/fraudsight/pkg/database"
	"github.com/fraudsight/fraudsight/pkg/gnn"
	"github.com/fraudsight/fraudsight/pkg/graph"
	"github.com/fraudsight/fraudsight/pkg/graphrag"
	middleware "github.com/fraudsight/fraudsight/pkg/middlewares"
	"github.com/fraudsight/fraudsight/pkg/repositories"
	"github.com/fraudsight/fraudsight/pkg/supabase"
	"github.com/fraudsight/fraudsight/services/fraud-api/configs"
	"github.com/fraudsight/fraudsight/services/fraud-api/internal/handlers"
	"github.com/fraudsight/fraudsight/services/fraud-api/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// It reads configuration from environment variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	// Load config
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}

	// Initialize postgres db
	dbConfig := database.Config{
		PrimaryDSN: cfg.DatabaseURL,
		MaxConns:   cfg.MaxDbCons,
		MinConns:   cfg.MinDbCons,
	}
	if cfg.ReplicaDbAddr != "" {
		dbConfig.ReplicaDSNs = []string{cfg.ReplicaDbAddr}
	}
	db, disconnect, err := database.New(ctx, logger, dbConfig)
	if err != nil {
		return nil, nil, err
	}

	// Run migrations on primary
	if err := database.RunMigrations(logger, cfg.DatabaseURL); err != nil {
		disconnect()
		return nil, nil, err
	}

	// Redis, for the distributed rate limiter and the score cache
	redisClient, redisCloser, err := cache.New(ctx, cache.Config{Addr: cfg.RedisAddr})
	if err != nil {
		disconnect()
		return nil, nil, err
	}

	// Neo4j graph store
	graphStore, graphCloser, err := graph.New(ctx, logger, graph.Config{
		URI:      cfg.Neo4jURI,
		Username: cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
	})
	if err != nil {
		redisCloser()
		disconnect()
		return nil, nil, err
	}
	if err := graphStore.EnsureSchema(ctx); err != nil {
		graphCloser()
		redisCloser()
		disconnect()
		return nil, nil, err
	}

	supabaseClient := supabase.NewClient(logger, supabase.Config{
		URL: cfg.SupabaseURL,
		Key: cfg.SupabaseKey,
	})

	// Load persisted weights when available, otherwise serve an untrained model.
	loadedFromDisk := true
	model, err := gnn.Load(cfg.ModelPath)
	if err != nil {
		logger.Warn("no persisted model, starting untrained", zap.String("path", cfg.ModelPath), zap.Error(err))
		loadedFromDisk = false
		model, err = gnn.New(gnn.Config{
			InputDim:  cfg.InputDim,
			HiddenDim: cfg.HiddenDim,
			NumLayers: cfg.NumLayers,
			Dropout:   cfg.Dropout,
		}, time.Now().UnixNano())
		if err != nil {
			graphCloser()
			redisCloser()
			disconnect()
			return nil, nil, err
		}
	}

	narrator := graphrag.NewNarrator(logger, graphrag.NarratorConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
	})
	engine := graphrag.NewEngine(logger, graphStore, model, narrator, graphrag.Config{
		Depth:          cfg.GraphDepth,
		AlertThreshold: cfg.AlertThreshold,
	})

	limiter := pkg.NewDistributedLimiter(redisClient, "global:score_rate",
		cfg.ScoreRatePerSec, cfg.ScoreRateBurst, time.Second, logger)

	publisher := services.NewAlertPublisher(logger, ctx, cfg)

	fraudService := services.NewFraudService(services.FraudServiceConfig{
		Logger:          logger,
		Cnf:             cfg,
		DB:              db,
		RedisClient:     redisClient,
		Engine:          engine,
		Limiter:         limiter,
		AlertPublisher:  publisher,
		TransactionRepo: repositories.NewTransactionRepository(),
		UserRepo:        repositories.NewUserRepository(),
		AlertRepo:       repositories.NewAlertRepository(),
	})
	trainingService := services.NewTrainingService(logger, cfg, engine, loadedFromDisk)

	fraudHandler := handlers.NewFraudHandler(logger, fraudService)
	modelHandler := handlers.NewModelHandler(logger, trainingService)
	baseHandler := handlers.NewBaseHandler(logger, db, redisClient, graphStore, supabaseClient)

	// Router
	r := gin.Default()
	r.Use(cors.Default()) // dashboard runs on a different origin

	api := r.Group("/api/v1")
	api.Use(middleware.TraceID())
	api.Use(middleware.Metrics())

	fraudHandler.RegisterRoutes(api)
	modelHandler.RegisterRoutes(api)
	baseHandler.RegisterRoutes(r)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	cleanup := func() {
		publisher.Close()
		graphCloser()
		redisCloser()
		disconnect()
	}

	return srv, cleanup, nil
}
