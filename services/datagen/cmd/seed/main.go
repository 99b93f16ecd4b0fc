package main

import (
	"context"
	"time"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/fraudsight/fraudsight/pkg/database"
	"github.com/fraudsight/fraudsight/pkg/graph"
	"github.com/fraudsight/fraudsight/pkg/models"
	"github.com/fraudsight/fraudsight/pkg/repositories"
	"github.com/fraudsight/fraudsight/pkg/supabase"
	"github.com/fraudsight/fraudsight/pkg/views"
	"github.com/fraudsight/fraudsight/services/datagen/configs"
	"github.com/fraudsight/fraudsight/services/datagen/internal"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// main seeds Postgres, Neo4j and optionally Supabase with a consistent
// synthetic dataset: one user pool, historical transactions for each store.
func main() {
	pkg.InitLogger()
	logger := pkg.Logger
	defer logger.Sync()

	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed_to_load_config", zap.Error(err))
	}

	ctx := context.Background()
	gen := internal.NewGenerator(time.Now().UnixNano(), cfg.NumUsers)

	users := gen.Users()
	events := make([]views.TransactionEvent, 0, cfg.NumTransactions)
	for i := 0; i < cfg.NumTransactions; i++ {
		events = append(events, gen.HistoricalTransaction())
	}

	if cfg.DatabaseURL != "" {
		seedPostgres(ctx, logger, cfg, users, events)
	}
	if cfg.Neo4jURI != "" {
		seedNeo4j(ctx, logger, cfg, users, events)
	}
	if cfg.SupabaseURL != "" {
		seedSupabase(ctx, logger, cfg, users)
	}

	logger.Info("seeding complete",
		zap.Int("users", len(users)),
		zap.Int("transactions", len(events)))
}

func seedPostgres(ctx context.Context, logger *zap.Logger, cfg *configs.Config, users []models.User, events []views.TransactionEvent) {
	db, disconnect, err := database.New(ctx, logger, database.Config{
		PrimaryDSN: cfg.DatabaseURL,
		MaxConns:   4,
		MinConns:   1,
	})
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer disconnect()

	if err := database.RunMigrations(logger, cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	userRepo := repositories.NewUserRepository()
	txnRepo := repositories.NewTransactionRepository()

	err = db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, user := range users {
			if _, err := userRepo.Create(ctx, tx, user); err != nil {
				return err
			}
		}
		for _, event := range events {
			txn, err := eventToModel(event)
			if err != nil {
				return err
			}
			if _, err := txnRepo.Create(ctx, tx, txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Fatal("failed to seed postgres", zap.Error(err))
	}
	logger.Info("postgres seeded")
}

func seedNeo4j(ctx context.Context, logger *zap.Logger, cfg *configs.Config, users []models.User, events []views.TransactionEvent) {
	store, closer, err := graph.New(ctx, logger, graph.Config{
		URI:      cfg.Neo4jURI,
		Username: cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
	})
	if err != nil {
		logger.Fatal("failed to connect to neo4j", zap.Error(err))
	}
	defer closer()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure graph schema", zap.Error(err))
	}

	for _, user := range users {
		if err := store.MergeUser(ctx, graph.UserNode{
			ID:        user.ID.String(),
			Name:      user.Name,
			RiskScore: user.RiskScore,
		}); err != nil {
			logger.Fatal("failed to merge user", zap.Error(err))
		}
	}

	// Chain each user's transactions so neighborhood retrieval has structure
	// beyond the BELONGS_TO star.
	lastTxnByUser := map[string]string{}
	for _, event := range events {
		label := int64(event.Label)
		node := graph.TransactionNode{
			ID:        event.ID,
			UserID:    event.UserID,
			Amount:    event.Amount,
			Timestamp: event.Timestamp,
			Features:  event.Features,
			Label:     &label,
		}
		if err := store.MergeTransaction(ctx, node, nil); err != nil {
			logger.Fatal("failed to merge transaction", zap.Error(err))
		}
		if prev, ok := lastTxnByUser[event.UserID]; ok {
			if err := store.ConnectTransactions(ctx, prev, event.ID); err != nil {
				logger.Fatal("failed to connect transactions", zap.Error(err))
			}
		}
		lastTxnByUser[event.UserID] = event.ID
	}
	logger.Info("neo4j seeded")
}

func seedSupabase(ctx context.Context, logger *zap.Logger, cfg *configs.Config, users []models.User) {
	client := supabase.NewClient(logger, supabase.Config{
		URL: cfg.SupabaseURL,
		Key: cfg.SupabaseKey,
	})

	rows := make([]map[string]any, 0, len(users))
	for _, user := range users {
		rows = append(rows, map[string]any{
			"id":         user.ID.String(),
			"name":       user.Name,
			"email":      user.Email,
			"risk_score": user.RiskScore,
			"created_at": user.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	if err := client.UpsertRows(ctx, "users", rows); err != nil {
		logger.Fatal("failed to seed supabase", zap.Error(err))
	}
	logger.Info("supabase seeded")
}

func eventToModel(event views.TransactionEvent) (models.Transaction, error) {
	id, err := uuid.Parse(event.ID)
	if err != nil {
		return models.Transaction{}, err
	}
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return models.Transaction{}, err
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, event.Timestamp)
	if err != nil {
		return models.Transaction{}, err
	}
	label := int16(event.Label)
	now := time.Now()
	return models.Transaction{
		ID:         id,
		UserID:     userID,
		Amount:     event.Amount,
		OccurredAt: occurredAt,
		Features:   event.Features,
		Label:      &label,
		Status:     pkg.TransactionStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
