package configs

import (
	"github.com/fraudsight/fraudsight/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Port string `mapstructure:"PORT" validate:"required"`

	DatabaseURL   string `mapstructure:"DATABASE_URL" validate:"required"`
	ReplicaDbAddr string `mapstructure:"REPLICA_DB_ADDR"`
	MaxDbCons     int32  `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons     int32  `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`
	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required"`

	// Supabase REST surface; optional, Postgres itself is reached via DATABASE_URL.
	SupabaseURL string `mapstructure:"SUPABASE_URL"`
	SupabaseKey string `mapstructure:"SUPABASE_KEY"`

	Neo4jURI      string `mapstructure:"NEO4J_URI" validate:"required"`
	Neo4jUser     string `mapstructure:"NEO4J_USER" validate:"required"`
	Neo4jPassword string `mapstructure:"NEO4J_PASSWORD" validate:"required"`

	KafkaBootstrapServers   string `mapstructure:"KAFKA_BOOTSTRAP_SERVERS" validate:"required"`
	KafkaAPIKey             string `mapstructure:"KAFKA_API_KEY"`
	KafkaAPISecret          string `mapstructure:"KAFKA_API_SECRET"`
	SchemaRegistryURL       string `mapstructure:"KAFKA_SCHEMA_REGISTRY_URL"`
	SchemaRegistryAPIKey    string `mapstructure:"KAFKA_SCHEMA_REGISTRY_API_KEY"`
	SchemaRegistryAPISecret string `mapstructure:"KAFKA_SCHEMA_REGISTRY_API_SECRET"`
	TransactionsTopic       string `mapstructure:"KAFKA_TRANSACTIONS_TOPIC" validate:"required"`
	AlertsTopic             string `mapstructure:"KAFKA_ALERTS_TOPIC" validate:"required"`
	KafkaPartitions         int    `mapstructure:"KAFKA_PARTITIONS" validate:"min=1"`

	OpenAIAPIKey string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel  string `mapstructure:"OPENAI_MODEL"`

	ModelPath      string  `mapstructure:"MODEL_PATH" validate:"required"`
	InputDim       int     `mapstructure:"MODEL_INPUT_DIM" validate:"min=1"`
	HiddenDim      int     `mapstructure:"MODEL_HIDDEN_DIM" validate:"min=2"`
	NumLayers      int     `mapstructure:"MODEL_NUM_LAYERS" validate:"min=1"`
	Dropout        float64 `mapstructure:"MODEL_DROPOUT"`
	LearningRate   float64 `mapstructure:"LEARNING_RATE"`
	TrainEpochs    int     `mapstructure:"TRAIN_EPOCHS" validate:"min=1"`
	TrainLimit     int     `mapstructure:"TRAIN_SAMPLE_LIMIT" validate:"min=1"`
	AlertThreshold float64 `mapstructure:"ALERT_THRESHOLD"`
	GraphDepth     int     `mapstructure:"GRAPH_DEPTH" validate:"min=1"`

	ScoreRatePerSec int `mapstructure:"SCORE_RATE_PER_SEC" validate:"min=1"`
	ScoreRateBurst  int `mapstructure:"SCORE_RATE_BURST" validate:"min=1"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "8000")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("KAFKA_TRANSACTIONS_TOPIC", "transactions")
	viper.SetDefault("KAFKA_ALERTS_TOPIC", "fraud_alerts")
	viper.SetDefault("KAFKA_PARTITIONS", "4")
	viper.SetDefault("MODEL_PATH", "models/fraud_gnn.json")
	viper.SetDefault("MODEL_INPUT_DIM", "6")
	viper.SetDefault("MODEL_HIDDEN_DIM", "64")
	viper.SetDefault("MODEL_NUM_LAYERS", "3")
	viper.SetDefault("MODEL_DROPOUT", "0.2")
	viper.SetDefault("LEARNING_RATE", "0.01")
	viper.SetDefault("TRAIN_EPOCHS", "50")
	viper.SetDefault("TRAIN_SAMPLE_LIMIT", "1000")
	viper.SetDefault("ALERT_THRESHOLD", "0.5")
	viper.SetDefault("GRAPH_DEPTH", "2")
	viper.SetDefault("SCORE_RATE_PER_SEC", "50")
	viper.SetDefault("SCORE_RATE_BURST", "100")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running in test mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running in development mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./services/fraud-api/configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}
	// Validate after unmarshal
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
