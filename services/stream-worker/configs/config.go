package configs

import (
	"github.com/fraudsight/fraudsight/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	DatabaseURL   string `mapstructure:"DATABASE_URL" validate:"required"`
	ReplicaDbAddr string `mapstructure:"REPLICA_DB_ADDR"`
	MaxDbCons     int32  `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons     int32  `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`

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
	DLQTopic                string `mapstructure:"KAFKA_DLQ_TOPIC" validate:"required"`
	ConsumerGroup           string `mapstructure:"KAFKA_CONSUMER_GROUP" validate:"required"`
	KafkaPartitions         int    `mapstructure:"KAFKA_PARTITIONS" validate:"min=1"`
	MaxConcurrentJobs       int    `mapstructure:"MAX_CONCURRENT_JOBS" validate:"min=1"`

	ModelPath      string  `mapstructure:"MODEL_PATH" validate:"required"`
	InputDim       int     `mapstructure:"MODEL_INPUT_DIM" validate:"min=1"`
	HiddenDim      int     `mapstructure:"MODEL_HIDDEN_DIM" validate:"min=2"`
	NumLayers      int     `mapstructure:"MODEL_NUM_LAYERS" validate:"min=1"`
	Dropout        float64 `mapstructure:"MODEL_DROPOUT"`
	AlertThreshold float64 `mapstructure:"ALERT_THRESHOLD"`
	GraphDepth     int     `mapstructure:"GRAPH_DEPTH" validate:"min=1"`
	EvalLimit      int     `mapstructure:"EVAL_SAMPLE_LIMIT" validate:"min=1"`

	// Cron spec for the periodic model evaluation job.
	EvalSchedule string `mapstructure:"EVAL_SCHEDULE" validate:"required"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("KAFKA_TRANSACTIONS_TOPIC", "transactions")
	viper.SetDefault("KAFKA_ALERTS_TOPIC", "fraud_alerts")
	viper.SetDefault("KAFKA_DLQ_TOPIC", "transactions_dlq")
	viper.SetDefault("KAFKA_CONSUMER_GROUP", "fraud_detection_group")
	viper.SetDefault("KAFKA_PARTITIONS", "4")
	viper.SetDefault("MAX_CONCURRENT_JOBS", "16")
	viper.SetDefault("MODEL_PATH", "models/fraud_gnn.json")
	viper.SetDefault("MODEL_INPUT_DIM", "6")
	viper.SetDefault("MODEL_HIDDEN_DIM", "64")
	viper.SetDefault("MODEL_NUM_LAYERS", "3")
	viper.SetDefault("MODEL_DROPOUT", "0.2")
	viper.SetDefault("ALERT_THRESHOLD", "0.5")
	viper.SetDefault("GRAPH_DEPTH", "2")
	viper.SetDefault("EVAL_SAMPLE_LIMIT", "500")
	viper.SetDefault("EVAL_SCHEDULE", "*/10 * * * *")

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
	viper.AddConfigPath("./services/stream-worker/configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
