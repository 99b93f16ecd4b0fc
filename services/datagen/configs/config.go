package configs

import (
	"github.com/fraudsight/fraudsight/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	KafkaBootstrapServers   string `mapstructure:"KAFKA_BOOTSTRAP_SERVERS" validate:"required"`
	KafkaAPIKey             string `mapstructure:"KAFKA_API_KEY"`
	KafkaAPISecret          string `mapstructure:"KAFKA_API_SECRET"`
	SchemaRegistryURL       string `mapstructure:"KAFKA_SCHEMA_REGISTRY_URL"`
	SchemaRegistryAPIKey    string `mapstructure:"KAFKA_SCHEMA_REGISTRY_API_KEY"`
	SchemaRegistryAPISecret string `mapstructure:"KAFKA_SCHEMA_REGISTRY_API_SECRET"`
	TransactionsTopic       string `mapstructure:"KAFKA_TRANSACTIONS_TOPIC" validate:"required"`
	AlertsTopic             string `mapstructure:"KAFKA_ALERTS_TOPIC" validate:"required"`
	KafkaPartitions         int    `mapstructure:"KAFKA_PARTITIONS" validate:"min=1"`

	// Seeder targets
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	Neo4jURI      string `mapstructure:"NEO4J_URI"`
	Neo4jUser     string `mapstructure:"NEO4J_USER"`
	Neo4jPassword string `mapstructure:"NEO4J_PASSWORD"`
	SupabaseURL   string `mapstructure:"SUPABASE_URL"`
	SupabaseKey   string `mapstructure:"SUPABASE_KEY"`

	NumUsers        int `mapstructure:"GEN_NUM_USERS" validate:"min=1"`
	NumTransactions int `mapstructure:"GEN_NUM_TRANSACTIONS" validate:"min=1"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("KAFKA_TRANSACTIONS_TOPIC", "transactions")
	viper.SetDefault("KAFKA_ALERTS_TOPIC", "fraud_alerts")
	viper.SetDefault("KAFKA_PARTITIONS", "4")
	viper.SetDefault("GEN_NUM_USERS", "100")
	viper.SetDefault("GEN_NUM_TRANSACTIONS", "1000")

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
