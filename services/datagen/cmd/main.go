package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/fraudsight/fraudsight/pkg"
	kafkautils "github.com/fraudsight/fraudsight/pkg/kafka"
	"github.com/fraudsight/fraudsight/services/datagen/configs"
	"github.com/fraudsight/fraudsight/services/datagen/internal"
	"go.uber.org/zap"
)

// main runs the synthetic transaction generator, publishing a steady stream
// onto the transactions topic until interrupted.
func main() {
	pkg.InitLogger()
	logger := pkg.Logger
	defer logger.Sync()

	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed_to_load_config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kafkaCnf := kafkautils.KafkaConfig{
		BootstrapServers: cfg.KafkaBootstrapServers,
		APIKey:           cfg.KafkaAPIKey,
		APISecret:        cfg.KafkaAPISecret,
		Topics: []kafkautils.TopicConfig{
			{Topic: cfg.TransactionsTopic, NumPartitions: cfg.KafkaPartitions, ReplicationFactor: 1},
		},
	}
	if err := kafkautils.InitKafkaTopics(logger, ctx, kafkaCnf); err != nil {
		logger.Fatal("failed to initialize kafka topics", zap.Error(err))
	}

	producer, err := kafkautils.NewProducer(logger, kafkaCnf)
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}
	defer func() {
		producer.Flush(5000)
		producer.Close()
	}()

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

	gen := internal.NewGenerator(time.Now().UnixNano(), cfg.NumUsers)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down generator")
		cancel()
	}()

	logger.Info("transaction generator started",
		zap.String("topic", cfg.TransactionsTopic),
		zap.Int("user_pool", cfg.NumUsers))

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(gen.Delay()):
		}

		event := gen.Transaction()
		msgBytes, err := codec.EncodeTransaction(event)
		if err != nil {
			logger.Error("failed to encode transaction", zap.Error(err))
			continue
		}

		err = producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{
				Topic:     &cfg.TransactionsTopic,
				Partition: kafka.PartitionAny,
			},
			Key:   []byte(event.UserID), // partition by user for per-user ordering
			Value: msgBytes,
		}, nil)
		if err != nil {
			logger.Error("failed to produce transaction", zap.Error(err))
			continue
		}
		logger.Info("sent transaction", zap.String(pkg.TransactionId, event.ID))
	}
}
