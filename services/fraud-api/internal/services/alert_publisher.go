package services

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/fraudsight/fraudsight/pkg"
	kafkautils "github.com/fraudsight/fraudsight/pkg/kafka"
	"github.com/fraudsight/fraudsight/pkg/views"
	"github.com/fraudsight/fraudsight/services/fraud-api/configs"
	"go.uber.org/zap"
)

type AlertPublisher interface {
	PublishAlert(traceID string, alert views.FraudAlert) error
	Close()
}

type AlertPublisherImpl struct {
	logger   *zap.Logger
	producer *kafka.Producer
	codec    kafkautils.Codec
	cnf      *configs.Config
}

// NewAlertPublisher ensures the alerts topic exists and builds an idempotent
// producer. The codec is Avro when a schema registry is configured, JSON
// otherwise.
func NewAlertPublisher(logger *zap.Logger, ctx context.Context, cnf *configs.Config) AlertPublisher {
	kafkaCnf := kafkautils.KafkaConfig{
		BootstrapServers: cnf.KafkaBootstrapServers,
		APIKey:           cnf.KafkaAPIKey,
		APISecret:        cnf.KafkaAPISecret,
		Topics: []kafkautils.TopicConfig{
			{
				Topic:             cnf.AlertsTopic,
				NumPartitions:     cnf.KafkaPartitions,
				ReplicationFactor: 1,
				Config:            map[string]string{"cleanup.policy": "delete"},
			},
		},
	}
	if err := kafkautils.InitKafkaTopics(logger, ctx, kafkaCnf); err != nil {
		logger.Fatal("failed to initialize kafka topics", zap.Error(err))
	}

	p, err := kafkautils.NewProducer(logger, kafkaCnf)
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}

	var codec kafkautils.Codec = kafkautils.JSONCodec{}
	if cnf.SchemaRegistryURL != "" {
		codec, err = kafkautils.NewAvroCodec(logger, kafkautils.SchemaRegistryConfig{
			URL:       cnf.SchemaRegistryURL,
			APIKey:    cnf.SchemaRegistryAPIKey,
			APISecret: cnf.SchemaRegistryAPISecret,
		}, cnf.TransactionsTopic, cnf.AlertsTopic)
		if err != nil {
			logger.Fatal("failed to create avro codec", zap.Error(err))
		}
	}

	return &AlertPublisherImpl{
		logger:   logger,
		producer: p,
		codec:    codec,
		cnf:      cnf,
	}
}

func (a AlertPublisherImpl) PublishAlert(traceID string, alert views.FraudAlert) error {
	msgBytes, err := a.codec.EncodeAlert(alert)
	if err != nil {
		return err
	}

	a.logger.Info("publishing fraud alert",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.TransactionId, alert.TransactionID),
		zap.Float64("fraud_probability", alert.FraudProbability))

	// Delivery results are handled by the producer's report goroutine.
	return a.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &a.cnf.AlertsTopic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(alert.TransactionID),
		Value: msgBytes,
	}, nil)
}

func (a AlertPublisherImpl) Close() {
	a.producer.Flush(5000)
	a.producer.Close()
}
