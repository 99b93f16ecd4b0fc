package services

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/fraudsight/fraudsight/pkg"
	kafkautils "github.com/fraudsight/fraudsight/pkg/kafka"
	"github.com/fraudsight/fraudsight/pkg/views"
	"github.com/fraudsight/fraudsight/services/stream-worker/configs"
	"github.com/fraudsight/fraudsight/services/stream-worker/internal/observability"
	"go.uber.org/zap"
)

type AlertPublisher interface {
	PublishAlert(transactionID string, alert views.FraudAlert) error
	Close()
}

type AlertPublisherImpl struct {
	logger   *zap.Logger
	producer *kafka.Producer
	codec    kafkautils.Codec
	cnf      *configs.Config
}

func NewAlertPublisher(logger *zap.Logger, ctx context.Context, cnf *configs.Config, codec kafkautils.Codec) AlertPublisher {
	kafkaCnf := kafkautils.KafkaConfig{
		BootstrapServers: cnf.KafkaBootstrapServers,
		APIKey:           cnf.KafkaAPIKey,
		APISecret:        cnf.KafkaAPISecret,
		Topics: []kafkautils.TopicConfig{
			{Topic: cnf.AlertsTopic, NumPartitions: cnf.KafkaPartitions, ReplicationFactor: 1},
		},
	}
	if err := kafkautils.InitKafkaTopics(logger, ctx, kafkaCnf); err != nil {
		logger.Fatal("failed to initialize kafka topics", zap.Error(err))
	}

	p, err := kafkautils.NewProducer(logger, kafkaCnf)
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}

	return &AlertPublisherImpl{logger: logger, producer: p, codec: codec, cnf: cnf}
}

func (a AlertPublisherImpl) PublishAlert(transactionID string, alert views.FraudAlert) error {
	msgBytes, err := a.codec.EncodeAlert(alert)
	if err != nil {
		return err
	}

	err = a.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &a.cnf.AlertsTopic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(transactionID),
		Value: msgBytes,
	}, nil)
	if err != nil {
		return err
	}

	observability.AlertsPublished.WithLabelValues(a.cnf.AlertsTopic).Inc()
	a.logger.Info("fraud alert published",
		zap.String(pkg.TransactionId, transactionID),
		zap.Float64("fraud_probability", alert.FraudProbability))
	return nil
}

func (a AlertPublisherImpl) Close() {
	a.producer.Flush(5000)
	a.producer.Close()
}
