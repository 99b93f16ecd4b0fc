package kafkautils

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// NewProducer creates an idempotent producer and starts the async delivery
// report handler.
func NewProducer(logger *zap.Logger, cnf KafkaConfig) (*kafka.Producer, error) {
	cm := BaseConfigMap(cnf)
	_ = cm.SetKey("acks", "all")              // Wait for all replicas
	_ = cm.SetKey("enable.idempotence", true) // Ensure messages are not sent twice
	_ = cm.SetKey("retries", "1")             // Built-in retry mechanism
	p, err := kafka.NewProducer(cm)
	if err != nil {
		return nil, err
	}
	logger.Info("kafka producer created successfully", zap.String("brokers", cnf.BootstrapServers))
	go handleDeliveryReports(logger, p) // Async error handling
	return p, nil
}

// NewConsumer creates a manual-commit consumer that reads from the earliest
// uncommitted offset.
func NewConsumer(logger *zap.Logger, cnf KafkaConfig, groupID string) (*kafka.Consumer, error) {
	cm := BaseConfigMap(cnf)
	_ = cm.SetKey("group.id", groupID)
	_ = cm.SetKey("auto.offset.reset", "earliest")
	_ = cm.SetKey("enable.auto.commit", false)
	c, err := kafka.NewConsumer(cm)
	if err != nil {
		return nil, err
	}
	logger.Info("kafka consumer created successfully",
		zap.String("brokers", cnf.BootstrapServers),
		zap.String("consumer_group", groupID))
	return c, nil
}

func handleDeliveryReports(logger *zap.Logger, p *kafka.Producer) {
	for e := range p.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logger.Error("failed to publish message", zap.Error(ev.TopicPartition.Error))
			}
		}
	}
}
