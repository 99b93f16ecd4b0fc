package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	kafkautils "github.com/fraudsight/fraudsight/pkg/kafka"
	"github.com/fraudsight/fraudsight/services/stream-worker/configs"
	"github.com/fraudsight/fraudsight/services/stream-worker/internal/observability"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KafkaTransactionHandler consumes the transactions topic.
type KafkaTransactionHandler interface {
	Start() func()
}

// KafkaTransactionConfig holds configuration and dependencies for the consumer.
type KafkaTransactionConfig struct {
	Context        context.Context
	Logger         *zap.Logger
	Config         *configs.Config
	ScoringService ScoringService
	Codec          kafkautils.Codec

	// internal initialization
	consumer    *kafka.Consumer
	dlqProducer *kafka.Producer
	commits     *kafkautils.CommitManager
	validate    *validator.Validate
	jobSem      chan struct{} // Semaphore to limit concurrent scoring
}

// NewKafkaTransactionHandler initializes the consumer, the DLQ producer, and
// the commit manager for out-of-order completion.
func NewKafkaTransactionHandler(cfg KafkaTransactionConfig) KafkaTransactionHandler {
	kafkaCnf := kafkautils.KafkaConfig{
		BootstrapServers: cfg.Config.KafkaBootstrapServers,
		APIKey:           cfg.Config.KafkaAPIKey,
		APISecret:        cfg.Config.KafkaAPISecret,
		Topics: []kafkautils.TopicConfig{
			{Topic: cfg.Config.TransactionsTopic, NumPartitions: cfg.Config.KafkaPartitions, ReplicationFactor: 1},
			{Topic: cfg.Config.DLQTopic, NumPartitions: 1, ReplicationFactor: 1},
		},
	}
	if err := kafkautils.InitKafkaTopics(cfg.Logger, cfg.Context, kafkaCnf); err != nil {
		cfg.Logger.Fatal("failed to initialize kafka topics", zap.Error(err))
	}

	consumer, err := kafkautils.NewConsumer(cfg.Logger, kafkaCnf, cfg.Config.ConsumerGroup)
	if err != nil {
		cfg.Logger.Fatal("failed to create kafka transaction consumer", zap.Error(err))
	}

	dlqProducer, err := kafkautils.NewProducer(cfg.Logger, kafkaCnf)
	if err != nil {
		cfg.Logger.Fatal("failed to create DLQ producer", zap.Error(err))
	}

	cfg.jobSem = make(chan struct{}, cfg.Config.MaxConcurrentJobs)
	cfg.consumer = consumer
	cfg.dlqProducer = dlqProducer
	cfg.commits = kafkautils.NewCommitManager(consumer, cfg.Logger)
	cfg.validate = validator.New()
	return &cfg
}

// Start initiates the consumption loop and returns a cleanup function.
func (k *KafkaTransactionConfig) Start() func() {
	err := k.consumer.SubscribeTopics([]string{k.Config.TransactionsTopic}, nil)
	if err != nil {
		k.Logger.Fatal("failed to subscribe to kafka topic", zap.Error(err))
	}

	k.Logger.Info("listening to kafka topic",
		zap.String("topic", k.Config.TransactionsTopic),
		zap.String("group", k.Config.ConsumerGroup))

	go func() {
		for {
			msg, err := k.consumer.ReadMessage(-1)
			if err != nil {
				k.Logger.Error("failed to read kafka message", zap.Error(err))
				continue
			}
			observability.MessagesReceived.WithLabelValues(k.Config.TransactionsTopic).Inc()
			k.commits.Track(msg)

			// Acquire semaphore slot, blocking if limit is reached
			k.jobSem <- struct{}{}
			observability.InflightJobs.Inc()
			go func(m *kafka.Message) {
				defer func() {
					<-k.jobSem
					observability.InflightJobs.Dec()
				}()
				k.processMessage(m)
			}(msg)
		}
	}()

	return func() {
		if k.dlqProducer != nil {
			k.dlqProducer.Flush(5000)
			k.dlqProducer.Close()
		}
		if err := k.consumer.Close(); err != nil {
			k.Logger.Error("failed to close kafka consumer", zap.Error(err))
		}
		k.Logger.Info("kafka consumer closed successfully")
	}
}

// processMessage decodes, validates and scores one message. Poison messages
// go to the DLQ and are acked so they never wedge the partition.
func (k *KafkaTransactionConfig) processMessage(msg *kafka.Message) {
	select {
	case <-k.Context.Done():
		return
	default:
	}

	start := time.Now()

	event, err := k.Codec.DecodeTransaction(msg.Value)
	if err != nil {
		k.Logger.Error("failed to decode kafka message", zap.Error(err))
		observability.ScoringFailed.WithLabelValues(k.Config.TransactionsTopic, "decode").Inc()
		k.sendToDLQ(msg, "decode_error", err.Error())
		k.commits.Ack(uuid.Nil, msg)
		return
	}

	if err := k.validate.Struct(&event); err != nil {
		k.Logger.Error("failed to validate transaction event", zap.Error(err))
		observability.ScoringFailed.WithLabelValues(k.Config.TransactionsTopic, "validation").Inc()
		k.sendToDLQ(msg, "validation_error", err.Error())
		k.commits.Ack(uuid.Nil, msg)
		return
	}
	txID, _ := uuid.Parse(event.ID)

	procErr := k.ScoringService.ScoreTransaction(k.Context, event)
	if procErr != nil {
		k.Logger.Error("failed to score transaction, sending to DLQ",
			zap.String("transaction_id", event.ID), zap.Error(procErr))
		observability.ScoringFailed.WithLabelValues(k.Config.TransactionsTopic, "scoring").Inc()
		k.sendToDLQ(msg, "scoring_error", procErr.Error())
		k.commits.Ack(txID, msg)
		return
	}

	observability.TransactionsScored.WithLabelValues(k.Config.TransactionsTopic).Inc()
	observability.ProcessLatency.WithLabelValues(k.Config.TransactionsTopic).Observe(time.Since(start).Seconds())
	k.commits.Ack(txID, msg)
}

// sendToDLQ wraps the original message with failure metadata.
func (k *KafkaTransactionConfig) sendToDLQ(original *kafka.Message, reason, errMsg string) {
	payload := map[string]any{
		"original_topic":     topicOf(original),
		"original_partition": original.TopicPartition.Partition,
		"original_offset":    original.TopicPartition.Offset,
		"value":              string(original.Value),
		"failure_reason":     reason,
		"error":              errMsg,
		"failed_at":          time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		k.Logger.Error("failed to marshal DLQ payload", zap.Error(err))
		return
	}

	err = k.dlqProducer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &k.Config.DLQTopic,
			Partition: kafka.PartitionAny,
		},
		Key:   original.Key,
		Value: b,
	}, nil)
	if err != nil {
		k.Logger.Error("failed to produce to DLQ", zap.Error(err))
		return
	}
	observability.DLQPublished.WithLabelValues(k.Config.DLQTopic, reason).Inc()
	k.Logger.Info("sent to transaction DLQ", zap.String("reason", reason))
}

func topicOf(msg *kafka.Message) string {
	if msg.TopicPartition.Topic == nil {
		return ""
	}
	return *msg.TopicPartition.Topic
}
