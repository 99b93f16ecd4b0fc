package kafkautils

import (
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/fraudsight/fraudsight/pkg"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type tp struct {
	topic     string
	partition int32
}

// OffsetCommitter is the slice of kafka.Consumer the manager needs.
type OffsetCommitter interface {
	CommitOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error)
}

// CommitManager tracks per-partition processed offsets and commits only the
// highest contiguous offset, so concurrent handlers finishing out of order
// never commit past an unprocessed message.
type CommitManager struct {
	mu       sync.Mutex
	high     map[tp]int64              // last committed offset per partition
	done     map[tp]map[int64]struct{} // processed offsets not yet committed
	consumer OffsetCommitter
	log      *zap.Logger
}

func NewCommitManager(c OffsetCommitter, l *zap.Logger) *CommitManager {
	return &CommitManager{
		high:     make(map[tp]int64),
		done:     make(map[tp]map[int64]struct{}),
		consumer: c,
		log:      l,
	}
}

// Track records the delivery of msg. The first tracked offset per partition
// seeds the commit watermark, so a partition resuming mid-stream after a
// rebalance can still commit. Call it from the read loop, which observes
// offsets in partition order, before the message is handed to a worker.
func (m *CommitManager) Track(msg *kafka.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tp{topic: *msg.TopicPartition.Topic, partition: msg.TopicPartition.Partition}
	if _, ok := m.high[key]; !ok {
		m.high[key] = int64(msg.TopicPartition.Offset) - 1
	}
}

func (m *CommitManager) Ack(transactionID uuid.UUID, msg *kafka.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Info("offsetting_message",
		zap.Any(pkg.TransactionId, transactionID),
		zap.String("topic", *msg.TopicPartition.Topic),
		zap.Int32("partition", msg.TopicPartition.Partition),
		zap.Int64("offset", int64(msg.TopicPartition.Offset)))

	key := tp{topic: *msg.TopicPartition.Topic, partition: msg.TopicPartition.Partition}
	off := int64(msg.TopicPartition.Offset)

	if m.done[key] == nil {
		m.done[key] = map[int64]struct{}{}
	}
	m.done[key][off] = struct{}{}

	next := m.high[key]
	for {
		if _, ok := m.done[key][next+1]; ok {
			next++
		} else {
			break
		}
	}

	if next > m.high[key] {
		tpToCommit := kafka.TopicPartition{Topic: &key.topic, Partition: key.partition, Offset: kafka.Offset(next + 1)}
		if _, err := m.consumer.CommitOffsets([]kafka.TopicPartition{tpToCommit}); err != nil {
			// Processed offsets stay pending so a later ack retries the commit.
			m.log.Error("offset_commit_failed",
				zap.Any(pkg.TransactionId, transactionID),
				zap.String("topic", key.topic),
				zap.Int32("partition", key.partition),
				zap.Int64("attempted_offset", next), zap.Error(err))
			return
		}
		for o := m.high[key] + 1; o <= next; o++ {
			delete(m.done[key], o)
		}
		m.high[key] = next
		m.log.Info("offset_committed",
			zap.Any(pkg.TransactionId, transactionID),
			zap.String("topic", key.topic),
			zap.Int32("partition", key.partition),
			zap.Int64("offset", next))
	}
}
