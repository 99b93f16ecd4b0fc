package kafkautils

import (
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCommitter struct {
	committed []kafka.TopicPartition
	fail      bool
}

func (f *fakeCommitter) CommitOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error) {
	if f.fail {
		return nil, kafka.NewError(kafka.ErrTimedOut, "timeout", false)
	}
	f.committed = append(f.committed, offsets...)
	return offsets, nil
}

func msgAt(topic string, partition int32, offset int64) *kafka.Message {
	return &kafka.Message{TopicPartition: kafka.TopicPartition{
		Topic:     &topic,
		Partition: partition,
		Offset:    kafka.Offset(offset),
	}}
}

func TestAckCommitsContiguousOffsets(t *testing.T) {
	committer := &fakeCommitter{}
	m := NewCommitManager(committer, zap.NewNop())

	m.Ack(uuid.New(), msgAt("transactions", 0, 1))
	m.Ack(uuid.New(), msgAt("transactions", 0, 2))

	require.Len(t, committer.committed, 2)
	// Committed offset is always one past the processed message.
	assert.Equal(t, kafka.Offset(2), committer.committed[0].Offset)
	assert.Equal(t, kafka.Offset(3), committer.committed[1].Offset)
}

func TestAckHoldsBackOutOfOrderOffsets(t *testing.T) {
	committer := &fakeCommitter{}
	m := NewCommitManager(committer, zap.NewNop())

	// Offset 3 finishes before 1 and 2; nothing may be committed past the gap.
	m.Ack(uuid.New(), msgAt("transactions", 0, 3))
	assert.Empty(t, committer.committed)

	m.Ack(uuid.New(), msgAt("transactions", 0, 1))
	require.Len(t, committer.committed, 1)
	assert.Equal(t, kafka.Offset(2), committer.committed[0].Offset)

	// Filling the gap releases everything up to the high watermark.
	m.Ack(uuid.New(), msgAt("transactions", 0, 2))
	require.Len(t, committer.committed, 2)
	assert.Equal(t, kafka.Offset(4), committer.committed[1].Offset)
}

func TestAckTracksPartitionsIndependently(t *testing.T) {
	committer := &fakeCommitter{}
	m := NewCommitManager(committer, zap.NewNop())

	m.Ack(uuid.New(), msgAt("transactions", 0, 1))
	m.Ack(uuid.New(), msgAt("transactions", 1, 1))

	require.Len(t, committer.committed, 2)
	assert.Equal(t, int32(0), committer.committed[0].Partition)
	assert.Equal(t, int32(1), committer.committed[1].Partition)
}

func TestTrackSeedsWatermarkOnResume(t *testing.T) {
	committer := &fakeCommitter{}
	m := NewCommitManager(committer, zap.NewNop())

	// Partition resumes mid-stream, far from offset 0.
	for off := int64(500); off <= 502; off++ {
		m.Track(msgAt("transactions", 0, off))
		m.Ack(uuid.New(), msgAt("transactions", 0, off))
	}

	require.Len(t, committer.committed, 3)
	assert.Equal(t, kafka.Offset(501), committer.committed[0].Offset)
	assert.Equal(t, kafka.Offset(503), committer.committed[2].Offset)
}

func TestTrackKeepsGapsHeldBack(t *testing.T) {
	committer := &fakeCommitter{}
	m := NewCommitManager(committer, zap.NewNop())

	m.Track(msgAt("transactions", 0, 500))
	m.Track(msgAt("transactions", 0, 501))
	m.Track(msgAt("transactions", 0, 502))

	// 502 finishes first; the watermark stays at the resume point.
	m.Ack(uuid.New(), msgAt("transactions", 0, 502))
	assert.Empty(t, committer.committed)

	m.Ack(uuid.New(), msgAt("transactions", 0, 500))
	require.Len(t, committer.committed, 1)
	assert.Equal(t, kafka.Offset(501), committer.committed[0].Offset)

	m.Ack(uuid.New(), msgAt("transactions", 0, 501))
	require.Len(t, committer.committed, 2)
	assert.Equal(t, kafka.Offset(503), committer.committed[1].Offset)
}

func TestAckRetriesAfterCommitFailure(t *testing.T) {
	committer := &fakeCommitter{fail: true}
	m := NewCommitManager(committer, zap.NewNop())

	m.Ack(uuid.New(), msgAt("transactions", 0, 1))
	assert.Empty(t, committer.committed)

	// The failed offset stays pending; the next ack commits both.
	committer.fail = false
	m.Ack(uuid.New(), msgAt("transactions", 0, 2))
	require.Len(t, committer.committed, 1)
	assert.Equal(t, kafka.Offset(3), committer.committed[0].Offset)
}
