package kafkautils

import (
	"encoding/binary"
	"testing"

	"github.com/fraudsight/fraudsight/pkg/views"
	"github.com/hamba/avro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() views.TransactionEvent {
	return views.TransactionEvent{
		ID:               "3e2f38dd-61ee-4a4a-a10c-0d9a6fd0a95c",
		UserID:           "7d9f0cce-594f-4dc6-9a5c-f1a1e93307a6",
		Amount:           1042.55,
		Timestamp:        "2026-08-30T12:00:00Z",
		Features:         []float64{1042.55, 0.4, 0.7, 0.2, 0.1, 0.9},
		FraudProbability: 0.83,
		Label:            1,
	}
}

func TestJSONCodecTransactionRoundTrip(t *testing.T) {
	codec := JSONCodec{}
	event := sampleEvent()

	data, err := codec.EncodeTransaction(event)
	require.NoError(t, err)

	decoded, err := codec.DecodeTransaction(data)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestJSONCodecAlertRoundTrip(t *testing.T) {
	codec := JSONCodec{}
	alert := views.FraudAlert{
		TransactionID:    "3e2f38dd-61ee-4a4a-a10c-0d9a6fd0a95c",
		FraudProbability: 0.83,
		IsFraudulent:     true,
		Timestamp:        "2026-08-30T12:00:01Z",
		Context:          `{"related_transactions":[]}`,
	}

	data, err := codec.EncodeAlert(alert)
	require.NoError(t, err)

	decoded, err := codec.DecodeAlert(data)
	require.NoError(t, err)
	assert.Equal(t, alert, decoded)
}

func TestAvroSchemasParse(t *testing.T) {
	assert.NotPanics(t, func() { avro.MustParse(TransactionSchema) })
	assert.NotPanics(t, func() { avro.MustParse(AlertSchema) })
}

func TestAvroWireFraming(t *testing.T) {
	schema := avro.MustParse(TransactionSchema)
	event := sampleEvent()

	data, err := frame(42, schema, event)
	require.NoError(t, err)

	// Confluent wire format: magic zero byte then big-endian schema ID.
	require.Greater(t, len(data), wireHeaderLen)
	assert.Equal(t, byte(0), data[0])
	assert.Equal(t, uint32(42), binary.BigEndian.Uint32(data[1:wireHeaderLen]))

	body, err := unframe(data)
	require.NoError(t, err)

	var decoded views.TransactionEvent
	require.NoError(t, avro.Unmarshal(schema, body, &decoded))
	assert.Equal(t, event, decoded)
}

func TestUnframeRejectsUnframedPayload(t *testing.T) {
	_, err := unframe([]byte(`{"id":"x"}`))
	assert.Error(t, err)

	_, err = unframe([]byte{0, 1})
	assert.Error(t, err)
}
