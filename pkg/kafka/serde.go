package kafkautils

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/fraudsight/fraudsight/pkg/views"
	"github.com/hamba/avro/v2"
	"go.uber.org/zap"
)

// Codec serializes transaction and alert events for Kafka transport.
type Codec interface {
	Name() string
	EncodeTransaction(event views.TransactionEvent) ([]byte, error)
	DecodeTransaction(data []byte) (views.TransactionEvent, error)
	EncodeAlert(alert views.FraudAlert) ([]byte, error)
	DecodeAlert(data []byte) (views.FraudAlert, error)
}

// JSONCodec is the plaintext codec used when no schema registry is configured.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) EncodeTransaction(event views.TransactionEvent) ([]byte, error) {
	return json.Marshal(event)
}

func (JSONCodec) DecodeTransaction(data []byte) (views.TransactionEvent, error) {
	var event views.TransactionEvent
	err := json.Unmarshal(data, &event)
	return event, err
}

func (JSONCodec) EncodeAlert(alert views.FraudAlert) ([]byte, error) {
	return json.Marshal(alert)
}

func (JSONCodec) DecodeAlert(data []byte) (views.FraudAlert, error) {
	var alert views.FraudAlert
	err := json.Unmarshal(data, &alert)
	return alert, err
}

const (
	// TransactionSchema is the Avro schema registered under <topic>-value for
	// the transaction stream.
	TransactionSchema = `{
	"type": "record",
	"name": "Transaction",
	"namespace": "com.fraud_detection",
	"fields": [
		{"name": "id", "type": "string"},
		{"name": "amount", "type": "double"},
		{"name": "timestamp", "type": "string"},
		{"name": "user_id", "type": "string"},
		{"name": "features", "type": {"type": "array", "items": "double"}},
		{"name": "fraud_probability", "type": "double"},
		{"name": "label", "type": "int"}
	]
}`

	// AlertSchema is the Avro schema for published fraud alerts.
	AlertSchema = `{
	"type": "record",
	"name": "Alert",
	"namespace": "com.fraud_detection",
	"fields": [
		{"name": "transaction_id", "type": "string"},
		{"name": "fraud_probability", "type": "double"},
		{"name": "is_fraudulent", "type": "boolean"},
		{"name": "timestamp", "type": "string"},
		{"name": "context", "type": "string"}
	]
}`
)

// wireHeaderLen covers the magic byte plus the big-endian schema ID.
const wireHeaderLen = 5

type SchemaRegistryConfig struct {
	URL       string
	APIKey    string
	APISecret string
}

// AvroCodec frames messages in the Confluent wire format: a zero magic byte,
// a 4-byte schema registry ID, then the Avro binary body.
type AvroCodec struct {
	transactionSchema avro.Schema
	alertSchema       avro.Schema
	transactionID     int
	alertID           int
}

// NewAvroCodec registers both value schemas and returns a codec bound to the
// assigned schema IDs.
func NewAvroCodec(logger *zap.Logger, cnf SchemaRegistryConfig, transactionTopic, alertTopic string) (*AvroCodec, error) {
	var conf *schemaregistry.Config
	if cnf.APIKey != "" {
		conf = schemaregistry.NewConfigWithAuthentication(cnf.URL, cnf.APIKey, cnf.APISecret)
	} else {
		conf = schemaregistry.NewConfig(cnf.URL)
	}
	client, err := schemaregistry.NewClient(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema registry client: %w", err)
	}

	c := &AvroCodec{
		transactionSchema: avro.MustParse(TransactionSchema),
		alertSchema:       avro.MustParse(AlertSchema),
	}

	c.transactionID, err = client.Register(transactionTopic+"-value", schemaregistry.SchemaInfo{Schema: TransactionSchema}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to register transaction schema: %w", err)
	}
	c.alertID, err = client.Register(alertTopic+"-value", schemaregistry.SchemaInfo{Schema: AlertSchema}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to register alert schema: %w", err)
	}

	logger.Info("avro schemas registered",
		zap.Int("transaction_schema_id", c.transactionID),
		zap.Int("alert_schema_id", c.alertID))
	return c, nil
}

func (c *AvroCodec) Name() string { return "avro" }

func (c *AvroCodec) EncodeTransaction(event views.TransactionEvent) ([]byte, error) {
	return frame(c.transactionID, c.transactionSchema, event)
}

func (c *AvroCodec) DecodeTransaction(data []byte) (views.TransactionEvent, error) {
	var event views.TransactionEvent
	body, err := unframe(data)
	if err != nil {
		return event, err
	}
	err = avro.Unmarshal(c.transactionSchema, body, &event)
	return event, err
}

func (c *AvroCodec) EncodeAlert(alert views.FraudAlert) ([]byte, error) {
	return frame(c.alertID, c.alertSchema, alert)
}

func (c *AvroCodec) DecodeAlert(data []byte) (views.FraudAlert, error) {
	var alert views.FraudAlert
	body, err := unframe(data)
	if err != nil {
		return alert, err
	}
	err = avro.Unmarshal(c.alertSchema, body, &alert)
	return alert, err
}

func frame(schemaID int, schema avro.Schema, v any) ([]byte, error) {
	body, err := avro.Marshal(schema, v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, wireHeaderLen, wireHeaderLen+len(body))
	out[0] = 0
	binary.BigEndian.PutUint32(out[1:wireHeaderLen], uint32(schemaID))
	return append(out, body...), nil
}

func unframe(data []byte) ([]byte, error) {
	if len(data) < wireHeaderLen || data[0] != 0 {
		return nil, fmt.Errorf("message is not confluent-avro framed")
	}
	return data[wireHeaderLen:], nil
}
