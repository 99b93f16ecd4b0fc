package views

// TransactionEvent is the wire representation of a transaction as it moves
// through the transactions topic and the predict API.
type TransactionEvent struct {
	ID               string    `json:"id" avro:"id" validate:"required,uuid"`
	UserID           string    `json:"user_id" avro:"user_id" validate:"required,uuid"`
	Amount           float64   `json:"amount" avro:"amount" validate:"gte=0"`
	Timestamp        string    `json:"timestamp" avro:"timestamp" validate:"required"`
	Features         []float64 `json:"features" avro:"features"`
	FraudProbability float64   `json:"fraud_probability" avro:"fraud_probability"`
	Label            int32     `json:"label" avro:"label"`
}

// FraudAlert is published to the alerts topic for transactions scored above
// the alert threshold.
type FraudAlert struct {
	TransactionID    string  `json:"transaction_id" avro:"transaction_id"`
	FraudProbability float64 `json:"fraud_probability" avro:"fraud_probability"`
	IsFraudulent     bool    `json:"is_fraudulent" avro:"is_fraudulent"`
	Timestamp        string  `json:"timestamp" avro:"timestamp"`
	Context          string  `json:"context" avro:"context"`
}
