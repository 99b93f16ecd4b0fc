package pkg

const (
	HeaderTraceId   string = "X-Trace-Id"
	HeaderRequestId string = "X-Request-Id"
)

const (
	TraceId       string = "trace_id"
	RequestId     string = "request_id"
	TransactionId string = "transaction_id"
)

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusScored  TransactionStatus = "scored"
	TransactionStatusFailed  TransactionStatus = "failed"
)

type AlertStatus string

const (
	AlertStatusNew          AlertStatus = "new"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

const AlertTypeHighRisk = "high_risk_transaction"
