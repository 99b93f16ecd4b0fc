package views

import "time"

// APIResponse wraps successful payloads.
type APIResponse struct {
	Data any `json:"data"`
}

// TransactionResponse is the REST shape of a stored transaction.
type TransactionResponse struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Amount           float64    `json:"amount"`
	OccurredAt       time.Time  `json:"occurred_at"`
	Features         []float64  `json:"features"`
	FraudProbability *float64   `json:"fraud_probability"`
	Label            *int16     `json:"label"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
}

// AlertResponse is the REST shape of a stored fraud alert.
type AlertResponse struct {
	ID               string         `json:"id"`
	TransactionID    string         `json:"transaction_id"`
	FraudProbability float64        `json:"fraud_probability"`
	IsFraudulent     bool           `json:"is_fraudulent"`
	AlertType        string         `json:"alert_type"`
	Status           string         `json:"status"`
	Context          map[string]any `json:"context"`
	CreatedAt        time.Time      `json:"created_at"`
}

// AlertStatusRequest carries an alert lifecycle transition.
type AlertStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ModelStatus reports the state of the serving model.
type ModelStatus struct {
	Trained     bool       `json:"trained"`
	ModelPath   string     `json:"model_path"`
	InputDim    int        `json:"input_dim"`
	HiddenDim   int        `json:"hidden_dim"`
	NumLayers   int        `json:"num_layers"`
	LastTrained *time.Time `json:"last_trained,omitempty"`
	Accuracy    *float64   `json:"accuracy,omitempty"`
	AUC         *float64   `json:"auc,omitempty"`
}

// TrainResponse reports the outcome of a training run.
type TrainResponse struct {
	Epochs    int     `json:"epochs"`
	Samples   int     `json:"samples"`
	FinalLoss float64 `json:"final_loss"`
	Accuracy  float64 `json:"accuracy"`
	AUC       float64 `json:"auc"`
}
