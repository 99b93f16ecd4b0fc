package graphrag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const narratorSystemPrompt = "You are a fraud analyst. Given a transaction, its " +
	"graph neighborhood and a model probability, write a short plain-language " +
	"explanation of why the transaction does or does not look fraudulent. " +
	"Reference concrete values from the context. Three sentences maximum."

type NarratorConfig struct {
	APIKey string
	Model  string
}

// Narrator turns a prediction and its retrieved context into a short analyst
// explanation via a chat model.
type Narrator struct {
	logger *zap.Logger
	client *openai.Client
	model  string
}

// NewNarrator returns nil when no API key is configured; the engine treats a
// nil narrator as "explanations disabled".
func NewNarrator(logger *zap.Logger, cnf NarratorConfig) *Narrator {
	if cnf.APIKey == "" {
		logger.Info("narrative explanations disabled, no API key configured")
		return nil
	}
	if cnf.Model == "" {
		cnf.Model = openai.GPT4oMini
	}
	return &Narrator{
		logger: logger,
		client: openai.NewClient(cnf.APIKey),
		model:  cnf.Model,
	}
}

func (n *Narrator) Explain(ctx context.Context, pred Prediction) (string, error) {
	contextDoc, err := json.Marshal(pred.Context)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Transaction %s scored fraud probability %.4f (flagged: %t).\nGraph context:\n%s",
		pred.TransactionID, pred.FraudProbability, pred.IsFraudulent, contextDoc)

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: narratorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   200,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
