package responder

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/shopmate-ai/storefront-backend/pkg/metrics"
)

// OpenAIResponder is the OpenAI generative responder.
type OpenAIResponder struct {
	client *openai.Client
	model  string
}

// NewOpenAIResponder creates a new OpenAI responder.
func NewOpenAIResponder(apiKey string) (*OpenAIResponder, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	return &OpenAIResponder{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4oMini,
	}, nil
}

// Name returns the provider name.
func (r *OpenAIResponder) Name() string {
	return "openai"
}

// Respond generates a reply conditioned on the product context and history.
func (r *OpenAIResponder) Respond(ctx context.Context, req *Request) (string, error) {
	start := time.Now()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req.Products)},
	}
	for _, turn := range req.History {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.Message},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.Response},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		metrics.RecordResponder(r.Name(), "error", time.Since(start).Seconds())
		return "", err
	}

	if len(resp.Choices) == 0 {
		metrics.RecordResponder(r.Name(), "error", time.Since(start).Seconds())
		return "", errors.New("empty completion response")
	}

	metrics.RecordResponder(r.Name(), "success", time.Since(start).Seconds())
	return resp.Choices[0].Message.Content, nil
}
