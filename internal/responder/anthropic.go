package responder

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/shopmate-ai/storefront-backend/pkg/metrics"
)

// AnthropicResponder is the Anthropic generative responder.
type AnthropicResponder struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicResponder creates a new Anthropic responder.
func NewAnthropicResponder(apiKey string) (*AnthropicResponder, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	return &AnthropicResponder{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  "claude-3-5-haiku-20241022",
	}, nil
}

// Name returns the provider name.
func (r *AnthropicResponder) Name() string {
	return "anthropic"
}

// Respond generates a reply conditioned on the product context and history.
func (r *AnthropicResponder) Respond(ctx context.Context, req *Request) (string, error) {
	start := time.Now()

	var messages []anthropic.MessageParam
	for _, turn := range req.History {
		messages = append(messages,
			textMessage(anthropic.MessageParamRoleUser, turn.Message),
			textMessage(anthropic.MessageParamRoleAssistant, turn.Response),
		)
	}
	messages = append(messages, textMessage(anthropic.MessageParamRoleUser, req.Message))

	resp, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(r.model),
		MaxTokens: anthropic.F(int64(1024)),
		System: anthropic.F([]anthropic.TextBlockParam{{
			Type: anthropic.F(anthropic.TextBlockParamTypeText),
			Text: anthropic.F(systemPrompt(req.Products)),
		}}),
		Messages: anthropic.F(messages),
	})
	if err != nil {
		metrics.RecordResponder(r.Name(), "error", time.Since(start).Seconds())
		return "", err
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}
	if content == "" {
		metrics.RecordResponder(r.Name(), "error", time.Since(start).Seconds())
		return "", errors.New("empty message response")
	}

	metrics.RecordResponder(r.Name(), "success", time.Since(start).Seconds())
	return content, nil
}

func textMessage(role anthropic.MessageParamRole, text string) anthropic.MessageParam {
	return anthropic.MessageParam{
		Role: anthropic.F(role),
		Content: anthropic.F([]anthropic.ContentBlockParamUnion{
			anthropic.TextBlockParam{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(text),
			},
		}),
	}
}
