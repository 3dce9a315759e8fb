package ai

import (
	"context"
	"errors"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to the OpenAI chat completions API (or any
// API-compatible endpoint when BaseURL is overridden).
type OpenAIProvider struct {
	Model       string
	Temperature float32

	client *openai.Client
}

func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if model == "" {
		model = openai.GPT4
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIProvider{
		Model:       model,
		Temperature: 1.2,
		client:      openai.NewClientWithConfig(cfg),
	}
}

func (p *OpenAIProvider) MakeRequest(ctx context.Context, messages []Message) (Message, error) {
	if p.client == nil {
		return Message{}, requestError(KindInvalidRequest, errors.New("openai: client is nil"))
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.Model,
		Messages:    msgs,
		Temperature: p.Temperature,
	})
	if err != nil {
		return Message{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return Message{}, requestError(KindUnknown, errors.New("openai: empty choice list"))
	}

	choice := resp.Choices[0].Message
	return Message{Role: choice.Role, Content: choice.Content}, nil
}

func classifyOpenAIError(err error) *RequestError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return requestError(kindForStatus(apiErr.HTTPStatusCode), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return requestError(KindTransient, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return requestError(KindTransient, err)
	}
	return requestError(KindUnknown, err)
}
