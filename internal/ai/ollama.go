package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// OllamaProvider talks to a local Ollama instance.
type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:latest"
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type ollamaChatReq struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResp struct {
	Message Message `json:"message"`
	Error   string  `json:"error,omitempty"`
}

func (p *OllamaProvider) MakeRequest(ctx context.Context, messages []Message) (Message, error) {
	if p.Client == nil {
		return Message{}, requestError(KindInvalidRequest, errors.New("ollama: http client is nil"))
	}

	b, err := json.Marshal(ollamaChatReq{
		Model:    p.Model,
		Stream:   false,
		Messages: messages,
	})
	if err != nil {
		return Message{}, requestError(KindInvalidRequest, err)
	}

	url := fmt.Sprintf("%s/api/chat", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return Message{}, requestError(KindInvalidRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return Message{}, requestError(KindTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Message{}, requestError(kindForStatus(resp.StatusCode), fmt.Errorf("ollama: status %d", resp.StatusCode))
	}

	var decoded ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Message{}, requestError(KindUnknown, err)
	}
	if decoded.Error != "" {
		return Message{}, requestError(KindUnknown, errors.New(decoded.Error))
	}

	msg := decoded.Message
	if msg.Role == "" {
		msg.Role = RoleAssistant
	}
	return msg, nil
}
