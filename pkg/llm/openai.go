package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
)

const (
	defaultOpenAIURL   = "https://api.openai.com"
	defaultOpenAIModel = "gpt-3.5-turbo"
)

// OpenAIBackend talks to the OpenAI chat completions API or any server
// compatible with it (vLLM, LM Studio, text-generation-inference).
type OpenAIBackend struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// OpenAIOption configures the OpenAIBackend.
type OpenAIOption func(*OpenAIBackend)

// WithOpenAIEndpoint overrides the base URL.
func WithOpenAIEndpoint(url string) OpenAIOption {
	return func(b *OpenAIBackend) {
		b.endpoint = url
	}
}

// WithOpenAIModel overrides the model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(b *OpenAIBackend) {
		b.model = model
	}
}

// WithOpenAIAPIKey sets the API key instead of reading OPENAI_API_KEY.
func WithOpenAIAPIKey(key string) OpenAIOption {
	return func(b *OpenAIBackend) {
		b.apiKey = key
	}
}

// WithOpenAIHTTPClient overrides the default HTTP client.
func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(b *OpenAIBackend) {
		b.client = c
	}
}

// NewOpenAIBackend creates an OpenAI backend. The API key defaults to the
// OPENAI_API_KEY environment variable.
func NewOpenAIBackend(opts ...OpenAIOption) *OpenAIBackend {
	b := &OpenAIBackend{
		endpoint: defaultOpenAIURL,
		model:    defaultOpenAIModel,
		apiKey:   os.Getenv("OPENAI_API_KEY"),
		client:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the backend name.
func (*OpenAIBackend) Name() string {
	return "openai"
}

// CheckCredentials reports a missing key when talking to the hosted API.
// Self-hosted compatible servers usually run without one.
func (b *OpenAIBackend) CheckCredentials() error {
	if b.apiKey == "" && b.endpoint == defaultOpenAIURL {
		return fmt.Errorf("openai: %w (set OPENAI_API_KEY)", ErrMissingAPIKey)
	}
	return nil
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	ResponseFmt *openAIRespFmt  `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRespFmt struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate calls POST /v1/chat/completions.
func (b *OpenAIBackend) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	chatReq := openAIChatRequest{
		Model:     b.model,
		MaxTokens: req.MaxTokens,
	}
	if req.SystemMsg != "" {
		chatReq.Messages = append(chatReq.Messages, openAIMessage{Role: "system", Content: req.SystemMsg})
	}
	chatReq.Messages = append(chatReq.Messages, openAIMessage{Role: "user", Content: req.Prompt})

	if req.Temperature > 0 {
		chatReq.Temperature = &req.Temperature
	}
	if req.Format == FormatJSON {
		chatReq.ResponseFmt = &openAIRespFmt{Type: "json_object"}
	}

	headers := map[string]string{}
	if b.apiKey != "" {
		headers["Authorization"] = "Bearer " + b.apiKey
	}

	raw, err := postJSON(ctx, b.client, b.endpoint+"/v1/chat/completions", headers, chatReq)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return GenerateResponse{}, fmt.Errorf("openai API error: %w", err)
		}
		return GenerateResponse{}, fmt.Errorf("calling openai API: %w", err)
	}

	var chatResp openAIChatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return GenerateResponse{}, fmt.Errorf("parsing openai response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return GenerateResponse{}, errors.New("empty choices from openai API")
	}

	return GenerateResponse{
		Content: chatResp.Choices[0].Message.Content,
		Model:   chatResp.Model,
		Usage: TokenUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
	}, nil
}
