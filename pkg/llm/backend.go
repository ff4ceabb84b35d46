// Package llm provides chat-completion transports for the deal evaluator,
// abstracted behind the Backend interface for testability.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FormatJSON requests JSON mode from backends that support it.
const FormatJSON = "json"

const defaultTimeout = 60 * time.Second

var (
	// ErrMissingAPIKey is returned by CheckCredentials when a hosted backend
	// has no API key configured.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrUnknownProvider is returned by New for an unsupported provider.
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// GenerateRequest defines the input for a generation call.
type GenerateRequest struct {
	Prompt      string
	SystemMsg   string
	Format      string // FormatJSON for JSON mode
	Temperature float64
	MaxTokens   int
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// GenerateResponse holds the result of a generation call.
type GenerateResponse struct {
	Content string
	Model   string
	Usage   TokenUsage
}

// Backend generates text from a prompt.
type Backend interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Name() string
}

// CredentialChecker is implemented by backends that need credentials before
// they can serve a request.
type CredentialChecker interface {
	CheckCredentials() error
}

// Config selects and configures a backend.
type Config struct {
	Provider string // openai, anthropic, ollama
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// New builds the backend named by cfg.Provider. Empty fields keep each
// backend's defaults.
func New(cfg Config) (Backend, error) {
	client := &http.Client{Timeout: defaultTimeout}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}

	switch cfg.Provider {
	case "", "openai":
		opts := []OpenAIOption{WithOpenAIHTTPClient(client)}
		if cfg.Endpoint != "" {
			opts = append(opts, WithOpenAIEndpoint(cfg.Endpoint))
		}
		if cfg.Model != "" {
			opts = append(opts, WithOpenAIModel(cfg.Model))
		}
		if cfg.APIKey != "" {
			opts = append(opts, WithOpenAIAPIKey(cfg.APIKey))
		}
		return NewOpenAIBackend(opts...), nil
	case "anthropic":
		opts := []AnthropicOption{WithAnthropicHTTPClient(client)}
		if cfg.Endpoint != "" {
			opts = append(opts, WithAnthropicEndpoint(cfg.Endpoint))
		}
		if cfg.Model != "" {
			opts = append(opts, WithAnthropicModel(cfg.Model))
		}
		if cfg.APIKey != "" {
			opts = append(opts, WithAnthropicAPIKey(cfg.APIKey))
		}
		return NewAnthropicBackend(opts...), nil
	case "ollama":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOllamaURL
		}
		return NewOllamaBackend(endpoint, cfg.Model, WithOllamaHTTPClient(client)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// postJSON sends payload to url and returns the raw body of a 200 response.
// Non-200 responses are returned as *StatusError.
func postJSON(
	ctx context.Context,
	client *http.Client,
	url string,
	headers map[string]string,
	payload any,
) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// StatusError is returned when a backend answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}
