package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
)

// ErrMissingAPIKey is returned when the client has no key configured.
var ErrMissingAPIKey = errors.New("openai: api key is required")

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
	systemPrompt   = "You write website copy for small businesses. Follow the requested output format exactly."
)

var modelAliases = map[string]string{
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt4o":                  "gpt-4o",
	"gpt-3.5":                "gpt-3.5-turbo",
	"gpt-35-turbo":           "gpt-3.5-turbo",
}

type Options struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// Client calls the chat completions endpoint.
type Client struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
	logger       *infra.Logger
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        NormalizeModel(opts.Model),
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
		logger:       logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// NormalizeModel resolves common spellings to a canonical model id. Unknown
// names pass through unchanged; empty input yields the default model.
func NormalizeModel(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return defaultModel
	}
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	if alias, ok := modelAliases[normalized]; ok {
		return alias
	}
	return normalized
}

// Generate runs one chat completion and returns the assistant message.
func (c *Client) Generate(ctx context.Context, req domain.TextRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	model := c.model
	if m := strings.TrimSpace(req.Model); m != "" {
		model = NormalizeModel(m)
	}
	payload := chatRequest{
		Model:       model,
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Prompt},
		},
	}
	if req.Options.JSON {
		payload.ResponseFormat = &chatFormat{Type: "json_object"}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("openai: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: http request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}
	var out chatResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode >= 300 {
		perr := &domain.ProviderError{Provider: "openai", StatusCode: resp.StatusCode}
		if decodeErr == nil && out.Error != nil {
			perr.Code = out.Error.Code
			perr.Message = out.Error.Message
		} else {
			perr.Message = strings.TrimSpace(string(raw))
		}
		return "", perr
	}
	if decodeErr != nil {
		return "", fmt.Errorf("openai: decode response: %w", decodeErr)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai: empty response")
	}
	c.logger.Debug().Str("model", model).Str("feature", req.Feature).Int("chars", len(text)).Msg("openai: text generated")
	return text, nil
}

var _ domain.TextGenerator = (*Client)(nil)
