package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
)

// ErrMissingAPIKey is returned when a remote call is attempted without a key.
var ErrMissingAPIKey = errors.New("genai: api key is not configured")

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client calls the Gemini generateContent endpoint for text and images.
type Client struct {
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
	httpClient *http.Client
	logger     *infra.Logger
}

// ImageAsset is a decoded image returned by the image model.
type ImageAsset struct {
	Format string
	Width  int
	Height int
	Data   []byte
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type generationConfig struct {
	Temperature        *float64     `json:"temperature,omitempty"`
	MaxOutputTokens    int          `json:"maxOutputTokens,omitempty"`
	ResponseMimeType   string       `json:"responseMimeType,omitempty"`
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type generateContentResponse struct {
	Candidates     []candidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	textModel := strings.TrimSpace(opts.TextModel)
	if textModel == "" {
		textModel = "gemini-2.5-flash"
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = "gemini-2.5-flash-image"
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
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		textModel:  textModel,
		imageModel: imageModel,
		httpClient: client,
		logger:     logger,
	}
}

// TextModel returns the configured text model identifier.
func (c *Client) TextModel() string {
	return c.textModel
}

// ImageModel returns the configured image model identifier.
func (c *Client) ImageModel() string {
	return c.imageModel
}

// Generate runs a text completion and returns the concatenated text parts.
func (c *Client) Generate(ctx context.Context, req domain.TextRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("genai: prompt is empty")
	}
	model := firstNonEmpty(req.Model, c.textModel)

	cfg := &generationConfig{MaxOutputTokens: req.Options.MaxTokens}
	if req.Options.Temperature > 0 {
		t := req.Options.Temperature
		cfg.Temperature = &t
	}
	if req.Options.JSON {
		cfg.ResponseMimeType = "application/json"
	}

	payload := generateContentRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: cfg,
	}

	var resp generateContentResponse
	if err := c.invoke(ctx, model, payload, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("genai: prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", errors.New("genai: empty text response")
	}

	c.logger.Debug().
		Str("model", model).
		Str("feature", req.Feature).
		Int("chars", len(text)).
		Msg("genai: text generated")
	return text, nil
}

// GenerateImage renders a single image for prompt with the requested aspect ratio.
func (c *Client) GenerateImage(ctx context.Context, req domain.ImageRequest) (ImageAsset, error) {
	if c.apiKey == "" {
		return ImageAsset{}, ErrMissingAPIKey
	}
	prompt := buildImagePrompt(req)
	model := firstNonEmpty(req.Model, c.imageModel)

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        &imageConfig{AspectRatio: strings.TrimSpace(req.AspectRatio)},
		},
	}
	if payload.GenerationConfig.ImageConfig.AspectRatio == "" {
		payload.GenerationConfig.ImageConfig = nil
	}

	var resp generateContentResponse
	if err := c.invoke(ctx, model, payload, &resp); err != nil {
		return ImageAsset{}, err
	}

	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return ImageAsset{}, fmt.Errorf("genai: decode inline image: %w", err)
			}
			w, h := decodeImageDimensions(data)
			c.logger.Debug().
				Str("request_id", req.RequestID).
				Str("model", model).
				Int("bytes", len(data)).
				Msg("genai: image generated")
			return ImageAsset{
				Format: firstNonEmpty(p.InlineData.MimeType, "image/png"),
				Width:  w,
				Height: h,
				Data:   data,
			}, nil
		}
	}
	return ImageAsset{}, errors.New("genai: no image content returned")
}

func (c *Client) invoke(ctx context.Context, model string, payload any, out any) error {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gemini response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		statusErr := &domain.ProviderError{Provider: "gemini", StatusCode: resp.StatusCode}
		var apiErr errorResponse
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
			statusErr.Code = apiErr.Error.Status
			statusErr.Message = apiErr.Error.Message
		} else {
			statusErr.Message = strings.TrimSpace(string(raw))
		}
		return statusErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func buildImagePrompt(req domain.ImageRequest) string {
	var b strings.Builder
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = "Create a marketing image"
	}
	b.WriteString(prompt)
	if style := strings.TrimSpace(req.Style); style != "" {
		b.WriteString("\nStyle: ")
		b.WriteString(style)
	}
	if res := strings.TrimSpace(req.Resolution); res != "" {
		b.WriteString("\nResolution: ")
		b.WriteString(res)
	}
	if policy := strings.TrimSpace(req.PersonPolicy); policy != "" {
		b.WriteString("\nPeople: ")
		b.WriteString(policy)
	}
	b.WriteString("\nReturn only the image, no text or watermark.")
	return b.String()
}

func decodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var _ domain.TextGenerator = (*Client)(nil)
