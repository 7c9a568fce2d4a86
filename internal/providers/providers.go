// Package providers picks the content and image endpoints named by the
// configuration and resolves their API keys.
package providers

import (
	"context"
	"fmt"
	"net/http"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/infra/credentials"
	"sitegen/internal/providers/genai"
	"sitegen/internal/providers/image"
	"sitegen/internal/providers/openai"
	"sitegen/internal/providers/qwen"
	"sitegen/internal/storage"
)

const (
	NameGemini    = "gemini"
	NameOpenAI    = "openai"
	NameQwen      = "qwen"
	NameSynthetic = "synthetic"
)

// Keys holds the resolved provider API keys.
type Keys struct {
	Gemini string
	OpenAI string
	Qwen   string
}

// ResolveKeys prefers keys from the configuration and falls back to tokens
// stored through creds. A nil store only uses the configuration. Lookup
// failures are logged and leave the key empty.
func ResolveKeys(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger *infra.Logger) Keys {
	resolve := func(provider, configured string) string {
		key, err := creds.Resolve(ctx, provider, configured)
		if err != nil {
			logger.Warn().Err(err).Str("provider", provider).Msg("load stored api key failed")
			return configured
		}
		return key
	}
	return Keys{
		Gemini: resolve(credentials.ProviderGemini, cfg.GeminiAPIKey),
		OpenAI: resolve(credentials.ProviderOpenAI, cfg.OpenAIAPIKey),
		Qwen:   resolve(credentials.ProviderQwen, cfg.QwenAPIKey),
	}
}

// Text returns the content endpoint selected by cfg.ContentProvider and the
// model id it calls. A missing key is not an error: every call then fails and
// the content generator falls back to deterministic text.
func Text(cfg *infra.Config, keys Keys, client *http.Client, logger *infra.Logger) (domain.TextGenerator, string, error) {
	switch cfg.ContentProvider {
	case "", NameGemini:
		if keys.Gemini == "" {
			logger.Warn().Msg("gemini api key missing, content falls back to defaults")
		}
		c := genai.NewClient(genai.Options{
			APIKey:     keys.Gemini,
			BaseURL:    cfg.GeminiBaseURL,
			TextModel:  cfg.GeminiTextModel,
			ImageModel: cfg.GeminiImageModel,
			HTTPClient: client,
			Logger:     logger,
		})
		return c, c.TextModel(), nil
	case NameOpenAI:
		if keys.OpenAI == "" {
			logger.Warn().Msg("openai api key missing, content falls back to defaults")
		}
		c := openai.NewClient(openai.Options{
			APIKey:       keys.OpenAI,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			HTTPClient:   client,
			Logger:       logger,
		})
		return c, c.Model(), nil
	default:
		return nil, "", fmt.Errorf("unknown content provider %q", cfg.ContentProvider)
	}
}

// Image returns the image endpoint selected by cfg.ImageProvider and its
// model id. Without a key for the selected provider the synthetic renderer
// is used so keyless development runs still produce images.
func Image(cfg *infra.Config, keys Keys, store storage.Store, client *http.Client, logger *infra.Logger) (domain.ImageGenerator, string, error) {
	switch cfg.ImageProvider {
	case "", NameGemini:
		if keys.Gemini != "" {
			c := genai.NewClient(genai.Options{
				APIKey:     keys.Gemini,
				BaseURL:    cfg.GeminiBaseURL,
				TextModel:  cfg.GeminiTextModel,
				ImageModel: cfg.GeminiImageModel,
				HTTPClient: client,
				Logger:     logger,
			})
			return image.NewGeminiGenerator(c, store), c.ImageModel(), nil
		}
	case NameQwen:
		if keys.Qwen != "" {
			c := qwen.NewClient(qwen.Options{
				APIKey:       keys.Qwen,
				BaseURL:      cfg.QwenBaseURL,
				Model:        cfg.QwenModel,
				PromptExtend: true,
				HTTPClient:   client,
				Logger:       logger,
			})
			return image.NewQwenGenerator(c, store), c.Model(), nil
		}
	case NameSynthetic:
		return image.NewSyntheticGenerator(store), NameSynthetic, nil
	default:
		return nil, "", fmt.Errorf("unknown image provider %q", cfg.ImageProvider)
	}
	logger.Warn().Str("provider", cfg.ImageProvider).Msg("image api key missing, using synthetic renders")
	return image.NewSyntheticGenerator(store), NameSynthetic, nil
}
