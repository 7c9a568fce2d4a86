// Package image adapts the image model clients to domain.ImageGenerator by
// uploading every render to object storage and returning its public URL.
package image

import (
	"context"
	"errors"
	"fmt"

	"sitegen/internal/domain"
	"sitegen/internal/providers/genai"
	"sitegen/internal/providers/qwen"
	"sitegen/internal/storage"
)

type geminiImageClient interface {
	GenerateImage(ctx context.Context, req domain.ImageRequest) (genai.ImageAsset, error)
}

type qwenImageClient interface {
	GenerateImage(ctx context.Context, req domain.ImageRequest) (qwen.ImageAsset, error)
}

// GeminiGenerator renders with the Gemini image model.
type GeminiGenerator struct {
	client geminiImageClient
	store  storage.Store
}

func NewGeminiGenerator(client geminiImageClient, store storage.Store) *GeminiGenerator {
	return &GeminiGenerator{client: client, store: store}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req domain.ImageRequest) (string, error) {
	asset, err := g.client.GenerateImage(ctx, req)
	if err != nil {
		return "", err
	}
	return upload(ctx, g.store, req, asset.Data, asset.Format)
}

// QwenGenerator renders with DashScope Qwen. The temporary DashScope URL is
// re-hosted because it expires.
type QwenGenerator struct {
	client qwenImageClient
	store  storage.Store
}

func NewQwenGenerator(client qwenImageClient, store storage.Store) *QwenGenerator {
	return &QwenGenerator{client: client, store: store}
}

func (g *QwenGenerator) Generate(ctx context.Context, req domain.ImageRequest) (string, error) {
	asset, err := g.client.GenerateImage(ctx, req)
	if err != nil {
		return "", err
	}
	return upload(ctx, g.store, req, asset.Data, asset.Format)
}

// SyntheticGenerator draws deterministic placeholder images. It backs keyless
// development runs.
type SyntheticGenerator struct {
	store storage.Store
}

func NewSyntheticGenerator(store storage.Store) *SyntheticGenerator {
	return &SyntheticGenerator{store: store}
}

func (g *SyntheticGenerator) Generate(ctx context.Context, req domain.ImageRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	asset := genai.RenderSynthetic(req.Prompt, req.AspectRatio, req.Style, req.RequestID, req.Target)
	return upload(ctx, g.store, req, asset.Data, asset.Format)
}

func upload(ctx context.Context, store storage.Store, req domain.ImageRequest, data []byte, format string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("image: empty render")
	}
	if store == nil {
		return "", errors.New("image: no storage configured")
	}
	url, err := store.Put(ctx, storage.ImageKey(req.RequestID, req.Target, format), data, format)
	if err != nil {
		return "", fmt.Errorf("image: store render: %w", err)
	}
	return url, nil
}

var (
	_ domain.ImageGenerator = (*GeminiGenerator)(nil)
	_ domain.ImageGenerator = (*QwenGenerator)(nil)
	_ domain.ImageGenerator = (*SyntheticGenerator)(nil)
)
