// Package storage hosts generated images and returns their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"sitegen/internal/infra"
)

// Store writes an object and returns the URL it is served from.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// New builds the store selected by cfg.StorageDriver.
func New(ctx context.Context, cfg *infra.Config) (Store, error) {
	switch cfg.StorageDriver {
	case "", "fs", "file", "filesystem":
		fs, err := NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "minio":
		ms, err := NewMinioStore(MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, err
		}
		return ms, nil
	case "s3":
		ss, err := NewS3Store(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, err
		}
		return ss, nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.StorageDriver)
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ImageKey builds a unique object key for the image of fieldPath in run.
func ImageKey(runID, fieldPath, contentType string) string {
	run := unsafeKeyChars.ReplaceAllString(strings.TrimSpace(runID), "-")
	if run == "" {
		run = "adhoc"
	}
	field := unsafeKeyChars.ReplaceAllString(strings.TrimSpace(fieldPath), "-")
	if field == "" {
		field = "image"
	}
	return path.Join("sites", run, fmt.Sprintf("%s-%s%s", field, uuid.NewString()[:8], extensionFor(contentType)))
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimLeft(strings.TrimPrefix(key, "./"), "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	if base == "" {
		return "/" + key
	}
	return base + "/" + key
}
