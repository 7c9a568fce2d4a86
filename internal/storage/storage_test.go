package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
)

func TestFileStorePutReturnsURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	url, err := store.Put(context.Background(), "/sites/run-1/hero.png", []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if url != "http://localhost:8080/static/sites/run-1/hero.png" {
		t.Fatalf("url = %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "sites", "run-1", "hero.png"))
	if err != nil || string(data) != "png" {
		t.Fatalf("file content = %q, %v", data, err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	for _, key := range []string{"../etc/passwd", "..", "  "} {
		if _, err := store.Put(context.Background(), key, nil, ""); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestImageKey(t *testing.T) {
	key := ImageKey("run 1", "menu.items.2.imageUrl", "image/jpeg")
	if !strings.HasPrefix(key, "sites/run-1/menu.items.2.imageUrl-") || !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("key = %q", key)
	}
	if ImageKey("", "", "") == ImageKey("", "", "") {
		t.Fatal("keys should be unique")
	}
}

type fakeMinio struct {
	bucket, key, contentType string
	size                     int64
	err                      error
}

func (f *fakeMinio) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.bucket, f.key, f.size, f.contentType = bucketName, objectName, objectSize, opts.ContentType
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, f.err
}

func TestMinioStorePut(t *testing.T) {
	fake := &fakeMinio{}
	store := newMinioStore(fake, "assets", "https://cdn.example.com/assets/")
	url, err := store.Put(context.Background(), "sites/r/hero.png", []byte("abcd"), "image/png")
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if url != "https://cdn.example.com/assets/sites/r/hero.png" {
		t.Fatalf("url = %q", url)
	}
	if fake.bucket != "assets" || fake.size != 4 || fake.contentType != "image/png" {
		t.Fatalf("unexpected upload: %#v", fake)
	}

	fake.err = errors.New("denied")
	if _, err := store.Put(context.Background(), "k.png", nil, ""); err == nil {
		t.Fatal("expected error")
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	return &s3.PutObjectOutput{}, f.err
}

func TestS3StorePut(t *testing.T) {
	fake := &fakeS3{}
	store := newS3Store(fake, "bucket", "https://bucket.s3.us-east-1.amazonaws.com")
	url, err := store.Put(context.Background(), "sites/r/cta.png", []byte("xyz"), "")
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if url != "https://bucket.s3.us-east-1.amazonaws.com/sites/r/cta.png" {
		t.Fatalf("url = %q", url)
	}
	if *fake.input.Bucket != "bucket" || *fake.input.Key != "sites/r/cta.png" || *fake.input.ContentLength != 3 {
		t.Fatalf("unexpected input: %#v", fake.input)
	}
	if *fake.input.ContentType != "application/octet-stream" {
		t.Fatalf("content type = %q", *fake.input.ContentType)
	}
}
