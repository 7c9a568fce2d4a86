package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidProfile    = errors.New("invalid profile")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrIncompatible      = errors.New("incompatible template schema")
	ErrAlreadyRunning    = errors.New("generation already running")
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrStaleRun          = errors.New("stale generation run")
	ErrProviderFailure   = errors.New("provider failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrMissingOwner      = errors.New("owner id is required")
)

// ProviderError carries the HTTP status and upstream code of a failed model call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s status %d", e.Provider, e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

// HTTPStatus exposes the status code for error classification.
func (e *ProviderError) HTTPStatus() int {
	return e.StatusCode
}

// Is matches ErrProviderFailure always and ErrRateLimited on HTTP 429.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrProviderFailure:
		return true
	case ErrRateLimited:
		return e.StatusCode == 429
	}
	return false
}
