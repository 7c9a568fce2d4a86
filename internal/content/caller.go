package content

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/providers/prompt"
)

// DefaultCallTimeout bounds a single model call when no timeout is configured.
const DefaultCallTimeout = 45 * time.Second

var errNoTemplate = errors.New("no prompt template")

// CallerOptions configures a Caller.
type CallerOptions struct {
	Text    domain.TextGenerator
	Prompts domain.PromptCatalog
	Calls   domain.CallLogger
	// Model is the model id recorded when the prompt template does not pin one.
	Model   string
	Timeout time.Duration
	Logger  *infra.Logger
}

// Caller issues single model calls from catalog templates and records every
// outcome. It never retries.
type Caller struct {
	text    domain.TextGenerator
	prompts domain.PromptCatalog
	calls   domain.CallLogger
	model   string
	timeout time.Duration
	logger  *infra.Logger
}

// Call describes one model invocation.
type Call struct {
	Feature  string
	CallerID string
	// Keys are tried in order against the prompt catalog.
	Keys    []string
	Vars    map[string]string
	Options domain.GenerationOptions
}

func NewCaller(opts CallerOptions) *Caller {
	prompts := opts.Prompts
	if prompts == nil {
		prompts = prompt.WithDefaults()
	}
	calls := opts.Calls
	if calls == nil {
		calls = domain.NopCallLogger{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Caller{
		text:    opts.Text,
		prompts: prompts,
		calls:   calls,
		model:   strings.TrimSpace(opts.Model),
		timeout: timeout,
		logger:  logger,
	}
}

// Do renders the prompt, calls the content endpoint once and returns the raw
// answer. A missing endpoint or template is reported as an error so callers
// take their fallback path.
func (c *Caller) Do(ctx context.Context, call Call) (string, error) {
	text, model, ok := prompt.Resolve(ctx, c.prompts, call.Vars, call.Keys...)
	if !ok {
		c.logger.Warn().Str("feature", call.Feature).Strs("keys", call.Keys).Msg("prompt template missing")
		return "", errNoTemplate
	}
	if model == "" {
		model = c.model
	}
	if c.text == nil {
		return "", errors.New("content endpoint not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	started := time.Now()
	raw, err := c.text.Generate(callCtx, domain.TextRequest{
		Feature:  call.Feature,
		Prompt:   text,
		Model:    model,
		Options:  call.Options,
		CallerID: call.CallerID,
	})

	outcome := domain.CallOutcome{CallerID: call.CallerID, ModelID: model, Feature: call.Feature, Success: err == nil}
	if err != nil {
		outcome.Error = err.Error()
	}
	c.calls.Record(ctx, outcome)

	event := c.logger.Debug()
	if err != nil {
		event = c.logger.Warn().Err(err)
	}
	event.
		Str("feature", call.Feature).
		Str("model", model).
		Dur("elapsed", time.Since(started)).
		Msg("model call")
	return raw, err
}
