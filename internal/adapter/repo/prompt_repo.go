package repo

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/sqlinline"
)

// PromptRepositoryPG serves prompt templates stored in prompt_templates.
type PromptRepositoryPG struct {
	sql    infra.SQLExecutor
	logger zerolog.Logger
}

func NewPromptRepository(sql infra.SQLExecutor, logger zerolog.Logger) *PromptRepositoryPG {
	return &PromptRepositoryPG{sql: sql, logger: logger}
}

// Lookup reports false on a miss or a query failure; callers fall back to
// built-in templates either way.
func (r *PromptRepositoryPG) Lookup(ctx context.Context, key string) (domain.PromptTemplate, bool) {
	var tpl domain.PromptTemplate
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectPromptTemplate, key).Scan(&tpl.Key, &tpl.Template, &tpl.ModelID); err != nil {
		if !infra.IsNoRows(err) {
			r.logger.Warn().Err(err).Str("prompt", key).Msg("prompt lookup failed")
		}
		return domain.PromptTemplate{}, false
	}
	return tpl, tpl.Template != ""
}

// CallLogRepositoryPG writes model call outcomes to ai_call_logs.
type CallLogRepositoryPG struct {
	sql     infra.SQLExecutor
	logger  zerolog.Logger
	timeout time.Duration
}

func NewCallLogRepository(sql infra.SQLExecutor, logger zerolog.Logger) *CallLogRepositoryPG {
	return &CallLogRepositoryPG{sql: sql, logger: logger, timeout: 5 * time.Second}
}

// Record inserts the outcome. The write survives cancellation of ctx and its
// failure is only logged.
func (r *CallLogRepositoryPG) Record(ctx context.Context, outcome domain.CallOutcome) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertCallLog,
		outcome.CallerID,
		outcome.ModelID,
		outcome.Feature,
		outcome.Success,
		outcome.Error,
	); err != nil {
		r.logger.Warn().Err(err).Str("feature", outcome.Feature).Msg("call log insert failed")
	}
}

var (
	_ domain.PromptCatalog = (*PromptRepositoryPG)(nil)
	_ domain.CallLogger    = (*CallLogRepositoryPG)(nil)
)
