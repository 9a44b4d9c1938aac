package processors

import (
	"context"
	"log/slog"
	"time"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/logging"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

const defaultDelay = 1000 * time.Millisecond

// delayDuration reads durationMs, falling back to duration. Negative values
// mean no wait.
func delayDuration(cfg map[string]any) time.Duration {
	key := "durationMs"
	if cfg[key] == nil {
		key = "duration"
	}
	if cfg[key] == nil {
		return defaultDelay
	}
	ms := intParam(cfg, key, int(defaultDelay/time.Millisecond))
	return time.Duration(max(ms, 0)) * time.Millisecond
}

func delay(ctx context.Context, in Input) (map[string]any, error) {
	d := delayDuration(in.Config())
	if d == 0 {
		return map[string]any{}, nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return map[string]any{}, nil
	case <-ctx.Done():
		return nil, schema.NewError(schema.ErrCodeExecution, "delay interrupted").WithCause(ctx.Err())
	}
}

func (b *builtins) formatter(ctx context.Context, in Input) (map[string]any, error) {
	cfg := in.Config()
	template := stringParam(cfg, "template", "")

	var engine expressions.Engine
	switch stringParam(cfg, "format", "") {
	case "template":
		return map[string]any{"formatted": expressions.Substitute(template, in.Data)}, nil
	case "jq":
		engine = b.jq
	case "expr":
		engine = b.expr
	default:
		return map[string]any{}, nil
	}

	out, err := engine.Evaluate(ctx, template, in.Data)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "formatter %s: %s", engine.Name(), schema.Message(err)).WithCause(err)
	}
	// Non-finite numbers (x / 0) are stored as null, as JSON has no encoding
	// for them.
	return map[string]any{"formatted": expressions.JSONSafe(out)}, nil
}

func (b *builtins) logStep(ctx context.Context, in Input) (map[string]any, error) {
	message := substituted(in, "message")
	ctx = logging.WithStepID(logging.WithExecutionID(ctx, in.ExecutionID), in.Step.ID)
	b.logger.InfoContext(ctx, "workflow logger step", slog.String("message", message))
	return map[string]any{"logged": message}, nil
}
