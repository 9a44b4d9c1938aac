package processors

import (
	"context"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// passThrough returns the trigger payload unchanged.
func passThrough(_ context.Context, in Input) (map[string]any, error) {
	return expressions.Snapshot(in.Data), nil
}

func typeformTrigger(_ context.Context, in Input) (map[string]any, error) {
	return map[string]any{
		"trigger":    "typeform",
		"submission": expressions.Snapshot(in.Data),
	}, nil
}

func (b *builtins) gmailTrigger(ctx context.Context, in Input) (map[string]any, error) {
	if _, err := b.creds.Resolve(ctx, in.UserID, schema.IntegrationEmail); err != nil {
		return nil, err
	}
	emails, ok := in.Data["emails"]
	if !ok || emails == nil {
		emails = []any{}
	}
	return map[string]any{
		"trigger": "gmail",
		"emails":  emails,
	}, nil
}
