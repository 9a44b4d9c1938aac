package processors

import (
	"context"
	"net/http"
	"strings"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/integrations"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

func (b *builtins) webhookPost(ctx context.Context, in Input) (map[string]any, error) {
	cfg := in.Config()
	url := substituted(in, "url")
	if url == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "webhook-post: missing url")
	}

	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range mapParam(cfg, "headers") {
		headers[k] = expressions.Substitute(expressions.Stringify(v), in.Data)
	}

	var body any
	switch raw := cfg["body"].(type) {
	case nil:
	case string:
		body = expressions.Substitute(raw, in.Data)
	default:
		body = expressions.SubstituteValue(raw, in.Data)
	}

	resp, err := b.adapter.HTTPRequest(ctx, integrations.HTTPRequest{
		URL:     url,
		Method:  strings.ToUpper(stringParam(cfg, "method", http.MethodPost)),
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"action": "webhook_posted",
		"result": resp.Data,
		"url":    url,
	}, nil
}
