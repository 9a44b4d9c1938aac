package processors

import (
	"context"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/integrations"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

type fakeCreds struct {
	have map[schema.IntegrationType]bool
}

func (f *fakeCreds) Resolve(_ context.Context, _ string, typ schema.IntegrationType) (integrations.Credential, error) {
	if !f.have[typ] {
		return integrations.Credential{}, schema.NewErrorf(schema.ErrCodeIntegrationMissing, "%s integration not found", typ)
	}
	return integrations.Credential{AccessToken: "tok-" + string(typ)}, nil
}

type fakeAdapter struct {
	emails   []integrations.Email
	chats    []string
	rows     [][]any
	requests []integrations.HTTPRequest

	httpResp  *integrations.HTTPResponse
	httpErr   error
	sentiment *integrations.Sentiment
}

func (f *fakeAdapter) SendEmail(_ context.Context, _ integrations.Credential, msg integrations.Email) (map[string]any, error) {
	f.emails = append(f.emails, msg)
	return map[string]any{"id": "m1"}, nil
}

func (f *fakeAdapter) PostChatMessage(_ context.Context, _ integrations.Credential, channel, text string) (map[string]any, error) {
	f.chats = append(f.chats, channel+":"+text)
	return map[string]any{"ok": true}, nil
}

func (f *fakeAdapter) AppendRow(_ context.Context, _ integrations.Credential, _, _ string, values []any) (map[string]any, error) {
	f.rows = append(f.rows, values)
	return map[string]any{"updates": 1}, nil
}

func (f *fakeAdapter) HTTPRequest(_ context.Context, req integrations.HTTPRequest) (*integrations.HTTPResponse, error) {
	f.requests = append(f.requests, req)
	if f.httpErr != nil {
		return nil, f.httpErr
	}
	if f.httpResp != nil {
		return f.httpResp, nil
	}
	return &integrations.HTTPResponse{Status: 200, StatusText: "OK", Data: map[string]any{"received": true}}, nil
}

func (f *fakeAdapter) ClassifySentiment(_ context.Context, _ string) (*integrations.Sentiment, error) {
	if f.sentiment != nil {
		return f.sentiment, nil
	}
	return &integrations.Sentiment{Label: "NEUTRAL", Score: 0.5}, nil
}
