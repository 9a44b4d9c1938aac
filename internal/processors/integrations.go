package processors

import (
	"context"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/integrations"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// CredentialSource resolves the active credential of a user for an integration type.
type CredentialSource interface {
	Resolve(ctx context.Context, userID string, typ schema.IntegrationType) (integrations.Credential, error)
}

func (b *builtins) gmailSend(ctx context.Context, in Input) (map[string]any, error) {
	cred, err := b.creds.Resolve(ctx, in.UserID, schema.IntegrationEmail)
	if err != nil {
		return nil, err
	}
	msg := integrations.Email{
		To:      substituted(in, "to"),
		Subject: substituted(in, "subject"),
		Body:    substituted(in, "body"),
	}
	result, err := b.adapter.SendEmail(ctx, cred, msg)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"action": "gmail_sent",
		"result": result,
		"to":     msg.To,
	}, nil
}

func (b *builtins) slackSend(ctx context.Context, in Input) (map[string]any, error) {
	cred, err := b.creds.Resolve(ctx, in.UserID, schema.IntegrationChat)
	if err != nil {
		return nil, err
	}
	channel := stringParam(in.Config(), "channel", "")
	message := substituted(in, "message")
	result, err := b.adapter.PostChatMessage(ctx, cred, channel, message)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"action":  "slack_sent",
		"result":  result,
		"channel": channel,
		"message": message,
	}, nil
}

func (b *builtins) sheetsAddRow(ctx context.Context, in Input) (map[string]any, error) {
	cred, err := b.creds.Resolve(ctx, in.UserID, schema.IntegrationSheets)
	if err != nil {
		return nil, err
	}
	cfg := in.Config()
	spreadsheetID := stringParam(cfg, "resourceId", "")
	if spreadsheetID == "" {
		spreadsheetID = stringParam(cfg, "spreadsheetId", "")
	}
	if spreadsheetID == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "sheets-add-row: missing spreadsheetId")
	}

	raw := sliceParam(cfg, "values")
	values := make([]any, len(raw))
	for i, v := range raw {
		values[i] = expressions.SubstituteValue(v, in.Data)
	}
	result, err := b.adapter.AppendRow(ctx, cred, spreadsheetID, stringParam(cfg, "range", ""), values)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"action": "sheets_row_added",
		"result": result,
		"values": values,
	}, nil
}
