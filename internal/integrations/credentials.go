package integrations

import (
	"context"
	"log/slog"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/secrets"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// CredentialResolver looks up a user's active integration and decrypts its tokens.
type CredentialResolver struct {
	store  store.IntegrationStore
	cipher secrets.Cipher
	logger *slog.Logger
}

// NewCredentialResolver creates a resolver. A nil cipher stores tokens in plain text.
func NewCredentialResolver(s store.IntegrationStore, cipher secrets.Cipher, logger *slog.Logger) *CredentialResolver {
	if cipher == nil {
		cipher = secrets.PlainCipher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialResolver{store: s, cipher: cipher, logger: logger}
}

// displayName is the product name used in "integration not found" errors.
func displayName(typ schema.IntegrationType) string {
	switch typ {
	case schema.IntegrationEmail:
		return "Gmail"
	case schema.IntegrationChat:
		return "Slack"
	case schema.IntegrationSheets:
		return "Google Sheets"
	case schema.IntegrationAI:
		return "AI"
	default:
		return string(typ)
	}
}

// Resolve returns the decrypted credential of the user's newest active
// integration of the given type. A missing integration is INTEGRATION_MISSING.
func (r *CredentialResolver) Resolve(ctx context.Context, userID string, typ schema.IntegrationType) (Credential, error) {
	in, err := r.store.FindActiveIntegration(ctx, userID, string(typ))
	if schema.IsNotFound(err) {
		return Credential{}, schema.NewErrorf(schema.ErrCodeIntegrationMissing, "%s integration not found", displayName(typ))
	}
	if err != nil {
		return Credential{}, err
	}

	access, err := r.cipher.Open(in.AccessToken)
	if err != nil {
		return Credential{}, schema.NewErrorf(schema.ErrCodeIntegration, "decrypt %s token", displayName(typ)).WithCause(err)
	}
	refresh, err := r.cipher.Open(in.RefreshToken)
	if err != nil {
		return Credential{}, schema.NewErrorf(schema.ErrCodeIntegration, "decrypt %s refresh token", displayName(typ)).WithCause(err)
	}
	return Credential{
		IntegrationID: in.ID,
		Provider:      in.Provider,
		AccessToken:   access,
		RefreshToken:  refresh,
		Config:        in.Config,
	}, nil
}

// Seal encrypts the integration's tokens in place before it is stored.
func (r *CredentialResolver) Seal(in *store.Integration) error {
	if _, plain := r.cipher.(secrets.PlainCipher); plain && in.AccessToken != "" {
		r.logger.Warn("storing integration token without encryption; set secrets.key",
			slog.String("integration_id", in.ID))
	}
	var err error
	if in.AccessToken, err = r.cipher.Seal(in.AccessToken); err != nil {
		return schema.NewError(schema.ErrCodeValidation, "seal access token").WithCause(err)
	}
	if in.RefreshToken, err = r.cipher.Seal(in.RefreshToken); err != nil {
		return schema.NewError(schema.ErrCodeValidation, "seal refresh token").WithCause(err)
	}
	return nil
}
