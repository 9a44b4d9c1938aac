package secrets

// Cipher seals integration tokens before they are persisted and opens them
// when a step needs the credential.
type Cipher interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// PlainCipher stores tokens unchanged. It is used when no key is configured.
type PlainCipher struct{}

func (PlainCipher) Seal(plaintext string) (string, error) { return plaintext, nil }

// Open returns the value as-is, but refuses sealed values it cannot read.
func (PlainCipher) Open(sealed string) (string, error) {
	if IsSealed(sealed) {
		return "", errSealedWithoutKey
	}
	return sealed, nil
}
