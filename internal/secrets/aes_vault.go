package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

// sealedPrefix marks values produced by AESCipher. Values without it are
// treated as legacy plaintext.
const sealedPrefix = "enc:v1:"

var errSealedWithoutKey = schema.NewError(schema.ErrCodeValidation,
	"token is encrypted but no secrets key is configured")

// VaultConfig configures key derivation.
// Provide either MasterKey (raw 32 bytes) or Passphrase + Salt.
type VaultConfig struct {
	MasterKey  []byte
	Passphrase string
	Salt       []byte
	Iterations int // PBKDF2 iterations (default 100_000)
}

// AESCipher encrypts tokens with AES-256-GCM. The output is
// "enc:v1:" + base64url(nonce || ciphertext).
type AESCipher struct {
	aead cipher.AEAD
}

// NewAESCipher creates an AES-256-GCM cipher.
func NewAESCipher(cfg VaultConfig) (*AESCipher, error) {
	key, err := deriveKey(cfg)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &AESCipher{aead: aead}, nil
}

// NewCipherFromHex returns an AESCipher for a 64-char hex key, or a
// PlainCipher when hexKey is empty.
func NewCipherFromHex(hexKey string) (Cipher, error) {
	if hexKey == "" {
		return PlainCipher{}, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "secrets key is not hex: %s", err.Error())
	}
	return NewAESCipher(VaultConfig{MasterKey: key})
}

func deriveKey(cfg VaultConfig) ([]byte, error) {
	if len(cfg.MasterKey) > 0 {
		if len(cfg.MasterKey) != 32 {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"master key must be 32 bytes, got %d", len(cfg.MasterKey))
		}
		return cfg.MasterKey, nil
	}
	if cfg.Passphrase == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "either master_key or passphrase is required")
	}
	if len(cfg.Salt) == 0 {
		return nil, schema.NewError(schema.ErrCodeValidation, "salt is required with passphrase")
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 100_000
	}
	return pbkdf2.Key(sha256.New, cfg.Passphrase, cfg.Salt, iterations, 32)
}

// Seal encrypts plaintext. Empty input stays empty.
func (c *AESCipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value. Unprefixed values are returned unchanged.
func (c *AESCipher) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return sealed, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeValidation, "sealed token is not base64: %s", err.Error())
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", schema.NewError(schema.ErrCodeValidation, "ciphertext too short")
	}
	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeValidation, "decrypt failed: %s", err.Error())
	}
	return string(plaintext), nil
}

// IsSealed reports whether s was produced by AESCipher.Seal.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, sealedPrefix)
}

var (
	_ Cipher = (*AESCipher)(nil)
	_ Cipher = PlainCipher{}
)
