package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidKey         = errors.New("encryption key must be 64 hex characters")
	ErrCiphertextTooShort = errors.New("ciphertext shorter than nonce")
)

// SealJSON marshals v and, when hexKey is set, encrypts it with AES-256-GCM
// as base64(nonce||ciphertext). The bool reports whether encryption happened;
// with an empty key the plain JSON comes back so development archives work.
func SealJSON(hexKey string, v any) (string, bool, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", false, fmt.Errorf("marshal: %w", err)
	}
	if hexKey == "" {
		return string(raw), false, nil
	}

	aead, err := gcmFor(hexKey)
	if err != nil {
		return "", false, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", false, fmt.Errorf("generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(aead.Seal(nonce, nonce, raw, nil)), true, nil
}

// OpenJSON reverses SealJSON.
func OpenJSON(hexKey, data string, encrypted bool, v any) error {
	raw := []byte(data)
	if encrypted {
		var err error
		if raw, err = open(hexKey, data); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

func open(hexKey, encoded string) ([]byte, error) {
	aead, err := gcmFor(hexKey)
	if err != nil {
		return nil, err
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	n := aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrCiphertextTooShort
	}
	plain, err := aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}

func gcmFor(hexKey string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
