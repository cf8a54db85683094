// Package crypto implements the at-rest encryption envelope around sealed
// values (spec.md §4.1), ported from original_source/csml_engine/src/encrypt.rs:
// AES-256-GCM keyed by PBKDF2-HMAC-SHA-512 over a process-wide secret, with a
// per-value random salt and nonce. When no secret is configured, Seal/Open
// pass JSON text through unchanged — encryption is recommended, not required.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength   = 64
	nonceLength  = 16
	keyLength    = 32
	pbkdf2Rounds = 10000
)

// Envelope seals and opens JSON values behind AES-256-GCM. The zero value is
// a valid passthrough envelope (no secret configured); use New to configure
// one with a secret.
type Envelope struct {
	secret string
}

// New builds an Envelope around the given secret. An empty secret yields a
// passthrough envelope, identical in behavior to the zero value.
func New(secret string) *Envelope {
	return &Envelope{secret: secret}
}

// Enabled reports whether this envelope actually encrypts (a secret is
// configured) or merely passes values through.
func (e *Envelope) Enabled() bool {
	return e != nil && e.secret != ""
}

// Seal encodes value as JSON text and, if a secret is configured, encrypts
// it into a base64 envelope of salt‖nonce‖tag‖ciphertext. Without a secret it
// returns the plain JSON text.
func (e *Envelope) Seal(value []byte) (string, error) {
	if !e.Enabled() {
		return string(value), nil
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", wrap("seal", err)
	}

	key := deriveKey(e.secret, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", wrap("seal", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceLength)
	if err != nil {
		return "", wrap("seal", err)
	}

	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", wrap("seal", err)
	}

	// Seal appends ciphertext‖tag; the wire layout wants tag before
	// ciphertext, matching the reference engine's envelope.
	sealed := gcm.Seal(nil, nonce, value, nil)
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	out := make([]byte, 0, saltLength+nonceLength+gcm.Overhead()+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ciphertext...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Without a secret configured it returns text unchanged,
// as the plain JSON text Seal emits in that mode. With a secret, text may be either the current base64 envelope format
// or a legacy hex-encoded one; Open tries hex first, then base64, matching
// the reference engine's dual-decode for backward compatibility.
func (e *Envelope) Open(text string) ([]byte, error) {
	if !e.Enabled() {
		return []byte(text), nil
	}

	raw, err := decode(text)
	if err != nil {
		return nil, wrap("open", err)
	}

	minLen := saltLength + nonceLength + aes.BlockSize
	if len(raw) < minLen {
		return nil, wrap("open", ErrEnvelopeTooShort)
	}

	salt := raw[0:saltLength]
	nonce := raw[saltLength : saltLength+nonceLength]
	tag := raw[saltLength+nonceLength : saltLength+nonceLength+aes.BlockSize]
	ciphertext := raw[saltLength+nonceLength+aes.BlockSize:]

	key := deriveKey(e.secret, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, wrap("open", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceLength)
	if err != nil {
		return nil, wrap("open", err)
	}

	plaintext, err := gcm.Open(nil, nonce, append(append([]byte{}, ciphertext...), tag...), nil)
	if err != nil {
		return nil, wrap("open", err)
	}

	return plaintext, nil
}

// decode tries hex first, then standard base64, mirroring encrypt.rs's
// decode().
func decode(text string) ([]byte, error) {
	if raw, err := hex.DecodeString(text); err == nil {
		return raw, nil
	}
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return raw, nil
}

func deriveKey(secret string, salt []byte) []byte {
	return pbkdf2.Key([]byte(secret), salt, pbkdf2Rounds, keyLength, sha512.New)
}
