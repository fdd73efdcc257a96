// Package signature verifies processor webhook signatures.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrMissingSecret    = errors.New("webhook secret is not configured")
	ErrMissingSignature = errors.New("signature header is missing")
	ErrInvalidSignature = errors.New("signature does not match payload")
)

type Verifier struct {
	secret []byte
	prefix string
}

func NewVerifier(secret, prefix string) *Verifier {
	return &Verifier{secret: []byte(secret), prefix: prefix}
}

// Sign returns the lowercase hex HMAC-SHA256 of body, without prefix.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks header against the exact raw body in constant time.
func (v *Verifier) Verify(body []byte, header string) error {
	if len(v.secret) == 0 {
		return ErrMissingSecret
	}

	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	header = strings.TrimPrefix(header, v.prefix)

	got, err := hex.DecodeString(header)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}

	return nil
}
