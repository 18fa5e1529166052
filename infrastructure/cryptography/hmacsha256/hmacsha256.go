// Package hmacsha256 implements application.HMAC over crypto/hmac and
// crypto/sha256, used to sign and verify v3.4 frame trailers.
package hmacsha256

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"github.com/signal15/tuya-minisplit-hubitat/application"
)

// CryptoHMAC is an HMAC-SHA256 generator/verifier keyed on construction;
// each call builds its own hash state. A new instance must be created whenever the key
// changes (e.g. localKey -> session key after the v3.4 handshake).
type CryptoHMAC struct {
	key []byte
}

func New(key []byte) application.HMAC {
	return &CryptoHMAC{key: key}
}

func (h *CryptoHMAC) Generate(data []byte) ([]byte, error) {
	mac := hmac.New(sha256.New, h.key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

func (h *CryptoHMAC) Verify(data, signature []byte) error {
	mac := hmac.New(sha256.New, h.key)
	mac.Write(data)
	expected := mac.Sum(nil)
	if !hmac.Equal(expected, signature) {
		return fmt.Errorf("%w: hmac mismatch", application.ErrProtocol)
	}
	return nil
}
