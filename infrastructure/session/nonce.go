package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// nonceAlphabet excludes the characters the spec calls out as ambiguous in
// the device's UI/logs (O, o, l, 1) — spec §3: "ASCII alphanumeric
// excluding O,o,l,1".
const nonceAlphabet = "ABCDEFGHIJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz023456789"

const NonceSize = 16

// GenerateLocalNonce produces a fresh 16-byte ASCII nonce for one session,
// per spec §3 ("local_nonce ... generated once per session").
func GenerateLocalNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	alphabetLen := big.NewInt(int64(len(nonceAlphabet)))
	for i := range nonce {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return nil, fmt.Errorf("session: generate nonce: %w", err)
		}
		nonce[i] = nonceAlphabet[idx.Int64()]
	}
	return nonce, nil
}
