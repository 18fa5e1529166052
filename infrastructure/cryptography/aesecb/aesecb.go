// Package aesecb implements AES-128-ECB with PKCS#5 padding, the payload
// cipher mandated by every Tuya local-protocol dialect (spec §4.1).
//
// Go's crypto/cipher deliberately exposes no ECB mode (it's unauthenticated
// and pattern-leaking), so there is no third-party or stdlib ECB mode to
// reach for: encryption is done by calling the block cipher once per
// 16-byte block directly, the same approach real-world smart-card/legacy
// protocol clients use when a spec mandates ECB (see e.g. GlobalPlatform
// SCP03 key derivation, which also loops aes.NewCipher().Encrypt per
// block).
package aesecb

import (
	"crypto/aes"
	"fmt"
)

const BlockSize = aes.BlockSize // 16

// Encrypt encrypts plaintext under key (exactly 16 bytes), PKCS#5-padding
// it first. The returned ciphertext is always a multiple of BlockSize.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aesecb: new cipher: %w", err)
	}

	padded := pkcs5Pad(plaintext, BlockSize)
	out := make([]byte, len(padded))
	for off := 0; off < len(padded); off += BlockSize {
		block.Encrypt(out[off:off+BlockSize], padded[off:off+BlockSize])
	}
	return out, nil
}

// Decrypt decrypts ciphertext (must be a non-zero multiple of BlockSize)
// under key and strips PKCS#5 padding.
func Decrypt(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aesecb: new cipher: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, fmt.Errorf("aesecb: ciphertext length %d is not a positive multiple of %d", len(ciphertext), BlockSize)
	}

	out := make([]byte, len(ciphertext))
	for off := 0; off < len(ciphertext); off += BlockSize {
		block.Decrypt(out[off:off+BlockSize], ciphertext[off:off+BlockSize])
	}
	return pkcs5Unpad(out)
}

// DecryptNoUnpad decrypts without removing PKCS#5 padding, used for
// fixed-length single/multi-block probes (e.g. the v3.4 KEY_RESP payload
// and session-key derivation block) that are never padded.
func DecryptNoUnpad(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aesecb: new cipher: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, fmt.Errorf("aesecb: ciphertext length %d is not a positive multiple of %d", len(ciphertext), BlockSize)
	}
	out := make([]byte, len(ciphertext))
	for off := 0; off < len(ciphertext); off += BlockSize {
		block.Decrypt(out[off:off+BlockSize], ciphertext[off:off+BlockSize])
	}
	return out, nil
}

// EncryptNoPad encrypts data that is already block-aligned (e.g. a single
// 16-byte nonce block) without adding PKCS#5 padding.
func EncryptNoPad(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aesecb: new cipher: %w", err)
	}
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("aesecb: data length %d is not a multiple of %d", len(data), BlockSize)
	}
	out := make([]byte, len(data))
	for off := 0; off < len(data); off += BlockSize {
		block.Encrypt(out[off:off+BlockSize], data[off:off+BlockSize])
	}
	return out, nil
}

func pkcs5Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs5Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("aesecb: cannot unpad empty data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > BlockSize || padLen > len(data) {
		return nil, fmt.Errorf("aesecb: invalid PKCS#5 padding length %d", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("aesecb: inconsistent PKCS#5 padding")
		}
	}
	return data[:len(data)-padLen], nil
}
