package codec

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/signal15/tuya-minisplit-hubitat/application"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/cryptography/aesecb"
)

// v33Prefix / v34Prefix are the 15-byte protocol markers prepended to the
// plaintext before AES-ECB encryption for any v3.3/v3.4 command that isn't
// a bare "status" query or heartbeat (spec §4.1).
var (
	v33Prefix = append([]byte("3.3"), make([]byte, 12)...)
	v34Prefix = append([]byte("3.4"), make([]byte, 12)...)
)

// EncodePayloadV31 implements the v3.1 payload framing: AES-ECB-encrypt
// plaintext, base64 it, and — for anything but a bare status query —
// prefix it with the literal "3.1" and a 16-hex-char MD5 digest computed
// over "data=<b64>||lpv=3.1||<localKey>".
func EncodePayloadV31(key, plaintext []byte, addPrefix bool) ([]byte, error) {
	ciphertext, err := aesecb.Encrypt(key, plaintext)
	if err != nil {
		return nil, fmt.Errorf("codec: v3.1 encrypt: %w", err)
	}
	b64 := base64.StdEncoding.EncodeToString(ciphertext)
	if !addPrefix {
		return []byte(b64), nil
	}

	digestInput := fmt.Sprintf("data=%s||lpv=3.1||%s", b64, string(key))
	sum := md5.Sum([]byte(digestInput))
	fullHex := hex.EncodeToString(sum[:])
	digest := fullHex[8:24]

	return []byte("3.1" + digest + b64), nil
}

// DecodePayloadV31 reverses EncodePayloadV31. It detects the "3.1" marker
// to decide whether a 19-byte prefix (3 bytes literal + 16 hex digest) must
// be stripped before base64-decoding.
func DecodePayloadV31(key, raw []byte) ([]byte, error) {
	b64 := raw
	if bytes.HasPrefix(raw, []byte("3.1")) {
		if len(raw) < 19 {
			return nil, fmt.Errorf("%w: v3.1 payload too short for prefix", application.ErrProtocol)
		}
		b64 = raw[19:]
	}
	ciphertext, err := base64.StdEncoding.DecodeString(string(b64))
	if err != nil {
		return nil, fmt.Errorf("%w: v3.1 base64 decode: %v", application.ErrProtocol, err)
	}
	plaintext, err := aesecb.Decrypt(key, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: v3.1 decrypt: %v", application.ErrProtocol, err)
	}
	return plaintext, nil
}

// EncodePayloadV33 implements the v3.3 payload framing: the 15-byte
// "3.3\0..." marker is prepended to the plaintext (unless this is a bare
// status/heartbeat command) before AES-ECB encryption; the ciphertext is
// used raw, with no base64 layer.
func EncodePayloadV33(key, plaintext []byte, addPrefix bool) ([]byte, error) {
	toEncrypt := plaintext
	if addPrefix {
		toEncrypt = append(append([]byte{}, v33Prefix...), plaintext...)
	}
	ciphertext, err := aesecb.Encrypt(key, toEncrypt)
	if err != nil {
		return nil, fmt.Errorf("codec: v3.3 encrypt: %w", err)
	}
	return ciphertext, nil
}

// DecodePayloadV33 reverses EncodePayloadV33, sniffing for the "3.3\x00"
// marker in the decrypted plaintext to decide whether to strip it.
func DecodePayloadV33(key, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	plaintext, err := aesecb.Decrypt(key, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: v3.3 decrypt: %v", application.ErrProtocol, err)
	}
	return stripVersionMarker(plaintext, v33Prefix), nil
}

// EncodePayloadV34 mirrors EncodePayloadV33 but keys HMAC/AES off whatever
// key is currently active (localKey pre-handshake, session key after) and
// returns an empty slice for an empty plaintext (the v3.4 DP_QUERY_NEW
// status command carries no payload at all, per spec §4.4).
func EncodePayloadV34(key, plaintext []byte, addPrefix bool) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, nil
	}
	toEncrypt := plaintext
	if addPrefix {
		toEncrypt = append(append([]byte{}, v34Prefix...), plaintext...)
	}
	ciphertext, err := aesecb.Encrypt(key, toEncrypt)
	if err != nil {
		return nil, fmt.Errorf("codec: v3.4 encrypt: %w", err)
	}
	return ciphertext, nil
}

func DecodePayloadV34(key, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	plaintext, err := aesecb.Decrypt(key, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: v3.4 decrypt: %v", application.ErrProtocol, err)
	}
	return stripVersionMarker(plaintext, v34Prefix), nil
}

func stripVersionMarker(plaintext, marker []byte) []byte {
	if bytes.HasPrefix(plaintext, marker) {
		return plaintext[len(marker):]
	}
	return plaintext
}
