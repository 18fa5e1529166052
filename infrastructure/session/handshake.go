package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/signal15/tuya-minisplit-hubitat/application"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/codec"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/cryptography/aesecb"
)

// HandshakeTimeout bounds the full KEY_START -> KEY_RESP -> KEY_FINAL
// exchange (spec §4.2: "KEY_START→KEY_RESP must complete within 750 ms or
// the session resets to Disconnected").
const HandshakeTimeout = 750 * time.Millisecond

const keyRespPayloadLen = 48 // remote_nonce(16) || hmac_of_local_nonce(32)

// PerformV34Handshake runs the three-step v3.4 key exchange over transport
// and, on success, leaves state.Step == Established with state.SessionKey
// populated. On failure state may be left part-way (MsgSeq advanced, Step
// and RemoteNonce set by the steps that completed); callers should call
// state.Reset() themselves so a failed handshake yields a clean
// Disconnected state (spec §4.2).
func PerformV34Handshake(ctx context.Context, transport application.Transport, localKey []byte, state *State) error {
	ctx, cancel := context.WithTimeout(ctx, HandshakeTimeout)
	defer cancel()

	localKeyTrailer := codec.HMACTrailer{KeyFunc: func() []byte { return localKey }}

	// Step 1: KEY_START.
	startPayload, err := aesecb.EncryptNoPad(localKey, state.LocalNonce)
	if err != nil {
		return fmt.Errorf("%w: encrypt key_start payload: %v", application.ErrHandshake, err)
	}
	startFrame, err := codec.EncodeFrame(state.NextSeq(), codec.KeyStart, startPayload, localKeyTrailer)
	if err != nil {
		return fmt.Errorf("%w: encode key_start: %v", application.ErrHandshake, err)
	}
	if _, err := transport.Write(ctx, startFrame); err != nil {
		return fmt.Errorf("%w: send key_start: %v", application.ErrHandshake, err)
	}
	state.Step = KeyStartSent

	// Step 2: KEY_RESP.
	frames, err := readFrames(ctx, transport, localKeyTrailer)
	if err != nil {
		return fmt.Errorf("%w: read key_resp: %v", application.ErrHandshake, err)
	}
	resp, err := firstFrameOfType(frames, codec.KeyResp)
	if err != nil {
		return fmt.Errorf("%w: %v", application.ErrHandshake, err)
	}

	respPlain, err := aesecb.DecryptNoUnpad(localKey, resp.Payload)
	if err != nil {
		return fmt.Errorf("%w: decrypt key_resp payload: %v", application.ErrHandshake, err)
	}
	if len(respPlain) != keyRespPayloadLen {
		return fmt.Errorf("%w: key_resp payload length %d, want %d", application.ErrHandshake, len(respPlain), keyRespPayloadLen)
	}
	remoteNonce := respPlain[:16]
	remoteHMAC := respPlain[16:]

	expectedHMAC := hmacSHA256(localKey, state.LocalNonce)
	if !hmac.Equal(expectedHMAC, remoteHMAC) {
		return fmt.Errorf("%w: key_resp hmac mismatch", application.ErrHandshake)
	}
	state.RemoteNonce = remoteNonce
	state.Step = KeyRespReceived

	// Step 3: KEY_FINAL.
	finalMAC := hmacSHA256(localKey, state.RemoteNonce)
	finalPayload, err := aesecb.EncryptNoPad(localKey, finalMAC)
	if err != nil {
		return fmt.Errorf("%w: encrypt key_final payload: %v", application.ErrHandshake, err)
	}
	finalFrame, err := codec.EncodeFrame(state.NextSeq(), codec.KeyFinal, finalPayload, localKeyTrailer)
	if err != nil {
		return fmt.Errorf("%w: encode key_final: %v", application.ErrHandshake, err)
	}
	if _, err := transport.Write(ctx, finalFrame); err != nil {
		return fmt.Errorf("%w: send key_final: %v", application.ErrHandshake, err)
	}

	sessionKey, err := DeriveSessionKey(localKey, state.LocalNonce, state.RemoteNonce)
	if err != nil {
		return fmt.Errorf("%w: derive session key: %v", application.ErrHandshake, err)
	}
	state.SessionKey = sessionKey
	state.Step = Established
	state.HaveSession = true
	return nil
}

// DeriveSessionKey implements spec §4.2: session_key = first 16 bytes of
// AES-ECB(localKey, local_nonce XOR remote_nonce).
func DeriveSessionKey(localKey, localNonce, remoteNonce []byte) ([]byte, error) {
	if len(localNonce) != 16 || len(remoteNonce) != 16 {
		return nil, fmt.Errorf("session: nonces must be 16 bytes (got %d, %d)", len(localNonce), len(remoteNonce))
	}
	xored := make([]byte, 16)
	for i := range xored {
		xored[i] = localNonce[i] ^ remoteNonce[i]
	}
	block, err := aesecb.EncryptNoPad(localKey, xored)
	if err != nil {
		return nil, err
	}
	return block[:16], nil
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func firstFrameOfType(frames []codec.RawFrame, cmd codec.FrameType) (codec.RawFrame, error) {
	for _, f := range frames {
		if f.Cmd == cmd {
			return f, nil
		}
	}
	return codec.RawFrame{}, fmt.Errorf("expected frame type %d, got %d frame(s) without it", cmd, len(frames))
}
