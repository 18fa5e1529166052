package session

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/codec"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/cryptography/aesecb"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/network/tcp"
)

// fakeDevice plays the server side of the v3.4 handshake over a net.Pipe,
// exercising PerformV34Handshake end to end without a real socket.
func fakeDevice(t *testing.T, conn net.Conn, localKey []byte) (remoteNonceOut []byte) {
	t.Helper()
	trailer := codec.HMACTrailer{KeyFunc: func() []byte { return localKey }}

	var buf []byte
	readFrame := func() codec.RawFrame {
		chunk := make([]byte, 4096)
		for {
			n, err := conn.Read(chunk)
			if err != nil {
				t.Fatalf("fakeDevice read: %v", err)
			}
			buf = append(buf, chunk[:n]...)
			frames, consumed, err := codec.DecodeStream(buf, trailer)
			if err != nil {
				t.Fatalf("fakeDevice decode: %v", err)
			}
			buf = buf[consumed:]
			if len(frames) > 0 {
				return frames[0]
			}
		}
	}

	keyStart := readFrame()
	localNonce, err := aesecb.DecryptNoUnpad(localKey, keyStart.Payload)
	if err != nil {
		t.Fatalf("decrypt key_start: %v", err)
	}

	remoteNonce, err := GenerateLocalNonce()
	if err != nil {
		t.Fatalf("generate remote nonce: %v", err)
	}
	hmacOfLocal := hmacSHA256(localKey, localNonce)
	respPlain := append(append([]byte{}, remoteNonce...), hmacOfLocal...)
	respPayload, err := aesecb.EncryptNoPad(localKey, respPlain)
	if err != nil {
		t.Fatalf("encrypt key_resp: %v", err)
	}
	respFrame, err := codec.EncodeFrame(1, codec.KeyResp, respPayload, trailer)
	if err != nil {
		t.Fatalf("encode key_resp: %v", err)
	}
	if _, err := conn.Write(respFrame); err != nil {
		t.Fatalf("write key_resp: %v", err)
	}

	finalFrame := readFrame()
	finalPlain, err := aesecb.DecryptNoUnpad(localKey, finalFrame.Payload)
	if err != nil {
		t.Fatalf("decrypt key_final: %v", err)
	}
	wantFinal := hmacSHA256(localKey, remoteNonce)
	if !bytes.Equal(finalPlain, wantFinal) {
		t.Errorf("key_final mac mismatch: got %x, want %x", finalPlain, wantFinal)
	}

	return remoteNonce
}

func TestPerformV34HandshakeSuccess(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	localKey := make([]byte, 16)

	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	done := make(chan []byte, 1)
	go func() {
		done <- fakeDevice(t, server, localKey)
	}()

	transport := tcp.NewAdapter(client)
	if err := PerformV34Handshake(context.Background(), transport, localKey, state); err != nil {
		t.Fatalf("PerformV34Handshake: %v", err)
	}

	remoteNonce := <-done
	wantKey, err := DeriveSessionKey(localKey, state.LocalNonce, remoteNonce)
	if err != nil {
		t.Fatalf("DeriveSessionKey: %v", err)
	}
	if !bytes.Equal(state.SessionKey, wantKey) {
		t.Errorf("session key mismatch: got %x, want %x", state.SessionKey, wantKey)
	}
	if state.Step != Established {
		t.Errorf("Step = %v, want Established", state.Step)
	}
	if !state.HaveSession {
		t.Error("expected HaveSession = true")
	}
}

func TestPerformV34HandshakeTimesOut(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	// Drain whatever the client writes but never respond.
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := server.Read(buf); err != nil {
				return
			}
		}
	}()

	localKey := make([]byte, 16)
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	transport := tcp.NewAdapter(client)
	start := time.Now()
	err = PerformV34Handshake(context.Background(), transport, localKey, state)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("handshake took too long to time out: %v", elapsed)
	}
}

func TestDeriveSessionKeyFixedVector(t *testing.T) {
	localKey := make([]byte, 16)
	localNonce := []byte("0123456789ABCDEF")
	remoteNonce := bytes.Repeat([]byte{0xFF}, 16)

	got, err := DeriveSessionKey(localKey, localNonce, remoteNonce)
	if err != nil {
		t.Fatalf("DeriveSessionKey: %v", err)
	}

	xored := make([]byte, 16)
	for i := range xored {
		xored[i] = localNonce[i] ^ remoteNonce[i]
	}
	explicit, err := aesecb.EncryptNoPad(localKey, xored)
	if err != nil {
		t.Fatalf("EncryptNoPad: %v", err)
	}
	if !bytes.Equal(got, explicit[:16]) {
		t.Errorf("got %x, want %x", got, explicit[:16])
	}
}
