package codec

import (
	"bytes"
	"testing"

	"github.com/signal15/tuya-minisplit-hubitat/application"
)

func TestProtocolCodecV33RoundTrip(t *testing.T) {
	key := testKey
	c := NewProtocolCodec(application.V33, func() []byte { return key })

	plaintext := []byte(`{"devId":"x","dps":{"1":true}}`)
	frame, err := c.EncodeCommand(1, Control, plaintext, true)
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}

	decoded, consumed, err := c.DecodeStream(frame)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if consumed != len(frame) {
		t.Errorf("consumed = %d, want %d", consumed, len(frame))
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 decoded frame, got %d", len(decoded))
	}
	if !bytes.Equal(decoded[0].Plaintext, plaintext) {
		t.Errorf("got %q, want %q", decoded[0].Plaintext, plaintext)
	}
}

func TestProtocolCodecV34UsesHMACTrailerAndKeyRotation(t *testing.T) {
	localKey := []byte("0000000000000000")
	sessionKey := []byte("1111111111111111")
	active := localKey
	c := NewProtocolCodec(application.V34, func() []byte { return active })

	plaintext := []byte(`{"protocol":5,"data":{"dps":{"4":"hot"}}}`)
	frame, err := c.EncodeCommand(1, ControlNew, plaintext, true)
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	decoded, _, err := c.DecodeStream(frame)
	if err != nil || len(decoded) != 1 {
		t.Fatalf("DecodeStream under localKey: decoded=%v err=%v", decoded, err)
	}

	// Rotate to the session key; a frame built under the old key must no
	// longer decode under the codec's current key.
	active = sessionKey
	_, _, err = c.DecodeStream(frame)
	if err == nil {
		t.Error("expected decode failure after key rotation (stale HMAC)")
	}
}

func TestProtocolCodecV34EmptyStatusQuery(t *testing.T) {
	key := testKey
	c := NewProtocolCodec(application.V34, func() []byte { return key })
	frame, err := c.EncodeCommand(1, DPQueryNew, nil, false)
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	decoded, _, err := c.DecodeStream(frame)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if len(decoded) != 1 || len(decoded[0].Plaintext) != 0 {
		t.Fatalf("expected one frame with empty plaintext, got %+v", decoded)
	}
}

func TestProtocolCodecDropsMalformedFrameWithoutPoisoningBatch(t *testing.T) {
	key := testKey
	c := NewProtocolCodec(application.V33, func() []byte { return key })

	good, _ := c.EncodeCommand(1, HeartBeat, nil, false)
	// A frame with an odd payload length won't decrypt cleanly under
	// AES-ECB; synthesize one directly at the raw-frame layer.
	bad, _ := EncodeFrame(2, HeartBeat, []byte("x"), CRC32Trailer{})
	buf := append(append([]byte{}, good...), bad...)

	decoded, consumed, err := c.DecodeStream(buf)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if consumed != len(buf) {
		t.Errorf("consumed = %d, want %d", consumed, len(buf))
	}
	if len(decoded) != 1 {
		t.Fatalf("expected exactly the good frame to survive, got %d", len(decoded))
	}
}
