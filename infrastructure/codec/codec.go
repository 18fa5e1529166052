package codec

import (
	"fmt"

	"github.com/signal15/tuya-minisplit-hubitat/application"
)

// Decoded is one fully parsed, decrypted frame: the dialect-specific
// version marker has already been stripped from Plaintext.
type Decoded struct {
	Seq       uint16
	Cmd       FrameType
	Plaintext []byte
}

// KeyFunc returns whatever key is currently active for a connection:
// localKey before a v3.4 handshake completes, the derived session key
// after (spec §3: "session_key, once derived, replaces localKey for all
// subsequent cryptography on that connection").
type KeyFunc func() []byte

// ProtocolCodec ties together frame envelope + trailer + payload framing
// for one dialect, so the dispatcher deals only in (seq, cmd, plaintext)
// tuples regardless of which of the three wire dialects it's driving.
type ProtocolCodec struct {
	protocol application.Protocol
	key      KeyFunc
}

func NewProtocolCodec(protocol application.Protocol, key KeyFunc) *ProtocolCodec {
	return &ProtocolCodec{protocol: protocol, key: key}
}

func (c *ProtocolCodec) trailer() TrailerCodec {
	if c.protocol == application.V34 {
		return HMACTrailer{KeyFunc: c.key}
	}
	return CRC32Trailer{}
}

// EncodeCommand builds a complete outbound frame for cmd. addPrefix
// selects whether the dialect's version marker ("3.3\0..."/"3.4\0...") is
// prepended before encryption — false for status/heartbeat commands,
// true for everything else (spec §4.1). V31 ignores addPrefix's meaning
// for the marker (it has none) but still uses it to select the
// digest-prefixed wire form.
func (c *ProtocolCodec) EncodeCommand(seq uint16, cmd FrameType, plaintext []byte, addPrefix bool) ([]byte, error) {
	key := c.key()
	var payload []byte
	var err error
	switch c.protocol {
	case application.V31:
		payload, err = EncodePayloadV31(key, plaintext, addPrefix)
	case application.V33:
		payload, err = EncodePayloadV33(key, plaintext, addPrefix)
	case application.V34:
		payload, err = EncodePayloadV34(key, plaintext, addPrefix)
	default:
		return nil, fmt.Errorf("codec: unknown protocol %v", c.protocol)
	}
	if err != nil {
		return nil, err
	}
	return EncodeFrame(seq, cmd, payload, c.trailer())
}

// DecodeStream scans buf for complete frames and decrypts each payload,
// returning the decoded plaintexts and the number of bytes consumed.
func (c *ProtocolCodec) DecodeStream(buf []byte) ([]Decoded, int, error) {
	raws, consumed, err := DecodeStream(buf, c.trailer())
	if err != nil {
		return nil, consumed, err
	}

	key := c.key()
	decoded := make([]Decoded, 0, len(raws))
	for _, raw := range raws {
		var plaintext []byte
		var decErr error
		switch c.protocol {
		case application.V31:
			plaintext, decErr = DecodePayloadV31(key, raw.Payload)
		case application.V33:
			plaintext, decErr = DecodePayloadV33(key, raw.Payload)
		case application.V34:
			plaintext, decErr = DecodePayloadV34(key, raw.Payload)
		default:
			decErr = fmt.Errorf("codec: unknown protocol %v", c.protocol)
		}
		if decErr != nil {
			// A single malformed frame shouldn't poison the rest of the
			// batch; spec §7 treats bad-padding/decrypt failures as a
			// per-frame ProtocolError to log and drop.
			continue
		}
		decoded = append(decoded, Decoded{Seq: raw.Seq, Cmd: raw.Cmd, Plaintext: plaintext})
	}
	return decoded, consumed, nil
}
