// Package codec implements Tuya wire-frame parsing and synthesis: the
// prefix/length/trailer/suffix envelope shared by all three protocol
// dialects, plus the per-dialect payload framing (§4.1 of the spec this
// module implements).
package codec

import (
	"encoding/binary"
	"fmt"
)

var (
	framePrefix = [4]byte{0x00, 0x00, 0x55, 0xAA}
	frameSuffix = [4]byte{0x00, 0x00, 0xAA, 0x55}
)

// FrameType is the Tuya frame "cmd" field.
type FrameType uint16

const (
	KeyStart    FrameType = 3
	KeyResp     FrameType = 4
	KeyFinal    FrameType = 5
	Control     FrameType = 7
	StatusResp  FrameType = 8
	HeartBeat   FrameType = 9
	DPQuery     FrameType = 10
	ControlNew  FrameType = 13
	DPQueryNew  FrameType = 16
)

// knownFrameTypes lets the decoder drop unrecognized cmd values instead of
// misparsing the stream. Dropped frames are consumed but not logged; the
// codec has no logger.
var knownFrameTypes = map[FrameType]bool{
	KeyStart: true, KeyResp: true, KeyFinal: true, Control: true,
	StatusResp: true, HeartBeat: true, DPQuery: true, ControlNew: true,
	DPQueryNew: true,
}

func IsKnownFrameType(t FrameType) bool { return knownFrameTypes[t] }

// RawFrame is one fully reassembled on-the-wire frame: the trailer has
// already been verified and stripped by the time a RawFrame is produced by
// DecodeStream.
type RawFrame struct {
	Seq     uint16
	Cmd     FrameType
	Payload []byte
}

// TrailerCodec computes and verifies the dialect-specific frame trailer
// (CRC32 for v3.1/v3.3, HMAC-SHA256 for v3.4) over the frame bytes that
// precede it.
type TrailerCodec interface {
	Size() int
	Compute(frameSoFar []byte) ([]byte, error)
	Verify(frameSoFar, trailer []byte) error
}

// EncodeFrame builds one complete frame: prefix, reserved, seq, reserved,
// cmd, reserved, length, payload, trailer, suffix — all integers
// big-endian, per spec §4.1.
func EncodeFrame(seq uint16, cmd FrameType, payload []byte, trailer TrailerCodec) ([]byte, error) {
	trailerLen := trailer.Size()
	length := len(payload) + trailerLen + 4 // + suffix

	buf := make([]byte, 0, 16+len(payload)+trailerLen)
	buf = append(buf, framePrefix[:]...)
	buf = append(buf, 0x00, 0x00) // reserved
	buf = binary.BigEndian.AppendUint16(buf, seq)
	buf = append(buf, 0x00, 0x00) // reserved
	buf = binary.BigEndian.AppendUint16(buf, uint16(cmd))
	buf = append(buf, 0x00, 0x00) // reserved
	buf = binary.BigEndian.AppendUint16(buf, uint16(length))
	buf = append(buf, payload...)

	trailerBytes, err := trailer.Compute(buf)
	if err != nil {
		return nil, fmt.Errorf("codec: compute trailer: %w", err)
	}
	if len(trailerBytes) != trailerLen {
		return nil, fmt.Errorf("codec: trailer codec returned %d bytes, want %d", len(trailerBytes), trailerLen)
	}
	buf = append(buf, trailerBytes...)
	buf = append(buf, frameSuffix[:]...)
	return buf, nil
}

// headerLen is prefix(4) + reserved(2) + seq(2) + reserved(2) + cmd(2) +
// reserved(2) + length(2) = 16 bytes before the payload.
const headerLen = 16

// minFrameLen is the smallest possible frame: header + 0 payload + 0
// trailer + 4-byte suffix.
const minFrameLen = headerLen + 4

// DecodeStream scans buf for complete, trailer-verified frames, in order.
// It returns the decoded frames and the number of leading bytes of buf
// that were consumed; any partial tail remains for the caller to re-buffer
// on the next read. A frame with an unknown cmd is dropped (not returned)
// but still consumed. A trailer verification failure aborts decoding of
// the *remaining* buffer (so the caller can tear down the connection) but
// still returns whatever frames decoded cleanly before it.
func DecodeStream(buf []byte, trailer TrailerCodec) (frames []RawFrame, consumed int, err error) {
	trailerLen := trailer.Size()

	for {
		remaining := buf[consumed:]
		if len(remaining) < minFrameLen {
			return frames, consumed, nil
		}

		prefixIdx := indexPrefix(remaining)
		if prefixIdx < 0 {
			// No prefix anywhere in the buffered tail: keep only enough
			// trailing bytes to catch a prefix split across reads.
			keep := len(remaining)
			if keep > 3 {
				keep = 3
			}
			consumed = len(buf) - keep
			return frames, consumed, nil
		}
		if prefixIdx > 0 {
			// Garbage before the prefix; drop it and keep scanning.
			consumed += prefixIdx
			continue
		}

		if len(remaining) < headerLen {
			return frames, consumed, nil
		}

		length := int(binary.BigEndian.Uint16(remaining[14:16]))
		total := headerLen + length
		if len(remaining) < total {
			return frames, consumed, nil // partial frame, wait for more
		}

		seq := binary.BigEndian.Uint16(remaining[6:8])
		cmd := FrameType(binary.BigEndian.Uint16(remaining[10:12]))

		payloadLen := length - trailerLen - 4
		if payloadLen < 0 {
			return frames, consumed, fmt.Errorf("%w: frame length %d too small for trailer", errProtocol, length)
		}
		payloadStart := headerLen
		payloadEnd := payloadStart + payloadLen
		trailerStart := payloadEnd
		trailerEnd := trailerStart + trailerLen
		suffixStart := trailerEnd

		if !bytesEqual(remaining[suffixStart:suffixStart+4], frameSuffix[:]) {
			return frames, consumed, fmt.Errorf("%w: bad frame suffix", errProtocol)
		}

		frameSoFar := remaining[:trailerStart]
		trailerBytes := remaining[trailerStart:trailerEnd]
		if verr := trailer.Verify(frameSoFar, trailerBytes); verr != nil {
			return frames, consumed, fmt.Errorf("%w: %v", errProtocol, verr)
		}

		consumed += total
		if IsKnownFrameType(cmd) {
			payload := make([]byte, payloadLen)
			copy(payload, remaining[payloadStart:payloadEnd])
			frames = append(frames, RawFrame{Seq: seq, Cmd: cmd, Payload: payload})
		}
	}
}

func indexPrefix(buf []byte) int {
	for i := 0; i+4 <= len(buf); i++ {
		if bytesEqual(buf[i:i+4], framePrefix[:]) {
			return i
		}
	}
	return -1
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
