package session

import (
	"context"
	"fmt"

	"github.com/signal15/tuya-minisplit-hubitat/application"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/codec"
)

// readFrames reads from transport into buf (growing a local accumulator)
// until DecodeStream yields at least one frame or ctx is done. It returns
// the decoded frames and leaves nothing buffered between calls — the
// handshake only ever expects one frame at a time, unlike the dispatcher's
// steady-state stream reassembly.
func readFrames(ctx context.Context, transport application.Transport, trailer codec.TrailerCodec) ([]codec.RawFrame, error) {
	var acc []byte
	chunk := make([]byte, 4096)
	for {
		n, err := transport.Read(ctx, chunk)
		if err != nil {
			return nil, err
		}
		acc = append(acc, chunk[:n]...)

		frames, consumed, decErr := codec.DecodeStream(acc, trailer)
		if decErr != nil {
			return nil, fmt.Errorf("%w: %v", application.ErrProtocol, decErr)
		}
		acc = acc[consumed:]
		if len(frames) > 0 {
			return frames, nil
		}
	}
}
