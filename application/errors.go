package application

import "errors"

// Error kinds surfaced upward per spec §7. Each is a distinct sentinel so
// callers can discriminate with errors.Is; the actual error returned from a
// component always wraps one of these via fmt.Errorf("...: %w", err).
var (
	// ErrConfig reports a missing/invalid device binding field (key length
	// != 16, unrecognized protocol, malformed deviceId).
	ErrConfig = errors.New("tuya: config error")

	// ErrNotConnected is returned for any operation attempted while no
	// session is established and no connection attempt is in flight.
	ErrNotConnected = errors.New("tuya: not connected")

	// ErrTransport reports a TCP connect/read/write failure. Recoverable
	// via reconnect; not normally surfaced synchronously to callers.
	ErrTransport = errors.New("tuya: transport error")

	// ErrHandshake reports a v3.4 key-exchange timeout or MAC mismatch.
	ErrHandshake = errors.New("tuya: handshake error")

	// ErrTimeout reports retry exhaustion on an in-flight request.
	ErrTimeout = errors.New("tuya: timeout")

	// ErrProtocol reports a malformed frame, unexpected cmd, or bad
	// padding on decrypt.
	ErrProtocol = errors.New("tuya: protocol error")

	// ErrBadValue reports a DP write with an out-of-range or wrong-type
	// value.
	ErrBadValue = errors.New("tuya: bad value")
)
