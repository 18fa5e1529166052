package application

import (
	"context"

	"github.com/signal15/tuya-minisplit-hubitat/domain/thermostat"
)

// Dispatcher is the outbound-queue / sequencing / retry / heartbeat
// contract described in spec §4.4. There is at most one outstanding
// request at a time (§3 invariants); a new request supersedes any pending
// one.
type Dispatcher interface {
	// Query issues a status request and returns the DP snapshot carried by
	// the matching STATUS_RESP.
	Query(ctx context.Context) (map[thermostat.DP]thermostat.Value, error)

	// Set writes one DP and waits for the device's acknowledging
	// STATUS_RESP.
	Set(ctx context.Context, dp thermostat.DP, value thermostat.Value) error

	// Heartbeat sends a HEART_BEAT frame and waits for the reply.
	Heartbeat(ctx context.Context) error

	// Close cancels any in-flight request and stops all timers.
	Close() error
}

// StatusEvent is a DP delta delivered out-of-band, i.e. not in direct
// response to a pending request (spec §4.4 — "payload is still parsed and
// delivered as an out-of-band event").
type StatusEvent struct {
	Changed map[thermostat.DP]thermostat.Value
}
