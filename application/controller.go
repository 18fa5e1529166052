package application

import (
	"context"

	"github.com/signal15/tuya-minisplit-hubitat/domain/thermostat"
)

// Controller is the public command surface described in spec §6 ("Upward
// API"), consumed by the out-of-scope home-automation host runtime and the
// out-of-scope HTTP bridge alike.
type Controller interface {
	On(ctx context.Context) error
	Off(ctx context.Context) error
	SetMode(ctx context.Context, mode thermostat.Mode) error
	SetTargetTemp(ctx context.Context, fahrenheit float64) error
	SetFan(ctx context.Context, fan thermostat.FanSpeed) error
	SetVerticalSwing(ctx context.Context, pos thermostat.SwingPosition) error
	SetHorizontalSwing(ctx context.Context, pos thermostat.SwingPosition) error

	// Refresh issues a DP_QUERY/DP_QUERY_NEW, waits for the reply and
	// returns the resulting snapshot. Status issues no query: it returns
	// the most recently cached snapshot without touching the wire.
	Refresh(ctx context.Context) (thermostat.Snapshot, error)
	Status() thermostat.Snapshot

	Disconnect() error

	// Subscribe returns a channel of Delta events that closes when ctx is
	// canceled.
	Subscribe(ctx context.Context) <-chan Delta
}

// Delta is one DP-level change or presence transition delivered to
// subscribers.
type Delta struct {
	DP      thermostat.DP
	Value   thermostat.Value
	Present bool // false only for a "device went offline" presence event
}
