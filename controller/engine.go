// Package controller implements the public command surface
// (application.Controller) by wiring together config, transport, session
// handshake, codec, and dispatch into one managed connection with
// reconnect, grounded on the teacher's client.Client lifecycle
// (connect -> run workers under an errgroup -> tear down -> reconnect).
package controller

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/signal15/tuya-minisplit-hubitat/application"
	"github.com/signal15/tuya-minisplit-hubitat/domain/thermostat"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/codec"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/config"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/dispatch"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/session"
)

// minBackoff/maxBackoff bound the reconnect delay (spec §5: "reconnection
// uses a bounded exponential backoff").
const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Engine is the application.Controller implementation.
type Engine struct {
	cfg    config.Config
	dialer application.Dialer
	logger zerolog.Logger

	mu          sync.Mutex
	dpMap       *thermostat.Map
	subscribers map[chan application.Delta]struct{}
	dispatcher  application.Dispatcher
	connected   bool

	runCancel context.CancelFunc
	stopped   chan struct{}
}

func New(cfg config.Config, dialer application.Dialer, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:         cfg,
		dialer:      dialer,
		logger:      logger.With().Str("component", "controller").Str("device", cfg.DeviceID).Logger(),
		dpMap:       thermostat.NewMap(),
		subscribers: make(map[chan application.Delta]struct{}),
	}
}

// Start dials and (for v3.4) hand-shakes once, synchronously, then hands
// off to a supervisor goroutine that reconnects on connection loss while
// cfg.AutoReconnect is set.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.runCancel = cancel
	e.stopped = make(chan struct{})

	done, err := e.connectOnce(runCtx)
	if err != nil {
		cancel()
		close(e.stopped)
		return err
	}
	go e.supervise(runCtx, done)
	return nil
}

func (e *Engine) supervise(ctx context.Context, firstDone <-chan struct{}) {
	defer close(e.stopped)
	done := firstDone
	backoff := minBackoff
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
		}
		if ctx.Err() != nil || !e.cfg.AutoReconnect {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		next, err := e.connectOnce(ctx)
		if err != nil {
			e.logger.Warn().Err(err).Dur("backoff", backoff).Msg("reconnect attempt failed")
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			done = closedCh()
			continue
		}
		backoff = minBackoff
		done = next
	}
}

func closedCh() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// connectOnce dials, hand-shakes if needed, and starts the dispatcher plus
// its supporting workers under one errgroup. The returned channel closes
// once every worker for this connection generation has exited.
func (e *Engine) connectOnce(ctx context.Context) (<-chan struct{}, error) {
	addr := net.JoinHostPort(e.cfg.IP, strconv.Itoa(e.cfg.Port))
	transport, err := e.dialer.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	state, err := session.NewState()
	if err != nil {
		transport.Close()
		return nil, fmt.Errorf("%w: %v", application.ErrHandshake, err)
	}

	if e.cfg.Protocol == application.V34 {
		if err := session.PerformV34Handshake(ctx, transport, e.cfg.LocalKeyBytes, state); err != nil {
			transport.Close()
			return nil, err
		}
	} else {
		state.Step = session.Established
	}

	keyFunc := func() []byte {
		if state.HaveSession {
			return state.SessionKey
		}
		return e.cfg.LocalKeyBytes
	}
	pc := codec.NewProtocolCodec(e.cfg.Protocol, keyFunc)

	dcfg := dispatch.Config{
		DeviceID:        e.cfg.DeviceID,
		HeartbeatActive: e.cfg.UseHeartbeat,
	}
	d := dispatch.New(e.cfg.Protocol, dcfg, transport, pc, state.NextSeq, e.logger)

	connCtx, connCancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(connCtx)
	g.Go(func() error { return d.Run(gctx) })
	g.Go(func() error { return e.pumpEvents(gctx, d) })
	if e.cfg.PollInterval != config.PollDisabled {
		g.Go(func() error { return e.pollLoop(gctx, d, time.Duration(e.cfg.PollInterval)*time.Second) })
	}

	e.mu.Lock()
	e.dispatcher = d
	e.connected = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if err := g.Wait(); err != nil {
			e.logger.Warn().Err(err).Msg("connection worker group exited")
		}
		connCancel()
		transport.Close()
		e.mu.Lock()
		e.connected = false
		e.mu.Unlock()
		close(done)
	}()
	return done, nil
}

func (e *Engine) pumpEvents(ctx context.Context, d *dispatch.Dispatcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-d.Events():
			e.applyAndNotify(ev.Changed)
		}
	}
}

func (e *Engine) pollLoop(ctx context.Context, d *dispatch.Dispatcher, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, err := d.Query(ctx)
			if err != nil {
				e.logger.Debug().Err(err).Msg("poll query failed")
				continue
			}
			e.applyAndNotify(snap)
		}
	}
}

func (e *Engine) applyAndNotify(delta map[thermostat.DP]thermostat.Value) {
	if len(delta) == 0 {
		return
	}
	e.mu.Lock()
	changed := e.dpMap.Apply(delta)
	subs := make([]chan application.Delta, 0, len(e.subscribers))
	for ch := range e.subscribers {
		subs = append(subs, ch)
	}
	values := make(map[thermostat.DP]thermostat.Value, len(changed))
	for _, dp := range changed {
		v, _ := e.dpMap.Value(dp)
		values[dp] = v
	}
	e.mu.Unlock()

	for _, dp := range changed {
		d := application.Delta{DP: dp, Value: values[dp], Present: true}
		for _, ch := range subs {
			select {
			case ch <- d:
			default:
				e.logger.Warn().Msg("subscriber channel full, dropping delta")
			}
		}
	}
}

func (e *Engine) currentDispatcher() (application.Dispatcher, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected || e.dispatcher == nil {
		return nil, application.ErrNotConnected
	}
	return e.dispatcher, nil
}

func (e *Engine) setDP(ctx context.Context, dp thermostat.DP, value thermostat.Value) error {
	d, err := e.currentDispatcher()
	if err != nil {
		return err
	}
	if err := d.Set(ctx, dp, value); err != nil {
		return err
	}
	e.applyAndNotify(map[thermostat.DP]thermostat.Value{dp: value})
	return nil
}

func (e *Engine) On(ctx context.Context) error {
	return e.setDP(ctx, thermostat.DPPower, thermostat.BoolValue(true))
}

func (e *Engine) Off(ctx context.Context) error {
	return e.setDP(ctx, thermostat.DPPower, thermostat.BoolValue(false))
}

// SetMode implements spec §6's setMode(m): ensure the unit is powered on,
// then write the mode DP — a mode write alone has no effect while DP 1 is
// false.
func (e *Engine) SetMode(ctx context.Context, mode thermostat.Mode) error {
	wire, ok := thermostat.ModeToWire(mode)
	if !ok {
		return fmt.Errorf("%w: unknown mode %q", application.ErrBadValue, mode)
	}
	if err := e.On(ctx); err != nil {
		return err
	}
	return e.setDP(ctx, thermostat.DPMode, thermostat.EnumValue(wire))
}

func (e *Engine) SetTargetTemp(ctx context.Context, fahrenheit float64) error {
	wire := thermostat.EncodeTargetTempF(fahrenheit)
	return e.setDP(ctx, thermostat.DPTargetTemp, thermostat.IntValue(wire))
}

func (e *Engine) SetFan(ctx context.Context, fan thermostat.FanSpeed) error {
	wire, ok := thermostat.FanToWire(fan)
	if !ok {
		return fmt.Errorf("%w: unknown fan speed %q", application.ErrBadValue, fan)
	}
	return e.setDP(ctx, thermostat.DPFan, thermostat.EnumValue(wire))
}

func (e *Engine) SetVerticalSwing(ctx context.Context, pos thermostat.SwingPosition) error {
	if !thermostat.VerticalSwingPositions[pos] {
		return fmt.Errorf("%w: invalid vertical swing position %q", application.ErrBadValue, pos)
	}
	return e.setDP(ctx, thermostat.DPVerticalSwing, thermostat.EnumValue(string(pos)))
}

func (e *Engine) SetHorizontalSwing(ctx context.Context, pos thermostat.SwingPosition) error {
	if !thermostat.HorizontalSwingPositions[pos] {
		return fmt.Errorf("%w: invalid horizontal swing position %q", application.ErrBadValue, pos)
	}
	return e.setDP(ctx, thermostat.DPHorizontalSwing, thermostat.EnumValue(string(pos)))
}

func (e *Engine) Refresh(ctx context.Context) (thermostat.Snapshot, error) {
	d, err := e.currentDispatcher()
	if err != nil {
		return thermostat.Snapshot{}, err
	}
	snap, err := d.Query(ctx)
	if err != nil {
		return thermostat.Snapshot{}, err
	}
	e.applyAndNotify(snap)
	return e.Status(), nil
}

func (e *Engine) Status() thermostat.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dpMap.Snapshot()
}

func (e *Engine) Disconnect() error {
	if e.runCancel != nil {
		e.runCancel()
	}
	if e.stopped != nil {
		<-e.stopped
	}
	return nil
}

func (e *Engine) Subscribe(ctx context.Context) <-chan application.Delta {
	ch := make(chan application.Delta, 16)
	e.mu.Lock()
	e.subscribers[ch] = struct{}{}
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		delete(e.subscribers, ch)
		e.mu.Unlock()
		close(ch)
	}()
	return ch
}

var _ application.Controller = (*Engine)(nil)
