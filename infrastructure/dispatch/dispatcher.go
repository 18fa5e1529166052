// Package dispatch implements the outbound command queue, sequence-number
// matching, retry policy, supersession, and heartbeat scheduling described
// in spec §4.4. It owns the connection once the transport is up and (for
// v3.4) the handshake has completed. It draws sequence numbers from the
// supplied nextSeq func; it does not change the codec's key.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/signal15/tuya-minisplit-hubitat/application"
	"github.com/signal15/tuya-minisplit-hubitat/domain/thermostat"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/codec"
)

// Config tunes the retry and heartbeat policy. Zero values are replaced by
// spec-documented defaults in New.
type Config struct {
	DeviceID string

	// ResponseTimeout is the per-attempt response timer (spec §4.4:
	// "arm a 1-second response timer").
	ResponseTimeout time.Duration
	// MaxRetries is the total number of frames sent for one logical
	// command, counting the initial send (spec §4.4: "decrement
	// retries_left, start value 5" — five frames on the wire, hard
	// failure at five response timeouts' worth of wall clock).
	MaxRetries int

	// HeartbeatActive selects active heartbeating (client sends
	// HEART_BEAT on HeartbeatInterval and expects a reply within
	// HeartbeatReplyTimeout) versus passive (no heartbeat is sent; the
	// connection is torn down if nothing at all is received within
	// HeartbeatReplyTimeout), per spec §4.4.
	HeartbeatActive       bool
	HeartbeatInterval     time.Duration
	HeartbeatReplyTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 20 * time.Second
	}
	if c.HeartbeatReplyTimeout == 0 {
		c.HeartbeatReplyTimeout = 30 * time.Second
	}
	return c
}

// Dispatcher is the application.Dispatcher implementation. All mutable
// state (pending request, retry timer) is owned exclusively
// by the run loop goroutine; every other method only ever talks to that
// goroutine over channels, so there is no lock to take and no shared
// memory to race on (spec §5's single-writer invariant, translated to
// Go's "share memory by communicating").
type Dispatcher struct {
	cfg       Config
	protocol  application.Protocol
	logger    zerolog.Logger
	transport application.Transport
	codec     *codec.ProtocolCodec
	nextSeq   func() uint16

	submitCh chan *request
	frameCh  chan codec.Decoded
	eventsCh chan application.StatusEvent

	closeOnce chan struct{}
	stopped   chan struct{}
	stopErr   error
}

// New constructs a Dispatcher. nextSeq is normally session.State.NextSeq;
// it is a plain func so tests can supply a deterministic sequence.
func New(protocol application.Protocol, cfg Config, transport application.Transport, pc *codec.ProtocolCodec, nextSeq func() uint16, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg.withDefaults(),
		protocol:  protocol,
		logger:    logger.With().Str("component", "dispatch").Logger(),
		transport: transport,
		codec:     pc,
		nextSeq:   nextSeq,
		submitCh:  make(chan *request),
		frameCh:   make(chan codec.Decoded, 8),
		eventsCh:  make(chan application.StatusEvent, 8),
		closeOnce: make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

type request struct {
	id       uuid.UUID // correlation id for log fields, independent of the wire seq
	kind     CommandKind
	dp       thermostat.DP
	value    thermostat.Value
	resultCh chan reqResult
}

type reqResult struct {
	snapshot map[thermostat.DP]thermostat.Value
	err      error
}

type inFlight struct {
	req         *request
	cmd         codec.FrameType
	plaintext   []byte
	addPrefix   bool
	seq         uint16
	retriesLeft int
	timer       *time.Timer
}

// Events returns the out-of-band status-push channel (spec §4.4:
// "payload is still parsed and delivered as an out-of-band event").
func (d *Dispatcher) Events() <-chan application.StatusEvent { return d.eventsCh }

// Run starts the reassembly reader and the event loop. It blocks until ctx
// is canceled, the transport fails, or Close is called, then returns the
// terminal error (nil on a clean ctx cancellation or Close).
func (d *Dispatcher) Run(ctx context.Context) error {
	readErrCh := make(chan error, 1)
	go d.readLoop(ctx, readErrCh)

	err := d.loop(ctx, readErrCh)
	d.stopErr = err
	close(d.stopped)
	return err
}

func (d *Dispatcher) readLoop(ctx context.Context, errCh chan<- error) {
	var acc []byte
	chunk := make([]byte, 4096)
	for {
		n, err := d.transport.Read(ctx, chunk)
		if err != nil {
			errCh <- err
			return
		}
		acc = append(acc, chunk[:n]...)

		decoded, consumed, err := d.codec.DecodeStream(acc)
		acc = acc[consumed:]
		if err != nil {
			errCh <- fmt.Errorf("%w: %v", application.ErrProtocol, err)
			return
		}
		for _, f := range decoded {
			select {
			case d.frameCh <- f:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (d *Dispatcher) loop(ctx context.Context, readErrCh <-chan error) error {
	var pending *inFlight
	defer func() {
		if pending != nil {
			pending.timer.Stop()
		}
	}()

	var hbTicker *time.Ticker
	if d.cfg.HeartbeatActive {
		hbTicker = time.NewTicker(d.cfg.HeartbeatInterval)
		defer hbTicker.Stop()
	}
	idleWatchdog := time.NewTimer(d.cfg.HeartbeatReplyTimeout)
	defer idleWatchdog.Stop()

	timerC := func() <-chan time.Time {
		if pending == nil {
			return nil
		}
		return pending.timer.C
	}
	hbTickerC := func() <-chan time.Time {
		if hbTicker == nil {
			return nil
		}
		return hbTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			d.failPending(pending, ctx.Err())
			return nil

		case <-d.closeOnce:
			d.failPending(pending, application.ErrNotConnected)
			return nil

		case err := <-readErrCh:
			d.failPending(pending, err)
			return err

		case req := <-d.submitCh:
			if pending != nil {
				d.logger.Debug().Str("cmd_id", pending.req.id.String()).Msg("superseding in-flight command")
				pending.timer.Stop()
				// Spec §4.4: the old command is simply abandoned, no
				// error surfaced to its caller.
			}
			nf, err := d.send(ctx, req)
			if err != nil {
				req.resultCh <- reqResult{err: err}
				pending = nil
				continue
			}
			pending = nf
			idleWatchdog.Reset(d.cfg.HeartbeatReplyTimeout)

		case <-timerC():
			if pending.retriesLeft <= 0 {
				d.logger.Warn().Str("cmd_id", pending.req.id.String()).Int("seq", int(pending.seq)).Msg("command exhausted retries, closing connection")
				err := fmt.Errorf("%w: no response after retries", application.ErrTimeout)
				pending.req.resultCh <- reqResult{err: err}
				// Spec §4.4: on reaching zero, close the socket and mark
				// the connection not-connected — returning here tears
				// down this connection generation's errgroup in the
				// controller, which closes the transport and lets the
				// reconnect supervisor take over.
				return err
			}
			nf, err := d.resend(ctx, pending)
			if err != nil {
				pending.req.resultCh <- reqResult{err: err}
				pending = nil
				continue
			}
			pending = nf

		case f := <-d.frameCh:
			idleWatchdog.Reset(d.cfg.HeartbeatReplyTimeout)
			pending = d.handleFrame(f, pending)

		case <-hbTickerC():
			if pending == nil {
				hbReq := &request{id: uuid.New(), kind: KindHeartbeat, resultCh: make(chan reqResult, 1)}
				nf, err := d.send(ctx, hbReq)
				if err == nil {
					// An active heartbeat waits HeartbeatReplyTimeout for
					// its reply, without resends; expiry ends the loop.
					nf.timer.Stop()
					nf.timer = time.NewTimer(d.cfg.HeartbeatReplyTimeout)
					nf.retriesLeft = 0
					pending = nf
				}
			}

		case <-idleWatchdog.C:
			d.logger.Warn().Msg("idle watchdog expired, no frames received")
			d.failPending(pending, application.ErrTimeout)
			return fmt.Errorf("%w: idle watchdog expired", application.ErrTimeout)
		}
	}
}

func (d *Dispatcher) failPending(pending *inFlight, err error) {
	if pending == nil {
		return
	}
	pending.timer.Stop()
	select {
	case pending.req.resultCh <- reqResult{err: err}:
	default:
	}
}

func (d *Dispatcher) send(ctx context.Context, req *request) (*inFlight, error) {
	cmd, plaintext, addPrefix, err := buildCommand(d.protocol, req.kind, d.cfg.DeviceID, req.dp, req.value, time.Now())
	if err != nil {
		return nil, err
	}
	seq := d.nextSeq()
	frame, err := d.codec.EncodeCommand(seq, cmd, plaintext, addPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: encode command: %v", application.ErrProtocol, err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, d.cfg.ResponseTimeout)
	defer cancel()
	if _, err := d.transport.Write(writeCtx, frame); err != nil {
		return nil, fmt.Errorf("%w: write command: %v", application.ErrTransport, err)
	}
	return &inFlight{
		req: req, cmd: cmd, plaintext: plaintext, addPrefix: addPrefix,
		seq: seq, retriesLeft: d.cfg.MaxRetries - 1,
		timer: time.NewTimer(d.cfg.ResponseTimeout),
	}, nil
}

// resend re-transmits the same logical command under a new sequence
// number, per spec §4.4 ("resend the same command/payload with a new
// sequence number").
func (d *Dispatcher) resend(ctx context.Context, pending *inFlight) (*inFlight, error) {
	seq := d.nextSeq()
	frame, err := d.codec.EncodeCommand(seq, pending.cmd, pending.plaintext, pending.addPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: encode retry: %v", application.ErrProtocol, err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, d.cfg.ResponseTimeout)
	defer cancel()
	if _, err := d.transport.Write(writeCtx, frame); err != nil {
		return nil, fmt.Errorf("%w: write retry: %v", application.ErrTransport, err)
	}
	pending.seq = seq
	pending.retriesLeft--
	pending.timer = time.NewTimer(d.cfg.ResponseTimeout)
	return pending, nil
}

// handleFrame resolves pending if f answers it (same sequence number);
// a STATUS_RESP that answers nothing is published on the Events channel.
// It returns the (possibly cleared) pending request.
func (d *Dispatcher) handleFrame(f codec.Decoded, pending *inFlight) *inFlight {
	switch f.Cmd {
	case codec.StatusResp:
		dps, err := parseDPs(f.Plaintext)
		if err != nil {
			d.logger.Warn().Err(err).Msg("dropping malformed status_resp")
			return pending
		}
		if pending != nil && f.Seq == pending.seq && (pending.req.kind == KindStatus || pending.req.kind == KindSet) {
			pending.timer.Stop()
			pending.req.resultCh <- reqResult{snapshot: dps}
			return nil
		}
		// Out-of-band push: not an answer to anything in flight.
		select {
		case d.eventsCh <- application.StatusEvent{Changed: dps}:
		default:
			d.logger.Warn().Msg("status event channel full, dropping push")
		}
		return pending

	case codec.HeartBeat:
		if pending != nil && f.Seq == pending.seq && pending.req.kind == KindHeartbeat {
			pending.timer.Stop()
			pending.req.resultCh <- reqResult{}
			return nil
		}
		return pending

	default:
		d.logger.Debug().Int("cmd", int(f.Cmd)).Msg("ignoring frame with no pending handler")
		return pending
	}
}

func (d *Dispatcher) submit(ctx context.Context, kind CommandKind, dp thermostat.DP, value thermostat.Value) (map[thermostat.DP]thermostat.Value, error) {
	select {
	case <-d.stopped:
		return nil, application.ErrNotConnected
	default:
	}

	resultCh := make(chan reqResult, 1)
	req := &request{id: uuid.New(), kind: kind, dp: dp, value: value, resultCh: resultCh}

	select {
	case d.submitCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.stopped:
		return nil, application.ErrNotConnected
	}

	select {
	case res := <-resultCh:
		return res.snapshot, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.stopped:
		return nil, application.ErrNotConnected
	}
}

func (d *Dispatcher) Query(ctx context.Context) (map[thermostat.DP]thermostat.Value, error) {
	return d.submit(ctx, KindStatus, 0, thermostat.Value{})
}

func (d *Dispatcher) Set(ctx context.Context, dp thermostat.DP, value thermostat.Value) error {
	_, err := d.submit(ctx, KindSet, dp, value)
	return err
}

func (d *Dispatcher) Heartbeat(ctx context.Context) error {
	_, err := d.submit(ctx, KindHeartbeat, 0, thermostat.Value{})
	return err
}

// Close stops the event loop. It is safe to call more than once.
func (d *Dispatcher) Close() error {
	select {
	case <-d.closeOnce:
	default:
		close(d.closeOnce)
	}
	<-d.stopped
	return nil
}

var _ application.Dispatcher = (*Dispatcher)(nil)
