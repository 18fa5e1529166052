package controller

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/signal15/tuya-minisplit-hubitat/application"
	"github.com/signal15/tuya-minisplit-hubitat/domain/thermostat"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/codec"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/config"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/network/tcp"
)

const testKey = "fedcba9876543210"

// pipeDialer hands back one end of a net.Pipe and runs a minimal fake
// device on the other end, speaking v3.3 under testKey: it answers
// DP_QUERY with a fixed STATUS_RESP (power on, mode cold, DP 3 = 680),
// acknowledges CONTROL with an empty STATUS_RESP, and can push an
// unsolicited STATUS_RESP on demand via pushCh.
type pipeDialer struct {
	pushCh chan map[string]any
}

func (p *pipeDialer) Dial(ctx context.Context, addr string) (application.Transport, error) {
	server, client := net.Pipe()
	sc := codec.NewProtocolCodec(application.V33, func() []byte { return []byte(testKey) })

	go func() {
		buf := make([]byte, 4096)
		var acc []byte
		for {
			n, err := server.Read(buf)
			if err != nil {
				return
			}
			acc = append(acc, buf[:n]...)
			frames, consumed, err := sc.DecodeStream(acc)
			if err != nil {
				return
			}
			acc = acc[consumed:]
			for _, f := range frames {
				switch f.Cmd {
				case codec.DPQuery:
					reply, _ := sc.EncodeCommand(f.Seq, codec.StatusResp, []byte(`{"dps":{"1":true,"4":"cold","3":680}}`), false)
					server.Write(reply)
				case codec.Control:
					ack, _ := sc.EncodeCommand(f.Seq, codec.StatusResp, []byte(`{"dps":{}}`), false)
					server.Write(ack)
				case codec.HeartBeat:
					reply, _ := sc.EncodeCommand(f.Seq, codec.HeartBeat, nil, false)
					server.Write(reply)
				}
			}
		}
	}()

	if p.pushCh != nil {
		go func() {
			for dps := range p.pushCh {
				body, _ := json.Marshal(map[string]any{"dps": dps})
				frame, _ := sc.EncodeCommand(99, codec.StatusResp, body, false)
				server.Write(frame)
			}
		}()
	}

	return tcp.NewAdapter(client), nil
}

func testConfig() config.Config {
	return config.Config{
		IP:            "127.0.0.1",
		Port:          6668,
		DeviceID:      "01234567890123456789",
		Protocol:      application.V33,
		LocalKeyBytes: []byte(testKey),
		PollInterval:  config.PollDisabled,
		AutoReconnect: false,
	}
}

func TestEngineRefreshPopulatesSnapshot(t *testing.T) {
	dialer := &pipeDialer{}
	e := New(testConfig(), dialer, zerolog.Nop())
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := e.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !snap.Power {
		t.Error("expected power=true")
	}
	if snap.Mode != thermostat.ModeCool {
		t.Errorf("expected mode=cool, got %v", snap.Mode)
	}
}

func TestEngineOnAppliesOptimisticUpdate(t *testing.T) {
	dialer := &pipeDialer{}
	e := New(testConfig(), dialer, zerolog.Nop())
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.On(ctx); err != nil {
		t.Fatalf("On: %v", err)
	}
	if !e.Status().Power {
		t.Error("expected optimistic power=true after On")
	}
}

func TestEngineSubscribeReceivesOutOfBandPush(t *testing.T) {
	push := make(chan map[string]any, 1)
	dialer := &pipeDialer{pushCh: push}
	e := New(testConfig(), dialer, zerolog.Nop())
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Disconnect()

	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()
	deltas := e.Subscribe(subCtx)

	push <- map[string]any{"3": 750}

	select {
	case d := <-deltas:
		if d.DP != thermostat.DPCurrentTemp || d.Value.Int != 750 {
			t.Errorf("unexpected delta %+v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscribed delta")
	}
}

func TestEngineSetModeRejectsUnknownMode(t *testing.T) {
	dialer := &pipeDialer{}
	e := New(testConfig(), dialer, zerolog.Nop())
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.SetMode(ctx, thermostat.Mode("nonexistent")); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
