package dispatch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/signal15/tuya-minisplit-hubitat/application"
	"github.com/signal15/tuya-minisplit-hubitat/domain/thermostat"
	"github.com/signal15/tuya-minisplit-hubitat/infrastructure/codec"
)

// CommandKind is the dispatcher-level operation being built, independent
// of which wire cmd number or JSON shape a given dialect uses for it
// (spec §4.4).
type CommandKind int

const (
	KindStatus CommandKind = iota
	KindSet
	KindHeartbeat
)

type statusBody struct {
	GwID  string `json:"gwId"`
	DevID string `json:"devId"`
	UID   string `json:"uid"`
	T     string `json:"t"`
}

type setBody struct {
	DevID string         `json:"devId"`
	UID   string         `json:"uid"`
	T     string         `json:"t"`
	Dps   map[string]any `json:"dps"`
}

type heartbeatBody struct {
	GwID  string `json:"gwId"`
	DevID string `json:"devId"`
}

type v34SetData struct {
	Dps map[string]any `json:"dps"`
}

type v34SetBody struct {
	Protocol int        `json:"protocol"`
	T        int64      `json:"t"`
	Data     v34SetData `json:"data"`
}

// buildCommand produces the wire cmd, the plaintext JSON (nil for an empty
// payload), and whether the dialect's version marker should be prepended
// before encryption, per the command table in spec §4.4. Note: unlike the
// original implementation this was distilled from, the JSON here is
// emitted as a bare object directly — there is no backslash-escape /
// outer-quote stripping step, since that workaround existed only to undo a
// host JSON builder's double-stringification (spec §9 design note), which
// encoding/json never produces.
func buildCommand(protocol application.Protocol, kind CommandKind, deviceID string, dp thermostat.DP, value thermostat.Value, now time.Time) (cmd codec.FrameType, plaintext []byte, addPrefix bool, err error) {
	t := strconv.FormatInt(now.Unix(), 10)

	if protocol == application.V34 {
		switch kind {
		case KindStatus:
			return codec.DPQueryNew, nil, false, nil
		case KindHeartbeat:
			body, err := json.Marshal(heartbeatBody{GwID: deviceID, DevID: deviceID})
			if err != nil {
				return 0, nil, false, err
			}
			return codec.HeartBeat, body, false, nil
		case KindSet:
			body, err := json.Marshal(v34SetBody{
				Protocol: 5,
				T:        now.Unix(),
				Data:     v34SetData{Dps: map[string]any{strconv.Itoa(int(dp)): value.Any()}},
			})
			if err != nil {
				return 0, nil, false, err
			}
			return codec.ControlNew, body, true, nil
		}
		return 0, nil, false, fmt.Errorf("dispatch: unknown command kind %d", kind)
	}

	// V31 / V33 share the same JSON shapes.
	switch kind {
	case KindStatus:
		body, err := json.Marshal(statusBody{GwID: deviceID, DevID: deviceID, UID: "", T: t})
		if err != nil {
			return 0, nil, false, err
		}
		return codec.DPQuery, body, false, nil
	case KindHeartbeat:
		body, err := json.Marshal(heartbeatBody{GwID: deviceID, DevID: deviceID})
		if err != nil {
			return 0, nil, false, err
		}
		return codec.HeartBeat, body, false, nil
	case KindSet:
		body, err := json.Marshal(setBody{
			DevID: deviceID, UID: "", T: t,
			Dps: map[string]any{strconv.Itoa(int(dp)): value.Any()},
		})
		if err != nil {
			return 0, nil, false, err
		}
		return codec.Control, body, true, nil
	}
	return 0, nil, false, fmt.Errorf("dispatch: unknown command kind %d", kind)
}

// parseDPs decodes a STATUS_RESP plaintext's {"dps": {...}} (or bare dps
// map, for frames that carry it un-nested) into typed DP values, using the
// fixed per-DP typing from domain/thermostat.
func parseDPs(plaintext []byte) (map[thermostat.DP]thermostat.Value, error) {
	if len(plaintext) == 0 {
		return nil, nil
	}

	var envelope struct {
		Dps map[string]json.RawMessage `json:"dps"`
	}
	raw := envelope.Dps
	if err := json.Unmarshal(plaintext, &envelope); err != nil || envelope.Dps == nil {
		// Some STATUS_RESP frames carry the dps map directly at the top
		// level rather than nested under "dps".
		var bare map[string]json.RawMessage
		if err2 := json.Unmarshal(plaintext, &bare); err2 != nil {
			return nil, fmt.Errorf("%w: decode dps: %v", application.ErrProtocol, err)
		}
		raw = bare
	} else {
		raw = envelope.Dps
	}

	out := make(map[thermostat.DP]thermostat.Value, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		dp := thermostat.DP(id)
		kind, known := thermostat.Kind(dp)
		if !known {
			continue
		}
		val, err := decodeValue(kind, v)
		if err != nil {
			continue
		}
		out[dp] = val
	}
	return out, nil
}

func decodeValue(kind thermostat.ValueKind, raw json.RawMessage) (thermostat.Value, error) {
	switch kind {
	case thermostat.KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return thermostat.Value{}, err
		}
		return thermostat.BoolValue(b), nil
	case thermostat.KindInt:
		var i int
		if err := json.Unmarshal(raw, &i); err != nil {
			return thermostat.Value{}, err
		}
		return thermostat.IntValue(i), nil
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return thermostat.Value{}, err
		}
		return thermostat.EnumValue(s), nil
	}
}
