package thermostat

import "math"

// Target temperature DP 2 is encoded on the wire as Fahrenheit x 10,
// clamped to [610, 860] (61.0F .. 86.0F).
const (
	minTargetTempWire = 610
	maxTargetTempWire = 860
)

// EncodeTargetTempF converts a Fahrenheit setpoint into the DP 2 wire
// value, rounding to the nearest tenth of a degree and clamping into the
// device's supported range.
func EncodeTargetTempF(fahrenheit float64) int {
	wire := int(math.Round(fahrenheit * 10))
	if wire < minTargetTempWire {
		wire = minTargetTempWire
	}
	if wire > maxTargetTempWire {
		wire = maxTargetTempWire
	}
	return wire
}

// DecodeTargetTempF converts a DP 2 wire value back to Fahrenheit.
func DecodeTargetTempF(wire int) float64 {
	return float64(wire) / 10
}

// DecodeCurrentTempF converts the DP 3 current-temperature reading, which
// the device reports in whole Celsius degrees, to Fahrenheit.
func DecodeCurrentTempF(celsius int) float64 {
	return float64(celsius)*9/5 + 32
}

// Mode is the domain-level operating mode.
type Mode string

const (
	ModeCool    Mode = "cool"
	ModeHeat    Mode = "heat"
	ModeDry     Mode = "dry"
	ModeFanOnly Mode = "fan_only"
	ModeAuto    Mode = "auto"
)

var modeWireToDomain = map[string]Mode{
	"cold": ModeCool,
	"hot":  ModeHeat,
	"wet":  ModeDry,
	"wind": ModeFanOnly,
	"auto": ModeAuto,
}

var modeDomainToWire = map[Mode]string{
	ModeCool:    "cold",
	ModeHeat:    "hot",
	ModeDry:     "wet",
	ModeFanOnly: "wind",
	ModeAuto:    "auto",
}

// WireToMode maps a raw DP 4 enum string to a domain Mode. ok is false for
// an unrecognized wire value.
func WireToMode(wire string) (Mode, bool) {
	m, ok := modeWireToDomain[wire]
	return m, ok
}

// ModeToWire maps a domain Mode to its DP 4 wire enum string. ok is false
// for a mode outside the known domain set.
func ModeToWire(m Mode) (string, bool) {
	w, ok := modeDomainToWire[m]
	return w, ok
}

// FanSpeed is the domain-level fan setting.
type FanSpeed string

const (
	FanLow    FanSpeed = "low"
	FanMedium FanSpeed = "medium"
	FanHigh   FanSpeed = "high"
	FanAuto   FanSpeed = "auto"
)

// fanWireToDomain collapses the device's finer-grained wire fan enum onto
// the domain's four-speed model.
var fanWireToDomain = map[string]FanSpeed{
	"quiet":        FanLow,
	"low":          FanLow,
	"medium-low":   FanMedium,
	"medium":       FanMedium,
	"medium-high":  FanMedium,
	"high":         FanHigh,
	"strong":       FanHigh,
	"auto":         FanAuto,
}

// fanDomainToWire is the wire value written for each domain fan speed. The
// device accepts several wire spellings per domain speed (see
// fanWireToDomain); one canonical spelling is written per domain speed:
// "low", "medium", "high" and "auto".
var fanDomainToWire = map[FanSpeed]string{
	FanLow:    "low",
	FanMedium: "medium",
	FanHigh:   "high",
	FanAuto:   "auto",
}

func WireToFan(wire string) (FanSpeed, bool) {
	f, ok := fanWireToDomain[wire]
	return f, ok
}

func FanToWire(f FanSpeed) (string, bool) {
	w, ok := fanDomainToWire[f]
	return w, ok
}

// SwingPosition is shared by vertical (DP 113: off/full/upper/lower) and
// horizontal (DP 114: off/full/left/center/right) swing DPs; the wire
// vocabulary differs per axis, validated by the caller against
// VerticalSwingPositions / HorizontalSwingPositions.
type SwingPosition string

var VerticalSwingPositions = map[SwingPosition]bool{
	"off": true, "full": true, "upper": true, "lower": true,
}

var HorizontalSwingPositions = map[SwingPosition]bool{
	"off": true, "full": true, "left": true, "center": true, "right": true,
}

// OperatingState is derived from (power, mode), never stored as a DP.
type OperatingState string

const (
	StateCooling OperatingState = "cooling"
	StateHeating OperatingState = "heating"
	StateFanOnly OperatingState = "fan only"
	StateIdle    OperatingState = "idle"
)

// DeriveOperatingState implements the power/mode -> operating-state table
// from spec §4.5.
func DeriveOperatingState(power bool, mode Mode) OperatingState {
	if !power {
		return StateIdle
	}
	switch mode {
	case ModeCool:
		return StateCooling
	case ModeHeat:
		return StateHeating
	case ModeFanOnly:
		return StateFanOnly
	default:
		return StateIdle
	}
}
