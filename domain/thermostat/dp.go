// Package thermostat holds the DP-id <-> domain-attribute mapping for the
// Pioneer WYT (Diamante) mini-split family. The tables here are
// configuration data, not state: they're built once at package init and
// never mutated.
package thermostat

// DP is a Tuya data-point identifier.
type DP int

const (
	DPPower           DP = 1
	DPTargetTemp      DP = 2
	DPCurrentTemp      DP = 3
	DPMode            DP = 4
	DPFan             DP = 5
	DPHumidity        DP = 18
	DPFaultCode       DP = 20
	DPSleepMode       DP = 105
	DPVerticalSwing   DP = 113
	DPHorizontalSwing DP = 114
	DPEcoMode         DP = 119
	DPDisplayBeep     DP = 123
	DPFilterDirty     DP = 131
)

// ValueKind is the canonical scalar type a DP carries on the wire.
type ValueKind int

const (
	KindBool ValueKind = iota
	KindInt
	KindEnum
)

// dpKinds fixes the canonical typing per DP for the device family.
var dpKinds = map[DP]ValueKind{
	DPPower:           KindBool,
	DPTargetTemp:      KindInt,
	DPCurrentTemp:     KindInt,
	DPMode:            KindEnum,
	DPFan:             KindEnum,
	DPHumidity:        KindInt,
	DPFaultCode:       KindInt,
	DPSleepMode:       KindBool,
	DPVerticalSwing:   KindEnum,
	DPHorizontalSwing: KindEnum,
	DPEcoMode:         KindBool,
	DPDisplayBeep:     KindInt,
	DPFilterDirty:     KindBool,
}

// Kind reports the canonical value kind for dp, and whether dp is known.
func Kind(dp DP) (ValueKind, bool) {
	k, ok := dpKinds[dp]
	return k, ok
}

// Value is an untyped scalar carried by a single DP.
type Value struct {
	Bool bool
	Int  int
	Enum string
	Kind ValueKind
}

func BoolValue(b bool) Value  { return Value{Bool: b, Kind: KindBool} }
func IntValue(i int) Value    { return Value{Int: i, Kind: KindInt} }
func EnumValue(s string) Value { return Value{Enum: s, Kind: KindEnum} }

// Any returns the value as an interface{} suitable for JSON encoding.
func (v Value) Any() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	default:
		return v.Enum
	}
}
