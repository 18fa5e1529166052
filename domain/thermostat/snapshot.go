package thermostat

// Snapshot is the controller-visible view of a device's latest known DP
// state, rendered from the DP map by Map.Snapshot on each call.
type Snapshot struct {
	Power             bool
	TargetTempF       float64
	CurrentTempF      float64
	Mode              Mode
	Fan               FanSpeed
	HumidityPct       int
	FaultCode         int
	SleepMode         bool
	VerticalSwing     SwingPosition
	HorizontalSwing   SwingPosition
	EcoMode           bool
	DisplayBeep       int
	FilterDirty       bool
	OperatingState    OperatingState
}

// Map owns the raw per-DP values received from the device plus the
// "active setpoint channel" bookkeeping described in spec §4.5
// (Setpoint coherence): DP 2 always mirrors whichever of cooling/heating
// is presently active, and the inactive channel's last-known value is
// remembered separately so a mode switch doesn't clobber it.
type Map struct {
	values map[DP]Value

	coolSetpointF float64
	heatSetpointF float64
	haveCool      bool
	haveHeat      bool
}

func NewMap() *Map {
	return &Map{values: make(map[DP]Value)}
}

// Apply merges a DP delta (as decoded from a STATUS_RESP payload) into the
// map, returning the set of DPs that actually changed value so callers can
// publish minimal deltas.
func (m *Map) Apply(delta map[DP]Value) []DP {
	var changed []DP
	setpointChanged := false
	for dp, v := range delta {
		if old, ok := m.values[dp]; ok && old == v {
			continue
		}
		m.values[dp] = v
		changed = append(changed, dp)

		if dp == DPTargetTemp {
			setpointChanged = true
		}
	}
	// Record the setpoint only after the whole delta is applied, so a mode
	// change carried in the same delta decides which channel it lands in.
	if setpointChanged {
		m.recordSetpoint(m.values[DPTargetTemp].Int)
	}
	return changed
}

// recordSetpoint mirrors an incoming DP 2 write/read into whichever
// channel (cooling/heating) is presently active, per the current mode DP.
func (m *Map) recordSetpoint(wire int) {
	f := DecodeTargetTempF(wire)
	mode, _ := m.ModeValue()
	if mode == ModeHeat {
		m.heatSetpointF = f
		m.haveHeat = true
	} else {
		m.coolSetpointF = f
		m.haveCool = true
	}
}

// ModeValue returns the current DP 4 mode, if known.
func (m *Map) ModeValue() (Mode, bool) {
	v, ok := m.values[DPMode]
	if !ok {
		return "", false
	}
	mode, known := WireToMode(v.Enum)
	return mode, known
}

// Value returns the raw value currently held for dp.
func (m *Map) Value(dp DP) (Value, bool) {
	v, ok := m.values[dp]
	return v, ok
}

// Snapshot renders the full domain-shaped view of the current DP map.
func (m *Map) Snapshot() Snapshot {
	s := Snapshot{}

	if v, ok := m.values[DPPower]; ok {
		s.Power = v.Bool
	}
	if v, ok := m.values[DPCurrentTemp]; ok {
		s.CurrentTempF = DecodeCurrentTempF(v.Int)
	}
	mode, _ := m.ModeValue()
	s.Mode = mode
	switch mode {
	case ModeHeat:
		if m.haveHeat {
			s.TargetTempF = m.heatSetpointF
		}
	default:
		if m.haveCool {
			s.TargetTempF = m.coolSetpointF
		}
	}
	if s.TargetTempF == 0 {
		if v, ok := m.values[DPTargetTemp]; ok {
			s.TargetTempF = DecodeTargetTempF(v.Int)
		}
	}
	if v, ok := m.values[DPFan]; ok {
		fan, known := WireToFan(v.Enum)
		if known {
			s.Fan = fan
		}
	}
	if v, ok := m.values[DPHumidity]; ok {
		s.HumidityPct = v.Int
	}
	if v, ok := m.values[DPFaultCode]; ok {
		s.FaultCode = v.Int
	}
	if v, ok := m.values[DPSleepMode]; ok {
		s.SleepMode = v.Bool
	}
	if v, ok := m.values[DPVerticalSwing]; ok {
		s.VerticalSwing = SwingPosition(v.Enum)
	}
	if v, ok := m.values[DPHorizontalSwing]; ok {
		s.HorizontalSwing = SwingPosition(v.Enum)
	}
	if v, ok := m.values[DPEcoMode]; ok {
		s.EcoMode = v.Bool
	}
	if v, ok := m.values[DPDisplayBeep]; ok {
		s.DisplayBeep = v.Int
	}
	if v, ok := m.values[DPFilterDirty]; ok {
		s.FilterDirty = v.Bool
	}
	s.OperatingState = DeriveOperatingState(s.Power, s.Mode)
	return s
}
