package thermostat

import "testing"

func TestMapApplyAndSnapshot(t *testing.T) {
	m := NewMap()
	changed := m.Apply(map[DP]Value{
		DPPower: BoolValue(true),
		DPTargetTemp: IntValue(720),
		DPMode: EnumValue("cold"),
	})
	if len(changed) != 3 {
		t.Fatalf("expected 3 changed DPs, got %d", len(changed))
	}

	snap := m.Snapshot()
	if !snap.Power {
		t.Error("expected power on")
	}
	if snap.TargetTempF != 72.0 {
		t.Errorf("expected target 72.0, got %v", snap.TargetTempF)
	}
	if snap.Mode != ModeCool {
		t.Errorf("expected cool mode, got %v", snap.Mode)
	}
	if snap.OperatingState != StateCooling {
		t.Errorf("expected cooling state, got %v", snap.OperatingState)
	}
}

func TestMapApplyNoChangeIsFiltered(t *testing.T) {
	m := NewMap()
	m.Apply(map[DP]Value{DPPower: BoolValue(true)})
	changed := m.Apply(map[DP]Value{DPPower: BoolValue(true)})
	if len(changed) != 0 {
		t.Errorf("expected no changes on identical re-apply, got %v", changed)
	}
}

func TestSetpointCoherenceAcrossModeSwitch(t *testing.T) {
	m := NewMap()
	// Cooling at 72F.
	m.Apply(map[DP]Value{
		DPMode:       EnumValue("cold"),
		DPTargetTemp: IntValue(720),
	})
	if got := m.Snapshot().TargetTempF; got != 72.0 {
		t.Fatalf("cool setpoint = %v, want 72.0", got)
	}

	// Switch to heat at 68F; cool channel must not be overwritten.
	m.Apply(map[DP]Value{
		DPMode:       EnumValue("hot"),
		DPTargetTemp: IntValue(680),
	})
	if got := m.Snapshot().TargetTempF; got != 68.0 {
		t.Fatalf("heat setpoint = %v, want 68.0", got)
	}

	// Switch back to cool without a fresh DP2 write: the remembered cool
	// setpoint (72F) must still be the one reported, not the heat value.
	m.Apply(map[DP]Value{DPMode: EnumValue("cold")})
	if got := m.Snapshot().TargetTempF; got != 72.0 {
		t.Fatalf("cool setpoint after switch-back = %v, want 72.0", got)
	}
}

func TestSnapshotDerivesCurrentTempConversion(t *testing.T) {
	m := NewMap()
	m.Apply(map[DP]Value{DPCurrentTemp: IntValue(22)})
	if got := m.Snapshot().CurrentTempF; got != 71.6 {
		t.Errorf("CurrentTempF = %v, want 71.6", got)
	}
}
