package thermostat

import "testing"

func TestEncodeDecodeTargetTempRoundTrip(t *testing.T) {
	for f := 61; f <= 86; f++ {
		wire := EncodeTargetTempF(float64(f))
		got := DecodeTargetTempF(wire)
		if got != float64(f) {
			t.Errorf("round trip %d: got %v", f, got)
		}
	}
}

func TestEncodeTargetTempClamps(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{in: 10, want: minTargetTempWire},
		{in: 60.9, want: minTargetTempWire},
		{in: 120, want: maxTargetTempWire},
		{in: 86.1, want: maxTargetTempWire},
	}
	for _, c := range cases {
		if got := EncodeTargetTempF(c.in); got != c.want {
			t.Errorf("EncodeTargetTempF(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestDecodeCurrentTempF(t *testing.T) {
	if got := DecodeCurrentTempF(22); got != 71.6 {
		t.Errorf("DecodeCurrentTempF(22) = %v, want 71.6", got)
	}
	if got := DecodeCurrentTempF(0); got != 32 {
		t.Errorf("DecodeCurrentTempF(0) = %v, want 32", got)
	}
}

func TestModeMapBijection(t *testing.T) {
	modes := []Mode{ModeCool, ModeHeat, ModeDry, ModeFanOnly, ModeAuto}
	for _, m := range modes {
		wire, ok := ModeToWire(m)
		if !ok {
			t.Fatalf("ModeToWire(%v): not ok", m)
		}
		back, ok := WireToMode(wire)
		if !ok || back != m {
			t.Errorf("round trip %v -> %q -> %v (ok=%v)", m, wire, back, ok)
		}
	}
}

func TestWireToModeUnknown(t *testing.T) {
	if _, ok := WireToMode("bogus"); ok {
		t.Error("expected unknown wire mode to report ok=false")
	}
}

func TestFanWireCollapse(t *testing.T) {
	cases := map[string]FanSpeed{
		"quiet":       FanLow,
		"low":         FanLow,
		"medium-low":  FanMedium,
		"medium":      FanMedium,
		"medium-high": FanMedium,
		"high":        FanHigh,
		"strong":      FanHigh,
		"auto":        FanAuto,
	}
	for wire, want := range cases {
		got, ok := WireToFan(wire)
		if !ok || got != want {
			t.Errorf("WireToFan(%q) = %v, %v; want %v", wire, got, ok, want)
		}
	}
}

func TestDeriveOperatingState(t *testing.T) {
	cases := []struct {
		power bool
		mode  Mode
		want  OperatingState
	}{
		{false, ModeCool, StateIdle},
		{true, ModeCool, StateCooling},
		{true, ModeHeat, StateHeating},
		{true, ModeFanOnly, StateFanOnly},
		{true, ModeAuto, StateIdle},
	}
	for _, c := range cases {
		if got := DeriveOperatingState(c.power, c.mode); got != c.want {
			t.Errorf("DeriveOperatingState(%v, %v) = %v, want %v", c.power, c.mode, got, c.want)
		}
	}
}
