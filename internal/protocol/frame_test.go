package protocol

import (
	"math"
	"testing"
)

func TestDepthRoundTrip(t *testing.T) {
	// Sweep the representable pressure range in 0.25 mbar steps and check
	// that the encoded fields match the conversion formula exactly.
	for mbar := 900.0; mbar < 2600.0; mbar += 0.25 {
		wantMeters, wantTenths := DepthFields(DepthFromPressure(mbar))

		pkt := Decode(EncodeDepth(mbar))
		if pkt.Kind != KindTelemetry || pkt.Type != DepthData {
			t.Fatalf("EncodeDepth(%v) decoded as kind=%d type=%d", mbar, pkt.Kind, pkt.Type)
		}
		if pkt.Depth.Meters != wantMeters || pkt.Depth.Tenths != wantTenths {
			t.Fatalf("EncodeDepth(%v) round-tripped to %d.%d, want %d.%d",
				mbar, pkt.Depth.Meters, pkt.Depth.Tenths, wantMeters, wantTenths)
		}
	}
}

func TestDepthFromPressureClampsAtSurface(t *testing.T) {
	if d := DepthFromPressure(900); d != 0 {
		t.Errorf("DepthFromPressure(900) = %v, want 0", d)
	}
	if d := DepthFromPressure(surfacePressureMbar); d != 0 {
		t.Errorf("DepthFromPressure(surface) = %v, want 0", d)
	}
}

func TestDepthFields(t *testing.T) {
	tests := []struct {
		depth  float64
		meters int
		tenths int
	}{
		{0, 0, 0},
		{0.04, 0, 0},
		{0.05, 0, 1},
		{1.5, 1, 5},
		{2.96, 3, 0}, // tenths carry into meters
		{15.9, 15, 9},
		{42.0, 15, 9}, // saturates
		{-1.0, 0, 0},
	}

	for _, tc := range tests {
		m, th := DepthFields(tc.depth)
		if m != tc.meters || th != tc.tenths {
			t.Errorf("DepthFields(%v) = (%d, %d), want (%d, %d)", tc.depth, m, th, tc.meters, tc.tenths)
		}
	}
}

func TestNavigationRoundTrip(t *testing.T) {
	for x := 0; x <= 127; x++ {
		for y := -255; y <= 255; y++ {
			pkt := Decode(EncodeNavigation(x, y))
			if pkt.Kind != KindNavigation {
				t.Fatalf("EncodeNavigation(%d, %d) decoded as kind %d", x, y, pkt.Kind)
			}
			if pkt.Nav.X != x || pkt.Nav.Y != y {
				t.Fatalf("EncodeNavigation(%d, %d) round-tripped to (%d, %d)", x, y, pkt.Nav.X, pkt.Nav.Y)
			}
		}
	}
}

func TestMissionRoundTrip(t *testing.T) {
	for id := 0; id <= 3; id++ {
		pkt := Decode(EncodeMission(id))
		if pkt.Kind != KindMission {
			t.Fatalf("EncodeMission(%d) decoded as kind %d", id, pkt.Kind)
		}
		if pkt.Mission.ID != id {
			t.Fatalf("EncodeMission(%d) round-tripped to id %d", id, pkt.Mission.ID)
		}
	}
}

func TestDecodeClassification(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		kind  Kind
	}{
		{"ping", PingValue, KindPing},
		{"mission zero frame", 0x000000, KindMission},
		{"navigation flag", 0x020000, KindNavigation},
		{"depth header", uint32(DepthData) << headerShift, KindTelemetry},
		{"heading header", uint32(HeadingData) << headerShift, KindTelemetry},
		{"misc header", uint32(MiscData) << headerShift, KindTelemetry},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if pkt := Decode(FrameFromValue(tc.value)); pkt.Kind != tc.kind {
				t.Errorf("Decode(%#06x).Kind = %d, want %d", tc.value, pkt.Kind, tc.kind)
			}
		})
	}
}

func TestDecodeIsTotal(t *testing.T) {
	// Every representable frame value must decode without panicking and
	// classify as exactly one of the known kinds.
	for v := uint32(0); v <= 0xFFFFFF; v += 13 {
		pkt := Decode(FrameFromValue(v))
		switch pkt.Kind {
		case KindPing, KindTelemetry, KindNavigation, KindMission:
		default:
			t.Fatalf("Decode(%#06x) produced unknown kind %d", v, pkt.Kind)
		}
	}
}

func TestFrameValueRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 0x0000FF, 0x00FF00, 0xFF0000, 0xABCDEF, 0xFFFFFF}
	for _, v := range values {
		if got := FrameFromValue(v).Value(); got != v {
			t.Errorf("FrameFromValue(%#06x).Value() = %#06x", v, got)
		}
	}
}

func TestFrameFromBytes(t *testing.T) {
	if _, ok := FrameFromBytes([]byte{0x01, 0x02}); ok {
		t.Error("FrameFromBytes accepted a short read")
	}

	f, ok := FrameFromBytes([]byte{0x01, 0x02, 0x03})
	if !ok || f.Value() != 0x010203 {
		t.Errorf("FrameFromBytes([01 02 03]) = %#06x, ok=%v", f.Value(), ok)
	}
}

func TestDepthReadingDepth(t *testing.T) {
	r := DepthReading{Meters: 3, Tenths: 7}
	if got := r.Depth(); math.Abs(got-3.7) > 1e-9 {
		t.Errorf("Depth() = %v, want 3.7", got)
	}
}
