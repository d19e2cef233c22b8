// Package protocol implements the Nautilus radio wire format: fixed 3-byte
// frames exchanged between the AUV and the surface base station.
//
// A frame is interpreted as a 24-bit big-endian unsigned integer. The literal
// value 0xFFFFFF is a ping and carries no payload. Frames sent by the AUV
// carry a 3-bit data type header in bits 21-23; frames sent by the base
// station carry either a navigation command (bit 17 set) or a mission command
// (bit 17 clear, mission id in bits 0-1).
//
// The repository history contains an older 1-byte-ping variant with 11-bit
// header shifts; this package implements the 3-byte protocol only.
package protocol

import (
	"math"
)

// FrameLength is the size of every frame on the wire, in bytes.
const FrameLength = 3

// PingValue is the liveness frame exchanged in both directions.
const PingValue uint32 = 0xFFFFFF

// DataType identifies the kind of telemetry payload a frame carries.
// The type code occupies the top bits of the frame value.
type DataType uint32

const (
	PositionData DataType = 0b000
	HeadingData  DataType = 0b001
	MiscData     DataType = 0b010
	DepthData    DataType = 0b011
	TempData     DataType = 0b100
)

const (
	headerShift = 21
	headerMask  = 0b111 << headerShift

	navFlagMask    = 0x020000
	navTurnMask    = 0x01FE00
	navTurnShift   = 9
	navSignMask    = 0x000100
	navSignShift   = 8
	navForwardMask = 0x0000FF

	missionMask = 0x000003

	depthIntMask   = 0xF0
	depthIntShift  = 4
	depthTenthMask = 0x0F
)

// Surface air pressure in mbar; readings below this decode to zero depth.
const surfacePressureMbar = 1013.25

// Kind classifies a decoded frame.
type Kind int

const (
	KindPing Kind = iota
	KindTelemetry
	KindNavigation
	KindMission
)

// Frame is a single wire frame.
type Frame [FrameLength]byte

// Value returns the frame interpreted as a big-endian unsigned integer.
func (f Frame) Value() uint32 {
	return uint32(f[0])<<16 | uint32(f[1])<<8 | uint32(f[2])
}

// FrameFromValue packs the low 24 bits of v into a frame.
func FrameFromValue(v uint32) Frame {
	return Frame{byte(v >> 16), byte(v >> 8), byte(v)}
}

// Bytes returns the frame as a slice suitable for writing to the link.
func (f Frame) Bytes() []byte {
	return []byte{f[0], f[1], f[2]}
}

// FrameFromBytes builds a frame from the first FrameLength bytes of b.
// It reports false when b is too short.
func FrameFromBytes(b []byte) (Frame, bool) {
	if len(b) < FrameLength {
		return Frame{}, false
	}
	return Frame{b[0], b[1], b[2]}, true
}

// NavigationCommand is a decoded base station maneuver request. X is the
// unsigned turn magnitude and Y the signed forward magnitude.
type NavigationCommand struct {
	X int
	Y int
}

// MissionCommand is a decoded mission start request.
type MissionCommand struct {
	ID int
}

// DepthReading is the decoded payload of a DEPTH telemetry frame: a
// fixed-point depth with one decimal digit of precision.
type DepthReading struct {
	Meters int
	Tenths int
}

// Depth returns the reading as a floating point depth in meters.
func (d DepthReading) Depth() float64 {
	return float64(d.Meters) + float64(d.Tenths)/10
}

// Packet is the decoded view of a frame. Exactly the fields implied by Kind
// are meaningful.
type Packet struct {
	Kind Kind
	Type DataType

	Nav     NavigationCommand
	Mission MissionCommand
	Depth   DepthReading
}

// Decode classifies a frame and extracts its payload. Decoding is total:
// unexpected bit patterns still produce a packet, and it is up to the caller
// to reject values it does not handle (for example an unknown mission id).
func Decode(f Frame) Packet {
	v := f.Value()

	switch {
	case v == PingValue:
		return Packet{Kind: KindPing}

	case v&headerMask != 0:
		p := Packet{Kind: KindTelemetry, Type: DataType(v >> headerShift)}
		if p.Type == DepthData {
			p.Depth = DepthReading{
				Meters: int((v & depthIntMask) >> depthIntShift),
				Tenths: int(v & depthTenthMask),
			}
		}
		return p

	case v&navFlagMask != 0:
		nav := NavigationCommand{
			X: int((v & navTurnMask) >> navTurnShift),
			Y: int(v & navForwardMask),
		}
		if (v&navSignMask)>>navSignShift == 1 {
			nav.Y = -nav.Y
		}
		return Packet{Kind: KindNavigation, Nav: nav}

	default:
		return Packet{Kind: KindMission, Mission: MissionCommand{ID: int(v & missionMask)}}
	}
}

// EncodePing returns the liveness frame.
func EncodePing() Frame {
	return FrameFromValue(PingValue)
}

// DepthFromPressure converts a pressure reading in mbar to an estimated
// depth in meters, clamped at zero above the surface.
func DepthFromPressure(mbar float64) float64 {
	depth := (mbar - surfacePressureMbar) / 1000 * 10.2
	if depth < 0 {
		depth = 0
	}
	return depth
}

// DepthFields splits a depth in meters into the integer and tenths fields
// carried by a DEPTH frame. Tenths are rounded to the nearest digit with
// carry into the integer part; depths beyond the representable 15.9 m
// saturate.
func DepthFields(depth float64) (meters, tenths int) {
	if depth < 0 {
		depth = 0
	}

	frac, whole := math.Modf(depth)
	meters = int(whole)
	tenths = int(math.Round(frac * 10))
	if tenths == 10 {
		tenths = 0
		meters++
	}
	if meters > 15 {
		meters, tenths = 15, 9
	}
	return meters, tenths
}

// EncodeDepth converts a pressure reading in mbar into a DEPTH telemetry
// frame.
func EncodeDepth(mbar float64) Frame {
	meters, tenths := DepthFields(DepthFromPressure(mbar))
	v := uint32(DepthData)<<headerShift |
		uint32(meters)<<depthIntShift |
		uint32(tenths)
	return FrameFromValue(v)
}

// EncodeNavigation packs a maneuver request the way the base station sends
// it. X must be in [0, 127] and Y in [-255, 255]; out-of-range magnitudes
// are masked to the field width.
func EncodeNavigation(x, y int) Frame {
	v := uint32(navFlagMask)
	v |= (uint32(x) << navTurnShift) & navTurnMask
	if y < 0 {
		v |= navSignMask
		y = -y
	}
	v |= uint32(y) & navForwardMask
	return FrameFromValue(v)
}

// EncodeMission packs a mission start request.
func EncodeMission(id int) Frame {
	return FrameFromValue(uint32(id) & missionMask)
}
