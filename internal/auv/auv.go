// Package auv is the concurrent communication and supervision core of the
// vehicle: a set of cooperating tasks sharing one exclusive radio link, a
// motor command queue, and the connection liveness state, run and restarted
// as a group by the Orchestrator.
package auv

import (
	"github.com/DaPhysikist/Nautilus/internal/protocol"
)

// Link is the radio surface the core tasks use. *radio.Link implements it;
// tests substitute fakes.
type Link interface {
	EnsureOpen() error
	IsOpen() bool
	WriteFrame(f protocol.Frame) error
	ReadFrame() (f protocol.Frame, ok bool, err error)
	Flush() error
	Close() error
}

// EventRecorder persists a vehicle lifecycle event to the dive log.
// Recording is best effort and must not block the caller's control loop.
type EventRecorder func(kind, detail string)

func nopRecorder(string, string) {}
