package auv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/DaPhysikist/Nautilus/internal/mission"
	"github.com/DaPhysikist/Nautilus/internal/motor"
	"github.com/DaPhysikist/Nautilus/internal/protocol"
	"github.com/DaPhysikist/Nautilus/internal/storage"
)

// WithReceiverLogger sets the logger for the receiver.
func WithReceiverLogger(logger *slog.Logger) func(*CommandReceiver) {
	return func(r *CommandReceiver) {
		r.logger = logger.With(slog.String("component", "receiver"))
	}
}

// WithReceiverRecorder sets the dive log event recorder.
func WithReceiverRecorder(record EventRecorder) func(*CommandReceiver) {
	return func(r *CommandReceiver) {
		r.record = record
	}
}

// CommandReceiver drains incoming frames once per receive interval and
// dispatches them: pings feed the connection monitor, navigation commands
// start a maneuver, mission commands start a mission. It is the only reader
// of the link, so ping detection and command dispatch are totally ordered.
type CommandReceiver struct {
	link     Link
	monitor  *ConnectionMonitor
	pilot    *motor.Pilot
	missions *mission.Supervisor

	interval time.Duration
	record   EventRecorder
	logger   *slog.Logger
}

// NewCommandReceiver creates a receiver polling every interval.
func NewCommandReceiver(link Link, monitor *ConnectionMonitor, pilot *motor.Pilot, missions *mission.Supervisor, interval time.Duration, options ...func(*CommandReceiver)) *CommandReceiver {
	r := CommandReceiver{
		link:     link,
		monitor:  monitor,
		pilot:    pilot,
		missions: missions,
		interval: interval,
		record:   nopRecorder,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Run receives and dispatches frames until the context ends.
func (r *CommandReceiver) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.drain(ctx)
		}
	}
}

// drain reads full frames until a short read says the tick's data is
// exhausted. A read error means the link already closed itself; the ping
// supervisor will rediscover the device.
func (r *CommandReceiver) drain(ctx context.Context) {
	if !r.link.IsOpen() {
		return
	}

	for {
		f, ok, err := r.link.ReadFrame()
		if err != nil {
			r.logger.Warn("radio read failed, link discarded",
				slog.String("error", err.Error()))
			return
		}
		if !ok {
			return
		}
		r.dispatch(ctx, f)
	}
}

func (r *CommandReceiver) dispatch(ctx context.Context, f protocol.Frame) {
	pkt := protocol.Decode(f)

	switch pkt.Kind {
	case protocol.KindPing:
		if r.monitor.PingReceived() {
			r.logger.Info("connection to base station verified")
			r.record(storage.EventConnectionVerified, "")
		}

	case protocol.KindNavigation:
		r.logger.Info("running navigation command",
			slog.Int("x", pkt.Nav.X), slog.Int("y", pkt.Nav.Y))
		r.pilot.Maneuver(ctx, pkt.Nav.X, pkt.Nav.Y)
		r.record(storage.EventManeuver, fmt.Sprintf("x=%d y=%d", pkt.Nav.X, pkt.Nav.Y))

	case protocol.KindMission:
		if err := r.missions.Start(pkt.Mission.ID); err != nil {
			r.logger.Warn("rejecting mission command",
				slog.Int("mission", pkt.Mission.ID), slog.String("error", err.Error()))
			return
		}
		r.record(storage.EventMissionStarted, fmt.Sprintf("mission %d", pkt.Mission.ID))

	default:
		// Telemetry headers never arrive from the base station.
		r.logger.Warn("ignoring unexpected frame",
			slog.String("frame", fmt.Sprintf("%#06x", f.Value())))
	}
}
