package mission

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/DaPhysikist/Nautilus/internal/motor"
)

// EchoLocationID is the only mission id the base station can start.
const EchoLocationID = 0

const (
	// DefaultDiveSpeed is the vertical thruster speed while descending.
	DefaultDiveSpeed = 100

	// DefaultClipLength is the length of each hydrophone capture.
	DefaultClipLength = 10 * time.Second
)

// HydrophoneRecorder is the capture boundary used by the echo-location
// mission.
type HydrophoneRecorder interface {
	Record(ctx context.Context, d time.Duration) (string, error)
}

// WithEchoLogger sets the logger for the mission.
func WithEchoLogger(logger *slog.Logger) func(*EchoLocation) {
	return func(m *EchoLocation) {
		m.logger = logger.With(slog.String("component", "echo-mission"))
	}
}

// WithClipLength sets the hydrophone capture length.
func WithClipLength(d time.Duration) func(*EchoLocation) {
	return func(m *EchoLocation) {
		m.clipLength = d
	}
}

// EchoLocation dives on the vertical thrusters and records hydrophone clips
// until aborted. The acoustic processing itself happens ashore; the mission
// only produces recordings.
type EchoLocation struct {
	ctx      context.Context
	queue    *motor.Queue
	recorder HydrophoneRecorder

	diveSpeed  int
	clipLength time.Duration

	started   bool
	recording atomic.Bool

	logger *slog.Logger
}

// NewEchoLocation creates the mission. recorder may be nil when the
// hydrophone is unavailable; the mission still dives.
func NewEchoLocation(ctx context.Context, queue *motor.Queue, recorder HydrophoneRecorder, options ...func(*EchoLocation)) *EchoLocation {
	m := EchoLocation{
		ctx:        ctx,
		queue:      queue,
		recorder:   recorder,
		diveSpeed:  DefaultDiveSpeed,
		clipLength: DefaultClipLength,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&m)
	}

	return &m
}

// Loop implements Mission.
func (m *EchoLocation) Loop() error {
	if !m.started {
		m.started = true
		m.queue.Enqueue(motor.Speeds{motor.Front: m.diveSpeed, motor.Back: m.diveSpeed})
		m.logger.Info("diving", slog.Int("speed", m.diveSpeed))
	}

	if m.recorder != nil && m.recording.CompareAndSwap(false, true) {
		go m.capture()
	}
	return nil
}

func (m *EchoLocation) capture() {
	defer m.recording.Store(false)

	path, err := m.recorder.Record(m.ctx, m.clipLength)
	if err != nil {
		m.logger.Warn("hydrophone capture failed", slog.String("error", err.Error()))
		return
	}
	m.logger.Info("captured echo clip", slog.String("path", path))
}

// Abort implements Mission: stop all motors so the vehicle surfaces on its
// own buoyancy.
func (m *EchoLocation) Abort() {
	m.queue.Enqueue(motor.Zero)
	m.logger.Info("echo-location mission stopped")
}
