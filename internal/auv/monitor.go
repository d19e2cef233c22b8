package auv

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/DaPhysikist/Nautilus/internal/motor"
	"github.com/DaPhysikist/Nautilus/internal/storage"
)

// WithMonitorLogger sets the logger for the monitor.
func WithMonitorLogger(logger *slog.Logger) func(*ConnectionMonitor) {
	return func(m *ConnectionMonitor) {
		m.logger = logger.With(slog.String("component", "connection"))
	}
}

// WithMonitorClock overrides the time source.
func WithMonitorClock(now func() time.Time) func(*ConnectionMonitor) {
	return func(m *ConnectionMonitor) {
		m.now = now
	}
}

// WithMonitorRecorder sets the dive log event recorder.
func WithMonitorRecorder(record EventRecorder) func(*ConnectionMonitor) {
	return func(m *ConnectionMonitor) {
		m.record = record
	}
}

// ConnectionMonitor tracks base station liveness. It starts Disconnected,
// becomes Connected on a ping, and drops back to Disconnected when no ping
// arrives within the timeout. Losing the connection fails safe, exactly once
// per loss: the in-flight maneuver is cancelled, the motors are commanded to
// zero, and the link buffers are flushed.
type ConnectionMonitor struct {
	link   Link
	motors *motor.Queue
	pilot  *motor.Pilot

	timeout       time.Duration
	checkInterval time.Duration

	mu        sync.Mutex
	connected bool
	lastPing  time.Time

	now    func() time.Time
	record EventRecorder
	logger *slog.Logger
}

// NewConnectionMonitor creates a monitor in the Disconnected state.
func NewConnectionMonitor(link Link, motors *motor.Queue, pilot *motor.Pilot, timeout, checkInterval time.Duration, options ...func(*ConnectionMonitor)) *ConnectionMonitor {
	m := ConnectionMonitor{
		link:          link,
		motors:        motors,
		pilot:         pilot,
		timeout:       timeout,
		checkInterval: checkInterval,
		now:           time.Now,
		record:        nopRecorder,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&m)
	}

	return &m
}

// PingReceived records a heartbeat and reports whether it established a new
// connection (so the caller logs the verification once, not per ping).
func (m *ConnectionMonitor) PingReceived() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastPing = m.now()
	if m.connected {
		return false
	}
	m.connected = true
	return true
}

// Connected reports the current liveness state.
func (m *ConnectionMonitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Check observes the timeout once. Called per control tick by Run.
func (m *ConnectionMonitor) Check() {
	m.mu.Lock()
	if !m.connected || m.now().Sub(m.lastPing) <= m.timeout {
		m.mu.Unlock()
		return
	}
	m.connected = false
	m.mu.Unlock()

	m.logger.Warn("lost connection to base station")

	m.pilot.Cancel()
	m.motors.Enqueue(motor.Zero)
	if err := m.link.Flush(); err != nil {
		m.logger.Warn("flushing link after connection loss",
			slog.String("error", err.Error()))
	}
	m.record(storage.EventConnectionLost, "")
}

// Run checks the timeout on every control tick until the context ends.
func (m *ConnectionMonitor) Run(ctx context.Context) error {
	t := time.NewTicker(m.checkInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			m.Check()
		}
	}
}
