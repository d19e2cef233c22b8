package motor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultTurnSpeed    = 90
	defaultForwardSpeed = 90
	defaultPhase        = 5 * time.Second
)

// WithPilotLogger sets the logger for the pilot.
func WithPilotLogger(logger *slog.Logger) func(*Pilot) {
	return func(p *Pilot) {
		p.logger = logger.With(slog.String("component", "pilot"))
	}
}

// WithManeuverPhase sets the fixed duration of each maneuver phase.
func WithManeuverPhase(d time.Duration) func(*Pilot) {
	return func(p *Pilot) {
		p.phase = d
	}
}

// WithSpeeds sets the fixed turn and forward speeds used by maneuvers.
func WithSpeeds(turn, forward int) func(*Pilot) {
	return func(p *Pilot) {
		p.turnSpeed = turn
		p.forwardSpeed = forward
	}
}

// Pilot executes base station maneuver requests as open-loop, fixed-duration
// motor sequences: stop, turn for one phase, stop, move forward for one
// phase, stop. This is an approximation pending closed-loop odometry; the
// durations are not scaled by the requested magnitudes.
//
// At most one maneuver is in flight; a new request or a connection loss
// cancels the current one so its later phases cannot override the fail-safe
// zero speeds.
type Pilot struct {
	queue *Queue

	turnSpeed    int
	forwardSpeed int
	phase        time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	logger *slog.Logger
}

// NewPilot creates a pilot issuing speed updates into the queue.
func NewPilot(queue *Queue, options ...func(*Pilot)) *Pilot {
	p := Pilot{
		queue:        queue,
		turnSpeed:    defaultTurnSpeed,
		forwardSpeed: defaultForwardSpeed,
		phase:        defaultPhase,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// Maneuver starts the turn-then-forward sequence for a decoded navigation
// command and returns immediately. x is the turn magnitude, y the signed
// forward magnitude; the turn direction follows the sign of y.
func (p *Pilot) Maneuver(ctx context.Context, x, y int) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	p.logger.Info("running maneuver", slog.Int("x", x), slog.Int("y", y))

	go func() {
		defer close(done)
		defer cancel()
		p.run(ctx, x, y)
	}()
}

// Cancel aborts any in-flight maneuver. It does not touch the motors; the
// caller decides what speeds follow.
func (p *Pilot) Cancel() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *Pilot) run(ctx context.Context, x, y int) {
	p.queue.Enqueue(Zero)

	turn := 0
	switch {
	case y > 0:
		turn = p.turnSpeed
	case y < 0:
		turn = -p.turnSpeed
	}

	p.queue.Enqueue(Speeds{Turn: turn})
	if !p.hold(ctx) {
		p.queue.Enqueue(Zero)
		return
	}
	p.queue.Enqueue(Zero)

	if x != 0 {
		p.queue.Enqueue(Speeds{Forward: p.forwardSpeed})
		if !p.hold(ctx) {
			p.queue.Enqueue(Zero)
			return
		}
		p.queue.Enqueue(Zero)
	}
}

// hold waits one maneuver phase, reporting false when cancelled early.
func (p *Pilot) hold(ctx context.Context) bool {
	t := time.NewTimer(p.phase)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
