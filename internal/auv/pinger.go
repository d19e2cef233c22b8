package auv

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/DaPhysikist/Nautilus/internal/protocol"
)

// WithPingLogger sets the logger for the supervisor.
func WithPingLogger(logger *slog.Logger) func(*PingSupervisor) {
	return func(p *PingSupervisor) {
		p.logger = logger.With(slog.String("component", "ping"))
	}
}

// PingSupervisor sends the heartbeat frame on a fixed cadence, regardless of
// connection state. It is also the link's housekeeper: when the link is
// closed (startup, or discarded after an I/O error) it re-runs device
// discovery before pinging.
type PingSupervisor struct {
	link     Link
	interval time.Duration
	logger   *slog.Logger
}

// NewPingSupervisor creates a supervisor pinging every interval.
func NewPingSupervisor(link Link, interval time.Duration, options ...func(*PingSupervisor)) *PingSupervisor {
	p := PingSupervisor{
		link:     link,
		interval: interval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// Run sends heartbeats until the context ends.
func (p *PingSupervisor) Run(ctx context.Context) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.tick()
		}
	}
}

func (p *PingSupervisor) tick() {
	if !p.link.IsOpen() {
		if err := p.link.EnsureOpen(); err != nil {
			p.logger.Debug("radio device not available",
				slog.String("error", err.Error()))
			return
		}
	}

	if err := p.link.WriteFrame(protocol.EncodePing()); err != nil {
		p.logger.Warn("sending heartbeat", slog.String("error", err.Error()))
	}
}
