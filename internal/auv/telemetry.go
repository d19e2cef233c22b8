package auv

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/DaPhysikist/Nautilus/internal/protocol"
	"github.com/DaPhysikist/Nautilus/internal/sensor"
	"github.com/DaPhysikist/Nautilus/internal/storage"
)

// WithTelemetryLogger sets the logger for the publisher.
func WithTelemetryLogger(logger *slog.Logger) func(*TelemetryPublisher) {
	return func(p *TelemetryPublisher) {
		p.logger = logger.With(slog.String("component", "telemetry"))
	}
}

// WithTelemetryStore persists sampled rows to the dive log.
func WithTelemetryStore(store storage.Store, sessionID int64) func(*TelemetryPublisher) {
	return func(p *TelemetryPublisher) {
		p.store = store
		p.sessionID = sessionID
	}
}

// WithTelemetrySensors attaches the optional peripherals. Either may be nil
// when the device was not found at startup.
func WithTelemetrySensors(pressure sensor.PressureSensor, imu sensor.IMU) func(*TelemetryPublisher) {
	return func(p *TelemetryPublisher) {
		p.pressure = pressure
		p.imu = imu
	}
}

// telemetryBatchSize is how many sampled rows accumulate before they are
// flushed to the dive log in one transaction.
const telemetryBatchSize = 10

// TelemetryPublisher samples the sensors once per send interval and writes a
// DEPTH frame to the base station. Sends are suppressed while disconnected;
// sampled rows still go to the dive log so a dive is reconstructible even
// with a dead link. Rows are written in batches, with a final flush when the
// publisher stops.
type TelemetryPublisher struct {
	link    Link
	monitor *ConnectionMonitor

	pressure sensor.PressureSensor
	imu      sensor.IMU

	store     storage.Store
	sessionID int64
	batch     []*storage.Telemetry

	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewTelemetryPublisher creates a publisher sampling every interval.
func NewTelemetryPublisher(link Link, monitor *ConnectionMonitor, interval time.Duration, options ...func(*TelemetryPublisher)) *TelemetryPublisher {
	p := TelemetryPublisher{
		link:     link,
		monitor:  monitor,
		interval: interval,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// Run publishes telemetry until the context ends.
func (p *TelemetryPublisher) Run(ctx context.Context) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			// The run context is already cancelled; give the final batch
			// its own deadline.
			flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			p.flush(flushCtx)
			cancel()
			return ctx.Err()
		case <-t.C:
			p.tick(ctx)
		}
	}
}

func (p *TelemetryPublisher) tick(ctx context.Context) {
	row := storage.Telemetry{Timestamp: p.now().UTC()}

	if p.pressure != nil {
		if mbar, err := p.pressure.Pressure(); err != nil {
			p.logger.Warn("reading pressure", slog.String("error", err.Error()))
		} else {
			depth := protocol.DepthFromPressure(mbar)
			row.Depth = &depth
			p.send(mbar, depth)
		}
	}

	if p.imu != nil {
		if heading, err := p.imu.Heading(); err != nil {
			p.logger.Warn("reading heading", slog.String("error", err.Error()))
		} else {
			row.Heading = &heading
		}
		if temp, err := p.imu.Temperature(); err != nil {
			p.logger.Warn("reading temperature", slog.String("error", err.Error()))
		} else {
			row.Temperature = &temp
		}
	}

	if p.store != nil {
		p.batch = append(p.batch, &row)
		if len(p.batch) >= telemetryBatchSize {
			p.flush(ctx)
		}
	}
}

// flush writes the buffered rows in one batch. Rows are dropped on a write
// error rather than retried; the next batch starts clean.
func (p *TelemetryPublisher) flush(ctx context.Context) {
	if p.store == nil || len(p.batch) == 0 {
		return
	}

	if err := p.store.BatchStoreTelemetry(ctx, p.sessionID, p.batch); err != nil {
		p.logger.Warn("storing telemetry batch",
			slog.Int("rows", len(p.batch)), slog.String("error", err.Error()))
	}
	p.batch = nil
}

// send writes the depth frame while connected. Heartbeats are unconditional
// but telemetry is not: a disconnected base station is not listening.
func (p *TelemetryPublisher) send(mbar, depth float64) {
	if !p.monitor.Connected() || !p.link.IsOpen() {
		return
	}

	if err := p.link.WriteFrame(protocol.EncodeDepth(mbar)); err != nil {
		p.logger.Warn("sending depth telemetry", slog.String("error", err.Error()))
		return
	}

	meters, tenths := protocol.DepthFields(depth)
	p.logger.Debug("depth telemetry sent",
		slog.Float64("pressure", mbar),
		slog.Int("meters", meters), slog.Int("tenths", tenths))
}
