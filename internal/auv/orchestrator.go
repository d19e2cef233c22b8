package auv

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DaPhysikist/Nautilus/internal/mission"
	"github.com/DaPhysikist/Nautilus/internal/motor"
	"github.com/DaPhysikist/Nautilus/internal/sensor"
	"github.com/DaPhysikist/Nautilus/internal/storage"
)

// Task is one independently scheduled unit of the communication core: a
// named function that runs until its context is cancelled.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config holds the core's timing and maneuver parameters. Zero values take
// the vehicle defaults.
type Config struct {
	Vehicle string

	PingInterval      time.Duration
	TelemetryInterval time.Duration
	ReceiveInterval   time.Duration
	ConnectionTimeout time.Duration
	PollInterval      time.Duration

	MissionTick    time.Duration
	MissionMaxTime time.Duration

	TurnSpeed     int
	ForwardSpeed  int
	ManeuverPhase time.Duration
}

func (c *Config) applyDefaults() {
	if c.Vehicle == "" {
		c.Vehicle = "nautilus"
	}
	if c.PingInterval == 0 {
		c.PingInterval = 3 * time.Second
	}
	if c.TelemetryInterval == 0 {
		c.TelemetryInterval = time.Second
	}
	if c.ReceiveInterval == 0 {
		c.ReceiveInterval = 100 * time.Millisecond
	}
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = 6 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.MissionTick == 0 {
		c.MissionTick = 50 * time.Millisecond
	}
	if c.MissionMaxTime == 0 {
		c.MissionMaxTime = 10 * time.Minute
	}
	if c.TurnSpeed == 0 {
		c.TurnSpeed = 90
	}
	if c.ForwardSpeed == 0 {
		c.ForwardSpeed = 90
	}
	if c.ManeuverPhase == 0 {
		c.ManeuverPhase = 5 * time.Second
	}
}

// MissionBudget derives the iteration budget a mission gets before it is
// force-aborted.
func (c Config) MissionBudget() int {
	return int(c.MissionMaxTime / c.MissionTick / 7)
}

// WithLogger sets the logger for the orchestrator and everything it builds.
func WithLogger(logger *slog.Logger) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithStore attaches the dive log.
func WithStore(store storage.Store) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithSensors attaches the optional peripherals; either may be nil.
func WithSensors(pressure sensor.PressureSensor, imu sensor.IMU) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.pressure = pressure
		o.imu = imu
	}
}

// WithHydrophone attaches the hydrophone recorder used by the echo-location
// mission; may be nil.
func WithHydrophone(recorder mission.HydrophoneRecorder) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.hydrophone = recorder
	}
}

// Orchestrator builds the task set, runs it, and supervises the process-wide
// stop and restart flags. A restart tears every task down, discards the
// motor queue and the radio link, and builds the group again from scratch.
// It is the only path that re-acquires device handles.
type Orchestrator struct {
	cfg        Config
	controller motor.Controller
	newLink    func() Link

	store      storage.Store
	pressure   sensor.PressureSensor
	imu        sensor.IMU
	hydrophone mission.HydrophoneRecorder

	stopFlag    atomic.Bool
	restartFlag atomic.Bool

	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator. newLink builds a fresh radio
// link per run cycle; controller is the motor driver owned by the queue
// consumer.
func NewOrchestrator(cfg Config, controller motor.Controller, newLink func() Link, options ...func(*Orchestrator)) *Orchestrator {
	cfg.applyDefaults()

	o := Orchestrator{
		cfg:        cfg,
		controller: controller,
		newLink:    newLink,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// Stop requests a graceful shutdown of the whole core.
func (o *Orchestrator) Stop() {
	o.stopFlag.Store(true)
}

// Restart requests a full teardown and rebuild of the core.
func (o *Orchestrator) Restart() {
	o.restartFlag.Store(true)
}

// Run operates the core until the context ends or Stop is called, rebuilding
// it whenever Restart is requested. It returns after all tasks quiesced.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		restart, err := o.runCore(ctx)
		if err != nil {
			return err
		}
		if !restart {
			return nil
		}

		o.restartFlag.Store(false)
		o.logger.Info("restarting communication core")
	}
}

func (o *Orchestrator) runCore(ctx context.Context) (restart bool, err error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	link := o.newLink()
	defer link.Close()

	queue := motor.NewQueue(motor.WithQueueLogger(o.logger))
	pilot := motor.NewPilot(queue,
		motor.WithPilotLogger(o.logger),
		motor.WithSpeeds(o.cfg.TurnSpeed, o.cfg.ForwardSpeed),
		motor.WithManeuverPhase(o.cfg.ManeuverPhase))

	record, sessionID := o.sessionRecorder(runCtx)

	monitor := NewConnectionMonitor(link, queue, pilot,
		o.cfg.ConnectionTimeout, o.cfg.ReceiveInterval,
		WithMonitorLogger(o.logger), WithMonitorRecorder(record))

	missions := mission.NewSupervisor(o.cfg.MissionBudget(),
		mission.WithLogger(o.logger), mission.WithRecorder(record))
	missions.Register(mission.EchoLocationID, func() (mission.Mission, error) {
		return mission.NewEchoLocation(runCtx, queue, o.hydrophone,
			mission.WithEchoLogger(o.logger)), nil
	})

	pinger := NewPingSupervisor(link, o.cfg.PingInterval, WithPingLogger(o.logger))
	publisher := NewTelemetryPublisher(link, monitor, o.cfg.TelemetryInterval,
		WithTelemetryLogger(o.logger),
		WithTelemetrySensors(o.pressure, o.imu),
		WithTelemetryStore(o.store, sessionID))
	receiver := NewCommandReceiver(link, monitor, pilot, missions, o.cfg.ReceiveInterval,
		WithReceiverLogger(o.logger), WithReceiverRecorder(record))

	tasks := []Task{
		{Name: "motor-queue", Run: func(ctx context.Context) error { return queue.Run(ctx, o.controller) }},
		{Name: "ping", Run: pinger.Run},
		{Name: "telemetry", Run: publisher.Run},
		{Name: "receiver", Run: receiver.Run},
		{Name: "connection-monitor", Run: monitor.Run},
		{Name: "mission", Run: func(ctx context.Context) error { return o.runMissionTicks(ctx, missions) }},
	}

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			if err := t.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Error("task failed",
					slog.String("task", t.Name), slog.String("error", err.Error()))
			}
		}(t)
	}

	o.logger.Info("communication core started",
		slog.Int("tasks", len(tasks)), slog.Int64("session", sessionID))
	record(storage.EventCoreStarted, "")

	restart = o.superviseFlags(ctx)

	// Cooperative shutdown: abort the mission, then cancel and wait for
	// every task to quiesce. The exiting queue consumer drains updates
	// still buffered, and a final all-stop goes to the driver directly so
	// the vehicle never carries its last commanded speeds across a
	// teardown.
	missions.Abort()
	cancel()
	wg.Wait()
	queue.Stop()
	if err := o.controller.UpdateSpeeds(motor.Zero); err != nil {
		o.logger.Error("zeroing motors at shutdown", slog.String("error", err.Error()))
	}

	if restart {
		record(storage.EventCoreRestarted, "")
	} else {
		record(storage.EventCoreStopped, "")
	}
	o.logger.Info("communication core stopped")
	return restart, nil
}

// superviseFlags polls the stop/restart flags until one of them (or the
// context) ends the run cycle. It reports whether a restart was requested.
func (o *Orchestrator) superviseFlags(ctx context.Context) bool {
	t := time.NewTicker(o.cfg.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
			if o.stopFlag.Load() {
				return false
			}
			if o.restartFlag.Load() {
				return true
			}
		}
	}
}

func (o *Orchestrator) runMissionTicks(ctx context.Context, missions *mission.Supervisor) error {
	t := time.NewTicker(o.cfg.MissionTick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			missions.Tick()
		}
	}
}

// sessionRecorder opens a dive session and returns a best-effort event
// recorder bound to it. Without a store both are no-ops.
func (o *Orchestrator) sessionRecorder(ctx context.Context) (EventRecorder, int64) {
	if o.store == nil {
		return nopRecorder, 0
	}

	sessionID, err := o.store.CreateSession(ctx, o.cfg.Vehicle, o.cfg)
	if err != nil {
		o.logger.Warn("dive session not recorded",
			slog.String("error", err.Error()))
		return nopRecorder, 0
	}

	record := func(kind, detail string) {
		// Events are written during shutdown too, after the run context
		// is cancelled; give them their own deadline.
		evCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := o.store.StoreEvent(evCtx, sessionID, kind, detail); err != nil {
			o.logger.Warn("recording dive event",
				slog.String("kind", kind), slog.String("error", err.Error()))
		}
	}
	return record, sessionID
}
