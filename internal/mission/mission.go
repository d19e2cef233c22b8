// Package mission owns the mission lifecycle: at most one mission runs at a
// time, driven by a step call per control tick and bounded by a hard
// iteration budget.
package mission

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/DaPhysikist/Nautilus/internal/storage"
)

var (
	// ErrMissionActive reports a start request while a mission is running.
	ErrMissionActive = errors.New("mission: a mission is already running")

	// ErrUnknownMission reports a start request with an unimplemented id.
	ErrUnknownMission = errors.New("mission: unknown mission id")
)

// Mission is the boundary to mission-specific behavior. Loop is called once
// per control tick and must return promptly; Abort is called exactly once
// when the mission ends early.
type Mission interface {
	Loop() error
	Abort()
}

// Factory constructs a mission instance for a start command.
type Factory func() (Mission, error)

// WithLogger sets the logger for the supervisor.
func WithLogger(logger *slog.Logger) func(*Supervisor) {
	return func(s *Supervisor) {
		s.logger = logger.With(slog.String("component", "mission"))
	}
}

// WithRecorder sets the dive log event recorder invoked when a mission is
// aborted.
func WithRecorder(record func(kind, detail string)) func(*Supervisor) {
	return func(s *Supervisor) {
		s.record = record
	}
}

// Supervisor runs at most one mission and force-aborts it once its tick
// budget is exhausted.
type Supervisor struct {
	mu        sync.Mutex
	factories map[int]Factory
	current   Mission
	currentID int
	ticks     int

	budget int
	record func(kind, detail string)
	logger *slog.Logger
}

// NewSupervisor creates a supervisor with the given tick budget.
func NewSupervisor(budget int, options ...func(*Supervisor)) *Supervisor {
	s := Supervisor{
		factories: make(map[int]Factory),
		budget:    budget,
		record:    func(kind, detail string) {},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Register binds a mission id to its factory.
func (s *Supervisor) Register(id int, f Factory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[id] = f
}

// Start constructs and activates the mission for id. A running mission is
// never displaced: the request is rejected with ErrMissionActive and the
// current mission is untouched.
func (s *Supervisor) Start(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return fmt.Errorf("%w (running mission %d, requested %d)", ErrMissionActive, s.currentID, id)
	}

	factory, ok := s.factories[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownMission, id)
	}

	m, err := factory()
	if err != nil {
		return fmt.Errorf("mission %d failed to start: %w", id, err)
	}

	s.current = m
	s.currentID = id
	s.ticks = 0
	s.logger.Info("mission started", slog.Int("mission", id))
	return nil
}

// Running reports whether a mission is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Ticks returns the number of steps the active mission has run.
func (s *Supervisor) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Tick advances the active mission by one step. When the step pushes the
// mission past its budget it is force-aborted; this is a scheduled safety
// action, not an error.
func (s *Supervisor) Tick() {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}

	m := s.current
	id := s.currentID
	s.ticks++
	exceeded := s.ticks > s.budget
	s.mu.Unlock()

	if err := m.Loop(); err != nil {
		s.logger.Warn("mission step failed",
			slog.Int("mission", id), slog.String("error", err.Error()))
	}

	if exceeded {
		s.logger.Warn("mission exceeded its time budget, aborting",
			slog.Int("mission", id), slog.Int("ticks", s.Ticks()))
		s.Abort()
	}
}

// Abort invokes the active mission's abort hook and returns to idle. Safe to
// call while idle.
func (s *Supervisor) Abort() {
	s.mu.Lock()
	m := s.current
	id := s.currentID
	s.current = nil
	s.ticks = 0
	s.mu.Unlock()

	if m == nil {
		return
	}

	m.Abort()
	s.record(storage.EventMissionAborted, fmt.Sprintf("mission %d", id))
	s.logger.Info("mission aborted", slog.Int("mission", id))
}
