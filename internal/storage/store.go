// Package storage persists the dive log: one session per run of the
// communication core, with telemetry readings and vehicle lifecycle events
// attached to it.
package storage

import (
	"context"
	"time"
)

// Event kinds recorded in the dive log.
const (
	EventConnectionVerified = "connection_verified"
	EventConnectionLost     = "connection_lost"
	EventMissionStarted     = "mission_started"
	EventMissionAborted     = "mission_aborted"
	EventManeuver           = "maneuver"
	EventCoreStarted        = "core_started"
	EventCoreStopped        = "core_stopped"
	EventCoreRestarted      = "core_restarted"
)

// Session is one run of the communication core.
type Session struct {
	ID        int64
	StartTime time.Time
	Vehicle   string
	Config    *string
}

// Telemetry is one sampled sensor row. Nil fields mean the corresponding
// peripheral was unavailable at sample time.
type Telemetry struct {
	ID          int64
	Timestamp   time.Time
	Depth       *float64
	Heading     *float64
	Temperature *float64
}

// Event is a vehicle lifecycle record.
type Event struct {
	ID        int64
	Timestamp time.Time
	Kind      string
	Detail    string
}

// Store provides dive log persistence. Implementations must be safe for
// concurrent use; writes are atomic per call.
type Store interface {
	// CreateSession starts a new dive session and returns its identifier.
	// config may be a string, []byte, or any JSON-serializable value.
	CreateSession(ctx context.Context, vehicle string, config any) (int64, error)

	// Session retrieves a session by id.
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// StoreTelemetry saves one telemetry row for a session.
	StoreTelemetry(ctx context.Context, sessionID int64, t *Telemetry) (int64, error)

	// BatchStoreTelemetry saves rows in chunked transactions.
	BatchStoreTelemetry(ctx context.Context, sessionID int64, rows []*Telemetry) error

	// StoreEvent records a lifecycle event for a session.
	StoreEvent(ctx context.Context, sessionID int64, kind, detail string) error

	// TelemetryBySession returns a session's telemetry ordered by time.
	TelemetryBySession(ctx context.Context, sessionID int64) ([]*Telemetry, error)

	// EventsBySession returns a session's events ordered by time.
	EventsBySession(ctx context.Context, sessionID int64) ([]*Event, error)

	// Close releases database resources. Safe to call multiple times.
	Close() error
}
