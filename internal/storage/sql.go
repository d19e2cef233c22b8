package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      vehicle,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    vehicle,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    vehicle,
    config
FROM sessions
ORDER BY start_time`

	insertTelemetrySQL = `
INSERT INTO telemetry (session_id,
                       timestamp,
                       depth,
                       heading,
                       temperature)
VALUES (?, ?, ?, ?, ?)`

	selectTelemetrySQL = `
SELECT
    id,
    timestamp,
    depth,
    heading,
    temperature
FROM telemetry
WHERE
    session_id = ?
ORDER BY timestamp, id`

	insertEventSQL = `
INSERT INTO events (session_id,
                    timestamp,
                    kind,
                    detail)
VALUES (?, CURRENT_TIMESTAMP, ?, ?)`

	selectEventsSQL = `
SELECT
    id,
    timestamp,
    kind,
    detail
FROM events
WHERE
    session_id = ?
ORDER BY timestamp, id`
)

//go:embed schema.sql
var initSchemaSQL string
