package app

import (
	"time"

	"github.com/DaPhysikist/Nautilus/internal/storage"
)

// Sample is one plotted telemetry point.
type Sample struct {
	Timestamp time.Time
	Depth     *float64
	Heading   *float64
}

// Marker is one dive event placed on the time axis.
type Marker struct {
	Timestamp time.Time
	Kind      string
}

// DiveProfile is the plot model built from one session's dive log.
type DiveProfile struct {
	Vehicle        string
	TimestampStart time.Time
	TimestampEnd   time.Time

	Samples []Sample
	Markers []Marker

	DepthMax float64
}

// NewDiveProfile builds the plot model from stored telemetry and events.
// Rows without a depth reading still advance the time axis; they plot as
// gaps, not zeros.
func NewDiveProfile(session *storage.Session, rows []*storage.Telemetry, events []*storage.Event) *DiveProfile {
	p := DiveProfile{
		Vehicle:        session.Vehicle,
		TimestampStart: session.StartTime,
	}

	for _, row := range rows {
		p.Samples = append(p.Samples, Sample{
			Timestamp: row.Timestamp,
			Depth:     row.Depth,
			Heading:   row.Heading,
		})

		if row.Depth != nil && *row.Depth > p.DepthMax {
			p.DepthMax = *row.Depth
		}
		if row.Timestamp.After(p.TimestampEnd) {
			p.TimestampEnd = row.Timestamp
		}
	}

	for _, e := range events {
		p.Markers = append(p.Markers, Marker{Timestamp: e.Timestamp, Kind: e.Kind})
		if e.Timestamp.After(p.TimestampEnd) {
			p.TimestampEnd = e.Timestamp
		}
	}

	if p.TimestampEnd.IsZero() {
		p.TimestampEnd = p.TimestampStart
	}
	if p.DepthMax == 0 {
		p.DepthMax = 1
	}

	return &p
}

// Duration is the span of the plotted dive.
func (p *DiveProfile) Duration() time.Duration {
	return p.TimestampEnd.Sub(p.TimestampStart)
}

// DepthSamples counts samples carrying a depth reading.
func (p *DiveProfile) DepthSamples() int {
	n := 0
	for _, s := range p.Samples {
		if s.Depth != nil {
			n++
		}
	}
	return n
}
