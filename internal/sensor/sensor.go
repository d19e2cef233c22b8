// Package sensor wraps the vehicle's peripheral drivers. Every peripheral is
// optional: a device that fails to open or read reports ErrUnavailable and
// the caller substitutes a default reading instead of failing the dive.
package sensor

import "errors"

// ErrUnavailable reports that a peripheral is absent or produced no reading.
var ErrUnavailable = errors.New("sensor: unavailable")

// PressureSensor reads the latest ambient pressure in mbar.
type PressureSensor interface {
	Pressure() (float64, error)
}

// IMU reads the latest vehicle heading and internal temperature.
type IMU interface {
	Heading() (float64, error)
	Temperature() (float64, error)
}
