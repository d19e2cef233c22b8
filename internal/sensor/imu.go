package sensor

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
)

// SerialIMU reads the inertial sensor bridge. The firmware streams one
// sample per line: magnetometer x, y, z followed by temperature, whitespace
// separated. Heading is derived from the magnetic vector.
type SerialIMU struct {
	mu     sync.Mutex
	port   io.Closer
	reader *bufio.Reader

	lastHeading float64
	lastTemp    float64
	haveRead    bool
}

// OpenIMU tries the candidate device paths in order and returns an IMU on
// the first that opens.
func OpenIMU(logger *slog.Logger, baudRate int, paths ...string) (*SerialIMU, error) {
	port, err := openSensorPort(logger, "imu", baudRate, paths)
	if err != nil {
		return nil, err
	}
	return &SerialIMU{port: port, reader: bufio.NewReader(port)}, nil
}

// Heading implements IMU. It returns the compass heading in degrees,
// computed as atan2 of the magnetic field's y and x components.
func (s *SerialIMU) Heading() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sample(); err != nil {
		return 0, err
	}
	return s.lastHeading, nil
}

// Temperature implements IMU.
func (s *SerialIMU) Temperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sample(); err != nil {
		return 0, err
	}
	return s.lastTemp, nil
}

// sample reads one line from the device, falling back to the previous
// reading on a timeout. Callers hold s.mu.
func (s *SerialIMU) sample() error {
	line, err := s.reader.ReadString('\n')
	if err != nil || strings.TrimSpace(line) == "" {
		if s.haveRead {
			return nil
		}
		return fmt.Errorf("reading imu: %w", ErrUnavailable)
	}

	fields := strings.Fields(line)
	if len(fields) < 4 {
		if s.haveRead {
			return nil
		}
		return fmt.Errorf("parsing imu line %q: %w", strings.TrimSpace(line), ErrUnavailable)
	}

	values := make([]float64, 4)
	for i := range values {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			if s.haveRead {
				return nil
			}
			return fmt.Errorf("parsing imu field %q: %w", fields[i], ErrUnavailable)
		}
		values[i] = v
	}

	mx, my, temp := values[0], values[1], values[3]
	s.lastHeading = math.Atan2(my, mx) * 180 / math.Pi
	s.lastTemp = temp
	s.haveRead = true
	return nil
}

// Close releases the serial device.
func (s *SerialIMU) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}
