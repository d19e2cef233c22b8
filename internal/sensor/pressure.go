package sensor

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const sensorReadTimeout = 250 * time.Millisecond

// SerialPressureSensor reads pressure lines from the depth sensor bridge.
// The firmware streams one pressure value in mbar per line.
type SerialPressureSensor struct {
	mu     sync.Mutex
	port   io.Closer
	reader *bufio.Reader

	lastMbar float64
	haveRead bool
}

// OpenPressure tries the candidate device paths in order and returns a
// sensor on the first that opens. Failures per path are logged, not fatal.
func OpenPressure(logger *slog.Logger, baudRate int, paths ...string) (*SerialPressureSensor, error) {
	port, err := openSensorPort(logger, "pressure", baudRate, paths)
	if err != nil {
		return nil, err
	}
	return &SerialPressureSensor{port: port, reader: bufio.NewReader(port)}, nil
}

// Pressure implements PressureSensor. A read timeout falls back to the most
// recent good reading; ErrUnavailable is returned only before the first
// successful read.
func (s *SerialPressureSensor) Pressure() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := s.reader.ReadString('\n')
	if err != nil || strings.TrimSpace(line) == "" {
		if s.haveRead {
			return s.lastMbar, nil
		}
		return 0, fmt.Errorf("reading pressure: %w", ErrUnavailable)
	}

	mbar, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		if s.haveRead {
			return s.lastMbar, nil
		}
		return 0, fmt.Errorf("parsing pressure %q: %w", strings.TrimSpace(line), ErrUnavailable)
	}

	s.lastMbar = mbar
	s.haveRead = true
	return mbar, nil
}

// Close releases the serial device.
func (s *SerialPressureSensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}

func openSensorPort(logger *slog.Logger, name string, baudRate int, paths []string) (serial.Port, error) {
	for _, path := range paths {
		port, err := serial.Open(path, &serial.Mode{BaudRate: baudRate})
		if err != nil {
			logger.Warn("cannot open sensor device, trying next path",
				slog.String("sensor", name), slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		if err := port.SetReadTimeout(sensorReadTimeout); err != nil {
			_ = port.Close()
			logger.Warn("cannot configure sensor device",
				slog.String("sensor", name), slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}

		logger.Info("sensor device has been found",
			slog.String("sensor", name), slog.String("path", path))
		return port, nil
	}

	return nil, fmt.Errorf("%s sensor: %w", name, ErrUnavailable)
}
