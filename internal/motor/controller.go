package motor

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"
)

// SerialController drives the four-channel ESC bridge over a serial line.
// The firmware accepts one whitespace-separated speed line per update.
type SerialController struct {
	mu   sync.Mutex
	port io.WriteCloser
}

// OpenSerialController opens the ESC bridge on the given device path.
func OpenSerialController(path string, baudRate int) (*SerialController, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("motor: opening controller on %s: %w", path, err)
	}
	return &SerialController{port: port}, nil
}

// UpdateSpeeds implements Controller.
func (c *SerialController) UpdateSpeeds(s Speeds) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := fmt.Sprintf("m %d %d %d %d\n", s[Forward], s[Turn], s[Front], s[Back])
	if _, err := c.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("motor: writing speeds: %w", err)
	}
	return nil
}

// Close releases the serial device.
func (c *SerialController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port.Close()
}

// LogController is the fallback driver used when no motor hardware is
// attached. It records applied speeds to the log only.
type LogController struct {
	logger *slog.Logger
}

// NewLogController creates a logging-only motor driver.
func NewLogController(logger *slog.Logger) *LogController {
	return &LogController{logger: logger.With(slog.String("component", "motors"))}
}

// UpdateSpeeds implements Controller.
func (c *LogController) UpdateSpeeds(s Speeds) error {
	c.logger.Info("motor speeds applied",
		slog.Int("forward", s[Forward]), slog.Int("turn", s[Turn]),
		slog.Int("front", s[Front]), slog.Int("back", s[Back]))
	return nil
}
