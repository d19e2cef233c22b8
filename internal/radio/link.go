// Package radio manages the half-duplex serial link to the surface base
// station. The link is the only hardware resource shared between the
// communication goroutines, so every operation serializes through an
// internal lock.
package radio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/DaPhysikist/Nautilus/internal/protocol"
)

// ErrLinkClosed is returned by I/O operations while no device is open.
var ErrLinkClosed = errors.New("radio: link closed")

// Port is the slice of the serial port surface the link relies on.
// go.bug.st/serial.Port satisfies it.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// Config holds the link parameters. Paths is an ordered list of candidate
// device paths; the first one that opens wins.
type Config struct {
	Paths       []string
	BaudRate    int
	ReadTimeout time.Duration
}

// WithLogger sets the logger for the link.
func WithLogger(logger *slog.Logger) func(*Link) {
	return func(l *Link) {
		l.logger = logger.With(slog.String("component", "radio"))
	}
}

// Link is a lockable wrapper over the radio serial device. A Link value is
// created once and survives device loss: any I/O error closes the underlying
// port and a later EnsureOpen re-runs discovery.
type Link struct {
	cfg Config

	mu   sync.Mutex
	port Port

	openPort func(path string) (Port, error)
	logger   *slog.Logger
}

// New creates a closed link. Call EnsureOpen to attach a device.
func New(cfg Config, options ...func(*Link)) *Link {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 100 * time.Millisecond
	}

	l := Link{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	l.openPort = l.openSerial

	for _, option := range options {
		option(&l)
	}

	return &l
}

func (l *Link) openSerial(path string) (Port, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: l.cfg.BaudRate})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(l.cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, err
	}
	return port, nil
}

// EnsureOpen attaches the first candidate device that opens successfully.
// It is a no-op while a device is already open. Per-path failures are logged
// and not fatal; an error is returned only when every candidate fails.
func (l *Link) EnsureOpen() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port != nil {
		return nil
	}

	for _, path := range l.cfg.Paths {
		port, err := l.openPort(path)
		if err != nil {
			l.logger.Warn("cannot open radio device, trying next path",
				slog.String("path", path), slog.String("error", err.Error()))
			continue
		}

		l.logger.Info("radio device has been found", slog.String("path", path))
		l.port = port
		return nil
	}

	return fmt.Errorf("radio: no device found on %d candidate paths", len(l.cfg.Paths))
}

// IsOpen reports whether a device is currently attached.
func (l *Link) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != nil
}

// WriteFrame writes one frame. On an I/O error the device is closed and the
// link must be re-opened through EnsureOpen.
func (l *Link) WriteFrame(f protocol.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return ErrLinkClosed
	}

	if _, err := l.port.Write(f.Bytes()); err != nil {
		l.closeLocked()
		return fmt.Errorf("radio: writing frame: %w", err)
	}
	return nil
}

// ReadFrame reads one full frame, waiting at most the configured read
// timeout. It reports ok=false when no full frame arrived in time; a partial
// frame is discarded. On an I/O error the device is closed.
func (l *Link) ReadFrame() (f protocol.Frame, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return protocol.Frame{}, false, ErrLinkClosed
	}

	var buf [protocol.FrameLength]byte
	total := 0
	for total < protocol.FrameLength {
		n, err := l.port.Read(buf[total:])
		if err != nil {
			l.closeLocked()
			return protocol.Frame{}, false, fmt.Errorf("radio: reading frame: %w", err)
		}
		if n == 0 { // read timeout
			return protocol.Frame{}, false, nil
		}
		total += n
	}

	f, _ = protocol.FrameFromBytes(buf[:])
	return f, true, nil
}

// Flush discards buffered input and output on the device.
func (l *Link) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return ErrLinkClosed
	}

	if err := l.port.ResetInputBuffer(); err != nil {
		l.closeLocked()
		return fmt.Errorf("radio: flushing input: %w", err)
	}
	if err := l.port.ResetOutputBuffer(); err != nil {
		l.closeLocked()
		return fmt.Errorf("radio: flushing output: %w", err)
	}
	return nil
}

// Close detaches the device. Safe to call on a closed link.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
	return nil
}

func (l *Link) closeLocked() {
	if l.port == nil {
		return
	}
	_ = l.port.Close()
	l.port = nil
	l.logger.Info("radio device detached")
}
