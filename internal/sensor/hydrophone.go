package sensor

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// Capture format of the hydrophone frontend.
	DefaultSampleRate = 62000
	DefaultChannels   = 2

	bytesPerSample = 2 // 16-bit PCM
	captureChunk   = 32 * 1024
)

// WithRecorderLogger sets the logger for the recorder.
func WithRecorderLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger.With(slog.String("component", "hydrophone"))
	}
}

// Recorder captures raw PCM from the hydrophone device and persists each
// clip as a WAV file named by its ISO-8601 capture time.
type Recorder struct {
	devicePath string
	dir        string
	sampleRate int
	channels   int

	now    func() time.Time
	logger *slog.Logger
}

// NewRecorder creates a recorder capturing from devicePath into dir.
func NewRecorder(devicePath, dir string, options ...func(*Recorder)) *Recorder {
	r := Recorder{
		devicePath: devicePath,
		dir:        dir,
		sampleRate: DefaultSampleRate,
		channels:   DefaultChannels,
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Record captures d worth of audio and returns the path of the saved WAV
// file. A missing device reports ErrUnavailable.
func (r *Recorder) Record(ctx context.Context, d time.Duration) (string, error) {
	dev, err := os.Open(r.devicePath)
	if err != nil {
		return "", fmt.Errorf("opening hydrophone %s: %w", r.devicePath, ErrUnavailable)
	}
	defer dev.Close()

	total := int(d.Seconds() * float64(r.sampleRate*r.channels*bytesPerSample))
	total -= total % (r.channels * bytesPerSample)

	name := r.now().UTC().Format(time.RFC3339) + ".wav"
	path := filepath.Join(r.dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating recording file: %w", err)
	}

	// An interrupted capture must not leave a file behind: its header
	// declares the full clip length, which readers would trust.
	if err := r.capture(ctx, dev, out, total); err != nil {
		out.Close()
		if rmErr := os.Remove(path); rmErr != nil {
			r.logger.Warn("removing partial recording",
				slog.String("path", path), slog.String("error", rmErr.Error()))
		}
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing recording: %w", err)
	}

	r.logger.Info("hydrophone recording saved",
		slog.String("path", path), slog.Duration("length", d))
	return path, nil
}

func (r *Recorder) capture(ctx context.Context, dev io.Reader, out io.Writer, total int) error {
	if err := writeWavHeader(out, total, r.sampleRate, r.channels); err != nil {
		return fmt.Errorf("writing wav header: %w", err)
	}

	buf := make([]byte, captureChunk)
	captured := 0
	for captured < total {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk := buf
		if rest := total - captured; rest < len(chunk) {
			chunk = chunk[:rest]
		}

		n, err := io.ReadFull(dev, chunk)
		if n > 0 {
			if _, werr := out.Write(chunk[:n]); werr != nil {
				return fmt.Errorf("writing recording: %w", werr)
			}
			captured += n
		}
		if err != nil {
			return fmt.Errorf("capturing audio: %w", err)
		}
	}
	return nil
}

// writeWavHeader emits a canonical 44-byte RIFF header for 16-bit PCM.
func writeWavHeader(w io.Writer, dataLen, sampleRate, channels int) error {
	var header [44]byte

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*channels*bytesPerSample))
	binary.LittleEndian.PutUint16(header[32:34], uint16(channels*bytesPerSample))
	binary.LittleEndian.PutUint16(header[34:36], bytesPerSample*8)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	_, err := w.Write(header[:])
	return err
}
