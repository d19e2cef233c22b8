package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/DaPhysikist/Nautilus/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	stat, err := os.Stat(config.DBPath)
	if err != nil {
		return fmt.Errorf("database file '%s' is not readable: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	return renderProfile(ctx, store, stat.Size(), config, logger)
}

func renderProfile(ctx context.Context, store storage.Store, dbSize int64, config *Config, logger *slog.Logger) error {
	session, err := store.Session(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("loading session %d: %w", config.SessionID, err)
	}

	rows, err := store.TelemetryBySession(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("loading telemetry: %w", err)
	}

	events, err := store.EventsBySession(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}

	profile := NewDiveProfile(session, rows, events)

	logger.Info("loaded dive session",
		slog.Group("stats",
			slog.String("vehicle", profile.Vehicle),
			slog.String("start", profile.TimestampStart.Local().Format(time.DateTime)),
			slog.String("duration", profile.Duration().Round(time.Second).String()),
			slog.String("maxDepth", fmt.Sprintf("%.1fm", profile.DepthMax)),
			slog.String("samples", humanize.Comma(int64(len(profile.Samples)))),
			slog.Int("events", len(profile.Markers)),
			slog.String("dbSize", humanize.Bytes(uint64(dbSize))),
		))

	if len(profile.Samples) == 0 {
		return fmt.Errorf("session %d has no telemetry to plot", config.SessionID)
	}

	renderer, err := NewProfileRenderer(RenderConfig{
		FontFile:    config.FontFile,
		DrawHeading: !config.NoHeading,
		DrawEvents:  !config.NoEvents,
	})
	if err != nil {
		return fmt.Errorf("creating profile renderer: %w", err)
	}

	logger.Info("rendering dive profile",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
		))

	img, err := renderer.Render(profile)
	if err != nil {
		return fmt.Errorf("rendering dive profile: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
