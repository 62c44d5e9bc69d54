package app

import (
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/spectrum-monitor/internal/record"
	"github.com/roman-kulish/spectrum-monitor/internal/render"
	"github.com/roman-kulish/spectrum-monitor/internal/storage"
)

const jpegQuality = 98

// Run reads a recorded session file and renders it into a heatmap image.
func Run(config *Config, logger *slog.Logger) error {
	axis, records, err := readSession(config.SessionFile)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("session file %q contains no records", config.SessionFile)
	}

	logger.Info("loaded session",
		slog.String("source", config.SessionFile),
		slog.String("sweeps", humanize.Comma(int64(len(records)))),
		slog.Int("points", len(axis)),
		slog.Duration("span", records[len(records)-1].Elapsed.Round(time.Second)))

	h := &record.Heatmap{
		Frequencies: axis,
		Elapsed:     make([]time.Duration, len(records)),
		Rows:        make([][]float64, len(records)),
	}
	for i, rec := range records {
		h.Elapsed[i] = rec.Elapsed
		h.Rows[i] = rec.Sweep.Magnitudes
	}

	renderer, err := render.NewRenderer(render.Config{
		Theme:      config.Theme,
		PlotWidth:  config.PlotWidth,
		PlotHeight: config.PlotHeight,
	})
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	img, err := renderer.Render(h)
	if err != nil {
		return fmt.Errorf("rendering heatmap: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}

	switch config.Format {
	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(out, img)
	}
	if cErr := out.Close(); cErr != nil && err == nil {
		err = cErr
	}
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}

	attrs := []any{
		slog.String("destination", config.OutputFile),
		slog.String("format", string(config.Format)),
		slog.String("theme", string(config.Theme)),
	}
	if stat, err := os.Stat(config.OutputFile); err == nil {
		attrs = append(attrs, slog.String("size", humanize.Bytes(uint64(stat.Size()))))
	}
	logger.Info("heatmap written", attrs...)

	return nil
}

// readSession dispatches on the session file extension, matching the
// formats the recording store writes.
func readSession(path string) ([]float64, []*storage.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite":
		return storage.ReadSQLite(path)
	case ".csv":
		return storage.ReadCSV(path)
	default:
		return nil, nil, fmt.Errorf("unsupported session file %q: expected .csv or .sqlite", path)
	}
}
