package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roman-kulish/spectrum-monitor/internal/acquire"
	"github.com/roman-kulish/spectrum-monitor/internal/device"
	"github.com/roman-kulish/spectrum-monitor/internal/record"
	"github.com/roman-kulish/spectrum-monitor/internal/serial"
	"github.com/roman-kulish/spectrum-monitor/internal/sweep"
)

const statusLogInterval = time.Minute

// Run wires the serial link, analyzer, acquisition loop and recorder
// together and runs until the context is cancelled or a configured
// recording finishes.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	axis, err := sweep.Axis(config.Sweep.StartFreq, config.Sweep.StopFreq, config.Sweep.Points)
	if err != nil {
		return fmt.Errorf("building frequency axis: %w", err)
	}

	codec, err := sweep.NewCodec(axis, sweep.WithMagnitudeBounds(config.Sweep.MinDB, config.Sweep.MaxDB))
	if err != nil {
		return fmt.Errorf("creating sweep codec: %w", err)
	}

	link, err := serial.Open(serial.Config{
		Port:        config.Serial.Port,
		BaudRate:    config.Serial.BaudRate,
		ReadTimeout: config.Serial.Timeout(),
	})
	if err != nil {
		return fmt.Errorf("connecting to device: %w", err)
	}

	analyzer, err := device.New(link, codec, device.WithLogger(logger))
	if err != nil {
		_ = link.Close()
		return fmt.Errorf("creating analyzer: %w", err)
	}
	defer analyzer.Close()

	if config.Sweep.ProgramSpan {
		if err := analyzer.SetSpan(int64(config.Sweep.StartFreq), int64(config.Sweep.StopFreq)); err != nil {
			return fmt.Errorf("programming device span: %w", err)
		}
	}
	if config.Sweep.UseDeviceAxis {
		deviceAxis, err := analyzer.AdoptDeviceAxis()
		if err != nil {
			return fmt.Errorf("adopting device frequency axis: %w", err)
		}
		axis = deviceAxis
		logger.Info("adopted device frequency axis",
			slog.Float64("startFreq", axis[0]),
			slog.Float64("stopFreq", axis[len(axis)-1]),
			slog.Int("points", len(axis)))
	}

	var loop *acquire.Loop
	recorder, err := record.NewRecorder(config.Storage, axis,
		record.WithLogger(logger),
		record.WithHeatmapRefresh(config.Recording.Refresh()),
		record.WithHeatmapMaxRows(config.Recording.HeatmapMaxRows),
		record.WithPauseRequest(func() {
			if loop != nil {
				loop.Pause()
			}
		}))
	if err != nil {
		return fmt.Errorf("creating recorder: %w", err)
	}
	defer recorder.Close()

	loop, err = acquire.New(analyzer, config.Acquisition.Interval(),
		acquire.WithSink(recorder),
		acquire.WithLogger(logger),
		acquire.WithFailureThreshold(config.Acquisition.FailureThreshold))
	if err != nil {
		return fmt.Errorf("creating acquisition loop: %w", err)
	}
	defer loop.Close()

	loop.Start()
	logger.Info("acquisition started",
		slog.String("port", config.Serial.Port),
		slog.Duration("pollInterval", loop.Interval()),
		slog.Float64("startFreq", axis[0]),
		slog.Float64("stopFreq", axis[len(axis)-1]),
		slog.Int("points", len(axis)))

	go logStatus(ctx, loop, recorder, logger)

	if !config.Recording.Enabled {
		<-ctx.Done()
		return nil
	}

	sess, err := recorder.Start(config.Recording.Limit())
	if err != nil {
		return fmt.Errorf("starting recording: %w", err)
	}

	select {
	case <-ctx.Done():
		recorder.Stop()
		return nil
	case status := <-sess.Done():
		if status.Err != nil {
			return fmt.Errorf("recording session: %w", status.Err)
		}
		return nil
	}
}

// logStatus periodically reports the live acquisition state so a headless
// deployment is observable from the logs alone.
func logStatus(ctx context.Context, loop *acquire.Loop, recorder *record.Recorder, logger *slog.Logger) {
	ticker := time.NewTicker(statusLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			attrs := []any{
				slog.String("status", loop.Status().String()),
				slog.Uint64("tickErrors", loop.ErrorCount()),
			}
			if s, ok := loop.Latest(); ok {
				attrs = append(attrs, slog.Int("points", s.Points()))
			}
			if st := recorder.Status(); st.State == record.StateActive {
				attrs = append(attrs,
					slog.String("session", st.ID),
					slog.Int64("samples", st.SamplesWritten),
					slog.Duration("elapsed", st.Elapsed.Round(time.Second)))
			}
			logger.Info("acquisition status", attrs...)
		}
	}
}
