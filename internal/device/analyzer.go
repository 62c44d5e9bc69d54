// Package device implements the command vocabulary of a serial spectrum
// analyzer on top of a framed link. Command strings are device-specific
// configuration, not protocol: a different firmware only needs a different
// Commands value.
package device

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/roman-kulish/spectrum-monitor/internal/sweep"
)

// Commands is the device command vocabulary. Defaults target the tinySA
// family of analyzers.
type Commands struct {
	SweepData   string // Request the current sweep magnitudes
	Frequencies string // Request the sweep frequency list
	SweepStart  string // Set sweep start frequency, takes one %d in Hz
	SweepStop   string // Set sweep stop frequency, takes one %d in Hz
	Pause       string // Pause sweeping on the device
	Resume      string // Resume sweeping on the device
}

// DefaultCommands returns the tinySA command set.
func DefaultCommands() Commands {
	return Commands{
		SweepData:   "data 0",
		Frequencies: "frequencies",
		SweepStart:  "sweep start %d",
		SweepStop:   "sweep stop %d",
		Pause:       "pause",
		Resume:      "resume",
	}
}

// Link is the framed serial channel the analyzer talks over.
type Link interface {
	SendCommand(cmd string) error
	ReadFrame() ([]byte, error)
	Claim() error
	Release()
	Close() error
}

// WithCommands overrides the device command vocabulary.
func WithCommands(cmds Commands) func(*Analyzer) {
	return func(a *Analyzer) {
		a.cmds = cmds
	}
}

// WithLogger sets the logger for the analyzer.
func WithLogger(logger *slog.Logger) func(*Analyzer) {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// Analyzer drives a spectrum analyzer over a claimed link. The link is
// claimed at construction and released on Close, so at most one Analyzer
// owns the device at a time.
type Analyzer struct {
	link  Link
	codec *sweep.Codec
	cmds  Commands

	logger *slog.Logger
}

// New claims the link and returns an Analyzer over it. It fails with the
// link's busy error when the device is already owned.
func New(link Link, codec *sweep.Codec, options ...func(*Analyzer)) (*Analyzer, error) {
	if err := link.Claim(); err != nil {
		return nil, fmt.Errorf("claiming device: %w", err)
	}

	a := Analyzer{
		link:   link,
		codec:  codec,
		cmds:   DefaultCommands(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&a)
	}

	return &a, nil
}

// FetchSweep requests and decodes the current sweep.
func (a *Analyzer) FetchSweep() (*sweep.Sweep, error) {
	frame, err := a.exchange(a.cmds.SweepData)
	if err != nil {
		return nil, err
	}
	return a.codec.Decode(frame)
}

// FetchFrequencies requests the device frequency list and cross-checks it
// against the configured span.
func (a *Analyzer) FetchFrequencies() ([]float64, error) {
	frame, err := a.exchange(a.cmds.Frequencies)
	if err != nil {
		return nil, err
	}
	return a.codec.DecodeFrequencies(frame)
}

// AdoptDeviceAxis replaces the codec frequency axis with the list the
// device reports, removing any rounding drift between the configured span
// and the device's actual sweep grid. It returns the adopted axis.
func (a *Analyzer) AdoptDeviceAxis() ([]float64, error) {
	axis, err := a.FetchFrequencies()
	if err != nil {
		return nil, err
	}
	if err := a.codec.Rebind(axis); err != nil {
		return nil, fmt.Errorf("adopting device axis: %w", err)
	}

	a.logger.Debug("adopted device frequency axis",
		slog.Float64("startFreq", axis[0]),
		slog.Float64("stopFreq", axis[len(axis)-1]))
	return axis, nil
}

// SetSpan programs the sweep start and stop frequencies on the device.
func (a *Analyzer) SetSpan(startHz, stopHz int64) error {
	if _, err := a.exchange(fmt.Sprintf(a.cmds.SweepStart, startHz)); err != nil {
		return fmt.Errorf("setting sweep start: %w", err)
	}
	if _, err := a.exchange(fmt.Sprintf(a.cmds.SweepStop, stopHz)); err != nil {
		return fmt.Errorf("setting sweep stop: %w", err)
	}
	return nil
}

// Pause stops sweeping on the device.
func (a *Analyzer) Pause() error {
	_, err := a.exchange(a.cmds.Pause)
	return err
}

// Resume restarts sweeping on the device.
func (a *Analyzer) Resume() error {
	_, err := a.exchange(a.cmds.Resume)
	return err
}

// Close releases the device claim and the underlying port.
func (a *Analyzer) Close() error {
	defer a.link.Release()
	return a.link.Close()
}

// exchange performs one command/response round trip and strips the
// command echo the device mirrors back as the first line of the frame.
func (a *Analyzer) exchange(cmd string) ([]byte, error) {
	if err := a.link.SendCommand(cmd); err != nil {
		return nil, err
	}
	frame, err := a.link.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("reading %q response: %w", cmd, err)
	}
	return dropEcho(frame, cmd), nil
}

func dropEcho(frame []byte, cmd string) []byte {
	nl := bytes.IndexByte(frame, '\n')
	if nl < 0 {
		if bytes.Equal(bytes.TrimSpace(frame), []byte(cmd)) {
			return nil
		}
		return frame
	}
	if bytes.Equal(bytes.TrimSpace(frame[:nl]), []byte(cmd)) {
		return frame[nl+1:]
	}
	return frame
}
