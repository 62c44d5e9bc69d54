// Package serial owns the physical connection to the spectrum analyzer.
// It sends commands, reads prompt-delimited response frames with bounded
// timeouts, and enforces exclusive ownership of the port.
package serial

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	goserial "github.com/jacobsa/go-serial/serial"
)

const (
	// DefaultCommandTerminator is appended to every command sent to the
	// device.
	DefaultCommandTerminator = "\r"

	// DefaultFramePrompt marks the end of a response frame. The analyzer
	// prints its shell prompt after every completed response.
	DefaultFramePrompt = "ch>"

	// DefaultReadTimeout bounds how long ReadFrame waits for a complete
	// frame before failing.
	DefaultReadTimeout = 2 * time.Second

	// DefaultMaxFrameSize bounds the size of a single response frame. A
	// response growing past this limit without a prompt is a framing error.
	DefaultMaxFrameSize = 1 << 20

	// interCharacterTimeout is how long a single port read blocks waiting
	// for at least one byte. Must be >= 100ms for the underlying driver.
	interCharacterTimeout = 100 * time.Millisecond

	readChunkSize = 512
)

var (
	// ErrTimeout is returned when a complete frame does not arrive within
	// the configured read timeout.
	ErrTimeout = errors.New("frame read timed out")

	// ErrFraming is returned when a response frame is malformed, for
	// example when it grows past the maximum frame size without a prompt.
	ErrFraming = errors.New("malformed frame")

	// ErrDeviceBusy is returned when the port is already claimed by
	// another owner. Claiming never queues.
	ErrDeviceBusy = errors.New("device is busy")
)

// Config holds the serial connection parameters. All values are supplied
// explicitly by the caller; there are no ambient defaults beyond the
// zero-value substitutions documented on each field.
type Config struct {
	Port              string        // Port identifier, e.g. /dev/ttyACM0 or COM3
	BaudRate          uint          // Baud rate, e.g. 115200
	ReadTimeout       time.Duration // Per-frame read deadline (DefaultReadTimeout if zero)
	CommandTerminator string        // Command terminator (DefaultCommandTerminator if empty)
	FramePrompt       string        // Frame end marker (DefaultFramePrompt if empty)
	MaxFrameSize      int           // Frame size bound (DefaultMaxFrameSize if zero)
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = DefaultReadTimeout
	}
	if out.CommandTerminator == "" {
		out.CommandTerminator = DefaultCommandTerminator
	}
	if out.FramePrompt == "" {
		out.FramePrompt = DefaultFramePrompt
	}
	if out.MaxFrameSize <= 0 {
		out.MaxFrameSize = DefaultMaxFrameSize
	}
	return out
}

// Link is a claimed, framed command/response channel over a serial port.
// Link is not safe for concurrent use; the owning acquisition loop is the
// only writer and reader.
type Link struct {
	port io.ReadWriteCloser
	cfg  Config

	claimed atomic.Bool
	pending bytes.Buffer // bytes received past the previous frame boundary
	rbuf    []byte

	now func() time.Time
}

// Open opens the configured serial port and returns a Link around it.
// The returned error wraps the underlying OS error when the port is
// unavailable or permission is denied.
func Open(cfg Config) (*Link, error) {
	port, err := goserial.Open(goserial.OpenOptions{
		PortName:              cfg.Port,
		BaudRate:              cfg.BaudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            goserial.PARITY_NONE,
		InterCharacterTimeout: uint(interCharacterTimeout / time.Millisecond),
		MinimumReadSize:       0,
	})
	if err != nil {
		return nil, fmt.Errorf("opening port %s: %w", cfg.Port, err)
	}
	return NewLink(port, cfg), nil
}

// NewLink wraps an already-open port. It exists so tests can substitute an
// in-memory transport for the physical device.
func NewLink(port io.ReadWriteCloser, cfg Config) *Link {
	return &Link{
		port: port,
		cfg:  cfg.withDefaults(),
		rbuf: make([]byte, readChunkSize),
		now:  time.Now,
	}
}

// Claim marks the link as exclusively owned. A second Claim before Release
// fails immediately with ErrDeviceBusy.
func (l *Link) Claim() error {
	if !l.claimed.CompareAndSwap(false, true) {
		return ErrDeviceBusy
	}
	return nil
}

// Release returns the link to the unclaimed state.
func (l *Link) Release() {
	l.claimed.Store(false)
}

// SendCommand writes a command followed by the configured terminator.
func (l *Link) SendCommand(cmd string) error {
	payload := []byte(cmd + l.cfg.CommandTerminator)
	n, err := l.port.Write(payload)
	if err != nil {
		return fmt.Errorf("writing command %q: %w", cmd, err)
	}
	if n != len(payload) {
		return fmt.Errorf("writing command %q: short write (%d of %d bytes)", cmd, n, len(payload))
	}
	return nil
}

// ReadFrame reads the response to exactly one command: all bytes up to the
// frame prompt, with carriage returns stripped. It fails with ErrTimeout
// if a complete frame does not arrive within the configured read timeout,
// and with ErrFraming if the response exceeds the maximum frame size.
// Bytes received past the prompt are retained for the next frame.
func (l *Link) ReadFrame() ([]byte, error) {
	deadline := l.now().Add(l.cfg.ReadTimeout)
	prompt := []byte(l.cfg.FramePrompt)

	var frame bytes.Buffer
	if l.pending.Len() > 0 {
		frame.Write(l.pending.Bytes())
		l.pending.Reset()
	}

	for {
		if idx := bytes.Index(frame.Bytes(), prompt); idx >= 0 {
			rest := frame.Bytes()[idx+len(prompt):]
			if len(rest) > 0 {
				l.pending.Write(rest)
			}
			return stripCR(frame.Bytes()[:idx]), nil
		}
		if frame.Len() > l.cfg.MaxFrameSize {
			return nil, fmt.Errorf("%w: frame exceeds %d bytes without prompt", ErrFraming, l.cfg.MaxFrameSize)
		}
		if l.now().After(deadline) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, l.cfg.ReadTimeout)
		}

		n, err := l.port.Read(l.rbuf)
		if n > 0 {
			frame.Write(l.rbuf[:n])
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading port: %w", err)
		}
		// Zero-byte read: the inter-character timeout elapsed with no
		// data. Loop and re-check the frame deadline.
	}
}

// Close releases the underlying port unconditionally. It is safe to call
// after a failed read or write; the device handle is never leaked.
func (l *Link) Close() error {
	if err := l.port.Close(); err != nil {
		return fmt.Errorf("closing port %s: %w", l.cfg.Port, err)
	}
	return nil
}

func stripCR(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != '\r' {
			out = append(out, c)
		}
	}
	return out
}
