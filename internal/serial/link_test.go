package serial

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

// fakePort is an in-memory transport. Reads drain the queued response in
// chunks; an exhausted queue behaves like an idle port (zero-byte reads).
type fakePort struct {
	response  bytes.Buffer
	written   bytes.Buffer
	chunkSize int
	closed    bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.response.Len() == 0 {
		return 0, nil // idle port, inter-character timeout elapsed
	}
	n := len(b)
	if p.chunkSize > 0 && n > p.chunkSize {
		n = p.chunkSize
	}
	return p.response.Read(b[:n])
}

func (p *fakePort) Write(b []byte) (int, error) {
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func newTestLink(port io.ReadWriteCloser) *Link {
	return NewLink(port, Config{Port: "test", BaudRate: 115200})
}

func TestLink_SendCommand(t *testing.T) {
	port := &fakePort{}
	link := newTestLink(port)

	if err := link.SendCommand("data 0"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if got := port.written.String(); got != "data 0\r" {
		t.Errorf("Expected %q on the wire, got %q", "data 0\r", got)
	}
}

func TestLink_ReadFrame(t *testing.T) {
	port := &fakePort{chunkSize: 7} // force multiple reads per frame
	port.response.WriteString("data 0\r\n-84.5\r\n-79.0\r\nch>")
	link := newTestLink(port)

	frame, err := link.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	want := "data 0\n-84.5\n-79.0\n"
	if string(frame) != want {
		t.Errorf("Expected frame %q, got %q", want, frame)
	}
}

func TestLink_ReadFrame_RetainsBytesPastPrompt(t *testing.T) {
	port := &fakePort{}
	// Two complete frames arrive in one burst.
	port.response.WriteString("first\r\nch>second\r\nch>")
	link := newTestLink(port)

	frame, err := link.ReadFrame()
	if err != nil {
		t.Fatalf("First ReadFrame failed: %v", err)
	}
	if string(frame) != "first\n" {
		t.Errorf("Expected first frame %q, got %q", "first\n", frame)
	}

	frame, err = link.ReadFrame()
	if err != nil {
		t.Fatalf("Second ReadFrame failed: %v", err)
	}
	if string(frame) != "second\n" {
		t.Errorf("Expected second frame %q, got %q", "second\n", frame)
	}
}

func TestLink_ReadFrame_Timeout(t *testing.T) {
	port := &fakePort{}
	port.response.WriteString("partial response without a prompt")
	link := NewLink(port, Config{Port: "test", ReadTimeout: 50 * time.Millisecond})

	// Advance a fake clock instead of sleeping through the deadline.
	start := time.Now()
	calls := 0
	link.now = func() time.Time {
		calls++
		return start.Add(time.Duration(calls) * 20 * time.Millisecond)
	}

	_, err := link.ReadFrame()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
}

func TestLink_ReadFrame_OversizeFrame(t *testing.T) {
	port := &fakePort{}
	port.response.Write(bytes.Repeat([]byte{'x'}, 256))
	link := NewLink(port, Config{Port: "test", MaxFrameSize: 64})

	_, err := link.ReadFrame()
	if !errors.Is(err, ErrFraming) {
		t.Fatalf("Expected ErrFraming, got %v", err)
	}
}

func TestLink_ReadFrame_PortError(t *testing.T) {
	port := &fakePort{}
	link := newTestLink(port)

	// A port read error other than EOF must surface immediately.
	link.port = readErrPort{}
	if _, err := link.ReadFrame(); err == nil {
		t.Fatal("Expected error from failing port")
	}
}

type readErrPort struct{}

func (readErrPort) Read([]byte) (int, error)    { return 0, errors.New("device unplugged") }
func (readErrPort) Write(b []byte) (int, error) { return len(b), nil }
func (readErrPort) Close() error                { return nil }

func TestLink_Claim(t *testing.T) {
	link := newTestLink(&fakePort{})

	if err := link.Claim(); err != nil {
		t.Fatalf("First claim failed: %v", err)
	}
	if err := link.Claim(); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("Expected ErrDeviceBusy on second claim, got %v", err)
	}

	link.Release()
	if err := link.Claim(); err != nil {
		t.Errorf("Claim after release failed: %v", err)
	}
}

func TestLink_Close(t *testing.T) {
	port := &fakePort{}
	link := newTestLink(port)

	if err := link.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !port.closed {
		t.Error("Expected underlying port to be closed")
	}
}
