package monitor

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/albenik/go-serial/v2"
)

// Logger is the subset of log.Logger used for console output. The monitor
// writes status messages and received lines through it so tests can capture
// the output.
type Logger interface {
	Println(v ...interface{})
	Printf(format string, v ...interface{})
}

// Port is the subset of serial.Port the monitor needs.
type Port interface {
	ReadyToRead() (uint32, error)
	Read(p []byte) (int, error)
	Close() error
}

type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration // bounds a single blocking read
	Duration    time.Duration // total monitoring time
	Logger      Logger        // defaults to plain stdout
}

// Monitor owns a single open serial port for its whole lifetime. It is not
// safe for concurrent use; Run and Close are expected to be called from the
// same goroutine that called Open (Close may also run from a defer).
type Monitor struct {
	cfg      Config
	port     Port
	log      Logger
	handlers []LineHandler

	buf     []byte
	pending []byte

	closeOnce sync.Once
	closeErr  error
}

// LineHandler receives each line after it has been printed, in receive order.
type LineHandler interface {
	HandleLine(Line)
}

// Open opens the serial device and prints the connect banner. On failure the
// port was never opened, so the caller must not (and cannot) call Close.
func Open(cfg Config) (*Monitor, error) {
	port, err := serial.Open(
		cfg.Device,
		serial.WithBaudrate(cfg.Baud),
		serial.WithReadTimeout(int(cfg.ReadTimeout.Milliseconds())),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	return newMonitor(cfg, port), nil
}

func newMonitor(cfg Config, port Port) *Monitor {
	lg := cfg.Logger
	if lg == nil {
		lg = log.New(os.Stdout, "", 0)
	}
	m := &Monitor{
		cfg:  cfg,
		port: port,
		log:  lg,
		buf:  make([]byte, 256),
	}
	m.log.Printf("Connected to %s at %d baud\n", cfg.Device, cfg.Baud)
	m.log.Println("Monitoring serial output (Ctrl+C to stop)...")
	m.log.Println(strings.Repeat("-", 50))
	return m
}

// AddHandler registers a handler for received lines. Must be called before Run.
func (m *Monitor) AddHandler(h LineHandler) {
	m.handlers = append(m.handlers, h)
}

// Run polls the port until the configured duration has elapsed or ctx is
// cancelled. Cancellation is a normal stop, not an error. Lines are decoded
// and printed one at a time, in the order received; a line that is not valid
// UTF-8 is printed as tagged raw bytes instead.
func (m *Monitor) Run(ctx context.Context) error {
	start := time.Now()
	for time.Since(start) < m.cfg.Duration {
		select {
		case <-ctx.Done():
			m.log.Println("\nStopped by user")
			return nil
		default:
		}

		n, err := m.port.ReadyToRead()
		if err != nil {
			return fmt.Errorf("poll %s: %w", m.cfg.Device, err)
		}
		if n == 0 && len(m.pending) == 0 {
			continue
		}

		raw, err := m.readLine()
		if err != nil {
			return fmt.Errorf("read %s: %w", m.cfg.Device, err)
		}
		if len(raw) == 0 {
			continue
		}
		m.emit(DecodeLine(raw))
	}
	return nil
}

// readLine returns one line: bytes up to and including a newline, or whatever
// accumulated before a read timed out with nothing more to give. Bytes read
// past the newline are kept for the next call.
func (m *Monitor) readLine() ([]byte, error) {
	for {
		if i := bytes.IndexByte(m.pending, '\n'); i >= 0 {
			line := m.pending[:i+1]
			m.pending = append([]byte(nil), m.pending[i+1:]...)
			return line, nil
		}

		n, err := m.port.Read(m.buf)
		if n > 0 {
			m.pending = append(m.pending, m.buf[:n]...)
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Read timeout expired; hand back the partial line, if any.
			line := m.pending
			m.pending = nil
			return line, nil
		}
	}
}

func (m *Monitor) emit(l Line) {
	if l.Valid {
		m.log.Println(l.Text)
	} else {
		m.log.Printf("Raw bytes: %q\n", l.Raw)
	}
	for _, h := range m.handlers {
		h.HandleLine(l)
	}
}

// Close releases the port. Safe to call more than once; only the first call
// closes, and closure is confirmed on the console.
func (m *Monitor) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.port.Close()
		if m.closeErr == nil {
			m.log.Println("Serial port closed")
		}
	})
	return m.closeErr
}
