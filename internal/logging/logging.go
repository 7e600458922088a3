package logging

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

const serviceName = "doctor-appointment-backend"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the process logger. When logstashAddr is set every line is also
// shipped as newline-delimited JSON over TCP through an async writer; the
// returned closer flushes and closes it.
func New(level, logstashAddr string) (zerolog.Logger, io.Closer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if logstashAddr != "" {
		shipper := NewAsyncWriter(NewLogstashWriter(logstashAddr))
		out = zerolog.MultiLevelWriter(os.Stdout, shipper)
		closer = shipper
	}

	logger := zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
	return logger, closer
}

// NewAsyncWriter puts a ring buffer in front of w. Writes never block the
// caller; lines are dropped when w falls behind.
func NewAsyncWriter(w io.Writer) diode.Writer {
	return diode.NewWriter(w, 1000, 10*time.Millisecond, func(missed int) {
		fmt.Fprintf(os.Stderr, "logging: dropped %d messages\n", missed)
	})
}

// LogstashWriter keeps one TCP connection open and redials after a failed
// write. A line that fails after the redial is dropped.
type LogstashWriter struct {
	addr    string
	timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

func NewLogstashWriter(addr string) *LogstashWriter {
	return &LogstashWriter{addr: addr, timeout: 2 * time.Second}
}

func (w *LogstashWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if w.conn == nil {
			conn, err := net.DialTimeout("tcp", w.addr, w.timeout)
			if err != nil {
				return 0, err
			}
			w.conn = conn
		}
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
		n, err := w.conn.Write(p)
		if err == nil {
			return n, nil
		}
		w.conn.Close()
		w.conn = nil
	}
	return 0, io.ErrClosedPipe
}

func (w *LogstashWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}
