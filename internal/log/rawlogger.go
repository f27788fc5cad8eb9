package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// Direction of bytes on the bridge wire.
type Direction bool

const (
	HostToBridge Direction = true
	BridgeToHost Direction = false
)

func (d Direction) String() string {
	if d == HostToBridge {
		return "H->B"
	}
	return "B->H"
}

// RawLogger records every chunk that crosses the serial wire.
type RawLogger interface {
	Log(dir Direction, data []byte)
}

type rawLogger struct {
	w   io.Writer
	now func() time.Time
	mu  sync.Mutex
}

// NewRaw creates a RawLogger writing to w. A nil writer yields a logger that
// drops everything.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w, now: time.Now}
}

// Log writes one line per chunk: timestamp, direction, length and hex bytes.
func (r *rawLogger) Log(dir Direction, data []byte) {
	if r.w == nil || len(data) == 0 {
		return
	}

	var hexbuf bytes.Buffer
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hexbuf.WriteByte(' ')
		}
		hexbuf.WriteByte(hexdigits[b>>4])
		hexbuf.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s %d bytes: %s\n",
		r.now().Format("2006/01/02 15:04:05.000"),
		dir,
		len(data),
		hexbuf.String())

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}
