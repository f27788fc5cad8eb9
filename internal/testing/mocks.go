package testing

import (
	"errors"
	"sync"
	"time"

	"github.com/Alia5/padbridge/device/switchpad"
)

// Responder returns the bytes a scripted bridge queues after a write.
type Responder func(written []byte) []byte

// ScriptedChannel is an in-memory bridge.Channel. Every Write is recorded and
// passed to the responder; its reply is queued for later reads. A read on an
// empty queue returns 0, nil like a serial read timeout, without waiting.
type ScriptedChannel struct {
	mu          sync.Mutex
	respond     Responder
	pending     []byte
	writes      [][]byte
	resets      int
	closed      bool
	readTimeout time.Duration

	WriteErr error
	ReadErr  error
}

var ErrChannelClosed = errors.New("scripted channel closed")

func NewScriptedChannel(r Responder) *ScriptedChannel {
	return &ScriptedChannel{respond: r}
}

// Queue appends bytes to the read queue.
func (c *ScriptedChannel) Queue(b ...byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, b...)
}

func (c *ScriptedChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrChannelClosed
	}
	if c.WriteErr != nil {
		return 0, c.WriteErr
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	if c.respond != nil {
		c.pending = append(c.pending, c.respond(p)...)
	}
	return len(p), nil
}

func (c *ScriptedChannel) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrChannelClosed
	}
	if c.ReadErr != nil {
		return 0, c.ReadErr
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *ScriptedChannel) ResetInputBuffer() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	c.resets++
	return nil
}

func (c *ScriptedChannel) ResetOutputBuffer() error { return nil }

func (c *ScriptedChannel) SetReadTimeout(t time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readTimeout = t
	return nil
}

func (c *ScriptedChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	c.closed = true
	return nil
}

// Writes returns a copy of every write so far.
func (c *ScriptedChannel) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// Packets returns the writes that are input packets, in order.
func (c *ScriptedChannel) Packets() [][]byte {
	var out [][]byte
	for _, w := range c.Writes() {
		if len(w) == switchpad.PacketSize {
			out = append(out, w)
		}
	}
	return out
}

func (c *ScriptedChannel) InputResets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

func (c *ScriptedChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ByteReplies answers single-byte writes from the table and acknowledges
// every input packet with 0x90.
func ByteReplies(table map[byte]byte) Responder {
	return func(p []byte) []byte {
		if len(p) == switchpad.PacketSize {
			return []byte{0x90}
		}
		if len(p) != 1 {
			return nil
		}
		if r, ok := table[p[0]]; ok {
			return []byte{r}
		}
		return nil
	}
}

// VanillaBridge behaves like firmware speaking the Vanilla handshake.
func VanillaBridge() Responder {
	return ByteReplies(map[byte]byte{0xFF: 0xFF, 0x33: 0xCC, 0xCC: 0x33})
}

// ChocolateBridge behaves like firmware speaking the Chocolate handshake and
// reporting controllerType on the last step.
func ChocolateBridge(controllerType byte) Responder {
	return ByteReplies(map[byte]byte{0xFF: 0xFF, 0x44: 0xEE, 0xEE: controllerType})
}

// RecordingBridge collects what a relay forwards to the bridge.
type RecordingBridge struct {
	mu      sync.Mutex
	states  []switchpad.InputState
	texts   []string
	SendErr error
}

func (b *RecordingBridge) Send(s switchpad.InputState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SendErr != nil {
		return b.SendErr
	}
	b.states = append(b.states, s)
	return nil
}

func (b *RecordingBridge) WriteDisplay(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.texts = append(b.texts, text)
	return nil
}

func (b *RecordingBridge) States() []switchpad.InputState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]switchpad.InputState(nil), b.states...)
}

func (b *RecordingBridge) Texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.texts...)
}
