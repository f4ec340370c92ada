// Package serialboard runs the controller against a board behind a serial
// bridge.
//
// The bridge firmware answers a read request with a snapshot of the board:
//
//	host:   r\n
//	device: <counter> <gpio> <keys> <switches>\n      (hex fields)
//
// and applies output changes without replying:
//
//	host:   w <gpio>\n
package serialboard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/san-kum/fanctl/internal/hw"
)

// ErrProtocol is wrapped by every malformed bridge reply.
var ErrProtocol = errors.New("serialboard: protocol error")

type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
	Pins        hw.PinMap
}

// Board is a board snapshot refreshed over the link. After the first
// failure every call is a no-op and Refresh keeps returning the error.
type Board struct {
	rw   io.ReadWriter
	r    *bufio.Reader
	pins hw.PinMap

	counter  uint32
	gpio     uint32
	keys     hw.Key
	switches uint16

	out     uint32
	outSent bool
	err     error
}

// Open opens the serial device and wraps it.
func Open(cfg Config) (*Board, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return New(port, cfg.Pins), nil
}

// New speaks the bridge protocol over rw.
func New(rw io.ReadWriter, pins hw.PinMap) *Board {
	return &Board{
		rw:   rw,
		r:    bufio.NewReader(rw),
		pins: pins,
		keys: hw.KeyNone,
	}
}

// Refresh fetches a new snapshot.
func (b *Board) Refresh() error {
	if b.err != nil {
		return b.err
	}
	if _, err := io.WriteString(b.rw, "r\n"); err != nil {
		return b.fail(fmt.Errorf("serialboard: request: %w", err))
	}
	line, err := b.r.ReadString('\n')
	if err != nil {
		return b.fail(fmt.Errorf("serialboard: reply: %w", err))
	}

	snap, err := parseSnapshot(line)
	if err != nil {
		return b.fail(err)
	}
	b.counter = snap.counter
	b.gpio = snap.gpio
	b.keys = snap.keys
	b.switches = snap.switches
	return nil
}

type snapshot struct {
	counter  uint32
	gpio     uint32
	keys     hw.Key
	switches uint16
}

func parseSnapshot(line string) (snapshot, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return snapshot{}, fmt.Errorf("%w: want 4 fields, got %q", ErrProtocol, strings.TrimSpace(line))
	}
	var v [4]uint64
	bits := [4]int{32, 32, 4, 10}
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 16, 64)
		if err != nil {
			return snapshot{}, fmt.Errorf("%w: field %d: %v", ErrProtocol, i+1, err)
		}
		if n >= 1<<bits[i] {
			return snapshot{}, fmt.Errorf("%w: field %d value %#x wider than %d bits", ErrProtocol, i+1, n, bits[i])
		}
		v[i] = n
	}
	return snapshot{
		counter:  uint32(v[0]),
		gpio:     uint32(v[1]),
		keys:     hw.Key(v[2]),
		switches: uint16(v[3]),
	}, nil
}

func (b *Board) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return b.err
}

func (b *Board) Counter() uint32 {
	return b.counter
}

// ReadPin returns the snapshot level, or the last written level for the
// fan pin.
func (b *Board) ReadPin(p hw.Pin) bool {
	if p == b.pins.Fan {
		return b.out&p.Mask() != 0
	}
	return b.gpio&p.Mask() != 0
}

// WritePin sends the output word when it changes.
func (b *Board) WritePin(p hw.Pin, high bool) {
	out := b.out
	if high {
		out |= p.Mask()
	} else {
		out &^= p.Mask()
	}
	if out == b.out && b.outSent {
		return
	}
	b.out = out
	if b.err != nil {
		return
	}
	if _, err := fmt.Fprintf(b.rw, "w %x\n", out); err != nil {
		b.fail(fmt.Errorf("serialboard: write: %w", err))
		return
	}
	b.outSent = true
}

func (b *Board) Keys() hw.Key {
	return b.keys
}

func (b *Board) Switches() uint16 {
	return b.switches
}

// Close stops the fan and closes the link when it is closable.
func (b *Board) Close() error {
	if b.err == nil {
		b.WritePin(b.pins.Fan, false)
	}
	if c, ok := b.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
