package hardware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Serial defaults.
const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = 500 * time.Millisecond
)

var (
	// ErrDevice is returned when the microcontroller answers a command with ERR.
	ErrDevice = errors.New("hardware: device error")
	// ErrTimeout is returned when no complete reply arrives within the read timeout.
	ErrTimeout = errors.New("hardware: reply timeout")
)

// inputResetter is implemented by serial.Port.
type inputResetter interface {
	ResetInputBuffer() error
}

// Serial drives a microcontroller that owns the mux, ADC, relay and LED over a
// line protocol. Every command is one line and gets exactly one reply line:
//
//	M<ch>  select channel     -> OK
//	A      read ADC           -> <0..1023>
//	R1/R0  close/open relay   -> OK
//	R?     relay level        -> 1 | 0
//	L1/L0  LED on/off         -> OK
//
// A reply starting with ERR fails the command.
type Serial struct {
	mu       sync.Mutex
	conn     io.ReadWriteCloser
	pending  []byte
	buf      [64]byte
	channels int
	closed   bool
}

// OpenSerial opens the named port and wraps it.
func OpenSerial(name string, baudRate, channels int) (*Serial, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return NewSerial(port, channels), nil
}

// NewSerial speaks the protocol over conn.
func NewSerial(conn io.ReadWriteCloser, channels int) *Serial {
	return &Serial{conn: conn, channels: channels}
}

func (s *Serial) Channels() int { return s.channels }

func (s *Serial) SelectChannel(channel int) error {
	if err := checkChannel(channel, s.channels); err != nil {
		return err
	}
	return s.expectOK("M" + strconv.Itoa(channel))
}

func (s *Serial) ReadRaw() (int, error) {
	reply, err := s.command("A")
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(reply)
	if err != nil {
		return 0, fmt.Errorf("parse adc reply %q: %w", reply, err)
	}
	if v < 0 || v > AdcMax {
		return 0, fmt.Errorf("adc reply %d out of range", v)
	}
	return v, nil
}

func (s *Serial) SetRelay(closed bool) error {
	return s.expectOK("R" + bit(closed))
}

func (s *Serial) Relay() (bool, error) {
	reply, err := s.command("R?")
	if err != nil {
		return false, err
	}
	switch reply {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected relay reply %q", reply)
	}
}

func (s *Serial) SetLED(on bool) error {
	return s.expectOK("L" + bit(on))
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

func (s *Serial) expectOK(cmd string) error {
	reply, err := s.command(cmd)
	if err != nil {
		return err
	}
	if reply != "OK" {
		return fmt.Errorf("%s: unexpected reply %q", cmd, reply)
	}
	return nil
}

// command writes one line and reads one line back. The mutex keeps the LED
// goroutine from interleaving with the polling cycle on the wire. Input left
// over from an earlier command is discarded first so a late reply cannot be
// taken for this command's answer.
func (s *Serial) command(cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	s.pending = s.pending[:0]
	if r, ok := s.conn.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			return "", fmt.Errorf("reset input before %s: %w", cmd, err)
		}
	}
	if _, err := io.WriteString(s.conn, cmd+"\n"); err != nil {
		return "", fmt.Errorf("write %s: %w", cmd, err)
	}
	line, err := s.readLine()
	if err != nil {
		return "", fmt.Errorf("read reply to %s: %w", cmd, err)
	}
	reply := strings.TrimSpace(line)
	if msg, ok := strings.CutPrefix(reply, "ERR"); ok {
		return "", fmt.Errorf("%w: %s: %s", ErrDevice, cmd, strings.TrimSpace(msg))
	}
	return reply, nil
}

// readLine returns the next newline-terminated line. go.bug.st/serial reports
// an expired read timeout as (0, nil), which ends the wait with ErrTimeout.
func (s *Serial) readLine() (string, error) {
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := string(s.pending[:i])
			s.pending = s.pending[i+1:]
			return line, nil
		}
		n, err := s.conn.Read(s.buf[:])
		s.pending = append(s.pending, s.buf[:n]...)
		switch {
		case err != nil && errors.Is(err, io.EOF) && len(s.pending) > 0:
			line := string(s.pending)
			s.pending = s.pending[:0]
			return line, nil
		case err != nil:
			return "", err
		case n == 0:
			return "", ErrTimeout
		}
	}
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
