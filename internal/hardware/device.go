// Package hardware is the only code allowed to touch the multiplexer, the ADC,
// the pump relay and the status LED. A Device is owned by the polling cycle;
// only the LED may be driven from another goroutine, through an Indicator.
package hardware

import (
	"errors"
	"fmt"
)

// Channel assignment on the multiplexer.
const (
	ChannelStorage   = 0
	ChannelCollector = 1
)

// AdcMax is the full-scale reading of the 10-bit ADC.
const AdcMax = 1023

// ErrClosed is returned by a Device used after Close.
var ErrClosed = errors.New("hardware: device closed")

// Device is the hardware surface of the controller.
type Device interface {
	// SelectChannel routes channel to the ADC input.
	SelectChannel(channel int) error
	// ReadRaw returns one conversion in [0, AdcMax].
	ReadRaw() (int, error)
	SetRelay(closed bool) error
	Relay() (bool, error)
	SetLED(on bool) error
	// Channels is the number of multiplexer inputs wired to sensors.
	Channels() int
	Close() error
}

// Init puts the device in its boot state: relay open, LED on, channel 0 selected.
func Init(d Device) error {
	if err := d.SetRelay(false); err != nil {
		return fmt.Errorf("open relay: %w", err)
	}
	if err := d.SetLED(true); err != nil {
		return fmt.Errorf("led on: %w", err)
	}
	if err := d.SelectChannel(0); err != nil {
		return fmt.Errorf("select channel 0: %w", err)
	}
	return nil
}

func checkChannel(channel, channels int) error {
	if channel < 0 || channel >= channels {
		return fmt.Errorf("hardware: channel %d out of range [0,%d)", channel, channels)
	}
	return nil
}
