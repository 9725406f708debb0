package hardware

import (
	"context"
	"sync"
	"time"
)

// LED is the part of a Device an Indicator drives.
type LED interface {
	SetLED(on bool) error
}

// Status LED blink rates.
const (
	BlinkResetWindow = 100 * time.Millisecond
	BlinkWaiting     = 500 * time.Millisecond
	BlinkConfigLoad  = 25 * time.Millisecond
	BlinkTelemetry   = 19 * time.Millisecond
)

// Indicator blinks the status LED on its own goroutine. The latest call wins:
// Blink replaces any running blink and Steady stops it.
type Indicator struct {
	led LED

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewIndicator returns an indicator over led.
func NewIndicator(led LED) *Indicator {
	return &Indicator{led: led}
}

// Blink toggles the LED every rate until Steady or another Blink.
func (i *Indicator) Blink(rate time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	i.cancel, i.done = cancel, done

	go func() {
		defer close(done)
		t := time.NewTicker(rate)
		defer t.Stop()
		on := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				on = !on
				_ = i.led.SetLED(on)
			}
		}
	}()
}

// Steady stops blinking and holds the LED at on.
func (i *Indicator) Steady(on bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stopLocked()
	_ = i.led.SetLED(on)
}

// Blinking reports whether a blink goroutine is running.
func (i *Indicator) Blinking() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cancel != nil
}

func (i *Indicator) stopLocked() {
	if i.cancel == nil {
		return
	}
	i.cancel()
	<-i.done
	i.cancel, i.done = nil, nil
}
