// Package sampler routes thermistor channels through the analog multiplexer
// and reduces several raw ADC acquisitions to one oversampled value.
package sampler

import (
	"fmt"
	"time"
)

// DefaultSettle covers the 74HC4051 switching time with a wide margin.
const DefaultSettle = time.Millisecond

// Mux is the slice of the hardware the sampler drives: the channel select
// lines and the single ADC behind them.
type Mux interface {
	SelectChannel(channel int) error
	ReadRaw() (int, error)
}

// Sampler is owned by the polling cycle. It mutates the multiplexer lines and
// must not be shared with other goroutines.
type Sampler struct {
	mux      Mux
	channels int
	settle   time.Duration
	sleep    func(time.Duration)

	lastErr error
}

// New builds a sampler over channels [0, channels).
func New(mux Mux, channels int, settle time.Duration) *Sampler {
	return &Sampler{
		mux:      mux,
		channels: channels,
		settle:   settle,
		sleep:    time.Sleep,
	}
}

// Channels is the number of selectable inputs.
func (s *Sampler) Channels() int { return s.channels }

// Sample selects channel, waits for the multiplexer to settle and averages
// oversample raw acquisitions.
//
// An out-of-range channel or a non-positive oversample count is a programming
// error and panics. Hardware failures are not reported as errors: a failed
// select or read contributes 0 to the mean so the result lands on or near the
// rail and the caller's plausibility check rejects it. LastErr keeps the most
// recent failure for diagnostics.
func (s *Sampler) Sample(channel, oversample int) float64 {
	if channel < 0 || channel >= s.channels {
		panic(fmt.Sprintf("sampler: channel %d out of range [0,%d)", channel, s.channels))
	}
	if oversample < 1 {
		panic(fmt.Sprintf("sampler: oversample count %d must be >= 1", oversample))
	}

	s.lastErr = nil
	var sum int
	for i := 0; i < oversample; i++ {
		sum += s.acquire(channel)
	}
	return float64(sum) / float64(oversample)
}

// LastErr returns the last hardware error seen by the most recent Sample call.
func (s *Sampler) LastErr() error { return s.lastErr }

func (s *Sampler) acquire(channel int) int {
	if err := s.mux.SelectChannel(channel); err != nil {
		s.lastErr = fmt.Errorf("select channel %d: %w", channel, err)
		return 0
	}
	if s.settle > 0 {
		s.sleep(s.settle)
	}
	raw, err := s.mux.ReadRaw()
	if err != nil {
		s.lastErr = fmt.Errorf("read channel %d: %w", channel, err)
		return 0
	}
	return raw
}
