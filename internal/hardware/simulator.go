package hardware

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"solar_collector/internal/thermistor"
)

// Simulation defaults.
const (
	AmbientC            = 18.0   // air temperature °C
	SolarGainCPerSec    = 0.04   // collector heating in full sun
	CollectorLossPerSec = 0.002  // Newton cooling coefficient of the collector
	StorageLossPerSec   = 0.0001 // Newton cooling coefficient of the storage tank
	PumpExchangePerSec  = 0.02   // collector/storage exchange while the pump runs
	StorageMassRatio    = 0.05   // storage warms this much per degree the collector loses
	NoiseCounts         = 1.5    // ADC noise standard deviation
	maxStep             = time.Second
)

// SimOptions tunes a Simulator.
type SimOptions struct {
	Calibration thermistor.Calibration
	CollectorC  float64 // initial collector temperature
	StorageC    float64 // initial storage temperature
	AmbientC    float64
	SolarGain   float64 // °C/s of collector heating; 0 means night
	Noise       float64 // ADC counts; 0 disables noise
	Speed       float64 // simulated seconds per wall-clock second, 1 if zero
	Seed        int64
}

// DefaultSimOptions returns a sunny morning with the given calibration.
func DefaultSimOptions(cal thermistor.Calibration) SimOptions {
	return SimOptions{
		Calibration: cal,
		CollectorC:  AmbientC,
		StorageC:    AmbientC,
		AmbientC:    AmbientC,
		SolarGain:   SolarGainCPerSec,
		Noise:       NoiseCounts,
		Speed:       1,
		Seed:        time.Now().UnixNano(),
	}
}

// Simulator is an in-process Device backed by a two-node thermal model of the
// collector and the storage tank. Temperatures advance with elapsed wall-clock
// time whenever the device is read or the relay changes.
type Simulator struct {
	mu sync.Mutex

	opts     SimOptions
	model    thermistor.Model
	rng      *rand.Rand
	now      func() time.Time
	last     time.Time
	temps    [2]float64 // indexed by channel
	stuck    map[int]int
	selected int
	relay    bool
	led      bool
	closed   bool
}

// NewSimulator returns a simulator started at opts.
func NewSimulator(opts SimOptions) *Simulator {
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	s := &Simulator{
		opts:  opts,
		model: thermistor.NewModel(opts.Calibration),
		rng:   rand.New(rand.NewSource(opts.Seed)),
		now:   time.Now,
		stuck: map[int]int{},
	}
	s.temps[ChannelStorage] = opts.StorageC
	s.temps[ChannelCollector] = opts.CollectorC
	s.last = s.now()
	return s
}

func (s *Simulator) Channels() int { return len(s.temps) }

func (s *Simulator) SelectChannel(channel int) error {
	if err := checkChannel(channel, len(s.temps)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.selected = channel
	return nil
}

func (s *Simulator) ReadRaw() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.advance()

	if raw, ok := s.stuck[s.selected]; ok {
		return raw, nil
	}
	raw := s.model.RawFor(s.temps[s.selected])
	if s.opts.Noise > 0 {
		raw += s.rng.NormFloat64() * s.opts.Noise
	}
	return clampRaw(int(math.Round(raw))), nil
}

func (s *Simulator) SetRelay(closed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.advance()
	s.relay = closed
	return nil
}

func (s *Simulator) Relay() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	return s.relay, nil
}

func (s *Simulator) SetLED(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.led = on
	return nil
}

// LED returns the current LED level.
func (s *Simulator) LED() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.led
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Temperatures returns the modelled storage and collector temperatures.
func (s *Simulator) Temperatures() (storageC, collectorC float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.temps[ChannelStorage], s.temps[ChannelCollector]
}

// SetTemperatures overrides the thermal state.
func (s *Simulator) SetTemperatures(storageC, collectorC float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temps[ChannelStorage] = storageC
	s.temps[ChannelCollector] = collectorC
	s.last = s.now()
}

// SetSolarGain changes the sun input, in °C/s.
func (s *Simulator) SetSolarGain(cPerSec float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.opts.SolarGain = cPerSec
}

// Stick makes channel return raw until Unstick, emulating a broken or shorted sensor.
func (s *Simulator) Stick(channel, raw int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stuck[channel] = raw
}

// Unstick restores the modelled reading of channel.
func (s *Simulator) Unstick(channel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stuck, channel)
}

// advance integrates the model up to now in steps of at most maxStep.
func (s *Simulator) advance() {
	now := s.now()
	elapsed := now.Sub(s.last)
	if elapsed <= 0 {
		return
	}
	s.last = now

	remaining := elapsed.Seconds() * s.opts.Speed
	for remaining > 0 {
		dt := math.Min(remaining, maxStep.Seconds())
		s.step(dt)
		remaining -= dt
	}
}

func (s *Simulator) step(dt float64) {
	tc := s.temps[ChannelCollector]
	ts := s.temps[ChannelStorage]
	amb := s.opts.AmbientC

	tc += s.opts.SolarGain * dt
	tc -= CollectorLossPerSec * (tc - amb) * dt
	ts -= StorageLossPerSec * (ts - amb) * dt

	if s.relay {
		exchange := PumpExchangePerSec * (tc - ts) * dt
		tc -= exchange
		ts += exchange * StorageMassRatio
	}

	s.temps[ChannelCollector] = tc
	s.temps[ChannelStorage] = ts
}

func clampRaw(raw int) int {
	if raw < 0 {
		return 0
	}
	if raw > AdcMax {
		return AdcMax
	}
	return raw
}
