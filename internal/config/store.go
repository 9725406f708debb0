// Package config holds the controller's tunable parameters. Compiled-in
// defaults are overlaid once at boot with values fetched from a remote source,
// parameter by parameter, so a partial outage still applies what it can.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solar_collector/internal/control"
	"solar_collector/internal/logger"
	"solar_collector/internal/retry"
	"solar_collector/internal/thermistor"

	"go.uber.org/multierr"
)

// DefaultNamespace is where the parameters live in the remote source.
const DefaultNamespace = "config"

// Parameter names as stored remotely.
const (
	KeySeriesResistor      = "seriesResistor"
	KeyResistanceAt0       = "resistanceAt0"
	KeyTemperatureAt0      = "temperatureAt0"
	KeyBCoefficient        = "bCoefficient"
	KeyPollingMilliseconds = "pollingMilliseconds"
	KeyMaxEntries          = "maxEntries"
	KeyNTPServer           = "ntpServer"
	KeyGMTOffset           = "gmtOffset"
	KeyMinTOn              = "minTOn"
	KeyDeltaTOn            = "deltaTOn"
	KeyDeltaTOff           = "deltaTOff"
	KeyOversample          = "oversample"
)

// Compiled-in calibration defaults.
const (
	DefaultSeriesResistor = 8170.0
	DefaultResistanceAt0  = 9555.55
	DefaultTemperatureAt0 = 25.0
	DefaultBCoefficient   = 3380.0
)

// Limits applied after a load.
const (
	minPollingMilliseconds = 100
	minGMTOffset           = -11
	maxGMTOffset           = 13
)

var (
	// ErrNotFound is returned by sources that hold no value for a key.
	ErrNotFound = errors.New("config: parameter not found")
	// ErrPartialLoad wraps the aggregated per-parameter failures of Load.
	ErrPartialLoad = errors.New("config: one or more parameters could not be fetched")
)

// Source is a remote key/value store of scalar parameters.
type Source interface {
	Get(ctx context.Context, namespace, key string) (string, error)
}

// LoadResult records which parameters were updated by the last Load.
type LoadResult struct {
	Succeeded map[string]bool `json:"succeeded"`
	Clamped   []string        `json:"clamped,omitempty"`
	LoadedAt  time.Time       `json:"loaded_at"`
}

// OK reports whether every parameter was fetched.
func (r LoadResult) OK() bool {
	for _, ok := range r.Succeeded {
		if !ok {
			return false
		}
	}
	return len(r.Succeeded) > 0
}

// Failed lists the parameters that kept their previous value.
func (r LoadResult) Failed() []string {
	var out []string
	for _, name := range Names() {
		if ok, seen := r.Succeeded[name]; seen && !ok {
			out = append(out, name)
		}
	}
	return out
}

// Store owns every parameter. Readers get copies.
type Store struct {
	source    Source
	namespace string
	retry     retry.Policy
	log       *logger.Logger

	SeriesResistor      *Parameter[float64]
	ResistanceAt0       *Parameter[float64]
	TemperatureAt0      *Parameter[float64]
	BCoefficient        *Parameter[float64]
	PollingMilliseconds *Parameter[int]
	MaxEntries          *Parameter[int]
	NTPServer           *Parameter[string]
	GMTOffset           *Parameter[int]
	MinTOn              *Parameter[float64]
	DeltaTOn            *Parameter[float64]
	DeltaTOff           *Parameter[float64]
	Oversample          *Parameter[int]

	params []param
	last   LoadResult
}

// Names lists every parameter in fetch order.
func Names() []string {
	return []string{
		KeySeriesResistor, KeyTemperatureAt0, KeyResistanceAt0, KeyBCoefficient,
		KeyPollingMilliseconds, KeyMaxEntries, KeyNTPServer, KeyGMTOffset,
		KeyDeltaTOn, KeyDeltaTOff, KeyMinTOn, KeyOversample,
	}
}

// NewStore returns a store holding the compiled-in defaults. A nil source keeps
// the defaults forever; Load then reports every parameter as failed.
func NewStore(source Source, namespace string, policy retry.Policy, log *logger.Logger) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	s := &Store{
		source:    source,
		namespace: namespace,
		retry:     policy,
		log:       log,

		SeriesResistor:      newParameter(KeySeriesResistor, DefaultSeriesResistor, parseFloat),
		ResistanceAt0:       newParameter(KeyResistanceAt0, DefaultResistanceAt0, parseFloat),
		TemperatureAt0:      newParameter(KeyTemperatureAt0, DefaultTemperatureAt0, parseFloat),
		BCoefficient:        newParameter(KeyBCoefficient, DefaultBCoefficient, parseFloat),
		PollingMilliseconds: newParameter(KeyPollingMilliseconds, 5*1000, parseInt),
		MaxEntries:          newParameter(KeyMaxEntries, 0, parseInt),
		NTPServer:           newParameter(KeyNTPServer, "pool.ntp.org", parseString),
		GMTOffset:           newParameter(KeyGMTOffset, 0, parseInt),
		MinTOn:              newParameter(KeyMinTOn, 10.0, parseFloat),
		DeltaTOn:            newParameter(KeyDeltaTOn, 10.0, parseFloat),
		DeltaTOff:           newParameter(KeyDeltaTOff, 0.0, parseFloat),
		Oversample:          newParameter(KeyOversample, 16, parseInt),
	}
	s.params = []param{
		s.SeriesResistor, s.TemperatureAt0, s.ResistanceAt0, s.BCoefficient,
		s.PollingMilliseconds, s.MaxEntries, s.NTPServer, s.GMTOffset,
		s.DeltaTOn, s.DeltaTOff, s.MinTOn, s.Oversample,
	}
	return s
}

// Load fetches every parameter once. A failure on one parameter keeps its
// previous value and does not stop the others. The returned error wraps
// ErrPartialLoad and every individual failure; it is never fatal.
func (s *Store) Load(ctx context.Context) (LoadResult, error) {
	res := LoadResult{Succeeded: make(map[string]bool, len(s.params))}
	var errs error

	for _, p := range s.params {
		err := s.fetch(ctx, p)
		res.Succeeded[p.key()] = err == nil
		if err != nil {
			s.log.Warnw("config_param_failed", "param", p.key(), "err", err, "kept", p.view().Current)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", p.key(), err))
			continue
		}
		s.log.Infow("config_param_loaded", "param", p.key(), "value", p.view().Current)
	}

	res.Clamped = s.sanitize()
	res.LoadedAt = time.Now().UTC()
	s.last = res

	if errs != nil {
		return res, fmt.Errorf("%w: %w", ErrPartialLoad, errs)
	}
	return res, nil
}

func (s *Store) fetch(ctx context.Context, p param) error {
	if s.source == nil {
		return ErrNotFound
	}
	var raw string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		v, err := s.source.Get(ctx, s.namespace, p.key())
		if errors.Is(err, ErrNotFound) {
			return retry.Permanent(err)
		}
		raw = v
		return err
	})
	if err != nil {
		return err
	}
	return p.apply(raw)
}

// sanitize clamps values that would make the controller misbehave and returns
// the names it touched.
func (s *Store) sanitize() []string {
	var clamped []string
	note := func(name string, from, to any) {
		clamped = append(clamped, name)
		s.log.Warnw("config_param_clamped", "param", name, "from", from, "to", to)
	}

	if off, on := s.DeltaTOff.Get(), s.DeltaTOn.Get(); off > on {
		s.DeltaTOff.set(on)
		note(KeyDeltaTOff, off, on)
	}
	if n := s.Oversample.Get(); n < 1 {
		s.Oversample.set(1)
		note(KeyOversample, n, 1)
	}
	if ms := s.PollingMilliseconds.Get(); ms < minPollingMilliseconds {
		s.PollingMilliseconds.set(minPollingMilliseconds)
		note(KeyPollingMilliseconds, ms, minPollingMilliseconds)
	}
	if n := s.MaxEntries.Get(); n < 0 {
		s.MaxEntries.set(0)
		note(KeyMaxEntries, n, 0)
	}
	if off := s.GMTOffset.Get(); off < minGMTOffset || off > maxGMTOffset {
		s.GMTOffset.set(s.GMTOffset.Default)
		note(KeyGMTOffset, off, s.GMTOffset.Default)
	}
	for _, p := range []*Parameter[float64]{s.SeriesResistor, s.ResistanceAt0, s.BCoefficient} {
		if v := p.Get(); v <= 0 {
			p.set(p.Default)
			note(p.Name, v, p.Default)
		}
	}
	return clamped
}

// LastLoad returns the outcome of the most recent Load.
func (s *Store) LastLoad() LoadResult { return s.last }

// Namespace is the remote namespace the store reads from.
func (s *Store) Namespace() string { return s.namespace }

// DefaultCalibration is the compiled-in thermistor calibration.
func DefaultCalibration() thermistor.Calibration {
	return thermistor.Calibration{
		SeriesResistorOhms:      DefaultSeriesResistor,
		ReferenceResistanceOhms: DefaultResistanceAt0,
		ReferenceTemperatureC:   DefaultTemperatureAt0,
		BCoefficient:            DefaultBCoefficient,
	}
}

// Calibration returns the thermistor constants.
func (s *Store) Calibration() thermistor.Calibration {
	return thermistor.Calibration{
		SeriesResistorOhms:      s.SeriesResistor.Get(),
		ReferenceResistanceOhms: s.ResistanceAt0.Get(),
		ReferenceTemperatureC:   s.TemperatureAt0.Get(),
		BCoefficient:            s.BCoefficient.Get(),
	}
}

// Thresholds returns the control limits.
func (s *Store) Thresholds() control.Thresholds {
	return control.Thresholds{
		MinimumEngageC:  s.MinTOn.Get(),
		EngageDeltaC:    s.DeltaTOn.Get(),
		DisengageDeltaC: s.DeltaTOff.Get(),
	}
}

// PollingInterval is the period of the control cycle.
func (s *Store) PollingInterval() time.Duration {
	return time.Duration(s.PollingMilliseconds.Get()) * time.Millisecond
}

// Params returns a snapshot of every parameter.
func (s *Store) Params() []ParamView {
	out := make([]ParamView, 0, len(s.params))
	for _, p := range s.params {
		out = append(out, p.view())
	}
	return out
}
