package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"solar_collector/internal/clock"
	"solar_collector/internal/config"
	"solar_collector/internal/control"
	"solar_collector/internal/hardware"
	"solar_collector/internal/logger"
	"solar_collector/internal/models"
	"solar_collector/internal/repository"
	"solar_collector/internal/sampler"
	"solar_collector/internal/telemetry"
	"solar_collector/internal/thermistor"

	"github.com/google/uuid"
)

// Fault codes reported in ControllerState.Faults.
const (
	FaultStorageRail   = "STORAGE_SENSOR_RAIL"
	FaultCollectorRail = "COLLECTOR_SENSOR_RAIL"
)

// ScalarCycleMillis is the telemetry scalar holding each cycle's duration.
const ScalarCycleMillis = "cycle_ms"

// ErrSensorFault is returned by RunCycle when a channel reads at an ADC rail.
// The relay is opened and the decision skipped for that cycle.
var ErrSensorFault = errors.New("sensor reading at ADC rail")

// ErrRelayMismatch is returned when the relay reads back a position other than
// the one just commanded.
var ErrRelayMismatch = errors.New("relay did not switch")

// StatusLED is the part of the status indicator the controller drives.
type StatusLED interface {
	Blink(rate time.Duration)
	Steady(on bool)
}

// Channels maps sensors to multiplexer inputs.
type Channels struct {
	Storage   int
	Collector int
}

// DefaultChannels is the board wiring: storage on 0, collector on 1.
func DefaultChannels() Channels {
	return Channels{Storage: hardware.ChannelStorage, Collector: hardware.ChannelCollector}
}

// ControllerDeps are the collaborators of a ControllerService.
type ControllerDeps struct {
	Device    hardware.Device
	LED       StatusLED
	Store     *config.Store
	Sink      *telemetry.Sink
	Clock     clock.Source
	StateRepo repository.StateRepo
	EventRepo repository.EventRepo
	Channels  Channels
	Settle    time.Duration
	Log       *logger.Logger
}

// ControllerService owns the device and runs sample, convert, decide, act and
// log once per polling interval. Only its goroutine may touch the device,
// sampler, engine and sink.
type ControllerService struct {
	device    hardware.Device
	led       StatusLED
	store     *config.Store
	sink      *telemetry.Sink
	clock     clock.Source
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	channels  Channels
	log       *logger.Logger

	sampler *sampler.Sampler
	model   thermistor.Model
	engine  *control.Engine

	cycle   int64
	faulted bool
}

// NewControllerService builds the model and engine from the store's current
// values. Configuration is not re-read afterwards.
func NewControllerService(d ControllerDeps) *ControllerService {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Settle <= 0 {
		d.Settle = sampler.DefaultSettle
	}
	return &ControllerService{
		device:    d.Device,
		led:       d.LED,
		store:     d.Store,
		sink:      d.Sink,
		clock:     d.Clock,
		stateRepo: d.StateRepo,
		eventRepo: d.EventRepo,
		channels:  d.Channels,
		log:       d.Log,

		sampler: sampler.New(d.Device, d.Device.Channels(), d.Settle),
		model:   thermistor.NewModel(d.Store.Calibration()),
		engine:  control.NewEngine(d.Store.Thresholds()),
	}
}

// State is the committed relay state.
func (s *ControllerService) State() control.State { return s.engine.State() }

// Run executes a cycle immediately and then once per polling interval until
// ctx is canceled. Cycles never overlap. On return the relay is open.
func (s *ControllerService) Run(ctx context.Context) error {
	interval := s.store.PollingInterval()
	s.appendEvent(ctx, models.EventStart, "Controller started", map[string]any{
		"polling_ms": interval.Milliseconds(),
		"thresholds": s.engine.Thresholds(),
	})
	s.log.Infow("controller_started", "interval", interval, "thresholds", s.engine.Thresholds())

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		if _, err := s.RunCycle(ctx); err != nil && !errors.Is(err, ErrSensorFault) {
			s.log.Errorw("cycle_failed", "cycle", s.cycle, "err", err)
		}
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-t.C:
		}
	}
}

func (s *ControllerService) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.switchRelay(false); err != nil {
		s.log.Errorw("relay_release_failed", "err", err)
	} else {
		s.engine.Commit(control.Decision{Prior: s.engine.State(), Next: control.Disengaged})
	}
	s.appendEvent(ctx, models.EventStop, "Controller stopped", map[string]any{"cycles": s.cycle})
	s.log.Infow("controller_stopped", "cycles", s.cycle)
}

// RunCycle performs one full polling cycle and returns the resulting snapshot.
func (s *ControllerService) RunCycle(ctx context.Context) (models.ControllerState, error) {
	started := time.Now()
	now := s.clock.Now().UTC()
	s.cycle++

	n := s.store.Oversample.Get()
	var sampleErrs []string
	storageRaw := s.sample(s.channels.Storage, n, &sampleErrs)
	collectorRaw := s.sample(s.channels.Collector, n, &sampleErrs)

	st := models.ControllerState{
		ID:           1,
		StorageRaw:   storageRaw,
		CollectorRaw: collectorRaw,
		Cycle:        s.cycle,
		UpdatedAt:    now,
	}
	if !thermistor.InRange(storageRaw) {
		st.Faults = append(st.Faults, FaultStorageRail)
	}
	if !thermistor.InRange(collectorRaw) {
		st.Faults = append(st.Faults, FaultCollectorRail)
	}

	var d control.Decision
	if len(st.Faults) > 0 {
		d = s.engine.FailSafe()
		s.reportFault(ctx, st, sampleErrs)
	} else {
		storage := s.model.ToReading(storageRaw)
		collector := s.model.ToReading(collectorRaw)
		st.StorageTempC = storage.TemperatureC
		st.CollectorTempC = collector.TemperatureC
		d = s.engine.Evaluate(collector.TemperatureC, storage.TemperatureC)
		s.clearFault()
	}
	st.Reason = string(d.Reason)

	actErr := s.act(ctx, d, len(st.Faults) > 0)
	st.RelayActive = s.engine.State().Active()

	s.record(ctx, st, started)

	if err := s.stateRepo.Save(ctx, st); err != nil {
		s.log.Errorw("state_save_failed", "cycle", s.cycle, "err", err)
	}

	s.log.Infow("cycle_completed",
		"cycle", s.cycle,
		"storage_raw", storageRaw,
		"collector_raw", collectorRaw,
		"storage_c", st.StorageTempC,
		"collector_c", st.CollectorTempC,
		"delta_c", d.DeltaC,
		"state", s.engine.State().String(),
		"reason", d.Reason,
		"local_time", now.In(clock.Offset(s.store.GMTOffset.Get())).Format(time.DateTime),
	)

	if actErr != nil {
		return st, actErr
	}
	if len(st.Faults) > 0 {
		return st, fmt.Errorf("%w: %s", ErrSensorFault, strings.Join(st.Faults, ","))
	}
	return st, nil
}

// act switches the relay when the decision asks for it and commits the
// decision only after the switch succeeded. On a fault the relay is always
// driven open.
func (s *ControllerService) act(ctx context.Context, d control.Decision, force bool) error {
	if !d.Changed() && !force {
		return nil
	}
	if err := s.switchRelay(d.Next.Active()); err != nil {
		s.appendEvent(ctx, models.EventError, "Relay actuation failed", map[string]any{
			"want":  d.Next.String(),
			"error": err.Error(),
		})
		return fmt.Errorf("set relay %s: %w", d.Next, err)
	}
	s.engine.Commit(d)
	if !d.Changed() {
		return nil
	}

	typ, desc := models.EventDisengage, "Pump disengaged"
	if d.Next == control.Engaged {
		typ, desc = models.EventEngage, "Pump engaged"
	}
	s.appendEvent(ctx, typ, desc, map[string]any{
		"reason":  d.Reason,
		"delta_c": d.DeltaC,
	})
	s.log.Infow("relay_changed", "from", d.Prior.String(), "to", d.Next.String(), "reason", d.Reason)
	return nil
}

// switchRelay drives the relay and reads it back. A relay that reports the
// wrong position has not switched.
func (s *ControllerService) switchRelay(closed bool) error {
	if err := s.device.SetRelay(closed); err != nil {
		return err
	}
	got, err := s.device.Relay()
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if got != closed {
		return fmt.Errorf("%w: reads closed=%t", ErrRelayMismatch, got)
	}
	return nil
}

// sample oversamples one channel. A hardware error leaves the reading at a
// rail, so it is only logged and collected for the fault event.
func (s *ControllerService) sample(channel, n int, errs *[]string) float64 {
	raw := s.sampler.Sample(channel, n)
	if err := s.sampler.LastErr(); err != nil {
		s.log.Warnw("sample_error", "cycle", s.cycle, "channel", channel, "err", err)
		*errs = append(*errs, err.Error())
	}
	return raw
}

func (s *ControllerService) record(ctx context.Context, st models.ControllerState, started time.Time) {
	if s.sink == nil || !s.sink.Enabled() {
		return
	}
	if s.led != nil {
		s.led.Blink(hardware.BlinkTelemetry)
		defer s.led.Steady(true)
	}

	s.sink.RecordScalar(ctx, ScalarCycleMillis, float64(time.Since(started).Milliseconds()))
	s.sink.Record(ctx, models.LogEntry{
		Time:           st.UpdatedAt,
		StorageRaw:     st.StorageRaw,
		CollectorRaw:   st.CollectorRaw,
		StorageTempC:   st.StorageTempC,
		CollectorTempC: st.CollectorTempC,
		Active:         st.RelayActive,
		Fault:          len(st.Faults) > 0,
	})
}

// reportFault logs the first cycle of a fault streak.
func (s *ControllerService) reportFault(ctx context.Context, st models.ControllerState, sampleErrs []string) {
	s.log.Warnw("sensor_fault", "cycle", s.cycle, "faults", st.Faults,
		"storage_raw", st.StorageRaw, "collector_raw", st.CollectorRaw)
	if s.faulted {
		return
	}
	s.faulted = true
	meta := map[string]any{
		"faults":        st.Faults,
		"storage_raw":   st.StorageRaw,
		"collector_raw": st.CollectorRaw,
	}
	if len(sampleErrs) > 0 {
		meta["sample_errors"] = sampleErrs
	}
	s.appendEvent(ctx, models.EventSensorFault, "Sensor reading at ADC rail; relay forced open", meta)
}

func (s *ControllerService) clearFault() {
	if !s.faulted {
		return
	}
	s.faulted = false
	s.log.Infow("sensor_fault_cleared", "cycle", s.cycle)
}

// ReportConfigLoad records the outcome of the boot-time configuration load.
func (s *ControllerService) ReportConfigLoad(ctx context.Context, res config.LoadResult, loadErr error) {
	meta := map[string]any{"failed": res.Failed(), "clamped": res.Clamped}
	desc := "Configuration loaded"
	if loadErr != nil {
		desc = "Configuration partially loaded; defaults kept for failed parameters"
		meta["error"] = loadErr.Error()
	}
	s.appendEvent(ctx, models.EventConfigLoad, desc, meta)
}

func (s *ControllerService) appendEvent(ctx context.Context, typ, desc string, meta map[string]any) {
	err := s.eventRepo.Append(ctx, models.ControllerEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.clock.Now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		s.log.Errorw("event_append_failed", "type", typ, "err", err)
	}
}
