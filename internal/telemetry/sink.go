// Package telemetry writes one entry per polling cycle into a fixed-size
// wrapping log held by a remote backend.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"solar_collector/internal/logger"
	"solar_collector/internal/models"
	"solar_collector/internal/retry"
)

// ErrDropped is returned when an entry could not be written within the retry budget.
var ErrDropped = errors.New("telemetry: entry dropped")

// Backend stores log entries at an externally addressable slot.
type Backend interface {
	WriteEntry(ctx context.Context, slot int, entry models.LogEntry) error
	WriteScalar(ctx context.Context, name string, slot int, value float64) error
}

// Sink is a ring of Capacity slots. The write index only moves after a
// confirmed write, so a failed cycle is simply missing from the log.
type Sink struct {
	backend  Backend
	capacity int
	index    int
	retry    retry.Policy
	log      *logger.Logger
}

// NewSink returns a sink over backend. Capacity 0 disables logging.
func NewSink(backend Backend, capacity int, policy retry.Policy, log *logger.Logger) *Sink {
	if capacity < 0 {
		capacity = 0
	}
	return &Sink{backend: backend, capacity: capacity, retry: policy, log: log}
}

// Capacity is the number of slots in the ring.
func (s *Sink) Capacity() int { return s.capacity }

// Index is the slot the next entry goes to.
func (s *Sink) Index() int { return s.index }

// Enabled reports whether entries are written at all.
func (s *Sink) Enabled() bool { return s.capacity > 0 && s.backend != nil }

// Write stores entry at the current slot and advances the index. The entry's
// Slot field is overwritten. On failure the index is left alone and the error
// wraps ErrDropped.
func (s *Sink) Write(ctx context.Context, entry models.LogEntry) error {
	if !s.Enabled() {
		return nil
	}
	slot := s.index
	entry.Slot = slot
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.backend.WriteEntry(ctx, slot, entry)
	})
	if err != nil {
		return fmt.Errorf("%w: slot %d: %w", ErrDropped, slot, err)
	}
	s.index = (slot + 1) % s.capacity
	return nil
}

// Record is Write reporting only success. Failures are logged.
func (s *Sink) Record(ctx context.Context, entry models.LogEntry) bool {
	if err := s.Write(ctx, entry); err != nil {
		s.log.Warnw("telemetry_dropped", "slot", s.index, "err", err)
		return false
	}
	return true
}

// RecordScalar writes a named value at the current slot without advancing the index.
func (s *Sink) RecordScalar(ctx context.Context, name string, value float64) bool {
	if !s.Enabled() {
		return true
	}
	slot := s.index
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.backend.WriteScalar(ctx, name, slot, value)
	})
	if err != nil {
		s.log.Warnw("telemetry_scalar_dropped", "name", name, "slot", slot, "err", err)
		return false
	}
	return true
}
