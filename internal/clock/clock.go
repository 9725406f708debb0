// Package clock supplies timestamps to the controller and blocks boot until the
// host clock looks synchronized.
package clock

import (
	"context"
	"fmt"
	"time"
)

// Source is a wall clock that may not be set yet.
type Source interface {
	Now() time.Time
	Synced() bool
}

// MinSyncedYear is the first year considered a real date. Boards without an
// RTC boot at the epoch.
const MinSyncedYear = 2020

// System is the host clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

func (System) Synced() bool { return time.Now().Year() >= MinSyncedYear }

// WaitForSync polls src every poll until it reports Synced or ctx ends.
func WaitForSync(ctx context.Context, src Source, poll time.Duration) error {
	if src.Synced() {
		return nil
	}
	t := time.NewTicker(poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if src.Synced() {
				return nil
			}
		}
	}
}

// Offset returns the fixed zone for a whole-hour GMT offset.
func Offset(hours int) *time.Location {
	if hours == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("GMT%+d", hours), hours*3600)
}
