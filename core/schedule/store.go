package schedule

import (
	"time"

	"github.com/kilianp07/hems/core/model"
)

// Store persists schedule entries keyed by (date, hour). Entries with the
// Manual flag are owned by the user: ReplaceAuto never touches them and only
// an explicit clear or unlock removes the ownership.
//
// Implementations must make ReplaceAuto atomic: a recompute either commits
// its full replacement set or leaves the store unchanged.
type Store interface {
	// Schedule returns all entries for a date, keyed by hour.
	Schedule(date string) (map[int]model.ScheduleEntry, error)
	// Hour returns the entry for one slot, if present.
	Hour(date string, hour int) (model.ScheduleEntry, bool, error)
	// Set inserts or overwrites one entry.
	Set(entry model.ScheduleEntry) error
	// ClearHour removes one entry.
	ClearHour(date string, hour int) error
	// ClearDate removes all entries for a date, manual ones included.
	ClearDate(date string) error
	// SetManual flips the ownership flag without changing the action.
	SetManual(date string, hour int, manual bool) error
	// ManualHours lists the hours of a date that carry a manual entry.
	ManualHours(date string) (map[int]bool, error)
	// ReplaceAuto atomically removes every non-manual entry on the given
	// dates and inserts the replacement set, skipping slots held by manual
	// entries.
	ReplaceAuto(dates []string, entries []model.ScheduleEntry) error
	// Cleanup drops entries whose date is older than the cutoff.
	Cleanup(cutoff time.Time) error
	Close() error
}
