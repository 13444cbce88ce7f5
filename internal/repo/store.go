package repo

import (
	"context"
	"errors"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// ErrWeekNotFound signals that no snapshot record exists for a week.
// Callers treat it as "zero historical snapshots", not as a failure.
var ErrWeekNotFound = errors.New("snapshot week not found")

// SnapshotStore persists one WeeklyRecord per ISO week. Saving a week
// replaces any previous record for it; writes for one week never touch
// another week's record. Implementations do no internal locking: callers
// serialize concurrent runs against the same week.
type SnapshotStore interface {
	// SaveWeek writes the record for record.Week, replacing any existing one.
	SaveWeek(ctx context.Context, record models.WeeklyRecord) error
	// LoadWeek reads one week's record, or ErrWeekNotFound.
	LoadWeek(ctx context.Context, week string) (models.WeeklyRecord, error)
	// ListWeeks returns the available week keys, newest first.
	ListWeeks(ctx context.Context) ([]string, error)
	// Prune deletes weeks beyond the retention count, returning how many
	// records were removed.
	Prune(ctx context.Context, retainWeeks int) (int, error)
}
