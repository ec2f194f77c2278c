package routing

import (
	"time"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

// tracker derives ETA snapshots from wall-clock time per completed
// enumeration unit.
type tracker struct {
	start time.Time
	total int
}

func newTracker(total int) *tracker {
	return &tracker{start: time.Now(), total: total}
}

// snapshot reports progress after `completed` units. The estimate is
// elapsed time per unit scaled by the remaining units; with nothing
// completed yet there is no basis for one, so it is zero.
func (t *tracker) snapshot(completed int) domain.ProgressSnapshot {
	snap := domain.ProgressSnapshot{Completed: completed, Total: t.total}
	if completed > 0 {
		elapsed := time.Since(t.start).Seconds()
		snap.ETASeconds = elapsed / float64(completed) * float64(t.total-completed)
	}
	return snap
}
