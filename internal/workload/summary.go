package workload

import (
	"time"

	"github.com/Sumatoshi-tech/incrkit/pkg/intern"
)

// Summary reports what a run did.
type Summary struct {
	Workers   int
	Window    int
	Sequences int

	// Passes counts completed passes across all workers.
	Passes int64
	// Processed counts lines run through the measure stage.
	Processed  int64
	Recomputed int64
	Reused     int64
	Edits      int64
	Tokens     int64
	Pruned     int64

	Languages map[string]int
	Stats     intern.Stats
	Elapsed   time.Duration
}

// ReuseRate is the fraction of processed lines served from a memo.
func (s Summary) ReuseRate() float64 {
	if s.Processed == 0 {
		return 0
	}

	return float64(s.Reused) / float64(s.Processed)
}
