package workerpool

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats accumulates the four counters the reconciler reports at the end
// of a sync: directories and files it looked at ("processed") versus
// ones it actually changed ("updated"). Every field is written with
// sync/atomic so concurrent workers never need the shared lock just to
// bump a counter.
type Stats struct {
	ProcessedDirs  int64
	ProcessedFiles int64
	UpdatedDirs    int64
	UpdatedFiles   int64
	startedAt      time.Time
}

// Start records the stats collection's start time, used by String to
// report elapsed wall time in the end-of-session summary line.
func (s *Stats) Start() {
	s.startedAt = time.Now()
}

func (s *Stats) IncProcessedDir()  { atomic.AddInt64(&s.ProcessedDirs, 1) }
func (s *Stats) IncProcessedFile() { atomic.AddInt64(&s.ProcessedFiles, 1) }
func (s *Stats) IncUpdatedDir()    { atomic.AddInt64(&s.UpdatedDirs, 1) }
func (s *Stats) IncUpdatedFile()   { atomic.AddInt64(&s.UpdatedFiles, 1) }

// String renders the per-session summary line logged at the end of
// sync(): processed/updated dirs and files plus elapsed wall time.
func (s *Stats) String() string {
	elapsed := time.Duration(0)
	if !s.startedAt.IsZero() {
		elapsed = time.Since(s.startedAt)
	}
	return fmt.Sprintf(
		"processed %d dirs (%d updated), %d files (%d updated) in %s",
		atomic.LoadInt64(&s.ProcessedDirs), atomic.LoadInt64(&s.UpdatedDirs),
		atomic.LoadInt64(&s.ProcessedFiles), atomic.LoadInt64(&s.UpdatedFiles),
		elapsed.Round(time.Millisecond),
	)
}
