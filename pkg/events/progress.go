package events

import "time"

// Progress is pushed at batch boundaries only by long-running operations
// (currently the engine's bulk relate, RelateMany) — never per item, per
// the cooperative batch-quantum scheduling model.
type Progress struct {
	Stage          string
	Processed      int64
	Total          int64
	BytesProcessed int64
	Throughput     float64 // items/sec since the reporter was created, computed by ProgressReporter
	ETA            time.Duration
	CurrentItem    string
}

// ProgressFunc is the onProgress callback shape relateMany and similar
// bulk operations accept.
type ProgressFunc func(Progress)

// ProgressReporter turns a sequence of batch completions into Progress
// values with a running throughput/ETA estimate.
type ProgressReporter struct {
	stage      string
	total      int64
	processed  int64
	started    time.Time
	onProgress ProgressFunc
}

// NewProgressReporter returns a reporter that computes throughput and
// ETA from wall-clock elapsed time since construction.
func NewProgressReporter(stage string, total int64, onProgress ProgressFunc) *ProgressReporter {
	return &ProgressReporter{stage: stage, total: total, started: time.Now(), onProgress: onProgress}
}

// Report records a completed batch and invokes the callback, if set.
func (r *ProgressReporter) Report(processedDelta, bytesDelta int64, currentItem string) {
	r.processed += processedDelta
	if r.onProgress == nil {
		return
	}

	elapsed := time.Since(r.started).Seconds()
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(r.processed) / elapsed
	}
	var eta time.Duration
	if throughput > 0 && r.total > r.processed {
		eta = time.Duration(float64(r.total-r.processed)/throughput) * time.Second
	}

	r.onProgress(Progress{
		Stage:          r.stage,
		Processed:      r.processed,
		Total:          r.total,
		BytesProcessed: bytesDelta,
		Throughput:     throughput,
		ETA:            eta,
		CurrentItem:    currentItem,
	})
}
