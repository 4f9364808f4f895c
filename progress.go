package bundlecrypt

import "sync/atomic"

// Progress tracks completion counts for the pass currently running. Workers
// increment it and an external observer (a progress bar, a log ticker) may
// poll it concurrently. Counts are monotonic within a pass and reset when a
// retry pass begins.
type Progress struct {
	total     atomic.Int64
	completed atomic.Int64
}

// Total returns the number of bundles in the current pass.
func (p *Progress) Total() int64 {
	return p.total.Load()
}

// Completed returns the number of bundles processed so far in the current
// pass, successes and failures both.
func (p *Progress) Completed() int64 {
	return p.completed.Load()
}

func (p *Progress) begin(total int) {
	p.total.Store(int64(total))
	p.completed.Store(0)
}

func (p *Progress) step() {
	p.completed.Add(1)
}
