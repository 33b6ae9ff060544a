package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each tick. Systems sharing a phase
// run in registration order.
type Runner struct {
	systems  []System
	sorted   bool
	ticks    uint64
	overruns uint64        // ticks that took longer than their dt
	slowest  time.Duration // longest single tick so far
	now      func() time.Time
}

func NewRunner(systems ...System) *Runner {
	r := &Runner{
		systems: make([]System, 0, 16),
		now:     time.Now,
	}
	r.Register(systems...)
	return r
}

func (r *Runner) Register(systems ...System) {
	r.systems = append(r.systems, systems...)
	r.sorted = false
}

// Tick runs every system once. Copy loads never block a tick, so a tick
// slower than dt points at a system doing I/O on the loop.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	start := r.now()
	for _, s := range r.systems {
		s.Update(dt)
	}
	r.ticks++

	took := r.now().Sub(start)
	if took > r.slowest {
		r.slowest = took
	}
	if dt > 0 && took > dt {
		r.overruns++
	}
}

// Stop calls Stop on every registered Stopper, in phase order. No tick runs.
func (r *Runner) Stop() {
	r.ensureSorted()
	for _, s := range r.systems {
		if st, ok := s.(Stopper); ok {
			st.Stop()
		}
	}
}

// Ticks returns the number of completed ticks.
func (r *Runner) Ticks() uint64 { return r.ticks }

func (r *Runner) Overruns() uint64 { return r.overruns }

func (r *Runner) Slowest() time.Duration { return r.slowest }

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
