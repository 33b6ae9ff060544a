package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput     Phase = iota // 0: drain console / script commands
	PhasePreUpdate              // 1: dispatch last tick's events
	PhaseTransfer               // 2: map exit snapshot + map entry replay
	PhaseUpdate                 // 3: copy queue draining, materialization
	PhaseOutput                 // 4: hand spawned/retired events to the presenter
	PhasePersist                // 5: flush saved copy lists to the backend
	PhaseCleanup                // 6: clear per-tick queues
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Stopper is implemented by systems with work left to finish at shutdown.
type Stopper interface {
	Stop()
}
