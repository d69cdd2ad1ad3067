package aggregator

import "time"

// State is a source's position in one run
type State string

const (
	StatePending    State = "pending"
	StateFetching   State = "fetching"
	StateReducing   State = "reducing"
	StateAllocating State = "allocating"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether no further events follow for the source
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Event is one state transition of one source
type Event struct {
	RunID    string    `json:"run_id"`
	SourceID string    `json:"source"`
	State    State     `json:"state"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Observer receives progress events
type Observer func(Event)

type tracker struct {
	runID string
	obs   Observer
}

func newTracker(runID string, obs Observer) *tracker {
	return &tracker{runID: runID, obs: obs}
}

func (t *tracker) emit(sourceID string, state State, err error) {
	if t.obs == nil {
		return
	}

	ev := Event{RunID: t.runID, SourceID: sourceID, State: state, At: time.Now()}
	if err != nil {
		ev.Error = err.Error()
	}
	t.obs(ev)
}
