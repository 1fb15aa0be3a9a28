package arquery

import "time"

// State is the position of one identifier in its query lifecycle.
type State int

const (
	StatePending State = iota
	StateAttempting
	StateWaiting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAttempting:
		return "attempting"
	case StateWaiting:
		return "waiting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Event describes one state transition.
type Event struct {
	Agent       string
	State       State
	Attempt     int
	MaxAttempts int
	// Err is the failure that caused a Waiting or Failed transition.
	Err error
	// Delay is the pause ahead when State is Waiting.
	Delay    time.Duration
	Response Response
}

// Reporter receives every transition, in order, on the driver's goroutine.
type Reporter interface {
	Report(Event)
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}

// Result is the terminal outcome for one identifier.
type Result struct {
	Agent    string
	State    State
	Attempts int
	Response Response
	Err      error
	Started  time.Time
	Finished time.Time
}

func (r Result) Succeeded() bool {
	return r.State == StateSucceeded
}

func (r Result) Duration() time.Duration {
	if r.Finished.IsZero() || r.Started.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Summary collects the results of one batch run in input order.
type Summary struct {
	RunID     string
	Results   []Result
	Succeeded int
	Failed    int
}

// OK reports whether every identifier succeeded.
func (s Summary) OK() bool {
	return s.Failed == 0
}
