package model

// Task consumes the events of one run and turns its statistics into a
// Result once the run is over.
type Task interface {
	Name() string
	ProcessEvent(ev Event)
	Snapshot() *Result
}
