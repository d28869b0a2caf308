package model

// Engine drives a Task from a stream of events.
type Engine interface {
	// Start launches the event worker.
	Start()

	// Stop drains pending events, finalises the run and hands the result
	// to the writers.
	Stop() (*Result, error)

	// Input returns the channel events should be sent to.
	Input() chan<- Event
}
