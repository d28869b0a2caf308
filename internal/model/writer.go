package model

// Writer persists the result of a run. Writers are invoked once per run,
// after the event stream is drained.
type Writer interface {
	// Write persists the result. timestamp is the wall-clock time the run
	// was finalised, formatted the same way for every writer of the run.
	Write(result *Result, timestamp string) error

	// Close releases connections or files held by the writer.
	Close() error
}
