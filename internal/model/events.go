package model

import "time"

// Event is anything the engine can dispatch into a run. At is the
// experiment clock, measured from the start of the run.
type Event interface {
	Time() time.Duration
}

// AppTx is raised by a sender application for every packet it sends.
type AppTx struct {
	At   time.Duration
	Node int
	Size int
}

// AppRx is raised by a receiver application for every packet it receives.
// SentAt is the timestamp the sender tagged the packet with.
type AppRx struct {
	At     time.Duration
	Node   int
	Size   int
	SentAt time.Duration
}

// MacTx is raised when the MAC hands a frame to the PHY for the first time.
type MacTx struct {
	At    time.Duration
	Frame Frame
}

// MacRx is raised when the MAC accepts a frame.
type MacRx struct {
	At    time.Duration
	Frame Frame
}

// PhyDrop is raised when the PHY of Station drops a frame. A Station of 0
// means the observer is not known to the source.
type PhyDrop struct {
	At      time.Duration
	Station int
	Frame   Frame
	Reason  DropReason
}

// PhyRx is raised when the PHY of Station successfully receives a frame or
// an aggregate. SignalDBm applies to every sub-frame without its own signal.
type PhyRx struct {
	At        time.Duration
	Station   int
	Tx        Transmission
	SignalDBm float64
}

func (e AppTx) Time() time.Duration   { return e.At }
func (e AppRx) Time() time.Duration   { return e.At }
func (e MacTx) Time() time.Duration   { return e.At }
func (e MacRx) Time() time.Duration   { return e.At }
func (e PhyDrop) Time() time.Duration { return e.At }
func (e PhyRx) Time() time.Duration   { return e.At }
