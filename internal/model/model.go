package model

import (
	"bytes"
	"net"

	"github.com/google/gopacket/layers"
)

// Frame is a single 802.11 MPDU as seen by an observer.
type Frame struct {
	Type        layers.Dot11Type
	Source      net.HardwareAddr
	Destination net.HardwareAddr
	BSSID       net.HardwareAddr
	Length      int

	// Per-frame signal in dBm, set by sources that measure each MPDU of an
	// aggregate separately. When HasSignal is false the event-level signal
	// applies.
	SignalDBm float64
	HasSignal bool
}

// IsData reports whether the frame belongs to the data plane.
func (f Frame) IsData() bool {
	return f.Type.MainType() == layers.Dot11TypeData
}

// Frames returns the frame itself.
func (f Frame) Frames() []Frame {
	return []Frame{f}
}

// Batch is an aggregated transmission (A-MPDU): an ordered sequence of
// frames that must be unwrapped before classification.
type Batch struct {
	Subframes []Frame
}

// Frames returns the sub-frames in transmission order.
func (b Batch) Frames() []Frame {
	return b.Subframes
}

// Transmission is either a single Frame or a Batch.
type Transmission interface {
	Frames() []Frame
}

// SameAddr compares two hardware addresses, treating nil as unknown.
func SameAddr(a, b net.HardwareAddr) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return bytes.Equal(a, b)
}
