package stats

// EventSource is anything a PacketCounter can subscribe to.
type EventSource[T any] interface {
	Connect(fn func(T))
}

// PacketCounter counts events delivered by the sources it is bound to.
// It has no public increment: the only way to move it is an event.
type PacketCounter struct {
	label
	count uint32
}

// NewPacketCounter creates an unbound packet counter.
func NewPacketCounter(key, context string) *PacketCounter {
	return &PacketCounter{label: label{key: key, context: context}}
}

// Bind subscribes c to src. A counter may be bound to several sources; each
// delivered event counts once.
func Bind[T any](c *PacketCounter, src EventSource[T]) {
	src.Connect(func(T) { c.count++ })
}

// Count returns the number of events observed so far.
func (c *PacketCounter) Count() uint32 {
	return c.count
}

// Float returns the count as a float64.
func (c *PacketCounter) Float() float64 {
	return float64(c.count)
}

func (*PacketCounter) producer() {}
