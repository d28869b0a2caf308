package stats

// Producer is a named statistic. The set of implementations is closed:
// *Counter[T], *PacketCounter and *TimeDistribution, all defined in this
// package. Code that dispatches over producers must handle exactly these.
type Producer interface {
	Key() string
	Context() string

	producer()
}

// Number is the set of value types a Counter can accumulate. Adding a
// type here means adding a case for its Counter to the exporter.
type Number interface {
	uint32 | uint64 | int64 | float64
}

// label holds the identity shared by all producers.
type label struct {
	key     string
	context string
}

func (l label) Key() string     { return l.key }
func (l label) Context() string { return l.context }

// SetKey renames the producer. Only meaningful during setup.
func (l *label) SetKey(key string) { l.key = key }

// SetContext changes the producer's scope label. Only meaningful during setup.
func (l *label) SetContext(context string) { l.context = context }
