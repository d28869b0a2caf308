// Package classifier decides which PHY events belong to the monitored
// downlink flows and counts them.
package classifier

import (
	"net"

	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/networmix/ee500-wifi/internal/stats"
	"go.uber.org/zap"
)

// LinkStats are the PHY counters of one context.
type LinkStats struct {
	DropCount *stats.Counter[uint64]
	DropBytes *stats.Counter[uint64]
	RxCount   *stats.Counter[uint64]
	RxBytes   *stats.Counter[uint64]
	TxCount   *stats.Counter[uint64]
	TxBytes   *stats.Counter[uint64]
	RSSSum    *stats.Counter[float64]
}

func newLinkStats(context string) *LinkStats {
	return &LinkStats{
		DropCount: stats.NewCounter[uint64](stats.VarPhyDropCount, context),
		DropBytes: stats.NewCounter[uint64](stats.VarPhyDropBytes, context),
		RxCount:   stats.NewCounter[uint64](stats.VarPhyRxCount, context),
		RxBytes:   stats.NewCounter[uint64](stats.VarPhyRxBytes, context),
		TxCount:   stats.NewCounter[uint64](stats.VarPhyTxCount, context),
		TxBytes:   stats.NewCounter[uint64](stats.VarPhyTxBytes, context),
		RSSSum:    stats.NewCounter[float64](stats.VarPhyRxRSSSum, context),
	}
}

func (l *LinkStats) register(reg *stats.Registry) {
	reg.Add(l.DropCount)
	reg.Add(l.DropBytes)
	reg.Add(l.RxCount)
	reg.Add(l.RxBytes)
	reg.Add(l.TxCount)
	reg.Add(l.TxBytes)
	reg.Add(l.RSSSum)
}

func (l *LinkStats) attempted(length uint64) {
	l.TxCount.Update()
	l.TxBytes.Add(length)
}

// Classifier matches frames against the downlink filter: data frames in
// the hub's BSS addressed to the observing station. Matching frames are
// counted for the station and for the aggregate.
//
// A received frame also counts as an attempted transmission, as does a
// dropped one, so attempted = received + dropped. This only holds if the
// event source reports every attempted sub-frame exactly once.
type Classifier struct {
	hub       net.HardwareAddr
	stations  map[int]net.HardwareAddr
	byAddr    map[string]int
	nodes     map[int]*LinkStats
	aggregate *LinkStats
}

// New creates a classifier for the given hub. stations[i] is the address
// of station i+1. All counters are registered with reg, per station first
// and the aggregate last.
func New(hub net.HardwareAddr, stations []net.HardwareAddr, reg *stats.Registry) *Classifier {
	c := &Classifier{
		hub:       hub,
		stations:  make(map[int]net.HardwareAddr, len(stations)),
		byAddr:    make(map[string]int, len(stations)),
		nodes:     make(map[int]*LinkStats, len(stations)),
		aggregate: newLinkStats(stats.AggregateContext),
	}
	for i, addr := range stations {
		idx := i + 1
		c.stations[idx] = addr
		c.byAddr[addr.String()] = idx
		c.nodes[idx] = newLinkStats(stats.NodeContext(idx))
		c.nodes[idx].register(reg)
	}
	c.aggregate.register(reg)
	return c
}

// Station returns the index of the station with the given address.
func (c *Classifier) Station(addr net.HardwareAddr) (int, bool) {
	idx, ok := c.byAddr[addr.String()]
	return idx, ok
}

// Node returns the counters of station i, or nil.
func (c *Classifier) Node(i int) *LinkStats {
	return c.nodes[i]
}

// Aggregate returns the counters summed over all stations.
func (c *Classifier) Aggregate() *LinkStats {
	return c.aggregate
}

// Match reports whether f is a downlink data frame from the hub to owner.
func (c *Classifier) Match(owner int, f model.Frame) bool {
	return f.IsData() &&
		model.SameAddr(f.BSSID, c.hub) &&
		model.SameAddr(f.Destination, c.stations[owner])
}

// OnDrop handles a frame dropped by the PHY of station owner. The reason
// is only logged.
func (c *Classifier) OnDrop(owner int, f model.Frame, reason model.DropReason) {
	zap.L().Debug("phy drop",
		zap.Int("station", owner),
		zap.Stringer("reason", reason),
		zap.Int("bytes", f.Length))
	if !c.Match(owner, f) {
		return
	}
	length := uint64(f.Length)
	for _, l := range c.targets(owner) {
		l.DropCount.Update()
		l.DropBytes.Add(length)
		l.attempted(length)
	}
}

// OnReceive handles a frame or aggregate received by station owner. Each
// sub-frame of an aggregate is matched on its own.
func (c *Classifier) OnReceive(owner int, tx model.Transmission, signal float64) {
	frames := tx.Frames()
	if len(frames) > 1 {
		zap.L().Debug("unwrapping a-mpdu", zap.Int("station", owner), zap.Int("subframes", len(frames)))
	}
	for _, f := range frames {
		if !c.Match(owner, f) {
			continue
		}
		rss := signal
		if f.HasSignal {
			rss = f.SignalDBm
		}
		length := uint64(f.Length)
		for _, l := range c.targets(owner) {
			l.RxCount.Update()
			l.RxBytes.Add(length)
			l.RSSSum.Add(rss)
			l.attempted(length)
		}
	}
}

func (c *Classifier) targets(owner int) []*LinkStats {
	if node, ok := c.nodes[owner]; ok {
		return []*LinkStats{node, c.aggregate}
	}
	return []*LinkStats{c.aggregate}
}
