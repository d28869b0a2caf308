// Package experiment wires the statistics of one experiment run and
// dispatches events into them.
package experiment

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/networmix/ee500-wifi/internal/classifier"
	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/networmix/ee500-wifi/internal/metrics"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/networmix/ee500-wifi/internal/stats"
	"github.com/networmix/ee500-wifi/internal/trace"
	"go.uber.org/zap"
)

type node struct {
	sent     *stats.Counter[uint32]
	received *stats.Counter[uint32]
	delay    *stats.TimeDistribution
}

// Run owns the registry of one experiment run. It implements model.Task
// and must be driven from a single goroutine.
type Run struct {
	id         string
	reg        *stats.Registry
	classifier *classifier.Classifier
	nodes      map[int]*node
	metricsCfg metrics.RunConfig

	appTx *trace.Source[model.AppTx]
	appRx *trace.Source[model.AppRx]
	macTx *trace.Source[model.MacTx]
	macRx *trace.Source[model.MacRx]

	now func() time.Time
}

// New builds the registry for a run described by cfg.
func New(cfg *config.Config) *Run {
	stations := cfg.StationAddrs()
	r := &Run{
		id:    cfg.Run.RunID,
		reg:   stats.NewRegistry(),
		nodes: make(map[int]*node, len(stations)),
		metricsCfg: metrics.RunConfig{
			Duration:   cfg.RunDuration(),
			PacketSize: cfg.Run.PacketSize,
			Stations:   len(stations),
		},
		appTx: trace.NewSource[model.AppTx]("app-tx"),
		appRx: trace.NewSource[model.AppRx]("app-rx"),
		macTx: trace.NewSource[model.MacTx]("mac-tx"),
		macRx: trace.NewSource[model.MacRx]("mac-rx"),
		now:   time.Now,
	}

	r.reg.DescribeRun(cfg.Run.Experiment, cfg.Run.Strategy, cfg.Run.Input, cfg.Run.RunID)
	r.reg.AddMetadata(stats.MetaDuration, strconv.FormatFloat(r.metricsCfg.Duration.Seconds(), 'f', -1, 64))
	r.reg.AddMetadata(stats.MetaPacketSize, strconv.Itoa(cfg.Run.PacketSize))
	r.reg.AddMetadata(stats.MetaPacketNum, strconv.Itoa(cfg.Run.PacketNum))
	r.reg.AddMetadata(stats.MetaStaNum, strconv.Itoa(len(stations)))
	r.reg.AddMetadata(stats.MetaHub, cfg.Run.Hub)
	extra := make([]string, 0, len(cfg.Run.Metadata))
	for k := range cfg.Run.Metadata {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		r.reg.AddMetadata(k, cfg.Run.Metadata[k])
	}

	for i := 1; i <= len(stations); i++ {
		ctx := stats.NodeContext(i)
		n := &node{
			sent:     stats.NewCounter[uint32](stats.VarSenderTxPackets, ctx),
			received: stats.NewCounter[uint32](stats.VarReceiverRxPackets, ctx),
			delay:    stats.NewTimeDistribution(stats.VarDelay, ctx),
		}
		r.reg.Add(n.sent)
		r.reg.Add(n.received)
		r.reg.Add(n.delay)
		r.nodes[i] = n
	}

	r.classifier = classifier.New(cfg.HubAddr(), stations, r.reg)

	macTxFrames := stats.NewPacketCounter(stats.VarMacTxFrames, stats.AggregateContext)
	stats.Bind[model.MacTx](macTxFrames, r.macTx)
	macRxFrames := stats.NewPacketCounter(stats.VarMacRxFrames, stats.AggregateContext)
	stats.Bind[model.MacRx](macRxFrames, r.macRx)
	appSent := stats.NewPacketCounter(stats.VarSenderTxPackets, stats.AggregateContext)
	stats.Bind[model.AppTx](appSent, r.appTx)
	appReceived := stats.NewPacketCounter(stats.VarReceiverRxPackets, stats.AggregateContext)
	stats.Bind[model.AppRx](appReceived, r.appRx)
	r.reg.Add(macTxFrames)
	r.reg.Add(macRxFrames)
	r.reg.Add(appSent)
	r.reg.Add(appReceived)

	return r
}

// Name returns the run id.
func (r *Run) Name() string {
	return r.id
}

// Registry exposes the run's statistics.
func (r *Run) Registry() *stats.Registry {
	return r.reg
}

// Classifier exposes the run's frame classifier.
func (r *Run) Classifier() *classifier.Classifier {
	return r.classifier
}

// MetricsConfig returns the parameters used to derive the report.
func (r *Run) MetricsConfig() metrics.RunConfig {
	return r.metricsCfg
}

// ProcessEvent dispatches a single event.
func (r *Run) ProcessEvent(ev model.Event) {
	switch e := ev.(type) {
	case model.AppTx:
		r.AppSent(e.Node, e.Size, e.At)
	case model.AppRx:
		r.AppReceived(e.Node, e.Size, e.SentAt, e.At)
	case model.MacTx:
		r.macTx.Fire(e)
	case model.MacRx:
		r.macRx.Fire(e)
	case model.PhyDrop:
		r.classifier.OnDrop(r.observer(e.Station, e.Frame), e.Frame, e.Reason)
	case model.PhyRx:
		if e.Tx == nil {
			return
		}
		r.classifier.OnReceive(r.observer(e.Station, e.Tx.Frames()...), e.Tx, e.SignalDBm)
	default:
		zap.L().Warn("ignoring unknown event", zap.String("type", fmt.Sprintf("%T", ev)))
	}
}

// AppSent records a packet sent by the application of station i.
func (r *Run) AppSent(i, size int, at time.Duration) {
	if n, ok := r.nodes[i]; ok {
		n.sent.Update()
	}
	r.appTx.Fire(model.AppTx{At: at, Node: i, Size: size})
}

// AppReceived records a packet received by the application of station i.
// The one-way delay is at - sentAt.
func (r *Run) AppReceived(i, size int, sentAt, at time.Duration) {
	if n, ok := r.nodes[i]; ok {
		n.received.Update()
		n.delay.Update(at - sentAt)
	}
	r.appRx.Fire(model.AppRx{At: at, Node: i, Size: size, SentAt: sentAt})
}

// Snapshot flattens the registry and derives the report.
func (r *Run) Snapshot() *model.Result {
	fe := export.Flatten(r.reg)
	return &model.Result{
		RunID:     r.id,
		Timestamp: r.now(),
		Export:    fe,
		Report:    metrics.Derive(fe, r.metricsCfg),
	}
}

// observer resolves the station an event was seen by. Sources that do not
// know it (station 0) get the first station a frame is addressed to.
func (r *Run) observer(station int, frames ...model.Frame) int {
	if station != 0 {
		return station
	}
	for _, f := range frames {
		if idx, ok := r.classifier.Station(f.Destination); ok {
			return idx
		}
	}
	return 0
}
