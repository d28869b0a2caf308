package pcap

import (
	"io"
	"net"
	"os"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/networmix/ee500-wifi/internal/engine/protocol"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Reader turns a RadioTap monitor capture into run events.
//
// Frames flagged with a bad FCS become PHY drops. Good frames become PHY
// receptions, with the MPDUs of one A-MPDU grouped into a single batch.
// Data frames of the hub's BSS also raise MAC events: a first transmission
// (retry bit clear) sent by the hub is a MAC transmission, and every good
// frame addressed to a known station is a MAC reception.
type Reader struct {
	r        *pcapgo.Reader
	closer   io.Closer
	hub      net.HardwareAddr
	stations []net.HardwareAddr

	start   time.Time
	started bool

	batch    []*protocol.Captured
	batchRef uint32
	macRx    []model.Event
}

// NewReader opens the pcap file at filePath.
func NewReader(filePath string, hub net.HardwareAddr, stations []net.HardwareAddr) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open capture")
	}
	r, err := FromReader(f, hub, stations)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// FromReader reads a capture from an already open stream.
func FromReader(in io.Reader, hub net.HardwareAddr, stations []net.HardwareAddr) (*Reader, error) {
	r, err := pcapgo.NewReader(in)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read pcap header")
	}
	if lt := r.LinkType(); lt != layers.LinkTypeIEEE80211Radio {
		return nil, errors.Errorf("unsupported link type %s, want radiotap", lt)
	}
	return &Reader{r: r, hub: hub, stations: stations}, nil
}

// Close closes the underlying file, if the reader opened it.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadEvents reads the whole capture and calls fn for every event in
// capture order. Event times are relative to the first captured frame.
// Frames that fail to decode are logged and skipped.
func (r *Reader) ReadEvents(fn func(model.Event) error) error {
	var frames, skipped int
	for {
		data, ci, err := r.r.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "failed to read packet")
		}
		if !r.started {
			r.start, r.started = ci.Timestamp, true
		}

		c, err := protocol.ParseFrame(data, ci)
		if err != nil {
			zap.L().Debug("Skipping undecodable frame", zap.Error(err))
			skipped++
			continue
		}
		frames++
		if err := r.handle(c, fn); err != nil {
			return err
		}
	}

	if err := r.flush(fn); err != nil {
		return err
	}
	zap.L().Info("Capture read", zap.Int("frames", frames), zap.Int("skipped", skipped))
	return nil
}

func (r *Reader) handle(c *protocol.Captured, fn func(model.Event) error) error {
	at := c.CaptureInfo.Timestamp.Sub(r.start)

	if c.BadFCS {
		return fn(model.PhyDrop{At: at, Frame: c.Frame, Reason: model.DropErroneousFrame})
	}

	if c.InAMPDU && len(r.batch) > 0 && c.AMPDURef != r.batchRef {
		if err := r.flush(fn); err != nil {
			return err
		}
	}
	if !c.InAMPDU {
		if err := r.flush(fn); err != nil {
			return err
		}
	}

	if r.isFirstHubTx(c) {
		if err := fn(model.MacTx{At: at, Frame: c.Frame}); err != nil {
			return err
		}
	}
	if r.isStationRx(c) {
		r.macRx = append(r.macRx, model.MacRx{At: at, Frame: c.Frame})
	}

	if c.InAMPDU {
		r.batch = append(r.batch, c)
		r.batchRef = c.AMPDURef
		if c.LastAMPDU {
			return r.flush(fn)
		}
		return nil
	}

	r.batch = append(r.batch, c)
	return r.flush(fn)
}

// flush emits the pending reception, followed by the MAC receptions of
// its frames.
func (r *Reader) flush(fn func(model.Event) error) error {
	if len(r.batch) == 0 {
		return nil
	}

	first := r.batch[0]
	last := r.batch[len(r.batch)-1]
	ev := model.PhyRx{
		At:        last.CaptureInfo.Timestamp.Sub(r.start),
		SignalDBm: first.SignalDBm,
	}
	if first.InAMPDU {
		frames := make([]model.Frame, len(r.batch))
		for i, c := range r.batch {
			frames[i] = c.Frame
		}
		ev.Tx = model.Batch{Subframes: frames}
	} else {
		ev.Tx = first.Frame
	}
	r.batch = r.batch[:0]

	if err := fn(ev); err != nil {
		return err
	}
	for _, rx := range r.macRx {
		if err := fn(rx); err != nil {
			return err
		}
	}
	r.macRx = r.macRx[:0]
	return nil
}

func (r *Reader) isFirstHubTx(c *protocol.Captured) bool {
	return c.Frame.IsData() && !c.Retry &&
		model.SameAddr(c.Frame.Source, r.hub) && model.SameAddr(c.Frame.BSSID, r.hub)
}

func (r *Reader) isStationRx(c *protocol.Captured) bool {
	if !c.Frame.IsData() || !model.SameAddr(c.Frame.BSSID, r.hub) {
		return false
	}
	for _, s := range r.stations {
		if model.SameAddr(c.Frame.Destination, s) {
			return true
		}
	}
	return false
}
