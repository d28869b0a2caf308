package persistent

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/engine/protocol"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const snaplen = 65536

// Recorder persists the events of a run to disk from a background
// goroutine, so that the run can be analysed again later.
//
// The jsonl encoding keeps every event. The pcap encoding keeps only what
// goes over the air: PHY receptions and drops, written as RadioTap frames.
type Recorder struct {
	eventChan chan model.Event
	wg        sync.WaitGroup
	closeOnce sync.Once

	file    *os.File
	buf     *bufio.Writer
	encode  func(model.Event) error
	dropped atomic.Uint64
}

// NewRecorder creates the output file for runID under cfg.Path and starts
// the writing goroutine.
func NewRecorder(cfg config.RecordConfig, runID string) (*Recorder, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create record directory")
	}

	queue := cfg.QueueSize
	if queue <= 0 {
		queue = config.DefaultRecordQueue
	}

	filePath := filepath.Join(cfg.Path, fmt.Sprintf("%s.%s", runID, cfg.Encoding))
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create record file")
	}

	r := &Recorder{
		eventChan: make(chan model.Event, queue),
		file:      file,
		buf:       bufio.NewWriter(file),
	}

	switch cfg.Encoding {
	case config.EncodingJSONL:
		r.encode = func(ev model.Event) error {
			return protocol.EncodeTrace(r.buf, ev)
		}
	case config.EncodingPcap:
		w := pcapgo.NewWriter(r.buf)
		if err := w.WriteFileHeader(snaplen, layers.LinkTypeIEEE80211Radio); err != nil {
			file.Close()
			return nil, errors.Wrap(err, "failed to write pcap header")
		}
		r.encode = NewPcapEncoder(w, time.Now()).Encode
	default:
		file.Close()
		return nil, errors.Errorf("unknown record encoding '%s'", cfg.Encoding)
	}

	r.wg.Add(1)
	go r.run()

	zap.L().Info("Event recorder started", zap.String("path", filePath), zap.String("encoding", cfg.Encoding))
	return r, nil
}

// Path returns the file the recorder writes to.
func (r *Recorder) Path() string {
	return r.file.Name()
}

// Enqueue hands an event to the recorder without blocking. Events are
// dropped while the queue is full.
func (r *Recorder) Enqueue(ev model.Event) {
	select {
	case r.eventChan <- ev:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events lost to a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close drains the queue and closes the file. Enqueue must not be called
// afterwards.
func (r *Recorder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.eventChan)
		r.wg.Wait()

		if flushErr := r.buf.Flush(); flushErr != nil {
			err = errors.Wrap(flushErr, "failed to flush record file")
		}
		if closeErr := r.file.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "failed to close record file")
		}
		if n := r.Dropped(); n > 0 {
			zap.L().Warn("Event recorder queue overflowed", zap.Uint64("dropped", n))
		}
		zap.L().Info("Event recorder stopped", zap.String("path", r.file.Name()))
	})
	return err
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for ev := range r.eventChan {
		if err := r.encode(ev); err != nil {
			zap.L().Error("Failed to record event", zap.Error(err), zap.String("event", fmt.Sprintf("%T", ev)))
		}
	}
}

// PcapEncoder writes PHY events as RadioTap frames stamped base + At.
// Other events are ignored. The pcap file header must already be written.
type PcapEncoder struct {
	w    *pcapgo.Writer
	base time.Time
	ref  uint32
}

// NewPcapEncoder creates an encoder writing to w.
func NewPcapEncoder(w *pcapgo.Writer, base time.Time) *PcapEncoder {
	return &PcapEncoder{w: w, base: base}
}

// Encode writes the frames of a PHY reception or drop. The sub-frames of
// a batch share a fresh A-MPDU reference.
func (p *PcapEncoder) Encode(ev model.Event) error {
	switch e := ev.(type) {
	case model.PhyDrop:
		return p.write(e.At, e.Frame, protocol.RadioInfo{BadFCS: true})
	case model.PhyRx:
		if e.Tx == nil {
			return nil
		}
		frames := e.Tx.Frames()
		_, isBatch := e.Tx.(model.Batch)
		if isBatch {
			p.ref++
		}
		for i, f := range frames {
			info := protocol.RadioInfo{SignalDBm: e.SignalDBm, HasSignal: true}
			if f.HasSignal {
				info.SignalDBm = f.SignalDBm
			}
			if isBatch {
				info.InAMPDU = true
				info.AMPDURef = p.ref
				info.LastAMPDU = i == len(frames)-1
			}
			if err := p.write(e.At, f, info); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *PcapEncoder) write(at time.Duration, f model.Frame, info protocol.RadioInfo) error {
	data, err := protocol.SerializeFrame(f, info)
	if err != nil {
		return err
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     p.base.Add(at),
		CaptureLength: len(data),
		Length:        len(data),
	}
	return errors.Wrap(p.w.WritePacket(ci, data), "failed to write pcap packet")
}
