package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Event kinds as they appear in a trace file.
const (
	KindAppTx   = "app_tx"
	KindAppRx   = "app_rx"
	KindMacTx   = "mac_tx"
	KindMacRx   = "mac_rx"
	KindPhyDrop = "phy_drop"
	KindPhyRx   = "phy_rx"
)

// Frame types as they appear in a trace file.
const (
	FrameData    = "data"
	FrameQoSData = "qos-data"
	FrameMgmt    = "mgmt"
	FrameCtrl    = "ctrl"
)

const maxTraceLine = 1 << 20

type frameRecord struct {
	Type      string   `json:"type"`
	Src       string   `json:"src,omitempty"`
	Dst       string   `json:"dst,omitempty"`
	BSSID     string   `json:"bssid,omitempty"`
	Len       int      `json:"len"`
	SignalDBm *float64 `json:"signal_dbm,omitempty"`
}

// record is one line of a JSONL trace.
type record struct {
	Kind      string        `json:"kind"`
	At        string        `json:"at"`
	Node      int           `json:"node,omitempty"`
	Size      int           `json:"size,omitempty"`
	SentAt    string        `json:"sent_at,omitempty"`
	Station   int           `json:"station,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	SignalDBm float64       `json:"signal_dbm,omitempty"`
	Batch     bool          `json:"batch,omitempty"`
	Frames    []frameRecord `json:"frames,omitempty"`
}

// DecodeTrace reads a JSONL event trace and calls fn for every event, in
// file order. Blank lines and lines starting with '#' are skipped. Decoding
// stops at the first malformed line or the first error returned by fn.
func DecodeTrace(r io.Reader, fn func(model.Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxTraceLine)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}

		var rec record
		if err := json.Unmarshal(text, &rec); err != nil {
			return errors.Wrapf(err, "trace line %d", line)
		}
		ev, err := rec.event()
		if err != nil {
			return errors.Wrapf(err, "trace line %d", line)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return errors.Wrap(scanner.Err(), "failed to read trace")
}

// EncodeTrace writes ev as a single JSONL line.
func EncodeTrace(w io.Writer, ev model.Event) error {
	rec, err := newRecord(ev)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to marshal trace record")
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (rec *record) event() (model.Event, error) {
	at, err := parseAt(rec.At)
	if err != nil {
		return nil, err
	}

	switch rec.Kind {
	case KindAppTx:
		return model.AppTx{At: at, Node: rec.Node, Size: rec.Size}, nil
	case KindAppRx:
		sentAt, err := parseAt(rec.SentAt)
		if err != nil {
			return nil, errors.Wrap(err, "sent_at")
		}
		return model.AppRx{At: at, Node: rec.Node, Size: rec.Size, SentAt: sentAt}, nil
	case KindMacTx, KindMacRx, KindPhyDrop:
		if len(rec.Frames) != 1 {
			return nil, errors.Errorf("%s needs exactly one frame, got %d", rec.Kind, len(rec.Frames))
		}
		f, err := rec.Frames[0].frame()
		if err != nil {
			return nil, err
		}
		switch rec.Kind {
		case KindMacTx:
			return model.MacTx{At: at, Frame: f}, nil
		case KindMacRx:
			return model.MacRx{At: at, Frame: f}, nil
		}
		reason := model.DropUnknown
		if rec.Reason != "" {
			var ok bool
			if reason, ok = model.ParseDropReason(rec.Reason); !ok {
				zap.L().Warn("unknown drop reason, using UNKNOWN", zap.String("reason", rec.Reason))
			}
		}
		return model.PhyDrop{At: at, Station: rec.Station, Frame: f, Reason: reason}, nil
	case KindPhyRx:
		if len(rec.Frames) == 0 {
			if !rec.Batch {
				return nil, errors.New("phy_rx without frames")
			}
			return model.PhyRx{At: at, Station: rec.Station, Tx: model.Batch{}, SignalDBm: rec.SignalDBm}, nil
		}
		frames := make([]model.Frame, 0, len(rec.Frames))
		for i := range rec.Frames {
			f, err := rec.Frames[i].frame()
			if err != nil {
				return nil, err
			}
			frames = append(frames, f)
		}
		var tx model.Transmission = frames[0]
		if rec.Batch || len(frames) > 1 {
			tx = model.Batch{Subframes: frames}
		}
		return model.PhyRx{At: at, Station: rec.Station, Tx: tx, SignalDBm: rec.SignalDBm}, nil
	default:
		return nil, errors.Errorf("unknown event kind '%s'", rec.Kind)
	}
}

func newRecord(ev model.Event) (*record, error) {
	rec := &record{At: ev.Time().String()}
	switch e := ev.(type) {
	case model.AppTx:
		rec.Kind, rec.Node, rec.Size = KindAppTx, e.Node, e.Size
	case model.AppRx:
		rec.Kind, rec.Node, rec.Size = KindAppRx, e.Node, e.Size
		rec.SentAt = e.SentAt.String()
	case model.MacTx:
		rec.Kind = KindMacTx
		rec.Frames = []frameRecord{newFrameRecord(e.Frame)}
	case model.MacRx:
		rec.Kind = KindMacRx
		rec.Frames = []frameRecord{newFrameRecord(e.Frame)}
	case model.PhyDrop:
		rec.Kind, rec.Station = KindPhyDrop, e.Station
		rec.Reason = e.Reason.String()
		rec.Frames = []frameRecord{newFrameRecord(e.Frame)}
	case model.PhyRx:
		if e.Tx == nil {
			return nil, errors.New("phy_rx without transmission")
		}
		rec.Kind, rec.Station, rec.SignalDBm = KindPhyRx, e.Station, e.SignalDBm
		_, rec.Batch = e.Tx.(model.Batch)
		for _, f := range e.Tx.Frames() {
			rec.Frames = append(rec.Frames, newFrameRecord(f))
		}
	default:
		return nil, errors.Errorf("unsupported event %T", ev)
	}
	return rec, nil
}

func newFrameRecord(f model.Frame) frameRecord {
	fr := frameRecord{
		Type:  frameTypeName(f.Type),
		Src:   macString(f.Source),
		Dst:   macString(f.Destination),
		BSSID: macString(f.BSSID),
		Len:   f.Length,
	}
	if f.HasSignal {
		s := f.SignalDBm
		fr.SignalDBm = &s
	}
	return fr
}

func (fr *frameRecord) frame() (model.Frame, error) {
	t, err := parseFrameType(fr.Type)
	if err != nil {
		return model.Frame{}, err
	}
	f := model.Frame{Type: t, Length: fr.Len}
	if f.Source, err = parseMAC(fr.Src); err != nil {
		return f, errors.Wrap(err, "src")
	}
	if f.Destination, err = parseMAC(fr.Dst); err != nil {
		return f, errors.Wrap(err, "dst")
	}
	if f.BSSID, err = parseMAC(fr.BSSID); err != nil {
		return f, errors.Wrap(err, "bssid")
	}
	if fr.SignalDBm != nil {
		f.SignalDBm, f.HasSignal = *fr.SignalDBm, true
	}
	return f, nil
}

func frameTypeName(t layers.Dot11Type) string {
	switch {
	case t == layers.Dot11TypeDataQOSData:
		return FrameQoSData
	case t.MainType() == layers.Dot11TypeData:
		return FrameData
	case t.MainType() == layers.Dot11TypeCtrl:
		return FrameCtrl
	default:
		return FrameMgmt
	}
}

func parseFrameType(s string) (layers.Dot11Type, error) {
	switch s {
	case FrameData:
		return layers.Dot11TypeData, nil
	case FrameQoSData:
		return layers.Dot11TypeDataQOSData, nil
	case FrameMgmt:
		return layers.Dot11TypeMgmtBeacon, nil
	case FrameCtrl:
		return layers.Dot11TypeCtrlAck, nil
	}
	return 0, errors.Errorf("unknown frame type '%s'", s)
}

func parseAt(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid time '%s'", s)
	}
	return d, nil
}

func parseMAC(s string) (net.HardwareAddr, error) {
	if s == "" {
		return nil, nil
	}
	return net.ParseMAC(s)
}

func macString(a net.HardwareAddr) string {
	if len(a) == 0 {
		return ""
	}
	return a.String()
}
