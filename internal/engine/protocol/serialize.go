package protocol

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/pkg/errors"
)

// RadioInfo is the radio metadata written in front of a serialized frame.
type RadioInfo struct {
	SignalDBm float64
	HasSignal bool
	BadFCS    bool
	Retry     bool

	InAMPDU   bool
	AMPDURef  uint32
	LastAMPDU bool
}

// SerializeFrame builds a RadioTap + 802.11 frame for f. The 802.11 body
// is zero-filled so that the decoded frame length (header, body and FCS)
// equals f.Length where possible. The BSSID is placed in Address3, which
// describes a frame with neither DS bit set.
func SerializeFrame(f model.Frame, info RadioInfo) ([]byte, error) {
	rt := &layers.RadioTap{
		Present: layers.RadioTapPresentFlags,
		Flags:   layers.RadioTapFlagsFCS,
	}
	if info.BadFCS {
		rt.Flags |= layers.RadioTapFlagsBadFCS
	}
	if info.HasSignal {
		rt.Present |= layers.RadioTapPresentDBMAntennaSignal
		rt.DBMAntennaSignal = int8(info.SignalDBm)
	}
	if info.InAMPDU {
		rt.Present |= layers.RadioTapPresentAMPDUStatus
		rt.AMPDUStatus.Reference = info.AMPDURef
		rt.AMPDUStatus.Flags = layers.RadioTapAMPDULastKnown
		if info.LastAMPDU {
			rt.AMPDUStatus.Flags |= layers.RadioTapAMPDUIsLast
		}
	}

	dot11 := &layers.Dot11{
		Type:     f.Type,
		Address1: f.Destination,
		Address2: f.Source,
		Address3: f.BSSID,
	}
	if info.Retry {
		dot11.Flags |= layers.Dot11FlagsRetry
	}

	const headerAndFCS = 24 + 4
	body := f.Length - headerAndFCS
	if body < 0 {
		body = 0
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, rt, dot11, gopacket.Payload(make([]byte, body+4))); err != nil {
		return nil, errors.Wrap(err, "failed to serialize frame")
	}
	return buf.Bytes(), nil
}
