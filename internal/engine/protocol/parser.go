package protocol

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/pkg/errors"
)

// Captured is one MPDU decoded from a RadioTap monitor capture, with the
// radio metadata needed to rebuild PHY events.
type Captured struct {
	Frame model.Frame

	BadFCS bool
	Retry  bool

	// A-MPDU membership from the RadioTap A-MPDU status field.
	InAMPDU   bool
	AMPDURef  uint32
	LastAMPDU bool

	SignalDBm float64
	HasSignal bool

	CaptureInfo gopacket.CaptureInfo
}

// ParseFrame uses gopacket to decode a RadioTap + 802.11 frame.
func ParseFrame(data []byte, ci gopacket.CaptureInfo) (*Captured, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeRadioTap, gopacket.Default)

	l := packet.Layer(layers.LayerTypeRadioTap)
	if l == nil {
		if errLayer := packet.ErrorLayer(); errLayer != nil {
			return nil, errors.Wrap(errLayer.Error(), "not a radiotap frame")
		}
		return nil, errors.New("not a radiotap frame")
	}
	rt := l.(*layers.RadioTap)

	l = packet.Layer(layers.LayerTypeDot11)
	if l == nil {
		return nil, errors.New("no 802.11 header")
	}
	dot11 := l.(*layers.Dot11)

	c := &Captured{
		Frame: model.Frame{
			Type:        dot11.Type,
			Source:      dot11.Address2,
			Destination: dot11.Address1,
			BSSID:       BSSID(dot11),
			Length:      len(rt.Payload),
		},
		BadFCS:      rt.Flags.BadFCS(),
		Retry:       dot11.Flags.Retry(),
		CaptureInfo: ci,
	}

	if rt.Present.DBMAntennaSignal() {
		c.SignalDBm = float64(rt.DBMAntennaSignal)
		c.HasSignal = true
		c.Frame.SignalDBm = c.SignalDBm
		c.Frame.HasSignal = true
	}
	if rt.Present.AMPDUStatus() {
		c.InAMPDU = true
		c.AMPDURef = rt.AMPDUStatus.Reference
		c.LastAMPDU = rt.AMPDUStatus.Flags.LastKnown() && rt.AMPDUStatus.Flags.IsLast()
	}

	return c, nil
}

// BSSID returns the BSS address of a frame, whose position depends on the
// distribution-system bits.
func BSSID(d *layers.Dot11) net.HardwareAddr {
	switch {
	case d.Flags.FromDS() && d.Flags.ToDS():
		return nil
	case d.Flags.FromDS():
		return d.Address2
	case d.Flags.ToDS():
		return d.Address1
	default:
		return d.Address3
	}
}
