package protocol

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hub = mustMAC("00:00:00:00:00:01")
	sta = mustMAC("00:00:00:00:00:02")
)

func mustMAC(s string) net.HardwareAddr {
	a, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return a
}

func dataFrame(length int) model.Frame {
	return model.Frame{
		Type:        layers.Dot11TypeData,
		Source:      hub,
		Destination: sta,
		BSSID:       hub,
		Length:      length,
	}
}

func TestParseFrameRoundTrip(t *testing.T) {
	data, err := SerializeFrame(dataFrame(1064), RadioInfo{
		SignalDBm: -42,
		HasSignal: true,
		Retry:     true,
		InAMPDU:   true,
		AMPDURef:  7,
		LastAMPDU: true,
	})
	require.NoError(t, err)

	ci := gopacket.CaptureInfo{Timestamp: time.Unix(10, 0), CaptureLength: len(data), Length: len(data)}
	c, err := ParseFrame(data, ci)
	require.NoError(t, err)

	assert.True(t, c.Frame.IsData())
	assert.Equal(t, hub, c.Frame.Source)
	assert.Equal(t, sta, c.Frame.Destination)
	assert.Equal(t, hub, c.Frame.BSSID)
	assert.Equal(t, 1064, c.Frame.Length)

	assert.True(t, c.HasSignal)
	assert.Equal(t, -42.0, c.SignalDBm)
	assert.True(t, c.Frame.HasSignal)
	assert.Equal(t, -42.0, c.Frame.SignalDBm)

	assert.True(t, c.Retry)
	assert.False(t, c.BadFCS)
	assert.True(t, c.InAMPDU)
	assert.Equal(t, uint32(7), c.AMPDURef)
	assert.True(t, c.LastAMPDU)
	assert.Equal(t, ci, c.CaptureInfo)
}

func TestParseFrameBadFCS(t *testing.T) {
	data, err := SerializeFrame(dataFrame(200), RadioInfo{BadFCS: true})
	require.NoError(t, err)

	c, err := ParseFrame(data, gopacket.CaptureInfo{})
	require.NoError(t, err)
	assert.True(t, c.BadFCS)
	assert.False(t, c.HasSignal)
	assert.False(t, c.InAMPDU)
	assert.Equal(t, 200, c.Frame.Length)
}

func TestParseFrameGarbage(t *testing.T) {
	_, err := ParseFrame([]byte{0x01, 0x02}, gopacket.CaptureInfo{})
	assert.Error(t, err)
}

func TestBSSID(t *testing.T) {
	a1, a2, a3 := mustMAC("00:00:00:00:00:0a"), mustMAC("00:00:00:00:00:0b"), mustMAC("00:00:00:00:00:0c")
	d := &layers.Dot11{Address1: a1, Address2: a2, Address3: a3}
	assert.Equal(t, a3, BSSID(d))

	d.Flags = layers.Dot11FlagsToDS
	assert.Equal(t, a1, BSSID(d))

	d.Flags = layers.Dot11FlagsFromDS
	assert.Equal(t, a2, BSSID(d))

	d.Flags = layers.Dot11FlagsToDS | layers.Dot11FlagsFromDS
	assert.Nil(t, BSSID(d))
}

