package protocol

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTrace(t *testing.T) {
	const trace = `
# two packets, one aggregate
{"kind":"app_tx","at":"1ms","node":1,"size":1000}
{"kind":"mac_tx","at":"2ms","frames":[{"type":"qos-data","src":"00:00:00:00:00:01","dst":"00:00:00:00:00:02","bssid":"00:00:00:00:00:01","len":1064}]}
{"kind":"phy_drop","at":"3ms","station":1,"reason":"PREAMBLE_DETECT_FAILURE","frames":[{"type":"data","dst":"00:00:00:00:00:02","bssid":"00:00:00:00:00:01","len":100}]}
{"kind":"phy_rx","at":"4ms","station":1,"signal_dbm":-50,"frames":[{"type":"data","len":10,"signal_dbm":-10},{"type":"data","len":12}]}
{"kind":"app_rx","at":"5ms","node":1,"size":1000,"sent_at":"1ms"}
`
	var events []model.Event
	require.NoError(t, DecodeTrace(strings.NewReader(trace), func(ev model.Event) error {
		events = append(events, ev)
		return nil
	}))
	require.Len(t, events, 5)

	assert.Equal(t, model.AppTx{At: time.Millisecond, Node: 1, Size: 1000}, events[0])

	macTx := events[1].(model.MacTx)
	assert.Equal(t, layers.Dot11TypeDataQOSData, macTx.Frame.Type)
	assert.Equal(t, sta, macTx.Frame.Destination)

	drop := events[2].(model.PhyDrop)
	assert.Equal(t, model.DropPreambleDetectFailure, drop.Reason)
	assert.Equal(t, 1, drop.Station)
	assert.Nil(t, drop.Frame.Source)

	rx := events[3].(model.PhyRx)
	batch, ok := rx.Tx.(model.Batch)
	require.True(t, ok)
	require.Len(t, batch.Subframes, 2)
	assert.True(t, batch.Subframes[0].HasSignal)
	assert.Equal(t, -10.0, batch.Subframes[0].SignalDBm)
	assert.False(t, batch.Subframes[1].HasSignal)
	assert.Equal(t, -50.0, rx.SignalDBm)

	assert.Equal(t, model.AppRx{At: 5 * time.Millisecond, Node: 1, Size: 1000, SentAt: time.Millisecond}, events[4])
}

func TestDecodeTraceErrors(t *testing.T) {
	for name, line := range map[string]string{
		"syntax":       `{"kind":`,
		"kind":         `{"kind":"nope","at":"1s"}`,
		"time":         `{"kind":"app_tx","at":"soon"}`,
		"frame type":   `{"kind":"mac_tx","at":"1s","frames":[{"type":"beacon","len":1}]}`,
		"frame count":  `{"kind":"mac_rx","at":"1s"}`,
		"mac":          `{"kind":"mac_rx","at":"1s","frames":[{"type":"data","src":"zz","len":1}]}`,
		"empty phy_rx": `{"kind":"phy_rx","at":"1s"}`,
	} {
		t.Run(name, func(t *testing.T) {
			err := DecodeTrace(strings.NewReader("\n"+line+"\n"), func(model.Event) error { return nil })
			require.Error(t, err)
			assert.Contains(t, err.Error(), "trace line 2")
		})
	}
}

func TestEncodeTrace(t *testing.T) {
	f := dataFrame(1064)
	f.SignalDBm, f.HasSignal = -41, true
	in := []model.Event{
		model.AppTx{At: time.Second, Node: 2, Size: 500},
		model.AppRx{At: 2 * time.Second, Node: 2, Size: 500, SentAt: time.Second},
		model.MacTx{At: time.Second, Frame: f},
		model.MacRx{At: time.Second, Frame: f},
		model.PhyDrop{At: time.Second, Station: 2, Frame: f, Reason: model.DropLSIGFailure},
		model.PhyRx{At: time.Second, Station: 2, Tx: model.Batch{Subframes: []model.Frame{f}}, SignalDBm: -60},
		model.PhyRx{At: time.Second, Station: 2, Tx: f, SignalDBm: -60},
	}

	var buf bytes.Buffer
	for _, ev := range in {
		require.NoError(t, EncodeTrace(&buf, ev))
	}

	var out []model.Event
	require.NoError(t, DecodeTrace(&buf, func(ev model.Event) error {
		out = append(out, ev)
		return nil
	}))
	assert.Equal(t, in, out)

	assert.Error(t, EncodeTrace(&buf, model.PhyRx{}))
}

func TestTraceEmptyBatch(t *testing.T) {
	in := model.PhyRx{At: time.Millisecond, Station: 1, Tx: model.Batch{}, SignalDBm: -55}

	var buf bytes.Buffer
	require.NoError(t, EncodeTrace(&buf, in))
	buf.WriteString(`{"kind":"phy_rx","at":"2ms","batch":true,"frames":[]}` + "\n")

	var out []model.Event
	require.NoError(t, DecodeTrace(&buf, func(ev model.Event) error {
		out = append(out, ev)
		return nil
	}))
	require.Len(t, out, 2)
	assert.Equal(t, in, out[0])

	rx := out[1].(model.PhyRx)
	batch, ok := rx.Tx.(model.Batch)
	require.True(t, ok)
	assert.Empty(t, batch.Frames())
}

func TestTraceDropReasons(t *testing.T) {
	f := dataFrame(100)

	var buf bytes.Buffer
	require.NoError(t, EncodeTrace(&buf, model.PhyDrop{At: time.Second, Station: 1, Frame: f, Reason: model.DropReason(42)}))
	buf.WriteString(`{"kind":"phy_drop","at":"2s","station":1,"reason":"SOMETHING_NEW","frames":[{"type":"data","len":100}]}` + "\n")

	var reasons []model.DropReason
	require.NoError(t, DecodeTrace(&buf, func(ev model.Event) error {
		reasons = append(reasons, ev.(model.PhyDrop).Reason)
		return nil
	}))
	assert.Equal(t, []model.DropReason{model.DropUnknown, model.DropUnknown}, reasons)
}
