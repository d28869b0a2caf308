package experiment

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/networmix/ee500-wifi/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hubMAC  = "00:00:00:00:00:01"
	sta1MAC = "00:00:00:00:00:02"
	sta2MAC = "00:00:00:00:00:03"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
run:
  experiment: wifi
  strategy: ideal
  input: scenario
  run_id: run-42
  duration: 10s
  packet_size: 1000
  packet_num: 100
  hub: "` + hubMAC + `"
  stations: ["` + sta1MAC + `", "` + sta2MAC + `"]
  metadata:
    distance: "5"
`))
	require.NoError(t, err)
	return cfg
}

func frameTo(t *testing.T, dst string, length int) model.Frame {
	t.Helper()
	hub, _ := net.ParseMAC(hubMAC)
	addr, err := net.ParseMAC(dst)
	require.NoError(t, err)
	return model.Frame{
		Type:        layers.Dot11TypeData,
		Source:      hub,
		Destination: addr,
		BSSID:       hub,
		Length:      length,
	}
}

func TestNew_Metadata(t *testing.T) {
	res := New(testConfig(t)).Snapshot()

	assert.Equal(t, []string{
		"experiment", "strategy", "input", "run",
		stats.MetaDuration, stats.MetaPacketSize, stats.MetaPacketNum, stats.MetaStaNum, stats.MetaHub,
		"distance",
	}, res.Export.MetadataKeys())
	v, _ := res.Export.Metadata(stats.MetaDuration)
	assert.Equal(t, "10", v)
	assert.Equal(t, "run-42", res.RunID)
}

func TestRun_AllDropped(t *testing.T) {
	run := New(testConfig(t))

	for i := 0; i < 100; i++ {
		run.ProcessEvent(model.PhyDrop{
			At:      time.Duration(i) * time.Millisecond,
			Station: 1,
			Frame:   frameTo(t, sta1MAC, 1000),
			Reason:  model.DropPreambleDetectFailure,
		})
	}
	res := run.Snapshot()

	fe := res.Export
	assert.Equal(t, 100.0, fe.Get("phy-mpdu-drop-count_aggregate"))
	assert.Equal(t, 100000.0, fe.Get("phy-mpdu-drop-bytes_aggregate"))
	assert.Equal(t, 100.0, fe.Get("phy-mpdu-tx-count_aggregate"))
	assert.Equal(t, 0.0, fe.Get("phy-mpdu-rx-count_aggregate"))
	assert.Equal(t, 100.0, fe.Get("phy-mpdu-drop-count_node[1]"))

	require.True(t, res.Report.PhyLoss.OK)
	assert.Equal(t, 1.0, res.Report.PhyLoss.V)
	assert.False(t, res.Report.PhyRSS.OK)
}

func TestRun_BatchReceive(t *testing.T) {
	run := New(testConfig(t))

	sub := func(dst string, dbm float64) model.Frame {
		f := frameTo(t, dst, 500)
		f.SignalDBm, f.HasSignal = dbm, true
		return f
	}
	run.ProcessEvent(model.PhyRx{
		Tx: model.Batch{Subframes: []model.Frame{
			sub(sta1MAC, 10), sub(sta1MAC, 12), sub(sta1MAC, 14), sub(sta2MAC, 99),
		}},
	})
	res := run.Snapshot()

	assert.Equal(t, 3.0, res.Export.Get("phy-mpdu-rx-count_aggregate"))
	assert.Equal(t, 36.0, res.Export.Get("phy-mpdu-rx-rss-sum_aggregate"))
	assert.Equal(t, 3.0, res.Export.Get("phy-mpdu-tx-count_aggregate"))
	assert.Equal(t, 3.0, res.Export.Get("phy-mpdu-rx-count_node[1]"))
	assert.Equal(t, 12.0, res.Report.PhyRSS.V)
}

func TestRun_AverageDelayOnlyFromReportingStations(t *testing.T) {
	run := New(testConfig(t))

	run.AppSent(1, 1000, 0)
	run.AppSent(1, 1000, 0)
	run.AppSent(2, 1000, 0)
	run.AppReceived(1, 1000, 0, time.Millisecond)
	run.AppReceived(1, 1000, 10*time.Millisecond, 13*time.Millisecond)
	res := run.Snapshot()

	require.True(t, res.Report.AppDelay.OK)
	assert.InDelta(t, 2.0, res.Report.AppDelay.V, 1e-9)
	assert.Equal(t, 3.0, res.Export.Get("sender-tx-packets_aggregate"))
	assert.Equal(t, 2.0, res.Export.Get("receiver-rx-packets_aggregate"))
	assert.Equal(t, 2.0, res.Export.Get("sender-tx-packets_node[1]"))
	assert.InDelta(t, 1.0/3.0, res.Report.AppLoss.V, 1e-9)
}

func TestRun_MacEvents(t *testing.T) {
	run := New(testConfig(t))

	for i := 0; i < 4; i++ {
		run.ProcessEvent(model.MacTx{Frame: frameTo(t, sta1MAC, 1028)})
	}
	run.ProcessEvent(model.MacRx{Frame: frameTo(t, sta1MAC, 1028)})
	run.ProcessEvent(model.AppTx{Node: 2, Size: 1000})
	run.ProcessEvent(model.AppRx{Node: 2, Size: 1000, At: 5 * time.Millisecond})
	res := run.Snapshot()

	assert.Equal(t, 4.0, res.Export.Get("mac-tx-frames_aggregate"))
	assert.Equal(t, 1.0, res.Export.Get("mac-rx-frames_aggregate"))
	assert.InDelta(t, 0.75, res.Report.MacLoss.V, 1e-9)
	assert.InDelta(t, 0.005, res.Export.Get("delay_node[2]_avg"), 1e-12)
}

func TestRun_UnknownObserverResolvedFromDestination(t *testing.T) {
	run := New(testConfig(t))

	run.ProcessEvent(model.PhyRx{Tx: frameTo(t, sta2MAC, 700), SignalDBm: -55})
	run.ProcessEvent(model.PhyRx{})
	res := run.Snapshot()

	assert.Equal(t, 1.0, res.Export.Get("phy-mpdu-rx-count_node[2]"))
	assert.Equal(t, -55.0, res.Export.Get("phy-mpdu-rx-rss-sum_aggregate"))
}
