package manager

import (
	"net"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/experiment"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	results    []*model.Result
	timestamps []string
	closed     bool
	err        error
}

func (w *recordingWriter) Write(r *model.Result, timestamp string) error {
	w.results = append(w.results, r)
	w.timestamps = append(w.timestamps, timestamp)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
run:
  run_id: run-m
  duration: 1s
  hub: "00:00:00:00:00:01"
  stations: ["00:00:00:00:00:02"]
`))
	require.NoError(t, err)
	return cfg
}

func TestManager_DrainsThenWrites(t *testing.T) {
	// 1. Wire a run with two writers, one of which fails.
	good := &recordingWriter{}
	bad := &recordingWriter{err: errors.New("disk full")}
	m := New(experiment.New(testConfig(t)), []model.Writer{bad, good}, 8)

	var notified *model.Result
	m.OnResult(func(r *model.Result) { notified = r })

	// 2. Feed events through the worker.
	m.Start()
	hub, _ := net.ParseMAC("00:00:00:00:00:01")
	sta, _ := net.ParseMAC("00:00:00:00:00:02")
	for i := 0; i < 50; i++ {
		m.Input() <- model.PhyRx{Station: 1, SignalDBm: -60, Tx: model.Frame{
			Type: layers.Dot11TypeData, Source: hub, Destination: sta, BSSID: hub, Length: 100,
		}}
	}

	// 3. Stop drains the queue before flattening.
	res, err := m.Stop()
	assert.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 50.0, res.Export.Get("phy-mpdu-rx-count_aggregate"))

	// 4. Every writer saw the same result and was closed.
	require.Len(t, good.results, 1)
	assert.Same(t, res, good.results[0])
	assert.Same(t, res, notified)
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
	assert.Equal(t, good.timestamps[0], bad.timestamps[0])

	// 5. Stop is idempotent.
	again, _ := m.Stop()
	assert.Same(t, res, again)
	assert.Len(t, good.results, 1)
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := New(experiment.New(testConfig(t)), nil, 4)
	m.Input() <- model.AppTx{Node: 1, Size: 1000}

	res, err := m.Stop()
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Export.Get("sender-tx-packets_aggregate"))
}

func TestNewManager(t *testing.T) {
	cfg := testConfig(t)
	cfg.Writers = []config.WriterDef{{Type: config.WriterCSV, Enabled: true, CSV: config.CSVConfig{RootPath: t.TempDir()}}}

	m, err := NewManager(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Writers())

	extra := &recordingWriter{}
	m.AddWriter(extra)
	assert.Equal(t, 2, m.Writers())

	m.Start()
	res, err := m.Stop()
	require.NoError(t, err)
	assert.Equal(t, "run-m", res.RunID)
	require.Len(t, extra.results, 1)
}
