package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/networmix/ee500-wifi/internal/factory"
	"github.com/networmix/ee500-wifi/internal/metrics"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/networmix/ee500-wifi/internal/stats"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ts = "2024-05-01_12-00-00"

func sampleResult() *model.Result {
	reg := stats.NewRegistry()
	reg.DescribeRun("wifi", "ideal", "", "run-1")
	reg.AddMetadata(stats.MetaDuration, "10")
	reg.AddMetadata(stats.MetaPacketSize, "1000")
	reg.AddMetadata(stats.MetaStaNum, "1")

	tx := stats.NewCounter[uint64](stats.VarPhyTxCount, stats.AggregateContext)
	tx.Add(4)
	rx := stats.NewCounter[uint64](stats.VarPhyRxCount, stats.AggregateContext)
	rx.Add(3)
	rss := stats.NewCounter[float64](stats.VarPhyRxRSSSum, stats.AggregateContext)
	rss.Add(-181.5)
	d := stats.NewTimeDistribution(stats.VarDelay, stats.NodeContext(1))
	d.Update(2 * time.Millisecond)
	reg.Add(tx)
	reg.Add(rx)
	reg.Add(rss)
	reg.Add(d)

	fe := export.Flatten(reg)
	return &model.Result{
		RunID:     "run-1",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Export:    fe,
		Report:    metrics.Derive(fe, metrics.ConfigFromExport(fe)),
	}
}

func TestWritersRegistered(t *testing.T) {
	for _, name := range []string{"text", "json", "csv", "clickhouse", "nats"} {
		assert.True(t, factory.Registered(name), name)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, sampleResult()))
	out := buf.String()

	lines := strings.Split(out, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "Metadata"))
	assert.Equal(t, strings.Repeat("-", 80), lines[1])
	assert.Contains(t, out, "phy-mpdu-tx-count_aggregate")
	assert.Contains(t, out, "-181.50000000")
	assert.Contains(t, out, "0.00200000")
	assert.Regexp(t, `\[PHY\] Data loss ratio:\s+0\.25000000`, out)
	assert.Regexp(t, `\[PHY\] Average RSS \(dBm\):\s+-60\.50000000`, out)
	assert.Regexp(t, `\[MAC\] Data loss ratio:\s+n/a`, out)
}

func TestTextWriter(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, NewTextWriter("", &stdout).Write(sampleResult(), ts))
	assert.Contains(t, stdout.String(), "Counter")

	dir := t.TempDir()
	w := NewTextWriter(dir, &stdout)
	require.NoError(t, w.Write(sampleResult(), ts))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(filepath.Join(dir, ts, "run-1", "report.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Metric")
}

func TestWriteFileReportsCloseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")

	// fill closes the file itself, so the final Close fails.
	err := writeFile(path, func(f *os.File) error {
		if _, err := f.WriteString("Metric\n"); err != nil {
			return err
		}
		return f.Close()
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to close")
}

func TestJSONWriter(t *testing.T) {
	dir := t.TempDir()
	res := sampleResult()

	require.NoError(t, NewJSONWriter(dir, true).Write(res, ts))

	path := filepath.Join(dir, ts, "run-1", "result.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mac_loss_ratio": null`)

	fe, err := export.Load(path)
	require.NoError(t, err)
	assert.Equal(t, res.Export.Keys(), fe.Keys())
	assert.Equal(t, res.Export.MetadataKeys(), fe.MetadataKeys())
}

func TestCSVWriter(t *testing.T) {
	dir := t.TempDir()
	res := sampleResult()

	require.NoError(t, NewCSVWriter(dir).Write(res, ts))

	fe, err := export.Load(filepath.Join(dir, ts, "run-1", "export.csv"))
	require.NoError(t, err)
	assert.Equal(t, res.Export.Keys(), fe.Keys())
	assert.Equal(t, 3.0, fe.Get("phy-mpdu-rx-count_aggregate"))

	report, err := os.ReadFile(filepath.Join(dir, ts, "run-1", "report.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "[MAC] Data loss ratio,n/a")
}

type fakePublisher struct {
	published []*export.FlatExport
	flushErr  error
	closed    bool
}

func (p *fakePublisher) Publish(fe *export.FlatExport) error {
	p.published = append(p.published, fe)
	return nil
}

func (p *fakePublisher) Flush() error { return p.flushErr }

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func TestNATSWriter(t *testing.T) {
	pub := &fakePublisher{}
	w := NewNATSWriter(pub)
	res := sampleResult()

	require.NoError(t, w.Write(res, ts))
	require.NoError(t, w.Close())
	require.Len(t, pub.published, 1)
	assert.Same(t, res.Export, pub.published[0])
	assert.True(t, pub.closed)

	pub.flushErr = errors.New("timeout")
	assert.Error(t, w.Write(res, ts))
}
