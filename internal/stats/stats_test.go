package stats

import (
	"testing"
	"time"

	"github.com/networmix/ee500-wifi/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "phy-mpdu-rx-count_aggregate", Key("phy-mpdu-rx-count", AggregateContext))
	assert.Equal(t, "delay_node[3]", Key("delay", NodeContext(3)))
	assert.Equal(t, "delay_node[1]_avg", SummaryKey("delay", NodeContext(1), SuffixAvg))
}

func TestCounter_SumOfUpdates(t *testing.T) {
	tests := []struct {
		name string
		adds []float64
		want float64
	}{
		{"none", nil, 0},
		{"single", []float64{1500}, 1500},
		{"several", []float64{-70.5, -60, -65.25}, -195.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCounter[float64]("phy-mpdu-rx-rss-sum", AggregateContext)
			for _, v := range tt.adds {
				c.Add(v)
			}
			assert.InDelta(t, tt.want, c.Count(), 1e-9)
		})
	}
}

func TestCounter_Update(t *testing.T) {
	c := NewCounter[uint32]("sender-tx-packets", NodeContext(1))
	for i := 0; i < 5; i++ {
		c.Update()
	}
	c.Add(3)

	assert.Equal(t, uint32(8), c.Count())
	assert.Equal(t, 8.0, c.Float())
	assert.Equal(t, "sender-tx-packets", c.Key())
	assert.Equal(t, "node[1]", c.Context())
}

func TestPacketCounter_CountsBoundEvents(t *testing.T) {
	tx := trace.NewSource[int]("mac-tx")
	retx := trace.NewSource[string]("mac-retx")
	c := NewPacketCounter("mac-tx-frames", AggregateContext)

	Bind[int](c, tx)
	Bind[string](c, retx)

	for i := 0; i < 4; i++ {
		tx.Fire(i)
	}
	retx.Fire("x")

	assert.Equal(t, uint32(5), c.Count())
}

func TestTimeDistribution_Empty(t *testing.T) {
	d := NewTimeDistribution("delay", NodeContext(2))

	_, ok := d.Min()
	assert.False(t, ok)
	_, ok = d.Max()
	assert.False(t, ok)
	_, ok = d.Mean()
	assert.False(t, ok)

	s, ok := d.Summary()
	assert.False(t, ok)
	assert.Equal(t, int64(0), s.Count)
}

func TestTimeDistribution_Properties(t *testing.T) {
	samples := []time.Duration{
		3 * time.Millisecond,
		1 * time.Millisecond,
		7 * time.Millisecond,
		2 * time.Millisecond,
	}
	d := NewTimeDistribution("delay", NodeContext(1))
	for _, s := range samples {
		d.Update(s)
	}

	min, ok := d.Min()
	require.True(t, ok)
	max, _ := d.Max()
	mean, _ := d.Mean()

	assert.Equal(t, time.Millisecond, min)
	assert.Equal(t, 7*time.Millisecond, max)
	assert.True(t, min <= mean && mean <= max)
	assert.Equal(t, 13*time.Millisecond, d.Total())
	assert.Equal(t, int64(4), d.Count())

	s, ok := d.Summary()
	require.True(t, ok)
	assert.InDelta(t, s.Sum, s.Avg*float64(s.Count), 1e-12)
	assert.InDelta(t, 0.013, s.Sum, 1e-12)
}

func TestTimeDistribution_FirstSampleSetsBounds(t *testing.T) {
	d := NewTimeDistribution("delay", NodeContext(1))
	d.Update(-5 * time.Millisecond)

	min, _ := d.Min()
	max, _ := d.Max()
	assert.Equal(t, -5*time.Millisecond, min)
	assert.Equal(t, -5*time.Millisecond, max)
}

func TestRegistry_Order(t *testing.T) {
	reg := NewRegistry()
	a := NewCounter[uint32]("a", AggregateContext)
	b := NewPacketCounter("b", AggregateContext)
	reg.Add(a)
	reg.Add(b)
	reg.Add(a)

	got := reg.Producers()
	require.Len(t, got, 3)
	assert.Same(t, a, got[0])
	assert.Same(t, b, got[1])

	reg.DescribeRun("wifi", "minstrel", "", "run-1")
	reg.AddMetadata("distance", "10")
	reg.DescribeRun("wifi", "ideal", "", "run-2")

	var keys, values []string
	reg.Metadata(func(k, v string) {
		keys = append(keys, k)
		values = append(values, v)
	})
	assert.Equal(t, []string{"experiment", "strategy", "input", "run", "distance"}, keys)
	assert.Equal(t, []string{"wifi", "ideal", "", "run-2", "10"}, values)

	v, ok := reg.MetadataValue("distance")
	assert.True(t, ok)
	assert.Equal(t, "10", v)
}
