// Package export flattens the statistics of a run into a single key/value
// map. The FlatExport is the only thing sinks and the metrics layer see.
package export

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/networmix/ee500-wifi/internal/stats"
	"go.uber.org/zap"
)

// FlatExport maps "<variable>_<context>" keys to values and carries the
// run metadata alongside.
type FlatExport struct {
	values   map[string]float64
	meta     map[string]string
	metaKeys []string
}

// New creates an empty export.
func New() *FlatExport {
	return &FlatExport{
		values: make(map[string]float64),
		meta:   make(map[string]string),
	}
}

// PutFloat stores a value. An existing key is overwritten.
func (fe *FlatExport) PutFloat(key string, v float64) {
	fe.values[key] = v
}

// PutInt stores an integral value.
func (fe *FlatExport) PutInt(key string, v int64) {
	fe.values[key] = float64(v)
}

// PutDuration stores a duration in seconds.
func (fe *FlatExport) PutDuration(key string, d time.Duration) {
	fe.values[key] = d.Seconds()
}

// PutString parses s as a number and stores it. Malformed samples are
// logged and discarded.
func (fe *FlatExport) PutString(key, s string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		zap.L().Warn("discarding malformed sample", zap.String("key", key), zap.String("value", s), zap.Error(err))
		return false
	}
	fe.values[key] = v
	return true
}

// PutSummary stores the min/max/avg/sum/count keys of a distribution.
func (fe *FlatExport) PutSummary(variable, context string, s stats.Summary) {
	fe.PutFloat(stats.SummaryKey(variable, context, stats.SuffixMin), s.Min)
	fe.PutFloat(stats.SummaryKey(variable, context, stats.SuffixMax), s.Max)
	fe.PutFloat(stats.SummaryKey(variable, context, stats.SuffixAvg), s.Avg)
	fe.PutFloat(stats.SummaryKey(variable, context, stats.SuffixSum), s.Sum)
	fe.PutInt(stats.SummaryKey(variable, context, stats.SuffixCount), s.Count)
}

// SetMetadata stores a metadata entry; overwriting keeps the position.
func (fe *FlatExport) SetMetadata(key, value string) {
	if _, ok := fe.meta[key]; !ok {
		fe.metaKeys = append(fe.metaKeys, key)
	}
	fe.meta[key] = value
}

// Value returns the value of key and whether it is present.
func (fe *FlatExport) Value(key string) (float64, bool) {
	v, ok := fe.values[key]
	return v, ok
}

// Get returns the value of key, or 0 when it is absent.
func (fe *FlatExport) Get(key string) float64 {
	return fe.values[key]
}

// Keys returns the value keys in lexical order.
func (fe *FlatExport) Keys() []string {
	keys := make([]string, 0, len(fe.values))
	for k := range fe.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of values.
func (fe *FlatExport) Len() int {
	return len(fe.values)
}

// MetadataKeys returns the metadata keys in insertion order.
func (fe *FlatExport) MetadataKeys() []string {
	out := make([]string, len(fe.metaKeys))
	copy(out, fe.metaKeys)
	return out
}

// Metadata returns a single metadata value.
func (fe *FlatExport) Metadata(key string) (string, bool) {
	v, ok := fe.meta[key]
	return v, ok
}
