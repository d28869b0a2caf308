package stats

import "strconv"

// AggregateContext is the context of statistics summed over all stations.
const AggregateContext = "aggregate"

// Summary suffixes appended to the key of a TimeDistribution.
const (
	SuffixMin   = "min"
	SuffixMax   = "max"
	SuffixAvg   = "avg"
	SuffixSum   = "sum"
	SuffixCount = "count"
)

// Key builds the export key of a producer: "<variable>_<context>".
// Every component that writes or looks up export keys must go through
// Key or SummaryKey.
func Key(variable, context string) string {
	return variable + "_" + context
}

// SummaryKey builds the key of one field of a distribution summary,
// e.g. "delay_node[1]_avg".
func SummaryKey(variable, context, suffix string) string {
	return Key(variable, context) + "_" + suffix
}

// NodeContext returns the context label of the i-th station (1-based), "node[i]".
func NodeContext(i int) string {
	return "node[" + strconv.Itoa(i) + "]"
}
