package export

import (
	"fmt"

	"github.com/networmix/ee500-wifi/internal/stats"
)

// Flatten walks the registry once, in insertion order, and writes every
// producer into a new FlatExport. Producers sharing a key overwrite each
// other; the last one registered wins.
//
// Distributions without samples export only their _count key.
// Flatten panics on a producer type it does not know.
func Flatten(reg *stats.Registry) *FlatExport {
	fe := New()
	for _, p := range reg.Producers() {
		switch v := p.(type) {
		case *stats.TimeDistribution:
			s, ok := v.Summary()
			if !ok {
				fe.PutInt(stats.SummaryKey(v.Key(), v.Context(), stats.SuffixCount), 0)
				continue
			}
			fe.PutSummary(v.Key(), v.Context(), s)
		case *stats.PacketCounter:
			fe.putScalar(v, v.Float())
		case *stats.Counter[uint32]:
			fe.putScalar(v, v.Float())
		case *stats.Counter[uint64]:
			fe.putScalar(v, v.Float())
		case *stats.Counter[int64]:
			fe.putScalar(v, v.Float())
		case *stats.Counter[float64]:
			fe.putScalar(v, v.Float())
		default:
			panic(fmt.Sprintf("export: unsupported statistic producer %T", p))
		}
	}
	reg.Metadata(fe.SetMetadata)
	return fe
}

func (fe *FlatExport) putScalar(p stats.Producer, v float64) {
	fe.PutFloat(stats.Key(p.Key(), p.Context()), v)
}
