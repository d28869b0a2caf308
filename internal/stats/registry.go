package stats

// Reserved metadata keys written by DescribeRun.
const (
	MetaExperiment = "experiment"
	MetaStrategy   = "strategy"
	MetaInput      = "input"
	MetaRun        = "run"
)

// Metadata keys describing the run parameters.
const (
	MetaDuration   = "duration"
	MetaPacketSize = "packetSize"
	MetaPacketNum  = "packetNum"
	MetaStaNum     = "staNum"
	MetaHub        = "hub"
)

// Registry holds the producers and metadata of a single run. It is filled
// during setup, updated through the producers while the run executes and
// read once at the end. It is not safe for concurrent use.
type Registry struct {
	producers []Producer
	metaKeys  []string
	meta      map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{meta: make(map[string]string)}
}

// Add appends a producer. Duplicate identities are not rejected.
func (r *Registry) Add(p Producer) {
	r.producers = append(r.producers, p)
}

// AddMetadata sets a metadata entry. Overwriting a key keeps its position.
func (r *Registry) AddMetadata(key, value string) {
	if _, exists := r.meta[key]; !exists {
		r.metaKeys = append(r.metaKeys, key)
	}
	r.meta[key] = value
}

// DescribeRun records the run identity under the reserved metadata keys.
func (r *Registry) DescribeRun(experiment, strategy, input, runID string) {
	r.AddMetadata(MetaExperiment, experiment)
	r.AddMetadata(MetaStrategy, strategy)
	r.AddMetadata(MetaInput, input)
	r.AddMetadata(MetaRun, runID)
}

// Producers returns the producers in insertion order.
func (r *Registry) Producers() []Producer {
	out := make([]Producer, len(r.producers))
	copy(out, r.producers)
	return out
}

// Metadata calls fn for every metadata entry in insertion order.
func (r *Registry) Metadata(fn func(key, value string)) {
	for _, k := range r.metaKeys {
		fn(k, r.meta[k])
	}
}

// MetadataValue returns a single metadata value.
func (r *Registry) MetadataValue(key string) (string, bool) {
	v, ok := r.meta[key]
	return v, ok
}

// Len returns the number of registered producers.
func (r *Registry) Len() int {
	return len(r.producers)
}
