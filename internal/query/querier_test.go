package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectByRun(t *testing.T) {
	assert.Equal(t,
		"SELECT Key, Value FROM run_counters WHERE RunID = ?",
		selectByRun(CountersTable, "Key, Value", ""))
	assert.Equal(t,
		"SELECT Key, Value FROM run_metadata WHERE RunID = ? ORDER BY Position",
		selectByRun(MetadataTable, "Key, Value", "Position"))
}

func TestSchemaTables(t *testing.T) {
	assert.Contains(t, CreateCountersTable, CountersTable)
	assert.Contains(t, CreateMetadataTable, MetadataTable)
}
