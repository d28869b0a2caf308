package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/pkg/errors"
)

// Table names used by the ClickHouse writer and read back here.
const (
	CountersTable = "run_counters"
	MetadataTable = "run_metadata"
)

// CreateCountersTable holds one row per exported value.
const CreateCountersTable = `
CREATE TABLE IF NOT EXISTS run_counters (
    Timestamp DateTime,
    RunID     String,
    Key       String,
    Value     Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (RunID, Key);
`

// CreateMetadataTable holds one row per metadata entry, with its position.
const CreateMetadataTable = `
CREATE TABLE IF NOT EXISTS run_metadata (
    Timestamp DateTime,
    RunID     String,
    Position  UInt32,
    Key       String,
    Value     String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (RunID, Position);
`

// RunSummary describes a stored run.
type RunSummary struct {
	RunID     string    `json:"run"`
	Timestamp time.Time `json:"timestamp"`
	Values    uint64    `json:"values"`
}

// Loader reads stored runs back as exports.
type Loader interface {
	LoadRun(ctx context.Context, runID string) (*export.FlatExport, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Close() error
}

// clickhouseLoader implements the Loader interface for ClickHouse.
type clickhouseLoader struct {
	conn driver.Conn
}

// NewClickHouseLoader creates a new loader for ClickHouse.
func NewClickHouseLoader(cfg config.ClickHouseConfig) (Loader, error) {
	conn, err := Connect(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to clickhouse")
	}
	return &clickhouseLoader{conn: conn}, nil
}

// Connect opens and pings a ClickHouse connection.
func Connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to ping clickhouse")
	}

	return conn, nil
}

// LoadRun rebuilds the export of a single run. Values are added with
// PutFloat and metadata in its stored order.
func (q *clickhouseLoader) LoadRun(ctx context.Context, runID string) (*export.FlatExport, error) {
	fe := export.New()

	rows, err := q.conn.Query(ctx, selectByRun(CountersTable, "Key, Value", ""), runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query counters")
	}
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan counter")
		}
		fe.PutFloat(key, value)
	}
	rows.Close()

	rows, err = q.conn.Query(ctx, selectByRun(MetadataTable, "Key, Value", "Position"), runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query metadata")
	}
	defer rows.Close()
	var meta int
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan metadata")
		}
		fe.SetMetadata(key, value)
		meta++
	}

	if fe.Len() == 0 && meta == 0 {
		return nil, errors.Errorf("run '%s' not found", runID)
	}
	return fe, nil
}

// ListRuns returns the most recent runs first.
func (q *clickhouseLoader) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT RunID, max(Timestamp) AS LastSeen, count() AS NumValues
		FROM run_counters
		GROUP BY RunID
		ORDER BY LastSeen DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Timestamp, &s.Values); err != nil {
			return nil, errors.Wrap(err, "failed to scan run summary")
		}
		runs = append(runs, s)
	}
	return runs, nil
}

func (q *clickhouseLoader) Close() error {
	return q.conn.Close()
}

func selectByRun(table, columns, orderBy string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columns)
	b.WriteString(" FROM ")
	b.WriteString(table)
	b.WriteString(" WHERE RunID = ?")
	if orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(orderBy)
	}
	return b.String()
}
