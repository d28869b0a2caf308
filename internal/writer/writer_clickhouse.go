package writer

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/factory"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/networmix/ee500-wifi/internal/query"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func init() {
	factory.RegisterWriter(config.WriterClickHouse, func(def config.WriterDef, _ *config.Config) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse)
	})
}

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the run tables exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (model.Writer, error) {
	conn, err := query.Connect(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to clickhouse")
	}

	for _, stmt := range []string{query.CreateCountersTable, query.CreateMetadataTable} {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "failed to create table")
		}
	}
	zap.L().Info("connected to clickhouse and ensured run tables exist")

	return &ClickHouseWriter{conn: conn}, nil
}

// Write inserts the export values and metadata of a run.
func (w *ClickHouseWriter) Write(result *model.Result, timestamp string) error {
	ctx := context.Background()
	ts := result.Timestamp
	if parsed, err := time.ParseInLocation("2006-01-02_15-04-05", timestamp, time.Local); err == nil {
		ts = parsed
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+query.CountersTable)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}
	for _, k := range result.Export.Keys() {
		if err := batch.Append(ts, result.RunID, k, result.Export.Get(k)); err != nil {
			return errors.Wrap(err, "failed to append value to batch")
		}
	}
	if err := batch.Send(); err != nil {
		return errors.Wrap(err, "failed to send batch")
	}

	batch, err = w.conn.PrepareBatch(ctx, "INSERT INTO "+query.MetadataTable)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}
	for i, k := range result.Export.MetadataKeys() {
		v, _ := result.Export.Metadata(k)
		if err := batch.Append(ts, result.RunID, uint32(i), k, v); err != nil {
			return errors.Wrap(err, "failed to append metadata to batch")
		}
	}
	if err := batch.Send(); err != nil {
		return errors.Wrap(err, "failed to send batch")
	}

	zap.L().Info("wrote run to clickhouse", zap.String("run", result.RunID), zap.Int("values", result.Export.Len()))
	return nil
}

func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
