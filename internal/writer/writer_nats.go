package writer

import (
	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/networmix/ee500-wifi/internal/factory"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/networmix/ee500-wifi/internal/probe"
	"github.com/pkg/errors"
)

func init() {
	factory.RegisterWriter(config.WriterNATS, func(def config.WriterDef, _ *config.Config) (model.Writer, error) {
		pub, err := probe.NewPublisher(def.NATS)
		if err != nil {
			return nil, err
		}
		return NewNATSWriter(pub), nil
	})
}

// Publisher is the part of probe.Publisher the writer needs.
type Publisher interface {
	Publish(fe *export.FlatExport) error
	Flush() error
	Close() error
}

// NATSWriter publishes the export of a run for remote consumers.
type NATSWriter struct {
	pub Publisher
}

// NewNATSWriter wraps a publisher.
func NewNATSWriter(pub Publisher) model.Writer {
	return &NATSWriter{pub: pub}
}

func (w *NATSWriter) Write(result *model.Result, _ string) error {
	if err := w.pub.Publish(result.Export); err != nil {
		return err
	}
	return errors.Wrap(w.pub.Flush(), "failed to flush nats")
}

func (w *NATSWriter) Close() error {
	return w.pub.Close()
}
