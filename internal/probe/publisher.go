package probe

import (
	"github.com/nats-io/nats.go"
	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Publisher is responsible for publishing run exports to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to nats at %s", cfg.URL)
	}
	zap.L().Info("connected to nats", zap.String("url", cfg.URL))
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish serializes an export to protobuf and publishes it to the
// configured subject.
func (p *Publisher) Publish(fe *export.FlatExport) error {
	data, err := export.Encode(fe)
	if err != nil {
		return err
	}
	return errors.Wrap(p.nc.Publish(p.subject, data), "failed to publish export")
}

// Flush waits until the server has processed everything published so far.
func (p *Publisher) Flush() error {
	return p.nc.Flush()
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		return errors.Wrap(err, "failed to drain nats connection")
	}
	zap.L().Info("nats connection drained and closed")
	return nil
}
