package probe

import (
	"github.com/nats-io/nats.go"
	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ExportHandler is a function that processes a received export.
type ExportHandler func(fe *export.FlatExport)

// Subscriber is responsible for subscribing to a NATS subject and decoding
// the exports published on it.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to nats at %s", cfg.URL)
	}
	zap.L().Info("connected to nats", zap.String("url", cfg.URL))
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the subject and hands every decoded export to handler.
// Messages that fail to decode are logged and dropped.
func (s *Subscriber) Start(handler ExportHandler) error {
	sub, err := s.nc.Subscribe(s.subject, decodeMsg(handler))
	if err != nil {
		return errors.Wrapf(err, "failed to subscribe to '%s'", s.subject)
	}
	s.sub = sub
	zap.L().Info("subscribed, waiting for exports", zap.String("subject", s.subject))
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			zap.L().Warn("error unsubscribing", zap.Error(err))
		}
	}
	if s.nc != nil {
		s.nc.Close()
		zap.L().Info("nats connection closed")
	}
}

func decodeMsg(handler ExportHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		fe, err := export.Decode(msg.Data)
		if err != nil {
			zap.L().Warn("error decoding export", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		handler(fe)
	}
}
