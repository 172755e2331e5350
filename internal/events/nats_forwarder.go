package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher is the subset of *nats.Conn the forwarder needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSForwarder republishes dispatcher events as JSON on NATS subjects of the
// form <prefix>.<event_type>.
type NATSForwarder struct {
	publisher Publisher
	prefix    string
	logger    *zap.Logger
}

// NewNATSForwarder builds a forwarder around an established publisher.
func NewNATSForwarder(publisher Publisher, prefix string, logger *zap.Logger) *NATSForwarder {
	if prefix == "" {
		prefix = "support.tickets"
	}
	return &NATSForwarder{publisher: publisher, prefix: prefix, logger: logger}
}

// ConnectNATS dials the NATS server at url.
func ConnectNATS(url, clientName string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return conn, nil
}

// Register subscribes the forwarder to every known event type.
func (f *NATSForwarder) Register(dispatcher Dispatcher) {
	for _, eventType := range EventTypes {
		dispatcher.Subscribe(eventType, f.Forward)
	}
}

// Subject returns the NATS subject for an event type.
func (f *NATSForwarder) Subject(eventType EventType) string {
	return f.prefix + "." + string(eventType)
}

// Forward publishes a single event.
func (f *NATSForwarder) Forward(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := f.Subject(event.Type)
	if err := f.publisher.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	f.logger.Debug("event forwarded", zap.String("subject", subject), zap.String("event_id", event.ID))
	return nil
}
