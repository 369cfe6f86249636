package publish

import (
	"TrafficParser/internal/model"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// RecordHandler processes a received record.
type RecordHandler func(record model.TrafficRecord)

// Subscriber receives records published by Publisher.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	log     zerolog.Logger
}

// NewSubscriber connects to the NATS server at url.
func NewSubscriber(url, subject string, log zerolog.Logger) (*Subscriber, error) {
	if subject == "" {
		return nil, model.Configurationf("nats subject is empty")
	}
	nc, err := nats.Connect(url, nats.Name("traffic-parser-tail"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	log.Info().Str("url", nc.ConnectedUrlRedacted()).Msg("Connected to NATS server")
	return &Subscriber{nc: nc, subject: subject, log: log}, nil
}

// Start subscribes and hands every decodable message to handler. Messages
// that fail to decode are logged and dropped.
func (s *Subscriber) Start(handler RecordHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		record, err := Decode(msg.Data)
		if err != nil {
			s.log.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping undecodable message")
			return
		}
		handler(record)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub
	s.log.Info().Str("subject", s.subject).Msg("Subscribed, waiting for records")
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
