package publish

import (
	"TrafficParser/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const flushTimeout = 10 * time.Second

// Publisher pushes committed traffic records to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
	log     zerolog.Logger
}

// NewPublisher connects to the NATS server at url.
func NewPublisher(url, subject string, log zerolog.Logger) (*Publisher, error) {
	if subject == "" {
		return nil, model.Configurationf("nats subject is empty")
	}
	nc, err := nats.Connect(url, nats.Name("traffic-parser"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	log.Info().Str("url", nc.ConnectedUrlRedacted()).Str("subject", subject).Msg("Connected to NATS server")
	return &Publisher{nc: nc, subject: subject, log: log}, nil
}

// Publish sends one message per record, then flushes so the batch has left
// the client before returning.
func (p *Publisher) Publish(ctx context.Context, records []model.TrafficRecord) error {
	for i := range records {
		data, err := Encode(&records[i])
		if err != nil {
			return fmt.Errorf("failed to encode record %d: %w", records[i].ID, err)
		}
		if err := p.nc.Publish(p.subject, data); err != nil {
			return fmt.Errorf("failed to publish record %d: %w", records[i].ID, err)
		}
	}
	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := p.nc.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.log.Warn().Err(err).Msg("Failed to drain NATS connection")
		}
		p.log.Debug().Msg("NATS connection drained and closed")
	}
}
