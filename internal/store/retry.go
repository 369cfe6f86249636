package store

import (
	"context"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ConnectTimeout bounds the initial ping retries of network backends.
const ConnectTimeout = 15 * time.Second

// PingWithRetry calls ping with exponential backoff until it succeeds, ctx is
// done or ConnectTimeout elapses. The last ping error is returned.
func PingWithRetry(ctx context.Context, ping func(context.Context) error, log zerolog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = ConnectTimeout

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := ping(ctx)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("Database not reachable yet")
		}
		return err
	}, backoff.WithContext(b, ctx))
}

// Redact hides the password of a database URL for logs and error messages.
func Redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
