package objstore

import (
	"TrafficParser/internal/config"
	"TrafficParser/internal/model"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	u, err := New(config.ObjectStorageConfig{Endpoint: "localhost:9000", Bucket: "traffic", Prefix: "/exports/"}, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "exports/1234/traffic_export.json", u.ObjectKey("1234", "/tmp/out/traffic_export.json"))
}

func TestObjectKeyWithoutPrefix(t *testing.T) {
	u, err := New(config.ObjectStorageConfig{Endpoint: "localhost:9000", Bucket: "traffic"}, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "abcd/stats.json", u.ObjectKey("abcd", "stats.json"))
}

func TestNewRequiresEndpointAndBucket(t *testing.T) {
	_, err := New(config.ObjectStorageConfig{Endpoint: "localhost:9000"}, zerolog.Nop())
	assert.ErrorIs(t, err, model.ErrConfiguration)

	_, err = New(config.ObjectStorageConfig{Endpoint: "http://localhost:9000/path", Bucket: "b"}, zerolog.Nop())
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
