package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreIndependentPerInstance(t *testing.T) {
	a, b := New(), New()
	a.RecordsWritten.Add(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(a.RecordsWritten))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RecordsWritten))
}

func TestSkipReasonsPreinitialised(t *testing.T) {
	m := New()
	assert.Equal(t, 3, testutil.CollectAndCount(m.FramesSkipped))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.FramesRead.Add(10)
	m.FramesSkipped.WithLabelValues(ReasonDropped).Add(2)

	path := filepath.Join(t.TempDir(), "traffic.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "traffic_parser_frames_read_total 10")
	assert.Contains(t, string(data), `traffic_parser_frames_skipped_total{reason="dropped"} 2`)
}
