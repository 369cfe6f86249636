package export

import (
	"TrafficParser/internal/model"
	"TrafficParser/internal/store"
	"TrafficParser/internal/store/sqlstore"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newExporter() *Exporter {
	e := New(zerolog.Nop(), nil)
	e.Now = func() time.Time { return fixedNow }
	e.NewID = func() string { return "00000000-0000-4000-8000-000000000001" }
	return e
}

// seededStore holds 5 TCP records followed by 3 UDP records.
func seededStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := sqlstore.OpenSQLite(filepath.Join(t.TempDir(), "traffic.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(ctx))

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var records []model.TrafficRecord
	for i := 0; i < 5; i++ {
		records = append(records, model.TrafficRecord{
			Timestamp: base.Add(time.Duration(i) * time.Second), Protocol: model.ProtocolTCP,
			SourceIP: "10.0.0.1", DestinationIP: "10.0.0.2",
			SourcePort: model.Port(40000), DestinationPort: model.Port(443),
			PacketSize: 100, FileName: "web.pcap",
		})
	}
	for i, size := range []int64{70, 80, 120} {
		records = append(records, model.TrafficRecord{
			Timestamp: base.Add(time.Duration(10+i) * time.Second), Protocol: model.ProtocolUDP,
			SourceIP: "10.0.0.3", DestinationIP: "8.8.8.8",
			SourcePort: model.Port(uint16(5000 + i)), DestinationPort: model.Port(53),
			PacketSize: size, FileName: "dns.pcap",
		})
	}
	require.NoError(t, s.Append(ctx, records))
	return s
}

func TestExportFiltersAndComputesStatistics(t *testing.T) {
	s := seededStore(t)
	udp := model.ProtocolUDP
	criteria := model.FilterCriteria{Protocol: &udp}
	path := filepath.Join(t.TempDir(), "traffic_export.json")

	result, err := newExporter().Export(context.Background(), s, criteria, path, true)
	require.NoError(t, err)

	var bundle model.ExportBundle
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &bundle))

	assert.Equal(t, 3, bundle.Metadata.TotalPackets)
	assert.Equal(t, model.ExportVersion, bundle.Metadata.ExportVersion)
	require.NotNil(t, bundle.Metadata.FiltersApplied.Protocol)
	assert.Equal(t, model.ProtocolUDP, *bundle.Metadata.FiltersApplied.Protocol)
	require.Len(t, bundle.Packets, 3)
	for _, p := range bundle.Packets {
		assert.Equal(t, model.ProtocolUDP, p.Protocol)
	}

	require.NotNil(t, bundle.Statistics)
	assert.Equal(t, int64(70+80+120), bundle.Statistics.TotalBytes)
	assert.Equal(t, map[model.Protocol]int{model.ProtocolUDP: 3}, bundle.Statistics.ProtocolDistribution)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "traffic_export_statistics.json"), result.StatisticsPath)
	var report model.StatisticsReport
	data, err = os.ReadFile(result.StatisticsPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, bundle.Metadata.ExportID, report.Metadata.ExportID)
	assert.Equal(t, bundle.Statistics.TotalPackets, report.Statistics.TotalPackets)
}

func TestExportIsDeterministic(t *testing.T) {
	s := seededStore(t)
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")

	_, err := newExporter().Export(context.Background(), s, model.FilterCriteria{}, a, true)
	require.NoError(t, err)
	_, err = newExporter().Export(context.Background(), s, model.FilterCriteria{}, b, true)
	require.NoError(t, err)

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, string(da), string(db))
}

func TestExportLayout(t *testing.T) {
	s := seededStore(t)
	path := filepath.Join(t.TempDir(), "out.json")
	_, err := newExporter().Export(context.Background(), s, model.FilterCriteria{}, path, false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "metadata")
	assert.Contains(t, raw, "packets")
	assert.NotContains(t, raw, "statistics", "statistics are omitted unless requested")
	assert.Contains(t, string(data), "\n  \"metadata\": {\n    \"export_id\": \"00000000-0000-4000-8000-000000000001\"")
	assert.Contains(t, string(data), `"export_timestamp": "2024-05-06T07:08:09Z"`)

	_, err = os.Stat(StatisticsPath(path))
	assert.True(t, os.IsNotExist(err))
}

func TestExportEmptyResult(t *testing.T) {
	s := seededStore(t)
	icmp := model.ProtocolICMP
	path := filepath.Join(t.TempDir(), "empty.json")

	result, err := newExporter().Export(context.Background(), s, model.FilterCriteria{Protocol: &icmp}, path, true)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Bundle.Metadata.TotalPackets)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"packets": []`)
}

func TestExportOverwritesExistingFile(t *testing.T) {
	s := seededStore(t)
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	_, err := newExporter().Export(context.Background(), s, model.FilterCriteria{}, path, false)
	require.NoError(t, err)

	var bundle model.ExportBundle
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &bundle))
	assert.Len(t, bundle.Packets, 8)
}

func TestExportUnwritablePath(t *testing.T) {
	s := seededStore(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	path := filepath.Join(blocker, "out.json")

	_, err := newExporter().Export(context.Background(), s, model.FilterCriteria{}, path, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrExport)
	assert.Contains(t, err.Error(), path)
}

func TestStatisticsPath(t *testing.T) {
	assert.Equal(t, "out/traffic_statistics.json", StatisticsPath("out/traffic.json"))
	assert.Equal(t, "dump_statistics", StatisticsPath("dump"))
}
