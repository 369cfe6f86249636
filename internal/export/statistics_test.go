package export

import (
	"TrafficParser/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil)
	assert.Equal(t, 0, stats.TotalPackets)
	assert.Empty(t, stats.TopSourceIPs)
	assert.NotNil(t, stats.TopSourceIPs)
	assert.Nil(t, stats.FirstSeen)
}

func TestComputeStatistics(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []model.TrafficRecord{
		{Timestamp: base.Add(2 * time.Second), SourceIP: "10.0.0.1", DestinationIP: "10.0.0.9", SourcePort: model.Port(443), DestinationPort: model.Port(50000), Protocol: model.ProtocolTCP, PacketSize: 1500},
		{Timestamp: base, SourceIP: "10.0.0.2", DestinationIP: "10.0.0.9", SourcePort: model.Port(80), DestinationPort: model.Port(50001), Protocol: model.ProtocolTCP, PacketSize: 60},
		{Timestamp: base.Add(time.Second), SourceIP: "10.0.0.2", DestinationIP: "10.0.0.1", Protocol: model.ProtocolICMP, PacketSize: 98},
		{Timestamp: base.Add(3 * time.Second), Protocol: model.ProtocolOther, PacketSize: 42},
	}

	stats := ComputeStatistics(records)

	assert.Equal(t, 4, stats.TotalPackets)
	assert.Equal(t, int64(1700), stats.TotalBytes)
	assert.Equal(t, map[model.Protocol]int{model.ProtocolTCP: 2, model.ProtocolICMP: 1, model.ProtocolOther: 1}, stats.ProtocolDistribution)
	assert.Equal(t, 2, stats.DistinctSourceIPs)
	assert.Equal(t, 2, stats.DistinctDestinationIPs)
	assert.Equal(t, 3, stats.DistinctIPs)
	assert.Equal(t, []model.Count{{Value: "10.0.0.2", Count: 2}, {Value: "10.0.0.1", Count: 1}}, stats.TopSourceIPs)
	assert.Equal(t, []model.Count{{Value: "80", Count: 1}, {Value: "443", Count: 1}}, stats.TopSourcePorts, "ties sort numerically")
	assert.Equal(t, model.SizeStats{Min: 42, Max: 1500, Average: 425, TotalBytes: 1700}, stats.PacketSize)
	require.NotNil(t, stats.FirstSeen)
	assert.True(t, stats.FirstSeen.Equal(base))
	assert.True(t, stats.LastSeen.Equal(base.Add(3*time.Second)))
}

func TestTopIsCapped(t *testing.T) {
	counts := map[string]int{}
	for i := 0; i < 25; i++ {
		counts[string(rune('a'+i))] = i
	}
	got := top(counts)
	require.Len(t, got, TopN)
	assert.Equal(t, model.Count{Value: "y", Count: 24}, got[0])
}
