package export

import (
	"TrafficParser/internal/model"
	"sort"
	"strconv"
	"time"
)

// TopN is the length of every ranked list in the statistics.
const TopN = 10

// ComputeStatistics aggregates exactly the given records.
func ComputeStatistics(records []model.TrafficRecord) *model.Statistics {
	stats := &model.Statistics{
		TotalPackets:         len(records),
		ProtocolDistribution: map[model.Protocol]int{},
		TopSourceIPs:         []model.Count{},
		TopDestinationIPs:    []model.Count{},
		TopSourcePorts:       []model.Count{},
		TopDestinationPorts:  []model.Count{},
	}
	if len(records) == 0 {
		return stats
	}

	srcIPs := map[string]int{}
	dstIPs := map[string]int{}
	srcPorts := map[string]int{}
	dstPorts := map[string]int{}
	allIPs := map[string]struct{}{}

	var first, last time.Time
	size := model.SizeStats{Min: records[0].PacketSize, Max: records[0].PacketSize}

	for i := range records {
		r := &records[i]
		stats.ProtocolDistribution[r.Protocol]++
		size.TotalBytes += r.PacketSize
		size.Min = min(size.Min, r.PacketSize)
		size.Max = max(size.Max, r.PacketSize)

		if r.SourceIP != "" {
			srcIPs[r.SourceIP]++
			allIPs[r.SourceIP] = struct{}{}
		}
		if r.DestinationIP != "" {
			dstIPs[r.DestinationIP]++
			allIPs[r.DestinationIP] = struct{}{}
		}
		if r.SourcePort != nil {
			srcPorts[strconv.Itoa(int(*r.SourcePort))]++
		}
		if r.DestinationPort != nil {
			dstPorts[strconv.Itoa(int(*r.DestinationPort))]++
		}

		if first.IsZero() || r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		if last.IsZero() || r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}

	size.Average = float64(size.TotalBytes) / float64(len(records))
	stats.PacketSize = size
	stats.TotalBytes = size.TotalBytes
	stats.DistinctSourceIPs = len(srcIPs)
	stats.DistinctDestinationIPs = len(dstIPs)
	stats.DistinctIPs = len(allIPs)
	stats.TopSourceIPs = top(srcIPs)
	stats.TopDestinationIPs = top(dstIPs)
	stats.TopSourcePorts = top(srcPorts)
	stats.TopDestinationPorts = top(dstPorts)
	stats.FirstSeen = &first
	stats.LastSeen = &last
	return stats
}

// top ranks counts by count descending, then value ascending, keeping TopN.
func top(counts map[string]int) []model.Count {
	out := make([]model.Count, 0, len(counts))
	for v, c := range counts {
		out = append(out, model.Count{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return lessValue(out[i].Value, out[j].Value)
	})
	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}

// lessValue orders ports numerically and addresses lexically.
func lessValue(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}
