package model

import "time"

// ExportVersion is written into every bundle's metadata.
const ExportVersion = "1.0"

// ExportMetadata describes one export run.
type ExportMetadata struct {
	ExportID        string         `json:"export_id"`
	ExportTimestamp time.Time      `json:"export_timestamp"`
	ExportVersion   string         `json:"export_version"`
	TotalPackets    int            `json:"total_packets"`
	FiltersApplied  FilterCriteria `json:"filters_applied"`
}

// ExportBundle is the artifact written by an export.
type ExportBundle struct {
	Metadata   ExportMetadata  `json:"metadata"`
	Packets    []TrafficRecord `json:"packets"`
	Statistics *Statistics     `json:"statistics,omitempty"`
}

// StatisticsReport is the content of the standalone statistics file.
type StatisticsReport struct {
	Metadata   ExportMetadata `json:"metadata"`
	Statistics *Statistics    `json:"statistics"`
}

// Count is one entry of a ranked distribution.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SizeStats summarizes packet sizes.
type SizeStats struct {
	Min        int64   `json:"min"`
	Max        int64   `json:"max"`
	Average    float64 `json:"average"`
	TotalBytes int64   `json:"total_bytes"`
}

// Statistics aggregates a set of records.
type Statistics struct {
	TotalPackets           int              `json:"total_packets"`
	TotalBytes             int64            `json:"total_bytes"`
	ProtocolDistribution   map[Protocol]int `json:"protocol_distribution"`
	DistinctSourceIPs      int              `json:"distinct_source_ips"`
	DistinctDestinationIPs int              `json:"distinct_destination_ips"`
	DistinctIPs            int              `json:"distinct_ips"`
	TopSourceIPs           []Count          `json:"top_source_ips"`
	TopDestinationIPs      []Count          `json:"top_destination_ips"`
	TopSourcePorts         []Count          `json:"top_source_ports"`
	TopDestinationPorts    []Count          `json:"top_destination_ports"`
	PacketSize             SizeStats        `json:"packet_size_stats"`
	FirstSeen              *time.Time       `json:"first_seen,omitempty"`
	LastSeen               *time.Time       `json:"last_seen,omitempty"`
}
