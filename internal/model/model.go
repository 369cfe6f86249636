package model

import (
	"strings"
	"time"
)

// Protocol is the normalized protocol tag of a traffic record.
type Protocol string

const (
	ProtocolTCP   Protocol = "TCP"
	ProtocolUDP   Protocol = "UDP"
	ProtocolICMP  Protocol = "ICMP"
	ProtocolIPv6  Protocol = "IPv6"
	ProtocolOther Protocol = "other"
)

// Protocols lists every valid tag in a stable order.
var Protocols = []Protocol{ProtocolTCP, ProtocolUDP, ProtocolICMP, ProtocolIPv6, ProtocolOther}

// NormalizeProtocol maps s onto the enumerated set, case-insensitively.
// Anything unrecognised becomes ProtocolOther.
func NormalizeProtocol(s string) Protocol {
	p, ok := LookupProtocol(s)
	if !ok {
		return ProtocolOther
	}
	return p
}

// LookupProtocol reports whether s names one of the enumerated tags.
func LookupProtocol(s string) (Protocol, bool) {
	for _, p := range Protocols {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, true
		}
	}
	return ProtocolOther, false
}

// Metadata is the open-ended auxiliary payload attached to a record.
type Metadata map[string]any

// TrafficRecord is the normalized form of one captured frame.
type TrafficRecord struct {
	ID              int64     `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	SourceIP        string    `json:"source_ip,omitempty"`
	DestinationIP   string    `json:"destination_ip,omitempty"`
	SourcePort      *uint16   `json:"source_port"`
	DestinationPort *uint16   `json:"destination_port"`
	Protocol        Protocol  `json:"protocol"`
	PacketSize      int64     `json:"packet_size"`
	Metadata        Metadata  `json:"packet_data,omitempty"`
	FileName        string    `json:"file_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// Port returns a pointer to p, for filling the optional port fields.
func Port(p uint16) *uint16 {
	return &p
}

// HasPort reports whether either side of the record uses port p.
func (r *TrafficRecord) HasPort(p uint16) bool {
	return (r.SourcePort != nil && *r.SourcePort == p) ||
		(r.DestinationPort != nil && *r.DestinationPort == p)
}

// HasIP reports whether either side of the record uses address ip.
func (r *TrafficRecord) HasIP(ip string) bool {
	return ip != "" && (r.SourceIP == ip || r.DestinationIP == ip)
}
