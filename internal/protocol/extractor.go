package protocol

import (
	"TrafficParser/internal/model"
	"TrafficParser/pkg/pcap"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ExtractRecord decodes a raw frame and extracts the fields of a traffic record.
// ID and CreatedAt are left for the store to fill in.
func ExtractRecord(frame pcap.Frame) (model.TrafficRecord, error) {
	if len(frame.Data) == 0 {
		return model.TrafficRecord{}, fmt.Errorf("%w: frame %d of %s is empty", model.ErrExtraction, frame.Index, frame.File)
	}

	packet := gopacket.NewPacket(frame.Data, frame.LinkType, gopacket.Default)
	all := packet.Layers()
	if len(all) == 0 || all[0].LayerType() == gopacket.LayerTypeDecodeFailure {
		return model.TrafficRecord{}, fmt.Errorf("%w: frame %d of %s: undecodable link layer %s",
			model.ErrExtraction, frame.Index, frame.File, frame.LinkType)
	}

	record := model.TrafficRecord{
		Timestamp:  frame.CaptureInfo.Timestamp.UTC().Truncate(time.Microsecond),
		PacketSize: int64(len(frame.Data)),
		FileName:   frame.File,
		Protocol:   model.ProtocolOther,
	}
	meta := model.Metadata{}
	if frame.CaptureInfo.Length > len(frame.Data) {
		meta["wire_length"] = frame.CaptureInfo.Length
	}

	// Network layer
	var ipProto layers.IPProtocol
	isIP := false
	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		record.SourceIP = ip.SrcIP.String()
		record.DestinationIP = ip.DstIP.String()
		ipProto, isIP = ip.Protocol, true
		meta["ip_version"] = 4
		meta["ttl"] = ip.TTL
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil {
		ip := l.(*layers.IPv6)
		record.SourceIP = ip.SrcIP.String()
		record.DestinationIP = ip.DstIP.String()
		ipProto, isIP = ip.NextHeader, true
		record.Protocol = model.ProtocolIPv6
		meta["ip_version"] = 6
		meta["hop_limit"] = ip.HopLimit
	}

	// Transport layer
	if l := decodedLayer(packet, layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		record.Protocol = model.ProtocolTCP
		record.SourcePort = model.Port(uint16(tcp.SrcPort))
		record.DestinationPort = model.Port(uint16(tcp.DstPort))
		meta["tcp_flags"] = tcpFlags(tcp)
		meta["tcp_seq"] = tcp.Seq
		meta["tcp_ack"] = tcp.Ack
		meta["tcp_window"] = tcp.Window
	} else if l := decodedLayer(packet, layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		record.Protocol = model.ProtocolUDP
		record.SourcePort = model.Port(uint16(udp.SrcPort))
		record.DestinationPort = model.Port(uint16(udp.DstPort))
		meta["udp_length"] = udp.Length
		meta["udp_checksum"] = udp.Checksum
	} else if l := decodedLayer(packet, layers.LayerTypeICMPv4); l != nil {
		icmp := l.(*layers.ICMPv4)
		record.Protocol = model.ProtocolICMP
		meta["icmp_type"] = icmp.TypeCode.Type()
		meta["icmp_code"] = icmp.TypeCode.Code()
	} else if l := decodedLayer(packet, layers.LayerTypeICMPv6); l != nil {
		icmp := l.(*layers.ICMPv6)
		record.Protocol = model.ProtocolICMP
		meta["icmp_type"] = icmp.TypeCode.Type()
		meta["icmp_code"] = icmp.TypeCode.Code()
	} else if isIP {
		// Transport header missing or truncated: fall back to what the IP header says.
		if p, ok := protocolByNumber(ipProto); ok {
			record.Protocol = p
		}
	}

	if !isIP {
		names := make([]any, 0, len(all))
		for _, l := range all {
			// Ethernet minimum-frame padding decodes as a payload.
			if l.LayerType() == gopacket.LayerTypePayload {
				continue
			}
			names = append(names, l.LayerType().String())
		}
		meta["layers"] = names
		if l := packet.Layer(layers.LayerTypeARP); l != nil {
			meta["arp_operation"] = l.(*layers.ARP).Operation
		}
	}

	if failure := packet.ErrorLayer(); failure != nil {
		meta["decode_error"] = failure.Error().Error()
	}

	if len(meta) > 0 {
		record.Metadata = meta
	}
	return record, nil
}

// decodedLayer returns the layer of type t only when its header was decoded.
// A truncated header still leaves an empty, zero-valued layer in the packet.
func decodedLayer(packet gopacket.Packet, t gopacket.LayerType) gopacket.Layer {
	l := packet.Layer(t)
	if l == nil || len(l.LayerContents()) == 0 {
		return nil
	}
	return l
}

// protocolByNumber maps an IP protocol number onto a record tag.
func protocolByNumber(p layers.IPProtocol) (model.Protocol, bool) {
	switch p {
	case layers.IPProtocolTCP:
		return model.ProtocolTCP, true
	case layers.IPProtocolUDP:
		return model.ProtocolUDP, true
	case layers.IPProtocolICMPv4, layers.IPProtocolICMPv6:
		return model.ProtocolICMP, true
	}
	return "", false
}

// tcpFlags renders the set flags in FSRPAUEC order, e.g. "SA" for SYN+ACK.
func tcpFlags(tcp *layers.TCP) string {
	var b strings.Builder
	for _, f := range []struct {
		set  bool
		name byte
	}{
		{tcp.FIN, 'F'}, {tcp.SYN, 'S'}, {tcp.RST, 'R'}, {tcp.PSH, 'P'},
		{tcp.ACK, 'A'}, {tcp.URG, 'U'}, {tcp.ECE, 'E'}, {tcp.CWR, 'C'},
	} {
		if f.set {
			b.WriteByte(f.name)
		}
	}
	return b.String()
}

// IsDropped reports whether err means the frame was dropped by the extractor.
func IsDropped(err error) bool {
	return errors.Is(err, model.ErrExtraction)
}
