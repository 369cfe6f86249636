package pcap

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var (
	synthSrcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	synthDstMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA}
)

// SynthFrame is a frame to be written into a synthetic capture.
type SynthFrame struct {
	Timestamp time.Time
	Data      []byte
}

// Serialize builds an Ethernet frame from the given layers, fixing lengths and
// checksums.
func Serialize(ls ...gopacket.SerializableLayer) ([]byte, error) {
	for _, l := range ls {
		switch tl := l.(type) {
		case *layers.TCP:
			if nl := networkLayer(ls); nl != nil {
				tl.SetNetworkLayerForChecksum(nl)
			}
		case *layers.UDP:
			if nl := networkLayer(ls); nl != nil {
				tl.SetNetworkLayerForChecksum(nl)
			}
		}
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		return nil, fmt.Errorf("failed to serialize layers: %w", err)
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

func networkLayer(ls []gopacket.SerializableLayer) gopacket.NetworkLayer {
	for _, l := range ls {
		if nl, ok := l.(gopacket.NetworkLayer); ok {
			return nl
		}
	}
	return nil
}

// TCPFrame builds an Ethernet/IPv4/TCP frame.
func TCPFrame(src, dst string, sport, dport uint16, payload []byte) ([]byte, error) {
	ip := ipv4(src, dst, layers.IPProtocolTCP)
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(sport),
		DstPort: layers.TCPPort(dport),
		Seq:     1000,
		Ack:     0,
		SYN:     true,
		Window:  14600,
	}
	return Serialize(ethernet(layers.EthernetTypeIPv4), ip, tcp, gopacket.Payload(payload))
}

// UDPFrame builds an Ethernet/IPv4/UDP frame.
func UDPFrame(src, dst string, sport, dport uint16, payload []byte) ([]byte, error) {
	ip := ipv4(src, dst, layers.IPProtocolUDP)
	udp := &layers.UDP{SrcPort: layers.UDPPort(sport), DstPort: layers.UDPPort(dport)}
	return Serialize(ethernet(layers.EthernetTypeIPv4), ip, udp, gopacket.Payload(payload))
}

// ICMPFrame builds an Ethernet/IPv4/ICMP echo frame.
func ICMPFrame(src, dst string, icmpType uint8, payload []byte) ([]byte, error) {
	ip := ipv4(src, dst, layers.IPProtocolICMPv4)
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(icmpType, 0), Id: 1, Seq: 1}
	return Serialize(ethernet(layers.EthernetTypeIPv4), ip, icmp, gopacket.Payload(payload))
}

// TCP6Frame builds an Ethernet/IPv6/TCP frame.
func TCP6Frame(src, dst string, sport, dport uint16, payload []byte) ([]byte, error) {
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolTCP,
		SrcIP:      net.ParseIP(src),
		DstIP:      net.ParseIP(dst),
	}
	tcp := &layers.TCP{SrcPort: layers.TCPPort(sport), DstPort: layers.TCPPort(dport), ACK: true, Window: 512}
	return Serialize(ethernet(layers.EthernetTypeIPv6), ip, tcp, gopacket.Payload(payload))
}

// ARPFrame builds an Ethernet/ARP request.
func ARPFrame(senderIP, targetIP string) ([]byte, error) {
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   synthSrcMAC,
		SourceProtAddress: net.ParseIP(senderIP).To4(),
		DstHwAddress:      net.HardwareAddr{0, 0, 0, 0, 0, 0},
		DstProtAddress:    net.ParseIP(targetIP).To4(),
	}
	eth := ethernet(layers.EthernetTypeARP)
	eth.DstMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	return Serialize(eth, arp)
}

func ethernet(t layers.EthernetType) *layers.Ethernet {
	return &layers.Ethernet{SrcMAC: synthSrcMAC, DstMAC: synthDstMAC, EthernetType: t}
}

func ipv4(src, dst string, proto layers.IPProtocol) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: proto,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
}

// WriteCapture writes frames as a classic Ethernet pcap stream.
func WriteCapture(w io.Writer, frames []SynthFrame) error {
	pcapWriter := pcapgo.NewWriter(w)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}
	for i, f := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     f.Timestamp,
			CaptureLength: len(f.Data),
			Length:        len(f.Data),
		}
		if err := pcapWriter.WritePacket(ci, f.Data); err != nil {
			return fmt.Errorf("failed to write frame %d: %w", i, err)
		}
	}
	return nil
}

// WriteCaptureNg writes frames as a pcapng stream with one Ethernet interface.
func WriteCaptureNg(w io.Writer, frames []SynthFrame) error {
	ngWriter, err := pcapgo.NewNgWriter(w, layers.LinkTypeEthernet)
	if err != nil {
		return fmt.Errorf("failed to write pcapng header: %w", err)
	}
	for i, f := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     f.Timestamp,
			CaptureLength: len(f.Data),
			Length:        len(f.Data),
		}
		if err := ngWriter.WritePacket(ci, f.Data); err != nil {
			return fmt.Errorf("failed to write frame %d: %w", i, err)
		}
	}
	return ngWriter.Flush()
}

// WriteCaptureFile creates path and writes frames into it, choosing pcapng when
// the extension is .pcapng.
func WriteCaptureFile(path string, frames []SynthFrame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".pcapng") {
		err = WriteCaptureNg(f, frames)
	} else {
		err = WriteCapture(f, frames)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

// SampleFrames returns a mixed set of traffic: HTTP, HTTPS, DNS, ICMP echo,
// SSH, a large and a small TCP segment, IPv6 and ARP, spaced 10ms apart.
func SampleFrames(start time.Time) ([]SynthFrame, error) {
	type builder func() ([]byte, error)
	builders := []builder{
		func() ([]byte, error) {
			return TCPFrame("192.168.1.100", "192.168.1.1", 12345, 80, []byte("GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"))
		},
		func() ([]byte, error) {
			return TCPFrame("192.168.1.1", "192.168.1.100", 80, 12345, []byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
		},
		func() ([]byte, error) {
			return TCPFrame("192.168.1.100", "8.8.8.8", 12346, 443, []byte("\x16\x03\x01\x00\x05hello"))
		},
		func() ([]byte, error) {
			return UDPFrame("192.168.1.100", "8.8.8.8", 12347, 53, []byte("\x12\x34\x01\x00\x00\x01\x00\x00\x00\x00\x00\x00\x07example\x03com\x00\x00\x01\x00\x01"))
		},
		func() ([]byte, error) {
			return UDPFrame("8.8.8.8", "192.168.1.100", 53, 12347, []byte("\x12\x34\x81\x80\x00\x01\x00\x01\x00\x00\x00\x00"))
		},
		func() ([]byte, error) {
			return ICMPFrame("192.168.1.100", "192.168.1.1", layers.ICMPv4TypeEchoRequest, []byte("ping"))
		},
		func() ([]byte, error) {
			return ICMPFrame("192.168.1.1", "192.168.1.100", layers.ICMPv4TypeEchoReply, []byte("ping"))
		},
		func() ([]byte, error) {
			return TCPFrame("192.168.1.100", "192.168.1.50", 12348, 22, []byte("SSH-2.0-OpenSSH_8.0\r\n"))
		},
		func() ([]byte, error) {
			return TCPFrame("192.168.1.100", "192.168.1.1", 12351, 8080, make([]byte, 1000))
		},
		func() ([]byte, error) {
			return TCPFrame("192.168.1.200", "192.168.1.1", 12352, 8080, []byte("A"))
		},
		func() ([]byte, error) {
			return UDPFrame("192.168.1.100", "192.168.1.1", 12353, 1234, []byte("This is UDP data packet"))
		},
		func() ([]byte, error) {
			return TCP6Frame("2001:db8::1", "2001:db8::2", 12354, 80, []byte("IPv6 test packet"))
		},
		func() ([]byte, error) {
			return ARPFrame("192.168.1.100", "192.168.1.1")
		},
	}

	frames := make([]SynthFrame, 0, len(builders))
	for i, build := range builders {
		data, err := build()
		if err != nil {
			return nil, err
		}
		frames = append(frames, SynthFrame{
			Timestamp: start.Add(time.Duration(i) * 10 * time.Millisecond),
			Data:      data,
		})
	}
	return frames, nil
}
