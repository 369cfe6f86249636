package publish

import (
	"TrafficParser/internal/model"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.UTC)
	in := model.TrafficRecord{
		ID:              42,
		Timestamp:       ts,
		SourceIP:        "192.168.1.10",
		DestinationIP:   "93.184.216.34",
		SourcePort:      model.Port(51000),
		DestinationPort: model.Port(443),
		Protocol:        model.ProtocolTCP,
		PacketSize:      1514,
		Metadata:        model.Metadata{"tcp_flags": "S", "tcp_window": float64(14600)},
		FileName:        "web.pcap",
		CreatedAt:       ts.Add(time.Minute),
	}

	data, err := Encode(&in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.SourceIP, out.SourceIP)
	assert.Equal(t, in.SourcePort, out.SourcePort)
	assert.Equal(t, in.DestinationPort, out.DestinationPort)
	assert.Equal(t, in.Protocol, out.Protocol)
	assert.Equal(t, in.PacketSize, out.PacketSize)
	assert.Equal(t, in.Metadata, out.Metadata)
	assert.Equal(t, in.FileName, out.FileName)
}

func TestEncodeKeepsMissingPortsNull(t *testing.T) {
	in := model.TrafficRecord{ID: 1, Timestamp: time.Unix(0, 0).UTC(), Protocol: model.ProtocolOther, PacketSize: 42, FileName: "arp.pcap"}

	data, err := Encode(&in)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)

	assert.Nil(t, out.SourcePort)
	assert.Nil(t, out.DestinationPort)
	assert.Empty(t, out.SourceIP)
	assert.Nil(t, out.Metadata)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestNewPublisherRequiresSubject(t *testing.T) {
	_, err := NewPublisher("nats://127.0.0.1:4222", "", zerolog.Nop())
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
