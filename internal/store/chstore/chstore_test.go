package chstore

import (
	"TrafficParser/internal/factory"
	"TrafficParser/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildWhereEmpty(t *testing.T) {
	where, args := buildWhere(model.FilterCriteria{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildWhere(t *testing.T) {
	udp := model.ProtocolUDP
	minSize, maxSize := int64(64), int64(512)
	since := time.Date(2024, 3, 1, 12, 0, 0, 1500, time.UTC)
	until := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)

	where, args := buildWhere(model.FilterCriteria{
		Protocol: &udp,
		IP:       "10.0.0.1",
		Ports:    []uint16{53, 5353},
		MinSize:  &minSize,
		MaxSize:  &maxSize,
		Since:    &since,
		Until:    &until,
	})

	assert.Equal(t, "protocol = ?"+
		" AND (source_ip = ? OR destination_ip = ?)"+
		" AND (source_port IN (?, ?) OR destination_port IN (?, ?))"+
		" AND packet_size >= ? AND packet_size <= ?"+
		" AND captured_at_us >= ? AND captured_at_us <= ?", where)
	assert.Equal(t, []any{
		"UDP",
		"10.0.0.1", "10.0.0.1",
		uint16(53), uint16(5353), uint16(53), uint16(5353),
		int64(64), int64(512),
		since.UnixMicro() + 1, until.UnixMicro(),
	}, args)
}

func TestRegisteredScheme(t *testing.T) {
	assert.Contains(t, factory.Schemes(), "clickhouse")
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	assert.Equal(t, "1.1.1.1", *nullable("1.1.1.1"))
	assert.Equal(t, "", deref(nil))
}
