package model

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeProtocol(t *testing.T) {
	assert.Equal(t, ProtocolTCP, NormalizeProtocol("tcp"))
	assert.Equal(t, ProtocolIPv6, NormalizeProtocol(" ipv6 "))
	assert.Equal(t, ProtocolOther, NormalizeProtocol("OTHER"))
	assert.Equal(t, ProtocolOther, NormalizeProtocol("SCTP"))
	assert.Equal(t, ProtocolOther, NormalizeProtocol(""))

	_, ok := LookupProtocol("gre")
	assert.False(t, ok)
}

func TestTrafficRecordSides(t *testing.T) {
	r := TrafficRecord{SourceIP: "10.0.0.1", DestinationIP: "10.0.0.2", DestinationPort: Port(443)}

	assert.True(t, r.HasIP("10.0.0.2"))
	assert.False(t, r.HasIP(""))
	assert.True(t, r.HasPort(443))
	assert.False(t, r.HasPort(0), "absent source port must not match port 0")
}

func TestPathErrorClassification(t *testing.T) {
	err := NewPathError(ErrExport, "/out/x.json", fs.ErrPermission)

	assert.True(t, errors.Is(err, ErrExport))
	assert.True(t, errors.Is(err, fs.ErrPermission))
	assert.False(t, errors.Is(err, ErrStore))
	assert.Contains(t, err.Error(), "/out/x.json")
}

func TestFilterCriteriaIsEmpty(t *testing.T) {
	assert.True(t, FilterCriteria{}.IsEmpty())
	assert.False(t, FilterCriteria{IP: "1.1.1.1"}.IsEmpty())
}
