// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"TrafficParser/internal/filter"
	"TrafficParser/internal/model"
	"TrafficParser/internal/store"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Base is the capture time of the first record built by Records.
var Base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Records builds n records cycling through TCP, UDP, ICMP and a port-less
// non-IP frame, one millisecond apart.
func Records(file string, n int) []model.TrafficRecord {
	out := make([]model.TrafficRecord, 0, n)
	for i := 0; i < n; i++ {
		r := model.TrafficRecord{
			Timestamp:  Base.Add(time.Duration(i) * time.Millisecond),
			PacketSize: int64(60 + 10*i),
			FileName:   file,
		}
		switch i % 4 {
		case 0:
			r.Protocol = model.ProtocolTCP
			r.SourceIP, r.DestinationIP = "10.0.0.1", fmt.Sprintf("10.0.1.%d", i)
			r.SourcePort, r.DestinationPort = model.Port(40000), model.Port(80)
			r.Metadata = model.Metadata{"tcp_flags": "S", "tcp_seq": float64(i)}
		case 1:
			r.Protocol = model.ProtocolUDP
			r.SourceIP, r.DestinationIP = "10.0.0.2", "10.0.0.1"
			r.SourcePort, r.DestinationPort = model.Port(5353), model.Port(53)
		case 2:
			r.Protocol = model.ProtocolICMP
			r.SourceIP, r.DestinationIP = "2001:db8::1", "2001:db8::2"
			r.Metadata = model.Metadata{"icmp_type": float64(8), "icmp_code": float64(0)}
		default:
			r.Protocol = model.ProtocolOther
			r.Metadata = model.Metadata{"layers": []any{"Ethernet", "ARP"}}
		}
		out = append(out, r)
	}
	return out
}

// Run exercises the store contract against a freshly opened, empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	ctx := context.Background()

	t.Run("InitIsIdempotent", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx))
		require.NoError(t, s.Init(ctx))

		all := query(t, s, model.FilterCriteria{})
		assert.Empty(t, all)
	})

	t.Run("AppendAssignsAscendingIDs", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx))

		first := Records("a.pcap", 3)
		second := Records("b.pcap", 2)
		require.NoError(t, s.Append(ctx, first))
		require.NoError(t, s.Append(ctx, second))

		var last int64
		for _, r := range append(append([]model.TrafficRecord{}, first...), second...) {
			assert.Greater(t, r.ID, last)
			assert.False(t, r.CreatedAt.IsZero())
			last = r.ID
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx))

		want := Records("round.pcap", 8)
		require.NoError(t, s.Append(ctx, want))

		got := query(t, s, model.FilterCriteria{})
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID)
			assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp))
			assert.Equal(t, time.UTC, got[i].Timestamp.Location())
			assert.Equal(t, want[i].SourceIP, got[i].SourceIP)
			assert.Equal(t, want[i].DestinationIP, got[i].DestinationIP)
			assert.Equal(t, want[i].SourcePort, got[i].SourcePort)
			assert.Equal(t, want[i].DestinationPort, got[i].DestinationPort)
			assert.Equal(t, want[i].Protocol, got[i].Protocol)
			assert.Equal(t, want[i].PacketSize, got[i].PacketSize)
			assert.Equal(t, want[i].Metadata, got[i].Metadata)
			assert.Equal(t, want[i].FileName, got[i].FileName)
			assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt))
		}
	})

	t.Run("QueryMatchesFilterEngine", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx))

		records := Records("filter.pcap", 12)
		require.NoError(t, s.Append(ctx, records))

		tcp, icmp := model.ProtocolTCP, model.ProtocolICMP
		minSize, maxSize := int64(80), int64(140)
		since, until := Base.Add(2*time.Millisecond), Base.Add(7*time.Millisecond)
		sinceFrac := Base.Add(2*time.Millisecond + 500*time.Nanosecond)

		for name, c := range map[string]model.FilterCriteria{
			"protocol":        {Protocol: &tcp},
			"ip either side":  {IP: "10.0.0.1"},
			"ipv6":            {IP: "2001:db8::2"},
			"ports or-ed":     {Ports: []uint16{53, 80}},
			"port absent":     {Ports: []uint16{0}},
			"size range":      {MinSize: &minSize, MaxSize: &maxSize},
			"time range":      {Since: &since, Until: &until},
			"sub-microsecond": {Since: &sinceFrac},
			"conjunction":     {Protocol: &icmp, IP: "2001:db8::1", MinSize: &minSize},
			"no match":        {Protocol: &tcp, Ports: []uint16{53}},
		} {
			t.Run(name, func(t *testing.T) {
				want := ids(filter.Apply(records, c))
				assert.Equal(t, want, ids(query(t, s, c)))
			})
		}
	})

	t.Run("FailedBatchLeavesNothing", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx))

		ok := Records("ok.pcap", 2)
		require.NoError(t, s.Append(ctx, ok))

		bad := Records("bad.pcap", 3)
		bad[2].FileName = ""
		err := s.Append(ctx, bad)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrStore)

		got := query(t, s, model.FilterCriteria{})
		assert.Equal(t, ids(ok), ids(got))
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx))
		assert.NoError(t, s.Append(ctx, nil))
	})

	t.Run("Ping", func(t *testing.T) {
		s := open(t)
		assert.NoError(t, s.Ping(ctx))
	})
}

func query(t *testing.T, s store.Store, c model.FilterCriteria) []model.TrafficRecord {
	t.Helper()
	cur, err := s.Query(context.Background(), c)
	require.NoError(t, err)
	out, err := store.Collect(cur)
	require.NoError(t, err)
	return out
}

func ids(rs []model.TrafficRecord) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
