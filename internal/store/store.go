package store

import (
	"TrafficParser/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TableName is the single table holding traffic records in every backend.
const TableName = "traffic_packets"

// Store persists traffic records and queries them back.
type Store interface {
	// Init creates the schema. Calling it again is a no-op.
	Init(ctx context.Context) error
	// Append commits one batch atomically and fills in ID and CreatedAt on
	// the given records. On failure none of the batch is visible.
	Append(ctx context.Context, records []model.TrafficRecord) error
	// Query streams the records matching criteria in ascending ID order.
	Query(ctx context.Context, criteria model.FilterCriteria) (Cursor, error)
	Ping(ctx context.Context) error
	Close() error
}

// Cursor iterates lazily over query results.
type Cursor interface {
	Next() bool
	Record() model.TrafficRecord
	Err() error
	Close() error
}

// Collect drains c into a slice and closes it.
func Collect(c Cursor) ([]model.TrafficRecord, error) {
	defer c.Close()
	var out []model.TrafficRecord
	for c.Next() {
		out = append(out, c.Record())
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Wrap classifies err as a model.ErrStore naming the store location.
func Wrap(location, op string, err error) error {
	if err == nil {
		return nil
	}
	return model.NewPathError(model.ErrStore, location, fmt.Errorf("%s: %w", op, err))
}

// Micros converts t to the integer microseconds stored in the *_us columns.
func Micros(t time.Time) int64 {
	return t.UnixMicro()
}

// SinceMicros rounds t up to whole microseconds, for inclusive lower bounds.
func SinceMicros(t time.Time) int64 {
	us := t.UnixMicro()
	if t.Nanosecond()%1000 != 0 {
		us++
	}
	return us
}

// FromMicros is the inverse of Micros and always yields UTC.
func FromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

// Now returns the current time as stored: UTC, microsecond precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// EncodeMetadata renders metadata as the JSON text kept in packet_data.
// Nil or empty metadata is stored as an empty string.
func EncodeMetadata(m model.Metadata) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode packet_data: %w", err)
	}
	return string(b), nil
}

// DecodeMetadata parses the packet_data column.
func DecodeMetadata(s string) (model.Metadata, error) {
	if s == "" {
		return nil, nil
	}
	var m model.Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("failed to decode packet_data: %w", err)
	}
	return m, nil
}
