package chstore

import (
	"TrafficParser/internal/factory"
	"TrafficParser/internal/model"
	"TrafficParser/internal/store"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog"
)

func init() {
	factory.RegisterStore(Open, "clickhouse")
}

const createTableStatement = `
CREATE TABLE IF NOT EXISTS traffic_packets (
    id               UInt64,
    captured_at_us   Int64,
    source_ip        Nullable(String),
    destination_ip   Nullable(String),
    source_port      Nullable(UInt16),
    destination_port Nullable(UInt16),
    protocol         LowCardinality(String),
    packet_size      Int64,
    packet_data      String,
    file_name        String,
    created_at_us    Int64
) ENGINE = MergeTree()
ORDER BY id;
`

const selectColumns = `id, captured_at_us, source_ip, destination_ip, source_port, destination_port,
	protocol, packet_size, packet_data, file_name, created_at_us`

// Store keeps traffic records in ClickHouse. IDs are allocated by this
// process from max(id), so only one writer may append at a time.
type Store struct {
	conn     driver.Conn
	location string
	log      zerolog.Logger

	mu     sync.Mutex
	lastID uint64
	loaded bool
}

// Open connects to the ClickHouse server named by a clickhouse:// URL.
func Open(ctx context.Context, dsn string, log zerolog.Logger) (store.Store, error) {
	location := store.Redact(dsn)
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, model.NewPathError(model.ErrConfiguration, location, err)
	}
	if opts.Compression == nil {
		opts.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, store.Wrap(location, "open", err)
	}
	if err := store.PingWithRetry(ctx, conn.Ping, log); err != nil {
		conn.Close()
		return nil, store.Wrap(location, "connect", err)
	}

	log.Info().Str("url", location).Msg("Connected to ClickHouse store")
	return &Store{conn: conn, location: location, log: log}, nil
}

// Init creates the table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	if err := s.conn.Exec(ctx, createTableStatement); err != nil {
		return store.Wrap(s.location, "create table", err)
	}
	return nil
}

// Append sends the batch as one insert block.
func (s *Store) Append(ctx context.Context, records []model.TrafficRecord) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		if records[i].FileName == "" {
			return store.Wrap(s.location, "append", fmt.Errorf("record %d has no file name", i))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.conn.QueryRow(ctx, "SELECT max(id) FROM traffic_packets").Scan(&s.lastID); err != nil {
			return store.Wrap(s.location, "load last id", err)
		}
		s.loaded = true
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO traffic_packets")
	if err != nil {
		return store.Wrap(s.location, "prepare batch", err)
	}

	createdAt := store.Now()
	for i := range records {
		r := &records[i]
		data, err := store.EncodeMetadata(r.Metadata)
		if err != nil {
			batch.Abort()
			return store.Wrap(s.location, "append", err)
		}
		err = batch.Append(
			s.lastID+uint64(i)+1,
			store.Micros(r.Timestamp),
			nullable(r.SourceIP),
			nullable(r.DestinationIP),
			r.SourcePort,
			r.DestinationPort,
			string(model.NormalizeProtocol(string(r.Protocol))),
			r.PacketSize,
			data,
			r.FileName,
			store.Micros(createdAt),
		)
		if err != nil {
			batch.Abort()
			return store.Wrap(s.location, "append", err)
		}
	}

	if err := batch.Send(); err != nil {
		return store.Wrap(s.location, fmt.Sprintf("send batch of %d", len(records)), err)
	}

	for i := range records {
		records[i].ID = int64(s.lastID + uint64(i) + 1)
		records[i].CreatedAt = createdAt
	}
	s.lastID += uint64(len(records))
	s.log.Debug().Int("records", len(records)).Uint64("last_id", s.lastID).Msg("Batch sent")
	return nil
}

// Query streams matching rows ordered by id.
func (s *Store) Query(ctx context.Context, criteria model.FilterCriteria) (store.Cursor, error) {
	var b strings.Builder
	b.WriteString("SELECT " + selectColumns + " FROM traffic_packets")

	where, args := buildWhere(criteria)
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	b.WriteString(" ORDER BY id")

	rows, err := s.conn.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, store.Wrap(s.location, "query", err)
	}
	return &cursor{rows: rows, location: s.location}, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return store.Wrap(s.location, "ping", err)
	}
	return nil
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// buildWhere translates criteria into a WHERE clause with positional args.
func buildWhere(c model.FilterCriteria) (string, []any) {
	var whereClauses []string
	args := []any{}

	if c.Protocol != nil {
		whereClauses = append(whereClauses, "protocol = ?")
		args = append(args, string(*c.Protocol))
	}
	if c.IP != "" {
		whereClauses = append(whereClauses, "(source_ip = ? OR destination_ip = ?)")
		args = append(args, c.IP, c.IP)
	}
	if len(c.Ports) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(c.Ports)), ", ")
		whereClauses = append(whereClauses, fmt.Sprintf("(source_port IN (%s) OR destination_port IN (%s))", marks, marks))
		for range 2 {
			for _, p := range c.Ports {
				args = append(args, p)
			}
		}
	}
	if c.MinSize != nil {
		whereClauses = append(whereClauses, "packet_size >= ?")
		args = append(args, *c.MinSize)
	}
	if c.MaxSize != nil {
		whereClauses = append(whereClauses, "packet_size <= ?")
		args = append(args, *c.MaxSize)
	}
	if c.Since != nil {
		whereClauses = append(whereClauses, "captured_at_us >= ?")
		args = append(args, store.SinceMicros(*c.Since))
	}
	if c.Until != nil {
		whereClauses = append(whereClauses, "captured_at_us <= ?")
		args = append(args, store.Micros(*c.Until))
	}

	return strings.Join(whereClauses, " AND "), args
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type cursor struct {
	rows     driver.Rows
	location string
	current  model.TrafficRecord
	err      error
}

func (c *cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}

	var (
		id                    uint64
		capturedAt, createdAt int64
		srcIP, dstIP          *string
		srcPort, dstPort      *uint16
		protocol, data, file  string
		size                  int64
	)
	if err := c.rows.Scan(&id, &capturedAt, &srcIP, &dstIP, &srcPort, &dstPort,
		&protocol, &size, &data, &file, &createdAt); err != nil {
		c.err = store.Wrap(c.location, "scan", err)
		return false
	}
	meta, err := store.DecodeMetadata(data)
	if err != nil {
		c.err = store.Wrap(c.location, fmt.Sprintf("row %d", id), err)
		return false
	}

	c.current = model.TrafficRecord{
		ID:              int64(id),
		Timestamp:       store.FromMicros(capturedAt),
		SourceIP:        deref(srcIP),
		DestinationIP:   deref(dstIP),
		SourcePort:      srcPort,
		DestinationPort: dstPort,
		Protocol:        model.NormalizeProtocol(protocol),
		PacketSize:      size,
		Metadata:        meta,
		FileName:        file,
		CreatedAt:       store.FromMicros(createdAt),
	}
	return true
}

func (c *cursor) Record() model.TrafficRecord {
	return c.current
}

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.rows.Err(); err != nil {
		return store.Wrap(c.location, "query", err)
	}
	return nil
}

func (c *cursor) Close() error {
	return c.rows.Close()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
