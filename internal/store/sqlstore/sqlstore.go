package sqlstore

import (
	"TrafficParser/internal/factory"
	"TrafficParser/internal/model"
	"TrafficParser/internal/store"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

func init() {
	factory.RegisterStore(func(ctx context.Context, dsn string, log zerolog.Logger) (store.Store, error) {
		s, err := OpenSQLite(dsn, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}, "sqlite", "sqlite3", "file")
	factory.RegisterStore(OpenPostgres, "postgres", "postgresql")
}

// recordRow is the row layout of the traffic_packets table.
type recordRow struct {
	bun.BaseModel `bun:"table:traffic_packets,alias:tp"`

	ID              int64  `bun:"id,pk,autoincrement"`
	CapturedAtUs    int64  `bun:"captured_at_us,notnull"`
	SourceIP        string `bun:"source_ip,nullzero"`
	DestinationIP   string `bun:"destination_ip,nullzero"`
	SourcePort      *int32 `bun:"source_port"` // signed: PostgreSQL has no unsigned types
	DestinationPort *int32 `bun:"destination_port"`
	Protocol        string `bun:"protocol,notnull"`
	PacketSize      int64  `bun:"packet_size,notnull"`
	PacketData      string `bun:"packet_data,nullzero"`
	FileName        string `bun:"file_name,nullzero,notnull"`
	CreatedAtUs     int64  `bun:"created_at_us,notnull"`
}

var indexes = []struct {
	name   string
	column string
}{
	{"idx_traffic_packets_protocol", "protocol"},
	{"idx_traffic_packets_source_ip", "source_ip"},
	{"idx_traffic_packets_destination_ip", "destination_ip"},
	{"idx_traffic_packets_captured_at", "captured_at_us"},
}

// Store is a bun-backed store for SQLite and PostgreSQL.
type Store struct {
	db       *bun.DB
	location string
	log      zerolog.Logger
}

// SQLitePath extracts the database file from a sqlite:// URL, a file: URL or
// a bare path. sqlite:///rel.db is relative, sqlite:////abs.db absolute.
func SQLitePath(dsn string) string {
	lower := strings.ToLower(dsn)
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		if strings.HasPrefix(lower, prefix) {
			p := dsn[len(prefix):]
			return strings.TrimPrefix(p, "/")
		}
	}
	return dsn
}

// OpenSQLite opens (and creates when missing) a SQLite database.
func OpenSQLite(dsn string, log zerolog.Logger) (*Store, error) {
	path := SQLitePath(dsn)
	if path == "" {
		return nil, model.Configurationf("sqlite database URL %q has no path", dsn)
	}

	file := strings.TrimPrefix(path, "file:")
	if i := strings.IndexByte(file, '?'); i >= 0 {
		file = file[:i]
	}
	if file != "" && file != ":memory:" {
		if dir := filepath.Dir(file); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, store.Wrap(file, "create database directory", err)
			}
		}
	}

	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, store.Wrap(path, "open", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases alive.
	sqldb.SetMaxOpenConns(1)

	s := &Store{db: bun.NewDB(sqldb, sqlitedialect.New()), location: path, log: log}
	if err := s.Ping(context.Background()); err != nil {
		sqldb.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("Opened SQLite store")
	return s, nil
}

// OpenPostgres connects to PostgreSQL, retrying the initial ping.
func OpenPostgres(ctx context.Context, dsn string, log zerolog.Logger) (store.Store, error) {
	location := store.Redact(dsn)
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	s := &Store{db: bun.NewDB(sqldb, pgdialect.New()), location: location, log: log}

	if err := store.PingWithRetry(ctx, s.db.PingContext, log); err != nil {
		sqldb.Close()
		return nil, store.Wrap(location, "connect", err)
	}
	log.Info().Str("url", location).Msg("Connected to PostgreSQL store")
	return s, nil
}

// Init creates the table and its indexes if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*recordRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return store.Wrap(s.location, "create table", err)
	}
	for _, idx := range indexes {
		if _, err := s.db.NewCreateIndex().
			Model((*recordRow)(nil)).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx); err != nil {
			return store.Wrap(s.location, "create index "+idx.name, err)
		}
	}
	s.log.Debug().Str("table", store.TableName).Msg("Schema ready")
	return nil
}

// Append inserts the batch inside one transaction.
func (s *Store) Append(ctx context.Context, records []model.TrafficRecord) error {
	if len(records) == 0 {
		return nil
	}

	createdAt := store.Now()
	rows := make([]recordRow, len(records))
	for i := range records {
		row, err := toRow(&records[i], createdAt)
		if err != nil {
			return store.Wrap(s.location, "append", err)
		}
		rows[i] = row
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&rows).Returning("id").Exec(ctx)
		return err
	})
	if err != nil {
		return store.Wrap(s.location, fmt.Sprintf("append batch of %d", len(records)), err)
	}

	for i := range records {
		records[i].ID = rows[i].ID
		records[i].CreatedAt = createdAt
	}
	return nil
}

// Query selects the matching rows ordered by id.
func (s *Store) Query(ctx context.Context, criteria model.FilterCriteria) (store.Cursor, error) {
	q := s.db.NewSelect().Model((*recordRow)(nil))
	q = applyCriteria(q, criteria).Order("id ASC")

	rows, err := q.Rows(ctx)
	if err != nil {
		return nil, store.Wrap(s.location, "query", err)
	}
	return &cursor{ctx: ctx, db: s.db, rows: rows, location: s.location}, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return store.Wrap(s.location, "ping", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func applyCriteria(q *bun.SelectQuery, c model.FilterCriteria) *bun.SelectQuery {
	if c.Protocol != nil {
		q = q.Where("protocol = ?", string(*c.Protocol))
	}
	if c.IP != "" {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("source_ip = ?", c.IP).WhereOr("destination_ip = ?", c.IP)
		})
	}
	if len(c.Ports) > 0 {
		ports := make([]int32, len(c.Ports))
		for i, p := range c.Ports {
			ports[i] = int32(p)
		}
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("source_port IN (?)", bun.In(ports)).WhereOr("destination_port IN (?)", bun.In(ports))
		})
	}
	if c.MinSize != nil {
		q = q.Where("packet_size >= ?", *c.MinSize)
	}
	if c.MaxSize != nil {
		q = q.Where("packet_size <= ?", *c.MaxSize)
	}
	if c.Since != nil {
		q = q.Where("captured_at_us >= ?", store.SinceMicros(*c.Since))
	}
	if c.Until != nil {
		q = q.Where("captured_at_us <= ?", store.Micros(*c.Until))
	}
	return q
}

func toRow(r *model.TrafficRecord, createdAt time.Time) (recordRow, error) {
	data, err := store.EncodeMetadata(r.Metadata)
	if err != nil {
		return recordRow{}, err
	}
	return recordRow{
		CapturedAtUs:    store.Micros(r.Timestamp),
		SourceIP:        r.SourceIP,
		DestinationIP:   r.DestinationIP,
		SourcePort:      toPort(r.SourcePort),
		DestinationPort: toPort(r.DestinationPort),
		Protocol:        string(model.NormalizeProtocol(string(r.Protocol))),
		PacketSize:      r.PacketSize,
		PacketData:      data,
		FileName:        r.FileName,
		CreatedAtUs:     store.Micros(createdAt),
	}, nil
}

func (row *recordRow) record() (model.TrafficRecord, error) {
	meta, err := store.DecodeMetadata(row.PacketData)
	if err != nil {
		return model.TrafficRecord{}, err
	}
	return model.TrafficRecord{
		ID:              row.ID,
		Timestamp:       store.FromMicros(row.CapturedAtUs),
		SourceIP:        row.SourceIP,
		DestinationIP:   row.DestinationIP,
		SourcePort:      fromPort(row.SourcePort),
		DestinationPort: fromPort(row.DestinationPort),
		Protocol:        model.NormalizeProtocol(row.Protocol),
		PacketSize:      row.PacketSize,
		Metadata:        meta,
		FileName:        row.FileName,
		CreatedAt:       store.FromMicros(row.CreatedAtUs),
	}, nil
}

func toPort(p *uint16) *int32 {
	if p == nil {
		return nil
	}
	v := int32(*p)
	return &v
}

func fromPort(p *int32) *uint16 {
	if p == nil {
		return nil
	}
	return model.Port(uint16(*p))
}

// cursor scans one row at a time from an open result set.
type cursor struct {
	ctx      context.Context
	db       *bun.DB
	rows     *sql.Rows
	location string
	current  model.TrafficRecord
	err      error
}

func (c *cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	var row recordRow
	if err := c.db.ScanRow(c.ctx, c.rows, &row); err != nil {
		c.err = store.Wrap(c.location, "scan", err)
		return false
	}
	rec, err := row.record()
	if err != nil {
		c.err = store.Wrap(c.location, fmt.Sprintf("row %d", row.ID), err)
		return false
	}
	c.current = rec
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
