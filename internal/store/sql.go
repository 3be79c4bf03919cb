package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"oligoscreen/internal/model"
)

// dialect carries the statements that differ between SQLite and Postgres.
type dialect struct {
	driver Driver
	create string
	upsert string
	get    string
	list   string
	del    string
}

var sqliteDialect = dialect{
	driver: DriverSQLite,
	create: `CREATE TABLE IF NOT EXISTS screening_runs (
		key TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		template TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`,
	upsert: `INSERT INTO screening_runs (key, run_id, template, saved_at, payload) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET run_id=excluded.run_id, template=excluded.template, saved_at=excluded.saved_at, payload=excluded.payload`,
	get:  `SELECT payload FROM screening_runs WHERE key = ?`,
	list: `SELECT key, run_id, template, saved_at, length(payload) FROM screening_runs ORDER BY key`,
	del:  `DELETE FROM screening_runs WHERE key = ?`,
}

var postgresDialect = dialect{
	driver: DriverPostgres,
	create: `CREATE TABLE IF NOT EXISTS screening_runs (
		key TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		template TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		payload BYTEA NOT NULL
	)`,
	upsert: `INSERT INTO screening_runs (key, run_id, template, saved_at, payload) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT(key) DO UPDATE SET run_id=excluded.run_id, template=excluded.template, saved_at=excluded.saved_at, payload=excluded.payload`,
	get:  `SELECT payload FROM screening_runs WHERE key = $1`,
	list: `SELECT key, run_id, template, saved_at, octet_length(payload) FROM screening_runs ORDER BY key`,
	del:  `DELETE FROM screening_runs WHERE key = $1`,
}

// SQL keeps runs in a single screening_runs table, one row per key, with
// the results as a JSON payload.
type SQL struct {
	db *sql.DB
	d  dialect
}

// NewSQLite opens (creating if needed) the database file at path.
func NewSQLite(ctx context.Context, path string) (*SQL, error) {
	if path == "" {
		path = "oligoscreen.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; modernc serializes anyway and this avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return newSQL(ctx, db, sqliteDialect)
}

// NewPostgres connects to dsn through pgx and checks the connection.
func NewPostgres(ctx context.Context, dsn string) (*SQL, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQL(ctx, db, postgresDialect)
}

func newSQL(ctx context.Context, db *sql.DB, d dialect) (*SQL, error) {
	if _, err := db.ExecContext(ctx, d.create); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create screening_runs table: %w", err)
	}
	return &SQL{db: db, d: d}, nil
}

func (s *SQL) Driver() Driver { return s.d.driver }

func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) Put(ctx context.Context, key string, res *model.ScreeningResults) (Info, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	data, err := encode(res)
	if err != nil {
		return Info{}, err
	}
	info := newInfo(k, res, len(data))
	if _, err := s.db.ExecContext(ctx, s.d.upsert, k, info.RunID, info.Template, info.SavedAt.Format(time.RFC3339Nano), data); err != nil {
		return Info{}, fmt.Errorf("upsert %s: %w", k, err)
	}
	return info, nil
}

func (s *SQL) Get(ctx context.Context, key string) (*model.ScreeningResults, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	var payload []byte
	err = s.db.QueryRowContext(ctx, s.d.get, k).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", k, err)
	}
	return decode(k, payload)
}

func (s *SQL) Delete(ctx context.Context, key string) (bool, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return false, err
	}
	r, err := s.db.ExecContext(ctx, s.d.del, k)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", k, err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List filters by prefix in Go so keys holding LIKE wildcards list correctly.
func (s *SQL) List(ctx context.Context, prefix string) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, s.d.list)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var infos []Info
	for rows.Next() {
		var (
			info  Info
			saved string
		)
		if err := rows.Scan(&info.Key, &info.RunID, &info.Template, &saved, &info.Size); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if !strings.HasPrefix(info.Key, prefix) {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, saved); err == nil {
			info.SavedAt = t
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
