// Package store persists screening results under string keys. Drivers:
// a directory of JSON files, process memory, an S3 bucket, SQLite and
// Postgres. Open picks one from a location URL.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"oligoscreen/internal/model"
)

// Driver identifies a storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
	DriverSQLite     Driver = "sqlite"
	DriverPostgres   Driver = "postgres"
)

// ErrNotFound is returned by Get for a key that holds no results.
var ErrNotFound = errors.New("results not found")

// Info describes one stored run. RunID and Template are empty where the
// backend does not keep them in listings.
type Info struct {
	Key      string    `json:"key"`
	RunID    string    `json:"run_id,omitempty"`
	Template string    `json:"template,omitempty"`
	Size     int64     `json:"size"`
	SavedAt  time.Time `json:"saved_at"`
}

// Store is implemented by every backend. Put overwrites an existing key.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, res *model.ScreeningResults) (Info, error)
	Get(ctx context.Context, key string) (*model.ScreeningResults, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	Close() error
}

// Open selects a backend from location:
//
//	DIR or fs://DIR                    JSON files under DIR
//	memory://                          process memory
//	s3://BUCKET/PREFIX?region=&endpoint=&path_style=true
//	sqlite://PATH                      SQLite database file
//	postgres://... / postgresql://...  Postgres DSN
func Open(ctx context.Context, location string) (Store, error) {
	if strings.TrimSpace(location) == "" {
		return nil, errors.New("store: empty location")
	}
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) < 2 {
		return NewFilesystem(location)
	}
	switch Driver(u.Scheme) {
	case DriverFilesystem:
		return NewFilesystem(u.Host + u.Path)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		q := u.Query()
		return NewS3(ctx, S3Config{
			Bucket:    u.Host,
			Prefix:    strings.TrimPrefix(u.Path, "/"),
			Region:    q.Get("region"),
			Endpoint:  q.Get("endpoint"),
			PathStyle: strings.EqualFold(q.Get("path_style"), "true"),
		})
	case DriverSQLite:
		return NewSQLite(ctx, u.Host+u.Path)
	case DriverPostgres, "postgresql":
		return NewPostgres(ctx, location)
	default:
		return nil, fmt.Errorf("unknown store driver %s", u.Scheme)
	}
}

// sanitizeKey ensures key doesn't escape a root and forbids path traversal
// and absolute paths.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty key")
	}
	if strings.Contains(key, "..") {
		return "", errors.New("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", errors.New("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}
