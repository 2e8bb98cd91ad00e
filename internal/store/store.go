package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Read when no value is stored under the key.
var ErrNotFound = errors.New("store: key not found")

// DecodeError reports a stored value that no longer unmarshals into the
// requested shape. Raw carries the stored bytes so callers can still
// inspect or surface them instead of losing the record.
type DecodeError struct {
	Key string
	Raw []byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("store: decode %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// KV is one key/value pair for batched writes.
type KV struct {
	Key   string
	Value any
}

// Store is a durable JSON key/value store. Values round-trip through JSON
// so field names and numeric precision survive a restart. Implementations
// must be safe for concurrent callers; a single writer lock is sufficient.

type Store interface {
	// Write upserts value under key.
	Write(ctx context.Context, key string, value any) error
	// WriteBatch upserts all pairs in one transaction, so a concurrent
	// reader observes either none or all of them.
	WriteBatch(ctx context.Context, kvs []KV) error
	// Read unmarshals the value stored under key into dest.
	// Returns ErrNotFound when absent and *DecodeError when the stored
	// bytes do not unmarshal into dest.
	Read(ctx context.Context, key string, dest any) error
	// All returns every stored key with its raw JSON value.
	All(ctx context.Context) (map[string]json.RawMessage, error)
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and parameterizes a backend. Type is one of the names
// registered with the factory ("memory", "sqlite", "postgres").
type Config struct {
	Type string `toml:"type" mapstructure:"type"`

	// SQLite specific
	Path string `toml:"path,omitempty" mapstructure:"path"`

	// PostgreSQL specific
	Host     string `toml:"host,omitempty" mapstructure:"host"`
	Port     int    `toml:"port,omitempty" mapstructure:"port"`
	Database string `toml:"database,omitempty" mapstructure:"database"`
	Username string `toml:"username,omitempty" mapstructure:"username"`
	Password string `toml:"password,omitempty" mapstructure:"password"`
	SSLMode  string `toml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`

	// Connection pooling
	MaxOpenConns int           `toml:"max_open_conns,omitempty" mapstructure:"max_open_conns"`
	MaxIdleConns int           `toml:"max_idle_conns,omitempty" mapstructure:"max_idle_conns"`
	ConnMaxAge   time.Duration `toml:"conn_max_age,omitempty" mapstructure:"conn_max_age"`
}

// DSN builds a postgres connection string from the config fields.
func (c Config) DSN() string {
	ssl := c.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Username, c.Password, c.Host, port, c.Database, ssl)
}
