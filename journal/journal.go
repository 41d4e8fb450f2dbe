// Package journal records the outcome of every bootstrap run so failed or
// degraded launches can be inspected after the fact.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ErrUnsupportedBackend is returned for unknown backend names
var ErrUnsupportedBackend = errors.New("unsupported journal backend")

// Entry is one recorded bootstrap run.
type Entry struct {
	LaunchID   string        `json:"launch_id" yaml:"launch_id" msgpack:"launch_id"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at" msgpack:"started_at"`
	Duration   time.Duration `json:"duration" yaml:"duration" msgpack:"duration"`
	Status     string        `json:"status" yaml:"status" msgpack:"status"`
	FailedStep string        `json:"failed_step,omitempty" yaml:"failed_step,omitempty" msgpack:"failed_step"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty" msgpack:"error"`
	NonFatal   []string      `json:"non_fatal,omitempty" yaml:"non_fatal,omitempty" msgpack:"non_fatal"`
}

// Journal stores launch entries.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	SQLitePath string
	Redis      RedisOptions
}

// New opens the configured journal backend.
func New(ctx context.Context, opts Options, logger *zap.SugaredLogger) (Journal, error) {
	switch opts.Backend {
	case "", BackendNone:
		return Nop{}, nil
	case BackendSQLite:
		return NewSQLite(ctx, opts.SQLitePath, logger)
	case BackendRedis:
		return NewRedis(ctx, opts.Redis, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, opts.Backend)
	}
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
func (Nop) Recent(context.Context, int) ([]Entry, error) { return nil, nil }
func (Nop) Close() error { return nil }
