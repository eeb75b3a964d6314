package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/lab-resource-manager/internal/persistence"
)

// Config holds SQLite connection settings.
type Config struct {
	// Path is the database file. ":memory:" is rejected because the
	// migrator opens its own handle.
	Path string

	BusyTimeout     time.Duration
	JournalMode     string
	Synchronous     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns settings suited to a single service process.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		BusyTimeout:     30 * time.Second,
		JournalMode:     "WAL",
		Synchronous:     "NORMAL",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// TestConfig trades durability for speed.
func TestConfig(path string) Config {
	return Config{
		Path:            path,
		BusyTimeout:     5 * time.Second,
		JournalMode:     "MEMORY",
		Synchronous:     "OFF",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
}

func (c Config) validate() error {
	var problems []string
	if strings.TrimSpace(c.Path) == "" || c.Path == ":memory:" {
		problems = append(problems, "path must name a database file")
	}
	if c.BusyTimeout < 0 {
		problems = append(problems, "busy timeout must not be negative")
	}
	switch strings.ToUpper(c.JournalMode) {
	case "", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF":
	default:
		problems = append(problems, fmt.Sprintf("unknown journal mode %q", c.JournalMode))
	}
	switch strings.ToUpper(c.Synchronous) {
	case "", "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		problems = append(problems, fmt.Sprintf("unknown synchronous mode %q", c.Synchronous))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid sqlite config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// dsn encodes the pragmas so every pooled connection gets them.
func (c Config) dsn() string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	if c.JournalMode != "" {
		q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", strings.ToUpper(c.JournalMode)))
	}
	if c.Synchronous != "" {
		q.Add("_pragma", fmt.Sprintf("synchronous(%s)", strings.ToUpper(c.Synchronous)))
	}
	return "file:" + c.Path + "?" + q.Encode()
}

// ConnectionPool manages SQLite database connections with transaction support.
type ConnectionPool struct {
	db     *sql.DB
	config Config
}

// NewConnectionPool opens the database file, creating its directory when needed.
func NewConnectionPool(ctx context.Context, config Config) (*ConnectionPool, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.dsn())
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	return &ConnectionPool{db: db, config: config}, nil
}

// DB returns the underlying database connection
func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// TransactionFunc represents a function that executes within a transaction
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction commits when fn succeeds and rolls back otherwise,
// including on panic.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	return cp.run(ctx, nil, fn)
}

func (cp *ConnectionPool) WithReadOnlyTransaction(ctx context.Context, fn TransactionFunc) error {
	return cp.run(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (cp *ConnectionPool) run(ctx context.Context, opts *sql.TxOptions, fn TransactionFunc) (err error) {
	tx, err := cp.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ErrorMapper maps SQLite errors to persistence layer errors.
type ErrorMapper struct{}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// MapError translates driver failures into persistence sentinels. Lock and
// busy failures become transient ConnectionErrors.
func (em *ErrorMapper) MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, persistence.ErrNotFound)
	}

	msg := err.Error()
	switch {
	case containsAny(msg, "UNIQUE constraint failed", "PRIMARY KEY constraint failed"):
		return fmt.Errorf("%s: %w: %v", op, persistence.ErrConflict, err)
	case containsAny(msg, "CHECK constraint failed", "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s: constraint violation: %w", op, err)
	case containsAny(msg, "database is locked", "database table is locked", "SQLITE_BUSY"):
		return persistence.NewConnectionError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func containsAny(s string, substrings ...string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// RetryConfig configures retry behavior for database operations
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryHelper retries operations that fail with transient errors.
type RetryHelper struct {
	config RetryConfig
}

func NewRetryHelper(config RetryConfig) *RetryHelper {
	return &RetryHelper{config: config}
}

// RetryableFunc represents a function that can be retried
type RetryableFunc func() error

// WithRetry runs fn until it succeeds, fails with a non transient error, or
// the retry budget is spent. fn must return mapped errors.
func (rh *RetryHelper) WithRetry(ctx context.Context, fn RetryableFunc) error {
	var lastErr error
	delay := rh.config.InitialDelay

	for attempt := 0; attempt <= rh.config.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * rh.config.BackoffFactor)
			if delay > rh.config.MaxDelay {
				delay = rh.config.MaxDelay
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, persistence.ErrUnavailable) {
			return lastErr
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", rh.config.MaxRetries, lastErr)
}
