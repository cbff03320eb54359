package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/lox/search-relevance/internal/settings"
)

// ErrNotFound is returned when a container has no stored settings
var ErrNotFound = errors.New("container settings not found")

const (
	writeAttempts = 5
	writeDelay    = 50 * time.Millisecond
)

// DB represents a SQLite database connection
type DB struct {
	db     *sql.DB
	logger *log.Logger
}

// New creates a new database connection
func New(dataDir string, logger *log.Logger) (*DB, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "relevance.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &DB{
		db:     db,
		logger: logger,
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db, logger.Infof); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Debug("Opened relevance database", "path", dbPath)
	return d, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS container_relevance (
			name TEXT PRIMARY KEY,
			minimum_should_match TEXT NOT NULL,
			tie_breaker REAL NOT NULL,
			phrase_match_boost INTEGER,
			cut_off_frequency REAL NOT NULL,
			-- Fuzziness, absent when fuzziness_value is NULL
			fuzziness_value TEXT,
			fuzziness_prefix_length INTEGER,
			fuzziness_max_expansions INTEGER,
			fuzziness_minimum_should_match TEXT,
			-- Phonetic matching and its optional fuzziness
			phonetic_enabled INTEGER NOT NULL DEFAULT 0,
			phonetic_fuzziness_value TEXT,
			phonetic_fuzziness_prefix_length INTEGER,
			phonetic_fuzziness_max_expansions INTEGER,
			phonetic_fuzziness_minimum_should_match TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create container_relevance table: %w", err)
	}

	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store stores the settings of a container, replacing any previous version
func (d *DB) Store(ctx context.Context, s settings.ContainerSettings) error {
	return d.withWriteRetry(ctx, "store", func() error {
		return d.store(ctx, d.db, s)
	})
}

// StoreAll stores the settings of several containers in one transaction.
// Either every container is stored or none is.
func (d *DB) StoreAll(ctx context.Context, all []settings.ContainerSettings) error {
	return d.withWriteRetry(ctx, "store_all", func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		for _, s := range all {
			if err := d.store(ctx, tx, s); err != nil {
				return fmt.Errorf("container %q: %w", s.Name, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

func (d *DB) store(ctx context.Context, ex execer, s settings.ContainerSettings) error {
	d.logger.Debug("Storing container settings", "name", s.Name, "minimum_should_match", s.MinimumShouldMatch)

	fuzziness := fuzzinessColumnsFrom(s.Fuzziness)
	var phoneticEnabled bool
	var phoneticFuzziness fuzzinessColumns
	if s.Phonetic != nil {
		phoneticEnabled = true
		phoneticFuzziness = fuzzinessColumnsFrom(s.Phonetic.Fuzziness)
	}

	var boost sql.NullInt64
	if s.PhraseMatchBoost != nil {
		boost = sql.NullInt64{Int64: int64(*s.PhraseMatchBoost), Valid: true}
	}

	_, err := ex.ExecContext(ctx, `
		INSERT OR REPLACE INTO container_relevance (
			name, minimum_should_match, tie_breaker, phrase_match_boost, cut_off_frequency,
			fuzziness_value, fuzziness_prefix_length, fuzziness_max_expansions, fuzziness_minimum_should_match,
			phonetic_enabled,
			phonetic_fuzziness_value, phonetic_fuzziness_prefix_length, phonetic_fuzziness_max_expansions, phonetic_fuzziness_minimum_should_match,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CAST(strftime('%s', 'now') AS INTEGER))
	`,
		s.Name, s.MinimumShouldMatch, s.TieBreaker, boost, s.CutOffFrequency,
		fuzziness.value, fuzziness.prefixLength, fuzziness.maxExpansions, fuzziness.minimumShouldMatch,
		phoneticEnabled,
		phoneticFuzziness.value, phoneticFuzziness.prefixLength, phoneticFuzziness.maxExpansions, phoneticFuzziness.minimumShouldMatch,
	)
	if err != nil {
		return fmt.Errorf("failed to store container settings: %w", err)
	}
	return nil
}

// Get returns the stored settings of a container, or ErrNotFound
func (d *DB) Get(ctx context.Context, name string) (*settings.ContainerSettings, error) {
	var (
		s                 settings.ContainerSettings
		boost             sql.NullInt64
		fuzziness         fuzzinessColumns
		phoneticEnabled   bool
		phoneticFuzziness fuzzinessColumns
	)

	err := d.db.QueryRowContext(ctx, `
		SELECT name, minimum_should_match, tie_breaker, phrase_match_boost, cut_off_frequency,
			fuzziness_value, fuzziness_prefix_length, fuzziness_max_expansions, fuzziness_minimum_should_match,
			phonetic_enabled,
			phonetic_fuzziness_value, phonetic_fuzziness_prefix_length, phonetic_fuzziness_max_expansions, phonetic_fuzziness_minimum_should_match
		FROM container_relevance
		WHERE name = ?
	`, name).Scan(
		&s.Name, &s.MinimumShouldMatch, &s.TieBreaker, &boost, &s.CutOffFrequency,
		&fuzziness.value, &fuzziness.prefixLength, &fuzziness.maxExpansions, &fuzziness.minimumShouldMatch,
		&phoneticEnabled,
		&phoneticFuzziness.value, &phoneticFuzziness.prefixLength, &phoneticFuzziness.maxExpansions, &phoneticFuzziness.minimumShouldMatch,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get container settings: %w", err)
	}

	if boost.Valid {
		b := int(boost.Int64)
		s.PhraseMatchBoost = &b
	}
	s.Fuzziness = fuzziness.settings()
	if phoneticEnabled {
		s.Phonetic = &settings.PhoneticSettings{Fuzziness: phoneticFuzziness.settings()}
	}

	return &s, nil
}

// Has checks if a container has stored settings
func (d *DB) Has(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM container_relevance WHERE name = ?)
	`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check container existence: %w", err)
	}

	return exists, nil
}

// List returns the names of all stored containers in alphabetical order
func (d *DB) List(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM container_relevance ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan container row: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating containers: %w", err)
	}

	return names, nil
}

// Delete removes the settings of a container, or returns ErrNotFound
func (d *DB) Delete(ctx context.Context, name string) error {
	return d.withWriteRetry(ctx, "delete", func() error {
		result, err := d.db.ExecContext(ctx, `DELETE FROM container_relevance WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("failed to delete container settings: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil
	})
}

// Count returns the number of stored containers
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM container_relevance`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count containers: %w", err)
	}

	return count, nil
}

// UpdatedAt returns when the settings of a container were last stored
func (d *DB) UpdatedAt(ctx context.Context, name string) (time.Time, error) {
	var updatedAt sql.NullInt64
	err := d.db.QueryRowContext(ctx, `SELECT updated_at FROM container_relevance WHERE name = ?`, name).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get update time: %w", err)
	}
	if !updatedAt.Valid {
		return time.Time{}, nil
	}
	return time.Unix(updatedAt.Int64, 0), nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// withWriteRetry retries fn while the database reports it is busy or locked
func (d *DB) withWriteRetry(ctx context.Context, op string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(writeAttempts),
		retry.Delay(writeDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isBusy),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Warn("Retrying database write",
				"op", op,
				"attempt", n+1,
				"max_attempts", writeAttempts,
				"error", err)
		}),
	)
}

func isBusy(err error) bool {
	return errors.Is(err, sqlite3.BUSY) || errors.Is(err, sqlite3.LOCKED)
}

type fuzzinessColumns struct {
	value              sql.NullString
	prefixLength       sql.NullInt64
	maxExpansions      sql.NullInt64
	minimumShouldMatch sql.NullString
}

func fuzzinessColumnsFrom(f *settings.FuzzinessSettings) fuzzinessColumns {
	if f == nil {
		return fuzzinessColumns{}
	}
	return fuzzinessColumns{
		value:              sql.NullString{String: f.Value, Valid: true},
		prefixLength:       sql.NullInt64{Int64: int64(f.PrefixLength), Valid: true},
		maxExpansions:      sql.NullInt64{Int64: int64(f.MaxExpansions), Valid: true},
		minimumShouldMatch: sql.NullString{String: f.MinimumShouldMatch, Valid: f.MinimumShouldMatch != ""},
	}
}

func (c fuzzinessColumns) settings() *settings.FuzzinessSettings {
	if !c.value.Valid {
		return nil
	}
	return &settings.FuzzinessSettings{
		Value:              c.value.String,
		PrefixLength:       int(c.prefixLength.Int64),
		MaxExpansions:      int(c.maxExpansions.Int64),
		MinimumShouldMatch: c.minimumShouldMatch.String,
	}
}
