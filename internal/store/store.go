// Package store persists tourist records in a relational database. SQLite is the default backend;
// MySQL and PostgreSQL are selected through the database driver setting.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/config"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/model"
	_ "modernc.org/sqlite"
)

// PingTimeout bounds the connectivity check done by Open.
const PingTimeout = 5 * time.Second

var (
	// ErrNotInitialized is returned by Create and ListAll before Initialize succeeded.
	ErrNotInitialized = errors.New("store is not initialized")

	// ErrUnsupportedDriver is returned for a driver other than sqlite, mysql or postgres.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

//go:embed schema/*.sql
var schemas embed.FS

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store is a handle to the tourist table.
type Store struct {
	db     *sqlx.DB
	driver string
	log    zerolog.Logger

	// mu guards the prepared statements, which exist once Initialize succeeded.
	mu        sync.Mutex
	insert    *sqlx.NamedStmt
	selectAll *sqlx.Stmt
}

// sqlDriverName maps a configured driver to the name registered with database/sql.
func sqlDriverName(driver string) (string, error) {
	switch driver {
	case "sqlite":
		return "sqlite", nil
	case "mysql":
		return "mysql", nil
	case "postgres":
		return "pgx", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Open connects to the configured database and checks that it is reachable. The schema is not
// touched; call Initialize before using the store.
func Open(cfg config.DatabaseConfig, log zerolog.Logger) (*Store, error) {
	name, err := sqlDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.Driver, err)
	}

	// SQLite allows a single writer, and an in-memory database only exists on its connection.
	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == "sqlite" {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), PingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging %s database: %w", cfg.Driver, err)
	}

	log.Info().Str("driver", cfg.Driver).Msg("connected to the database")
	return New(sqlDB, cfg.Driver, log)
}

// New wraps an open database handle. The handle can be a real database or a mock within unit tests.
func New(sqlDB *sql.DB, driver string, log zerolog.Logger) (*Store, error) {
	name, err := sqlDriverName(driver)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:     sqlx.NewDb(sqlDB, name),
		driver: driver,
		log:    log,
	}, nil
}

// Schema returns the DDL creating the tourist table for the given driver.
func Schema(driver string) (string, error) {
	if _, err := sqlDriverName(driver); err != nil {
		return "", err
	}
	ddl, err := schemas.ReadFile("schema/" + driver + ".sql")
	if err != nil {
		return "", fmt.Errorf("reading %s schema: %w", driver, err)
	}
	return string(ddl), nil
}

// DB exposes the underlying handle for tooling such as the migration command.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// EnsureSchema creates the tourist table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl, err := Schema(s.driver)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating tourist table: %w", err)
	}
	return nil
}

// Initialize ensures the schema exists and prepares the statements used by Create and ListAll.
// It is safe to call more than once and from several goroutines.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insert != nil {
		return nil
	}

	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}

	query := `INSERT INTO tourist (name, contact, itinerary) VALUES (:name, :contact, :itinerary)`
	if s.driver == "postgres" {
		// pgx does not support LastInsertId.
		query += ` RETURNING id`
	}
	insert, err := s.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	selectAll, err := s.db.PreparexContext(ctx, `SELECT id, name, contact, itinerary FROM tourist ORDER BY id`)
	if err != nil {
		_ = insert.Close()
		return fmt.Errorf("preparing select: %w", err)
	}
	s.insert = insert
	s.selectAll = selectAll
	s.log.Debug().Str("driver", s.driver).Msg("tourist store initialized")
	return nil
}

// statements returns the prepared statements or ErrNotInitialized.
func (s *Store) statements() (*sqlx.NamedStmt, *sqlx.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insert == nil {
		return nil, nil, ErrNotInitialized
	}
	return s.insert, s.selectAll, nil
}

// Create inserts a tourist and returns the id assigned by the database. Nil values are stored as
// NULL; the values are not validated.
func (s *Store) Create(ctx context.Context, name, contact, itinerary *string) (int64, error) {
	insert, _, err := s.statements()
	if err != nil {
		return 0, err
	}
	tourist := model.Tourist{Name: name, Contact: contact, Itinerary: itinerary}

	if s.driver == "postgres" {
		var id int64
		if err := insert.QueryRowxContext(ctx, &tourist).Scan(&id); err != nil {
			return 0, fmt.Errorf("inserting tourist: %w", err)
		}
		return id, nil
	}

	result, err := insert.ExecContext(ctx, &tourist)
	if err != nil {
		return 0, fmt.Errorf("inserting tourist: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading tourist id: %w", err)
	}
	return id, nil
}

// ListAll returns every stored tourist in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]model.Tourist, error) {
	_, selectAll, err := s.statements()
	if err != nil {
		return nil, err
	}
	tourists := []model.Tourist{}
	if err := selectAll.SelectContext(ctx, &tourists); err != nil {
		return nil, fmt.Errorf("selecting tourists: %w", err)
	}
	return tourists, nil
}

// Close releases the prepared statements and the connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.insert != nil {
		errs = append(errs, s.insert.Close())
		s.insert = nil
	}
	if s.selectAll != nil {
		errs = append(errs, s.selectAll.Close())
		s.selectAll = nil
	}
	errs = append(errs, s.db.Close())
	s.log.Info().Msg("closed database connection pool")
	return errors.Join(errs...)
}
