// Package sqlstore persists accounts in SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/lolPants/NorthstarMasterServer/internal/model"
	"github.com/lolPants/NorthstarMasterServer/internal/storage"
	"github.com/lolPants/NorthstarMasterServer/internal/storage/sqlstore/migrations"
)

// Storage is a database/sql implementation of the account store
type Storage struct {
	db      *sql.DB
	dialect Dialect
}

// Ensure Storage implements the interface
var _ storage.AccountStore = (*Storage)(nil)

// Open connects to the database, verifies the connection and applies migrations
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	driver, err := cfg.Dialect.driverName()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("sql dsn is required")
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	// An sqlite database (":memory:" in particular) must not be split across connections
	if cfg.Dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = DefaultConfig().PingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := New(db, cfg.Dialect)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// New wraps an existing connection without running migrations
func New(db *sql.DB, dialect Dialect) *Storage {
	return &Storage{db: db, dialect: dialect}
}

// Migrate applies the embedded schema migrations for the store's dialect
func (s *Storage) Migrate(ctx context.Context) error {
	var gooseDialect goose.Dialect
	switch s.dialect {
	case DialectSQLite:
		gooseDialect = goose.DialectSQLite3
	case DialectPostgres:
		gooseDialect = goose.DialectPostgres
	default:
		return fmt.Errorf("unsupported sql dialect %q", s.dialect)
	}

	fsys, err := fs.Sub(migrations.FS, string(s.dialect))
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(gooseDialect, s.db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Close closes the database handle
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	query := s.rebind(`SELECT id, is_banned, session_token, session_token_expiry, current_server_id, persistence_blob
		FROM accounts
		WHERE id = ?`)

	var (
		account   model.Account
		expiry    int64
		currentID sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.IsBanned, &account.SessionToken, &expiry, &currentID, &account.PersistenceBlob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, model.Unavailable("get account", err)
	}

	account.SessionTokenExpiry = fromMillis(expiry)
	account.CurrentServerID = currentID.String
	return &account, nil
}

func (s *Storage) InsertAccount(ctx context.Context, account *model.Account) error {
	query := s.rebind(`INSERT INTO accounts (id, is_banned, session_token, session_token_expiry, current_server_id, persistence_blob)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)

	res, err := s.db.ExecContext(ctx, query,
		account.ID,
		account.IsBanned,
		account.SessionToken,
		toMillis(account.SessionTokenExpiry),
		nullString(account.CurrentServerID),
		account.PersistenceBlob,
	)
	if err != nil {
		return model.Unavailable("insert account", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return model.Unavailable("insert account", err)
	}
	if n == 0 {
		return model.ErrAccountExists
	}
	return nil
}

func (s *Storage) UpdateAccount(ctx context.Context, id string, update model.AccountUpdate) error {
	var (
		sets []string
		args []any
	)
	if update.SessionToken != nil {
		sets = append(sets, "session_token = ?")
		args = append(args, *update.SessionToken)
	}
	if update.SessionTokenExpiry != nil {
		sets = append(sets, "session_token_expiry = ?")
		args = append(args, toMillis(*update.SessionTokenExpiry))
	}
	if update.CurrentServerID != nil {
		sets = append(sets, "current_server_id = ?")
		args = append(args, nullString(*update.CurrentServerID))
	}
	if update.PersistenceBlob != nil {
		sets = append(sets, "persistence_blob = ?")
		args = append(args, update.PersistenceBlob)
	}

	if len(sets) == 0 {
		_, err := s.GetAccount(ctx, id)
		return err
	}

	query := s.rebind("UPDATE accounts SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return model.Unavailable("update account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Unavailable("update account", err)
	}
	if n == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres
func (s *Storage) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
