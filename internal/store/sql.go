package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"   // goqu mysql dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // goqu sqlite3 dialect
	"github.com/go-sql-driver/mysql"
	"github.com/serroba/tinylink/internal/shortener"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const linksTable = "short_links"

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

type linkRow struct {
	Token     string    `db:"token"`
	URL       string    `db:"url"`
	CreatedAt time.Time `db:"created_at"`
}

// SQLRegistry implements shortener.Registry on top of database/sql.
// Dialect specifics are limited to query building and unique-violation detection.
type SQLRegistry struct {
	db                *sql.DB
	builder           *goqu.Database
	isUniqueViolation func(error) bool
}

// NewMySQLRegistry creates a registry backed by a MySQL connection.
func NewMySQLRegistry(db *sql.DB) *SQLRegistry {
	return &SQLRegistry{
		db:                db,
		builder:           goqu.New("mysql", db),
		isUniqueViolation: isMySQLDuplicate,
	}
}

// NewSQLiteRegistry creates a registry backed by a SQLite connection.
func NewSQLiteRegistry(db *sql.DB) *SQLRegistry {
	return &SQLRegistry{
		db:                db,
		builder:           goqu.New("sqlite3", db),
		isUniqueViolation: isSQLiteConstraint,
	}
}

func (r *SQLRegistry) Reserve(ctx context.Context, token shortener.Token, url string) error {
	insert := r.builder.Insert(linksTable).Prepared(true).Rows(linkRow{
		Token:     string(token),
		URL:       url,
		CreatedAt: time.Now().UTC(),
	})

	if _, err := insert.Executor().ExecContext(ctx); err != nil {
		if r.isUniqueViolation(err) {
			return shortener.ErrConflict
		}

		return shortener.StoreFailure("reserve", err)
	}

	return nil
}

func (r *SQLRegistry) Resolve(ctx context.Context, token shortener.Token) (*shortener.ShortLink, error) {
	query := r.builder.From(linksTable).Prepared(true).
		Select("token", "url", "created_at").
		Where(goqu.Ex{"token": string(token)})

	var row linkRow

	found, err := query.ScanStructContext(ctx, &row)
	if err != nil {
		return nil, shortener.StoreFailure("resolve", err)
	}

	if !found {
		return nil, shortener.ErrNotFound
	}

	return &shortener.ShortLink{
		Token:     shortener.Token(row.Token),
		URL:       row.URL,
		CreatedAt: row.CreatedAt.UTC(),
	}, nil
}

// Ping checks database connectivity.
func (r *SQLRegistry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Shutdown closes the underlying database handle.
func (r *SQLRegistry) Shutdown() error {
	return r.db.Close()
}

func isMySQLDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError

	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

func isSQLiteConstraint(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	switch code := sqliteErr.Code(); {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case code&0xff == sqlite3.SQLITE_CONSTRAINT:
		// Extended result codes disabled on this connection.
		return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	default:
		return false
	}
}

var _ shortener.Registry = (*SQLRegistry)(nil)
