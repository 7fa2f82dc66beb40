package store

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"  // mysql:// driver
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx5:// driver
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // sqlite:// driver (modernc)
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Dialects with embedded migrations.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

var errUnknownDialect = errors.New("unknown dialect")

//go:embed migrations
var migrations embed.FS

// Migrate applies all pending migrations for dialect against dsn.
// dsn is a postgres:// URL, a go-sql-driver MySQL DSN, or a SQLite file path.
func Migrate(dialect, dsn string) error {
	databaseURL, err := migrationURL(dialect, dsn)
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func migrationURL(dialect, dsn string) (string, error) {
	switch dialect {
	case DialectPostgres:
		for _, prefix := range []string{"postgres://", "postgresql://"} {
			if rest, ok := strings.CutPrefix(dsn, prefix); ok {
				return "pgx5://" + rest, nil
			}
		}

		return "", errors.New("postgres dsn must be a postgres:// url")
	case DialectMySQL:
		return "mysql://" + dsn, nil
	case DialectSQLite:
		return "sqlite://" + dsn, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownDialect, dialect)
	}
}
