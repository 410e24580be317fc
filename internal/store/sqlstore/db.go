package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Open connects to postgres:// and postgresql:// URLs through pgx and to
// sqlite:// URLs (or bare file: DSNs) through the pure-Go SQLite driver.
func Open(databaseURL string, pool PoolConfig) (*bun.DB, error) {
	driverName, dsn, err := driverFor(databaseURL)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if driverName == "sqlite" {
		// One writer connection; the stylist locks serialise writers in-process
		// and a single connection keeps SQLite from reporting SQLITE_BUSY.
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if driverName == "sqlite" {
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func isPostgres(db bun.IDB) bool {
	return db.Dialect().Name() == dialect.PG
}

func driverFor(databaseURL string) (driverName, dsn string, err error) {
	raw := strings.TrimSpace(databaseURL)
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return "pgx", raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite url %q has no path", databaseURL)
		}
		return "sqlite", sqliteDSN("file:" + path), nil
	case strings.HasPrefix(raw, "file:"):
		return "sqlite", sqliteDSN(raw), nil
	default:
		return "", "", fmt.Errorf("unsupported database url %q", databaseURL)
	}
}

func sqliteDSN(base string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}
