// Package app composes the store and services shared by salonpro-server and
// salonctl.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"salonpro/internal/config"
	"salonpro/internal/domain"
	"salonpro/internal/service/analytics"
	"salonpro/internal/service/queries"
	"salonpro/internal/service/scheduling"
	"salonpro/internal/store"
	"salonpro/internal/store/memstore"
	"salonpro/internal/store/sqlstore"
)

const memoryURL = "memory://"

type Services struct {
	Store      store.Store
	Hours      domain.SalonHours
	Scheduling *scheduling.Service
	Queries    *queries.Service
	Analytics  *analytics.Service
}

// OpenStore opens the store named by cfg.DatabaseURL. memory:// selects the
// in-process store, which forgets everything on exit.
func OpenStore(ctx context.Context, cfg config.Config, log *slog.Logger, migrate bool) (store.Store, error) {
	if strings.HasPrefix(strings.TrimSpace(cfg.DatabaseURL), memoryURL) {
		log.Warn("using in-memory store; data is lost on exit")
		return memstore.New(), nil
	}

	log.Info("connecting to database", DatabaseLogArgs(cfg.DatabaseURL)...)
	db, err := sqlstore.Open(cfg.DatabaseURL, sqlstore.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if migrate {
		if err := sqlstore.Migrate(ctx, db); err != nil {
			_ = sqlstore.Close(db)
			return nil, err
		}
		log.Debug("migrations applied")
	}
	return sqlstore.New(db), nil
}

func NewServices(st store.Store, cfg config.Config) (*Services, error) {
	hours, err := cfg.SalonHours()
	if err != nil {
		return nil, err
	}
	schedCfg := scheduling.DefaultConfig()
	schedCfg.AllowPastBooking = cfg.AllowPastBooking
	schedCfg.StrictCompletion = cfg.StrictCompletion

	return &Services{
		Store:      st,
		Hours:      hours,
		Scheduling: scheduling.NewService(st, st, schedCfg),
		Queries:    queries.NewService(st, st, hours),
		Analytics:  analytics.NewService(st, st, hours),
	}, nil
}

func NewLogger(w io.Writer, level, service string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLogLevel(level)})).With(
		slog.String("service", service),
	)
}

func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DatabaseLogArgs describes a database URL for logs without its credentials.
func DatabaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	if u.Scheme == "sqlite" || u.Scheme == "file" {
		path := u.Host + u.Path
		if path == "" {
			path = u.Opaque
		}
		return []any{slog.String("db_driver", "sqlite"), slog.String("db_path", path)}
	}

	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_driver", "postgres"),
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
