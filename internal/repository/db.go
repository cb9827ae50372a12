package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

type Config struct {
	Driver      string
	DSN         string
	Host        string
	Username    string
	Password    string
	Database    string
	MaxConns    int32
	DialTimeout time.Duration
}

// ConfigFrom maps the application database settings onto a repository Config.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		Driver:      c.Driver,
		DSN:         c.URL,
		Host:        c.Host,
		Username:    c.Username,
		Password:    c.Password,
		Database:    c.Database,
		MaxConns:    c.MaxConns,
		DialTimeout: c.DialTimeout,
	}
}

// DB is the single handle a stage holds for its whole row loop.
type DB struct {
	sql     *sql.DB
	dialect string
	pool    *pgxpool.Pool
}

// Wrap adapts an already-open *sql.DB (tests, sqlmock) using the given ent dialect name.
func Wrap(db *sql.DB, dialectName string) *DB {
	return &DB{sql: db, dialect: dialectName}
}

func (db *DB) SQL() *sql.DB     { return db.sql }
func (db *DB) Dialect() string { return db.dialect }

func (db *DB) builder() *entsql.DialectBuilder {
	return entsql.Dialect(db.dialect)
}

// Open connects using the configured driver and pings before returning.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "driver", cfg.Driver, "host", cfg.Host, "database", cfg.Database)

	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case "mysql":
		db, err = openMySQL(cfg)
	case "postgres":
		db, err = openPostgres(ctx, cfg)
	case "sqlite":
		db, err = openSQLite(cfg)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unsupported DB_DRIVER "+cfg.Driver, common.ErrConfig)
	}
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.KindError(common.ErrDatabase, "open "+cfg.Driver, err)
	}

	if cfg.MaxConns > 0 && cfg.Driver != "sqlite" {
		db.sql.SetMaxOpenConns(int(cfg.MaxConns))
		db.sql.SetMaxIdleConns(int(cfg.MaxConns))
	}
	db.sql.SetConnMaxLifetime(30 * time.Minute)

	if err := HealthCheck(ctx, db, cfg.DialTimeout, logger); err != nil {
		Close(db, logger)
		logger.Error("failed to ping database", "error", err)
		return nil, common.KindError(common.ErrDatabase, "ping "+cfg.Driver, err)
	}

	logger.Info("successfully connected to database")
	return db, nil
}

func openMySQL(cfg Config) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		mc := mysql.NewConfig()
		mc.User = cfg.Username
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = withDefaultPort(cfg.Host, "3306")
		mc.DBName = cfg.Database
		mc.ParseTime = true
		mc.Timeout = cfg.DialTimeout
		dsn = mc.FormatDSN()
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{sql: db, dialect: dialect.MySQL}, nil
}

func openPostgres(ctx context.Context, cfg Config) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.Username, cfg.Password),
			Host:   withDefaultPort(cfg.Host, "5432"),
			Path:   "/" + cfg.Database,
		}
		dsn = u.String()
	}
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MaxConnIdleTime = 5 * time.Minute
	pc.ConnConfig.RuntimeParams["application_name"] = "avs-dob-pipeline"

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, err
	}
	return &DB{sql: stdlib.OpenDBFromPool(pool), dialect: dialect.Postgres, pool: pool}, nil
}

func openSQLite(cfg Config) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.Database
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps a ":memory:" database alive across calls
	db.SetMaxOpenConns(1)
	return &DB{sql: db, dialect: dialect.SQLite}, nil
}

func withDefaultPort(host, port string) string {
	if host == "" {
		return net.JoinHostPort("localhost", port)
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, port)
}

// Close closes the database connections gracefully
func Close(db *DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if db.sql != nil {
		if err := db.sql.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
	if db.pool != nil {
		db.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.sql.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	logger.Debug("database ping successful")
	return nil
}
