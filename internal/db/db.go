package db

import (
	"context"
	"database/sql"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQueryThreshold flags ledger statements that hold row locks for too long.
const slowQueryThreshold = 500 * time.Millisecond

const pingTimeout = 5 * time.Second

// sqliteParams are appended to SQLite DSNs that do not set them already.
var sqliteParams = [][2]string{
	{"_busy_timeout", "5000"},
	{"_journal_mode", "WAL"},
	{"_foreign_keys", "on"},
	{"_synchronous", "NORMAL"},
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

func init() {
	logger.Default = logger.New(
		stdlog.New(log.StandardLogger().WriterLevel(log.WarnLevel), "", 0),
		logger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Open opens a GORM connection for a PostgreSQL or SQLite DSN.
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}

	dialect, err := detectDialectFromDSN(trimmed)
	if err != nil {
		return nil, err
	}
	if dialect == DialectPostgres {
		return openPostgres(trimmed)
	}
	return openSQLite(trimmed)
}

// detectDialectFromDSN infers the dialect from a DSN string.
func detectDialectFromDSN(dsn string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres, nil
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") || strings.Contains(lower, "sslmode="):
		return DialectPostgres, nil
	case strings.HasPrefix(lower, "file:"),
		strings.HasPrefix(lower, "sqlite://"),
		strings.HasPrefix(lower, "sqlite3://"),
		!strings.Contains(lower, "://"):
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("db: unsupported dsn: %s", dsn)
	}
}

// openPostgres opens a PostgreSQL pool pinned to UTC. Ledger days are UTC
// calendar days, so the session time zone and the scan location both are UTC
// regardless of the host setting.
func openPostgres(dsn string) (*gorm.DB, error) {
	cfg, errParse := pgx.ParseConfig(dsn)
	if errParse != nil {
		return nil, fmt.Errorf("db: parse dsn: %w", errParse)
	}
	cfg.RuntimeParams["timezone"] = "UTC"
	sqlDB := stdlib.OpenDB(*cfg, stdlib.OptionAfterConnect(registerUTCTimestamps))

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Default})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: open: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return conn, ping(sqlDB)
}

func registerUTCTimestamps(_ context.Context, conn *pgx.Conn) error {
	conn.TypeMap().RegisterType(&pgtype.Type{
		Name:  "timestamp",
		OID:   pgtype.TimestampOID,
		Codec: &pgtype.TimestampCodec{ScanLocation: time.UTC},
	})
	conn.TypeMap().RegisterType(&pgtype.Type{
		Name:  "timestamptz",
		OID:   pgtype.TimestamptzOID,
		Codec: &pgtype.TimestamptzCodec{ScanLocation: time.UTC},
	})
	return nil
}

// openSQLite opens a SQLite database with WAL and foreign keys enabled.
func openSQLite(dsn string) (*gorm.DB, error) {
	normalized := ensureSQLiteParams(normalizeSQLiteDSN(dsn))
	if path := sqlitePathFromDSN(normalized); path != "" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
				return nil, fmt.Errorf("db: create sqlite dir: %w", errMkdir)
			}
		}
	}

	conn, err := gorm.Open(sqlite.Open(normalized), &gorm.Config{Logger: logger.Default})
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite sql: %w", err)
	}

	// Every connection to an in-memory database sees its own empty database,
	// so the pool is pinned to a single connection.
	if isSQLiteMemory(normalized) {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	for _, pragma := range sqlitePragmas {
		if _, errExec := sqlDB.Exec(pragma); errExec != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("db: sqlite %s: %w", pragma, errExec)
		}
	}
	return conn, ping(sqlDB)
}

func ping(sqlDB *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if errPing := sqlDB.PingContext(ctx); errPing != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("db: ping: %w", errPing)
	}
	return nil
}

// normalizeSQLiteDSN converts sqlite:// URLs into file: DSNs.
func normalizeSQLiteDSN(dsn string) string {
	trimmed := strings.TrimSpace(dsn)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "sqlite3://") || strings.HasPrefix(lower, "sqlite://") {
		if _, rest, ok := strings.Cut(trimmed, "://"); ok {
			return "file:" + rest
		}
	}
	return trimmed
}

// ensureSQLiteParams appends the default query parameters the DSN does not set.
func ensureSQLiteParams(dsn string) string {
	if dsn == "" {
		return dsn
	}
	existing := map[string]struct{}{}
	if _, query, ok := strings.Cut(strings.ToLower(dsn), "?"); ok {
		for _, part := range strings.Split(query, "&") {
			key, _, _ := strings.Cut(part, "=")
			existing[key] = struct{}{}
		}
	}

	var add []string
	for _, param := range sqliteParams {
		if _, ok := existing[param[0]]; !ok {
			add = append(add, param[0]+"="+param[1])
		}
	}
	if len(add) == 0 {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join(add, "&")
}

// sqlitePathFromDSN extracts the file path from a SQLite DSN, or "" for memory DSNs.
func sqlitePathFromDSN(dsn string) string {
	trimmed := strings.TrimSpace(dsn)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "file:") {
		pathPart, _, _ := strings.Cut(trimmed[len("file:"):], "?")
		pathPart = strings.TrimPrefix(pathPart, "//")
		if pathPart == ":memory:" {
			return ""
		}
		return pathPart
	}
	if strings.Contains(lower, "://") || strings.HasPrefix(lower, ":memory:") {
		return ""
	}
	path, _, _ := strings.Cut(trimmed, "?")
	return path
}

// isSQLiteMemory reports whether a SQLite DSN targets an in-memory database.
func isSQLiteMemory(dsn string) bool {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(lower, ":memory:") ||
		strings.HasPrefix(lower, "file::memory:") ||
		strings.Contains(lower, "mode=memory")
}
