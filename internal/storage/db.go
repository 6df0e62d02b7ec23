package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// DB wraps a SQL connection and the dialect its statements are written for.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// OpenSQLite opens (or creates) the SQLite file at path.
func OpenSQLite(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	conn, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; a single connection prevents SQLITE_BUSY
	conn.SetMaxOpenConns(1)
	return initDB(conn, DialectSQLite)
}

// Open connects to a postgres or mysql server with the given DSN.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	if dialect == DialectSQLite {
		return OpenSQLite(dsn)
	}
	if dialect != DialectPostgres && dialect != DialectMySQL {
		return nil, fmt.Errorf("unsupported driver: %s", dialect)
	}
	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return initDB(conn, dialect)
}

func initDB(conn *sql.DB, dialect Dialect) (*DB, error) {
	db := &DB{conn: conn, dialect: dialect}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Dialect() Dialect { return db.dialect }

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// ─────────────────────────────────────────────────────────────
// Schema
// ─────────────────────────────────────────────────────────────

// column types per dialect, substituted into the migrations below
var columnTypes = map[Dialect]*strings.Replacer{
	DialectSQLite: strings.NewReplacer(
		"{pk}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{ts}", "DATETIME",
		"{real}", "REAL",
		"{bool}", "INTEGER",
		"{str}", "TEXT",
	),
	DialectPostgres: strings.NewReplacer(
		"{pk}", "BIGSERIAL PRIMARY KEY",
		"{ts}", "TIMESTAMP",
		"{real}", "DOUBLE PRECISION",
		"{bool}", "BOOLEAN",
		"{str}", "VARCHAR(255)",
	),
	DialectMySQL: strings.NewReplacer(
		"{pk}", "BIGINT AUTO_INCREMENT PRIMARY KEY",
		"{ts}", "DATETIME(6)",
		"{real}", "DOUBLE",
		"{bool}", "BOOLEAN",
		"{str}", "VARCHAR(255)",
	),
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id {pk},
		classroom_id BIGINT NOT NULL,
		name {str} NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		grid_size INTEGER NOT NULL DEFAULT 32,
		is_active {bool} NOT NULL DEFAULT FALSE,
		created_at {ts} NOT NULL
	)`,
	`CREATE INDEX idx_plans_classroom ON plans(classroom_id)`,
	`CREATE TABLE IF NOT EXISTS students (
		id {pk},
		classroom_id BIGINT NOT NULL,
		first_name {str} NOT NULL DEFAULT '',
		last_name {str} NOT NULL DEFAULT '',
		sex {str} NOT NULL DEFAULT '',
		level {str} NOT NULL DEFAULT '',
		photo {str} NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX idx_students_classroom ON students(classroom_id)`,
	`CREATE TABLE IF NOT EXISTS seats (
		id {pk},
		plan_id BIGINT NOT NULL,
		label {str} NOT NULL DEFAULT '',
		x INTEGER NOT NULL,
		y INTEGER NOT NULL
	)`,
	`CREATE INDEX idx_seats_plan ON seats(plan_id)`,
	`CREATE TABLE IF NOT EXISTS positions (
		plan_id BIGINT NOT NULL,
		student_id BIGINT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		seat_id BIGINT NULL,
		rotation INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (plan_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS furniture (
		id {pk},
		plan_id BIGINT NOT NULL,
		client_uid VARCHAR(64) NOT NULL,
		type {str} NOT NULL,
		label {str} NOT NULL DEFAULT '',
		color {str} NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		w INTEGER NOT NULL,
		h INTEGER NOT NULL,
		rotation {real} NOT NULL DEFAULT 0,
		z INTEGER NOT NULL DEFAULT 0,
		rounded {bool} NOT NULL DEFAULT FALSE
	)`,
	`CREATE UNIQUE INDEX idx_furniture_client_uid ON furniture(plan_id, client_uid)`,
}

func (db *DB) migrate() error {
	types := columnTypes[db.dialect]
	for _, m := range migrations {
		stmt := types.Replace(m)
		if _, err := db.conn.Exec(stmt); err != nil {
			// mysql has no CREATE INDEX IF NOT EXISTS; an existing index is fine
			if strings.HasPrefix(stmt, "CREATE") && strings.Contains(stmt, "INDEX") && isDuplicate(err) {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate key name")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// ─────────────────────────────────────────────────────────────
// Dialect helpers
// ─────────────────────────────────────────────────────────────

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rebind rewrites ? placeholders into the dialect's form.
func (db *DB) rebind(q string) string {
	if db.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
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

// insert runs an INSERT and returns the new row id.
func (db *DB) insert(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	if db.dialect == DialectPostgres {
		var id int64
		err := q.QueryRowContext(ctx, db.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := q.ExecContext(ctx, db.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// upsertSQL builds an INSERT that updates every non-key column when a row
// with the same keys exists.
func (db *DB) upsertSQL(table string, cols, keys []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders)

	var sets []string
	for _, c := range cols {
		if slices.Contains(keys, c) {
			continue
		}
		if db.dialect == DialectMySQL {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
		} else {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	if db.dialect == DialectMySQL {
		q += " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	} else {
		q += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(sets, ", "))
	}
	return db.rebind(q)
}

// withTx runs fn in a transaction, committing if it returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
