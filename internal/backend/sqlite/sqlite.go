// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
	_ "modernc.org/sqlite"

	"github.com/staranto/assetcache/internal/backend/sqlite/migrations"
	"github.com/staranto/assetcache/internal/cachestore"
)

const migrationTable = "schema_migrations"

// Store keeps buckets and records in a single SQLite file.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates a SQLite cache store at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps concurrent store-backs from tripping SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Open(ctx context.Context, name string) (cachestore.Bucket, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if err := s.ensureBucket(ctx, s.sqlDB, name); err != nil {
		return nil, err
	}
	return &bucket{store: s, name: name}, nil
}

func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name FROM buckets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	// SQLite orders by byte value already; keep the contract explicit.
	sort.Strings(names)
	return names, nil
}

// Delete removes the bucket row and its records in one transaction.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete bucket: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE bucket = ?`, name); err != nil {
		return false, fmt.Errorf("delete records of %s: %w", name, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM buckets WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete bucket %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete bucket %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete bucket %s: %w", name, err)
	}
	return n > 0, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) ensureBucket(ctx context.Context, db execer, name string) error {
	if _, err := db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO buckets (name, created_at) VALUES (?, ?)`,
		name,
		time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("open bucket %s: %w", name, err)
	}
	return nil
}

type bucket struct {
	store *Store
	name  string
}

func (b *bucket) Name() string { return b.name }

// Put upserts the record, recreating the bucket row if it was deleted after
// this handle was opened.
func (b *bucket) Put(ctx context.Context, rec *cachestore.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	header, err := json.Marshal(rec.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}

	tx, err := b.store.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := b.store.ensureBucket(ctx, tx, b.name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO records (bucket, cache_key, method, url, status, header_json, body, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(bucket, cache_key) DO UPDATE SET
		    method = excluded.method,
		    url = excluded.url,
		    status = excluded.status,
		    header_json = excluded.header_json,
		    body = excluded.body,
		    stored_at = excluded.stored_at`,
		b.name,
		rec.Key,
		rec.Method,
		rec.URL,
		rec.Status,
		string(header),
		body,
		rec.StoredAt.UTC().UnixNano(),
	); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return tx.Commit()
}

func (b *bucket) Match(ctx context.Context, key string) (*cachestore.Record, bool, error) {
	row := b.store.sqlDB.QueryRowContext(
		ctx,
		`SELECT cache_key, method, url, status, header_json, body, stored_at
		 FROM records
		 WHERE bucket = ? AND cache_key = ?`,
		b.name,
		key,
	)

	var rec cachestore.Record
	var header string
	var storedAt int64
	if err := row.Scan(&rec.Key, &rec.Method, &rec.URL, &rec.Status, &header, &rec.Body, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get record: %w", err)
	}
	if header != "" && header != "null" {
		rec.Header = http.Header{}
		if err := json.Unmarshal([]byte(header), &rec.Header); err != nil {
			return nil, false, fmt.Errorf("decode header: %w", err)
		}
	}
	rec.StoredAt = time.Unix(0, storedAt).UTC()
	return &rec, true, nil
}

func (b *bucket) Keys(ctx context.Context) ([]string, error) {
	rows, err := b.store.sqlDB.QueryContext(ctx, `SELECT cache_key FROM records WHERE bucket = ? ORDER BY cache_key`, b.name)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// runMigrations applies embedded SQL migrations in filename order, at most
// once per file.
func (s *Store) runMigrations() error {
	if _, err := s.sqlDB.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`, migrationTable)); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		var found int
		err := s.sqlDB.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := s.sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration transaction %s: %w", file, err)
		}
		if _, err := tx.Exec(extractUpMigration(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file,
			time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
		log.Debugf("applied migration %s", file)
	}
	return nil
}

// extractUpMigration returns the SQL in the -- +migrate Up section.
func extractUpMigration(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, "-- +migrate Down")
	if downIdx == -1 {
		return content[upIdx+len("-- +migrate Up"):]
	}
	return content[upIdx+len("-- +migrate Up") : downIdx]
}
