// Package journal persists sync state between passes: per-path baselines,
// the selective-sync lists, and remote-rediscovery invalidation.
package journal

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Selective-sync list categories
const (
	SelectiveSyncBlackList = 1
	SelectiveSyncWhiteList = 2
	SelectiveSyncUndecided = 3
)

// EtagInvalid marks an entry whose remote state must be rediscovered from
// scratch on the next pass.
const EtagInvalid = "_invalid_"

// Journal is the on-disk database tracking prior sync state. It is owned
// exclusively by one process for the process lifetime.
type Journal struct {
	db   *sql.DB
	path string
}

// Entry is the persisted baseline for one synchronized path.
type Entry struct {
	Path        string
	IsDir       bool
	Etag        string
	LocalMTime  int64
	LocalSize   int64
	RemoteSize  int64
	ContentHash string
}

// MakeName derives the journal file name for a source/target pairing, so
// distinct remotes synced into the same tree get distinct journals.
func MakeName(url, folder, user string) string {
	key := fmt.Sprintf("%s@%s:%s", user, url, folder)
	sum := md5.Sum([]byte(key))
	return ".sync_" + hex.EncodeToString(sum[:6]) + ".db"
}

// Open opens or creates the journal database at path and migrates the
// schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db, path: path}
	if err := j.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the journal's database file path.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) migrate(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sync_entries (
	path TEXT PRIMARY KEY,
	is_dir INTEGER NOT NULL DEFAULT 0,
	etag TEXT,
	local_mtime INTEGER,
	local_size INTEGER,
	remote_size INTEGER,
	content_hash TEXT
);

CREATE TABLE IF NOT EXISTS selective_sync (
	category INTEGER NOT NULL,
	path TEXT NOT NULL,
	PRIMARY KEY (category, path)
);
`

// SelectiveSyncList returns the persisted list for a category.
func (j *Journal) SelectiveSyncList(ctx context.Context, category int) ([]string, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT path FROM selective_sync WHERE category = ? ORDER BY path`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// SetSelectiveSyncList replaces the persisted list for a category.
func (j *Journal) SetSelectiveSyncList(ctx context.Context, category int, paths []string) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM selective_sync WHERE category = ?`, category); err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO selective_sync (category, path) VALUES (?, ?)`,
			category, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SchedulePathForRemoteDiscovery invalidates the stored etag of the path and
// everything below it, forcing the engine to re-evaluate the subtree from
// the server instead of the journal.
func (j *Journal) SchedulePathForRemoteDiscovery(ctx context.Context, path string) error {
	prefix := strings.TrimSuffix(path, "/")
	_, err := j.db.ExecContext(ctx,
		`UPDATE sync_entries SET etag = ? WHERE path = ? OR path LIKE ? || '/%'`,
		EtagInvalid, prefix, prefix)
	return err
}

// Entries loads all persisted baselines keyed by path.
func (j *Journal) Entries(ctx context.Context) (map[string]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT path, is_dir, etag, local_mtime, local_size, remote_size, content_hash
		FROM sync_entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		var e Entry
		var etag, hash sql.NullString
		if err := rows.Scan(&e.Path, &e.IsDir, &etag, &e.LocalMTime, &e.LocalSize,
			&e.RemoteSize, &hash); err != nil {
			return nil, err
		}
		e.Etag = etag.String
		e.ContentHash = hash.String
		entries[e.Path] = e
	}
	return entries, rows.Err()
}

// SaveEntry upserts one baseline.
func (j *Journal) SaveEntry(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sync_entries (path, is_dir, etag, local_mtime, local_size, remote_size, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			is_dir=excluded.is_dir,
			etag=excluded.etag,
			local_mtime=excluded.local_mtime,
			local_size=excluded.local_size,
			remote_size=excluded.remote_size,
			content_hash=excluded.content_hash
	`, e.Path, e.IsDir, e.Etag, e.LocalMTime, e.LocalSize, e.RemoteSize, e.ContentHash)
	return err
}

// DeleteEntry removes the baseline for a path and everything below it.
func (j *Journal) DeleteEntry(ctx context.Context, path string) error {
	prefix := strings.TrimSuffix(path, "/")
	_, err := j.db.ExecContext(ctx,
		`DELETE FROM sync_entries WHERE path = ? OR path LIKE ? || '/%'`,
		prefix, prefix)
	return err
}
