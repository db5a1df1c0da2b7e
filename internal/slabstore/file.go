package slabstore

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const (
	kindGroup   = "group"
	kindDataset = "dataset"
)

// File is an open slab file.
type File struct {
	path     string
	readOnly bool

	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Create creates a new empty file at path, replacing any existing one.
func Create(path string) (*File, error) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove existing %s: %w", p, err)
		}
	}
	return open(path)
}

// Open opens an existing file for reading and writing, upgrading its schema
// if it was written by an older version.
func Open(path string) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return open(path)
}

// OpenReadOnly opens an existing file without modifying it. No pragmas are
// applied and the schema is never migrated: a file with a missing, dirty or
// newer schema is rejected with ErrSchemaVersion.
func OpenReadOnly(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	dsn := (&url.URL{Scheme: "file", Path: abs, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	v, dirty, err := readVersion(db)
	if err == nil {
		switch {
		case dirty:
			err = fmt.Errorf("%w: version %d is dirty", ErrSchemaVersion, v)
		case v == 0:
			err = fmt.Errorf("%w: no schema", ErrSchemaVersion)
		case v > SchemaVersion:
			err = fmt.Errorf("%w: version %d is newer than %d", ErrSchemaVersion, v, SchemaVersion)
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &File{path: path, readOnly: true, db: db}, nil
}

func open(path string) (*File, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps pragmas and transactions on the same handle.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &File{path: path, db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

// Path returns the file's location on disk.
func (f *File) Path() string { return f.path }

// Close closes the file. It is safe to call more than once.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.db.Close()
}

// SchemaVersion reports the applied migration version.
func (f *File) SchemaVersion() (uint, error) {
	db, err := f.conn()
	if err != nil {
		return 0, err
	}
	v, dirty, err := readVersion(db)
	if err != nil {
		return 0, err
	}
	if dirty {
		return v, fmt.Errorf("schema version %d is dirty", v)
	}
	return v, nil
}

func (f *File) conn() (*sql.DB, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrClosed
	}
	return f.db, nil
}

func (f *File) writeConn() (*sql.DB, error) {
	if f.readOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, f.path)
	}
	return f.conn()
}

// ReadOnly reports whether the file was opened with OpenReadOnly.
func (f *File) ReadOnly() bool { return f.readOnly }

// Root returns the root group.
func (f *File) Root() *Group {
	return &Group{node{f: f, path: "/"}}
}

// OpenGroup opens a group by absolute path.
func (f *File) OpenGroup(p string) (*Group, error) {
	return f.Root().OpenGroup(p)
}

// OpenDataset opens a dataset by absolute path.
func (f *File) OpenDataset(p string) (*Dataset, error) {
	return f.Root().OpenDataset(p)
}

// Exists reports whether any object lives at p.
func (f *File) Exists(p string) (bool, error) {
	_, err := f.kindOf(CleanPath(p))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *File) kindOf(p string) (string, error) {
	db, err := f.conn()
	if err != nil {
		return "", err
	}
	var kind string
	err = db.QueryRow(`SELECT kind FROM nodes WHERE path = ?`, p).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up %s: %w", p, err)
	}
	return kind, nil
}
