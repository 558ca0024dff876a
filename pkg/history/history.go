// Package history keeps a SQLite log of past translations so a source file
// that was already translated can be looked up instead of translated again.
package history

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// EnvDBPath overrides the default database location.
const EnvDBPath = "PINEWEALTH_HISTORY_DB"

// ErrRecordNotFound indicates the requested record doesn't exist in the database.
var ErrRecordNotFound = errors.New("record not found")

const schema = `CREATE TABLE IF NOT EXISTS translations (
	id TEXT PRIMARY KEY,
	source_hash TEXT NOT NULL,
	data JSON NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS translations_source_hash ON translations (source_hash)`

// Record is one stored translation.
type Record struct {
	ID         string   `json:"-"`
	SourceHash string   `json:"source_hash"`
	Source     string   `json:"source"`
	Code       string   `json:"code,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Error      string   `json:"error,omitempty"`
	CreatedAt  string   `json:"created_at"` // RFC3339 timestamp
}

// Failed reports whether the translation ended in an error.
func (r *Record) Failed() bool {
	return r.Error != ""
}

// Config holds store configuration options.
type Config struct {
	DBPath string // Path to history.db (defaults to Root/history.db)
	Root   string // Data directory (defaults to ~/.pinewealth)
}

// Store persists translation records.
type Store struct {
	db      *sql.DB
	dbPath  string
	cache   map[string]*Record
	cacheMu sync.RWMutex
}

// Open opens or creates the history database. If cfg is nil, defaults are
// used.
func Open(cfg *Config) (*Store, error) {
	s := &Store{cache: make(map[string]*Record)}

	switch {
	case cfg != nil && cfg.DBPath != "":
		s.dbPath = cfg.DBPath
	case os.Getenv(EnvDBPath) != "":
		s.dbPath = os.Getenv(EnvDBPath)
	case cfg != nil && cfg.Root != "":
		s.dbPath = filepath.Join(cfg.Root, "history.db")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home dir: %w", err)
		}
		s.dbPath = filepath.Join(home, ".pinewealth", "history.db")
	}

	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file in use.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.cacheMu.Lock()
	s.cache = nil
	s.cacheMu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Hash returns the key records are looked up by.
func Hash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Save stores the outcome of translating source. translateErr may be nil.
func (s *Store) Save(source, code string, warnings []string, translateErr error) (*Record, error) {
	rec := &Record{
		ID:         "tr_" + uuid.New().String(),
		SourceHash: Hash(source),
		Source:     source,
		Code:       code,
		Warnings:   warnings,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if translateErr != nil {
		rec.Error = translateErr.Error()
		rec.Code = ""
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshaling record: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO translations (id, source_hash, data, created_at) VALUES (?, ?, json(?), ?)",
		rec.ID, rec.SourceHash, string(data), rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("saving record: %w", err)
	}

	s.cacheMu.Lock()
	s.cache[rec.ID] = rec
	s.cacheMu.Unlock()
	return rec, nil
}

// Load returns the record with id from cache or database.
func (s *Store) Load(id string) (*Record, error) {
	s.cacheMu.RLock()
	if rec, ok := s.cache[id]; ok {
		s.cacheMu.RUnlock()
		return rec, nil
	}
	s.cacheMu.RUnlock()

	var data string
	err := s.db.QueryRow("SELECT data FROM translations WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying record: %w", err)
	}
	rec, err := decode(id, data)
	if err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.cache[id] = rec
	s.cacheMu.Unlock()
	return rec, nil
}

// FindBySource returns the most recent record for source.
func (s *Store) FindBySource(source string) (*Record, error) {
	var id, data string
	err := s.db.QueryRow(
		"SELECT id, data FROM translations WHERE source_hash = ? ORDER BY rowid DESC LIMIT 1",
		Hash(source),
	).Scan(&id, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying record by source: %w", err)
	}
	return decode(id, data)
}

// List returns up to limit records, newest first. A limit <= 0 returns all.
func (s *Store) List(limit int) ([]*Record, error) {
	return s.query("SELECT id, data FROM translations ORDER BY rowid DESC LIMIT ?", limitArg(limit))
}

// Failures returns up to limit records whose translation failed, newest first.
func (s *Store) Failures(limit int) ([]*Record, error) {
	return s.query(
		"SELECT id, data FROM translations WHERE json_extract(data, '$.error') IS NOT NULL ORDER BY rowid DESC LIMIT ?",
		limitArg(limit),
	)
}

// Delete removes a record from the database and cache.
func (s *Store) Delete(id string) error {
	s.cacheMu.Lock()
	delete(s.cache, id)
	s.cacheMu.Unlock()

	res, err := s.db.Exec("DELETE FROM translations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// isCached reports whether id is held in the read cache.
func (s *Store) isCached(id string) bool {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	_, ok := s.cache[id]
	return ok
}

func (s *Store) query(q string, args ...any) ([]*Record, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec, err := decode(id, data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decode(id, data string) (*Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling record %s: %w", id, err)
	}
	rec.ID = id
	return &rec, nil
}

// limitArg maps a non-positive limit to SQLite's "no limit".
func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
