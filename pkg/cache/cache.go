// Package cache keeps analysis results in a local SQLite database, keyed by
// a hash of the source text and the options that produced them.
package cache

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"

	jerrors "github.com/sambeau/streamline/pkg/java/errors"
	"github.com/sambeau/streamline/pkg/logger"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

// DefaultMaxEntries bounds the number of rows kept by Prune.
const DefaultMaxEntries = 20000

// Cache is a result store backed by SQLite. Entries are compressed with
// zstd. It is safe for concurrent use.
type Cache struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
	log  *logger.Logger

	enc *zstd.Encoder
	dec *zstd.Decoder

	hits, misses int
}

// Stats counts lookups since Open.
type Stats struct {
	Entries int
	Hits    int
	Misses  int
}

// Open opens or creates the cache database at path.
func Open(path string, log *logger.Logger) (*Cache, error) {
	if log == nil {
		log = logger.Nop()
	}
	fail := func(err error) (*Cache, error) {
		return nil, jerrors.New("CACHE-0001", map[string]any{"Path": path, "Err": err})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fail(err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fail(err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fail(err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	const schema = `
		CREATE TABLE IF NOT EXISTS results (
			key TEXT PRIMARY KEY,
			size INTEGER NOT NULL,
			data BLOB NOT NULL,
			stored DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_results_stored ON results(stored);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fail(err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return fail(err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return fail(err)
	}

	return &Cache{db: db, path: path, log: log.WithComponent("cache"), enc: enc, dec: dec}, nil
}

// Key returns the hex xxh3 digest of salt and src.
func Key(src []byte, salt string) string {
	h := xxh3.New()
	h.Write([]byte(salt))
	h.Write([]byte{0})
	h.Write(src)
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the data stored for src under salt. A row that fails to
// decompress is deleted and reported as a miss.
func (c *Cache) Lookup(src []byte, salt string) ([]byte, bool) {
	key := Key(src, salt)

	c.mu.Lock()
	defer c.mu.Unlock()

	var size int
	var blob []byte
	err := c.db.QueryRow(`SELECT size, data FROM results WHERE key = ?`, key).Scan(&size, &blob)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Warn("cache lookup failed", logger.Fields(logger.FieldReason, err.Error()))
		}
		c.misses++
		return nil, false
	}

	data, err := c.dec.DecodeAll(blob, make([]byte, 0, size))
	if err == nil && len(data) != size {
		err = fmt.Errorf("expected %d bytes, got %d", size, len(data))
	}
	if err != nil {
		c.log.Warn(jerrors.New("CACHE-0002", map[string]any{"Err": err}).Message)
		if _, err := c.db.Exec(`DELETE FROM results WHERE key = ?`, key); err != nil {
			c.log.Warn("cache delete failed", logger.Fields(logger.FieldReason, err.Error()))
		}
		c.misses++
		return nil, false
	}
	c.hits++
	return data, true
}

// Store records data for src under salt, replacing any earlier entry.
func (c *Cache) Store(src []byte, salt string, data []byte) error {
	key := Key(src, salt)
	blob := c.enc.EncodeAll(data, nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`INSERT OR REPLACE INTO results (key, size, data) VALUES (?, ?, ?)`, key, len(data), blob)
	if err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

// Prune keeps the newest keep entries and deletes the rest.
func (c *Cache) Prune(keep int) (int64, error) {
	if keep <= 0 {
		keep = DefaultMaxEntries
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec(`
		DELETE FROM results WHERE key NOT IN (
			SELECT key FROM results ORDER BY stored DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		c.log.Debug("pruned", logger.Fields("entries", n))
	}
	return n, nil
}

// Clear deletes every entry.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.Exec(`DELETE FROM results`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Stats returns the entry count and the lookups since Open.
func (c *Cache) Stats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{Hits: c.hits, Misses: c.misses}
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&s.Entries); err != nil {
		return s, fmt.Errorf("counting cache entries: %w", err)
	}
	return s, nil
}

// Path returns the database file.
func (c *Cache) Path() string { return c.path }

// Close releases the database and the codecs.
func (c *Cache) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.db.Close()
}
