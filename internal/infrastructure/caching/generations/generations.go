// Package generations provides the raw HTTP byte cache, partitioned into
// named, versioned generations. A generation is superseded wholesale on
// version bump; entries are byte-exact copies of prior successful
// responses, keyed by full request URL including the query string.
package generations

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/medicarepro/medicare-offline-go/internal/domain/entities/resources"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
)

const keyPrefix = "gen:"

// Entry is a stored copy of one successful HTTP response.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Store persists cache generations in a single local key-value database.
// The interception worker is the only writer; the database itself is safe
// for concurrent readers.
type Store struct {
	db     *leveldb.DB
	logger *logging.ChanneledLogger
}

// Open opens (creating if absent) the byte cache at path.
func Open(path string, logger *logging.ChanneledLogger) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open byte cache: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func entryKey(generation, url string) []byte {
	return []byte(keyPrefix + generation + ":" + url)
}

// Put admits a response into a generation. Only successful statuses are
// admitted; anything else fails with ErrCacheWriteFailed so callers can
// log and skip without blocking the live response.
func (s *Store) Put(generation, url string, entry *Entry) error {
	if entry.Status < 200 || entry.Status > 299 {
		return fmt.Errorf("%w: refusing non-OK status %d for %s", resources.ErrCacheWriteFailed, entry.Status, url)
	}

	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now().UTC()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("%w: encode %s: %v", resources.ErrCacheWriteFailed, url, err)
	}

	if err := s.db.Put(entryKey(generation, url), buf.Bytes(), nil); err != nil {
		return fmt.Errorf("%w: write %s: %v", resources.ErrCacheWriteFailed, url, err)
	}

	s.logger.LogCacheOperation("put", generation, url, false, 0)
	return nil
}

// Get returns the cached entry for the exact URL, if present.
func (s *Store) Get(generation, url string) (*Entry, bool) {
	start := time.Now()
	raw, err := s.db.Get(entryKey(generation, url), nil)
	if err != nil {
		s.logger.LogCacheOperation("get", generation, url, false, time.Since(start))
		return nil, false
	}

	var entry Entry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&entry); err != nil {
		s.logger.Cache().Error("Corrupt cache entry dropped", "generation", generation, "url", url, "error", err.Error())
		s.db.Delete(entryKey(generation, url), nil)
		return nil, false
	}

	s.logger.LogCacheOperation("get", generation, url, true, time.Since(start))
	return &entry, true
}

// DeleteGeneration removes every entry in the named generation.
func (s *Store) DeleteGeneration(generation string) error {
	prefix := []byte(keyPrefix + generation + ":")
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	var count int
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
		count++
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("failed to scan generation %s: %w", generation, err)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to delete generation %s: %w", generation, err)
	}

	s.logger.Cache().Info("Cache generation deleted", "generation", generation, "entries", count)
	return nil
}

// Generations lists every generation name present in the cache.
func (s *Store) Generations() ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(keyPrefix)), nil)
	defer iter.Release()

	seen := make(map[string]bool)
	var names []string
	for iter.Next() {
		key := strings.TrimPrefix(string(iter.Key()), keyPrefix)
		idx := strings.Index(key, ":")
		if idx < 0 {
			continue
		}
		name := key[:idx]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	return names, nil
}

// Stats reports entry count and stored byte size for one generation.
func (s *Store) Stats(generation string) (count int, size int64) {
	prefix := []byte(keyPrefix + generation + ":")
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		count++
		size += int64(len(iter.Value()))
	}
	return count, size
}
