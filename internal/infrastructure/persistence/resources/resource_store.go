// Package resources provides the durable content store for offline
// medical resources.
package resources

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/medicarepro/medicare-offline-go/internal/domain/entities/resources"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/persistence/database"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

// Store is the durable, queryable local storage for MedicalResource rows.
// It survives restarts and degrades to empty reads when the underlying
// database could not be opened.
type Store struct {
	driver string
	dsn    string
	logger *logging.ChanneledLogger

	mu sync.Mutex
	db *database.DB
}

// NewStore creates a store for the given driver and data directory. The
// database file name is fixed; dsn overrides it only for remote drivers.
func NewStore(driver, dataDir, dsn string, logger *logging.ChanneledLogger) *Store {
	if dsn == "" {
		dsn = filepath.Join(dataDir, config.DatabaseName+".sqlite3")
	}
	return &Store{
		driver: driver,
		dsn:    dsn,
		logger: logger,
	}
}

// Initialize opens the database, creating it if absent, and brings the
// schema to the current version. Idempotent: subsequent calls reuse the
// open handle. Returns ErrStorageUnavailable when the platform denies
// access; callers must treat that as degraded offline features, not fatal.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := database.NewConnectionWithLogger(s.driver, s.dsn, s.logger)
	if err != nil {
		s.logger.Store().Error("Content store open failed", "error", err.Error(), "dsn", s.dsn)
		return fmt.Errorf("%w: %v", resources.ErrStorageUnavailable, err)
	}

	if err := s.migrate(db); err != nil {
		db.Close()
		s.logger.Store().Error("Content store migration failed", "error", err.Error())
		return fmt.Errorf("%w: %v", resources.ErrStorageUnavailable, err)
	}

	s.db = db
	s.logger.Store().Info("Content store initialized", "driver", s.driver, "schemaVersion", config.SchemaVersion)
	return nil
}

// migrate brings the schema to config.SchemaVersion. A version mismatch
// rebuilds the table; cached content is server-authoritative and will be
// re-downloaded.
func (s *Store) migrate(db *database.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version == config.SchemaVersion {
		return nil
	}

	if version != 0 {
		s.logger.Store().Warn("Schema version mismatch, rebuilding table", "found", version, "want", config.SchemaVersion)
		if _, err := db.Exec("DROP TABLE IF EXISTS medicalResources"); err != nil {
			return fmt.Errorf("failed to drop outdated table: %w", err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS medicalResources (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			category TEXT NOT NULL,
			content TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			priority INTEGER NOT NULL,
			last_updated TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_medicalResources_category ON medicalResources(category)`,
		`CREATE INDEX IF NOT EXISTS idx_medicalResources_priority ON medicalResources(priority)`,
		`CREATE INDEX IF NOT EXISTS idx_medicalResources_last_updated ON medicalResources(last_updated)`,
		fmt.Sprintf("PRAGMA user_version = %d", config.SchemaVersion),
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return nil
}

func (s *Store) handle() *database.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

// ReplaceAll atomically clears the table and inserts the given set.
// Clear and insert run in one transaction: concurrent readers observe
// either the previous set or exactly the new one, never a partial state.
// Unlike reads, a failure here must surface; silently dropping a refresh
// would look like success with stale data.
func (s *Store) ReplaceAll(rows []resources.MedicalResource) error {
	db := s.handle()
	if db == nil {
		return fmt.Errorf("%w: store not initialized", resources.ErrStorageUnavailable)
	}

	start := time.Now()
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin replace transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM medicalResources"); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear resources: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO medicalResources (id, title, category, content, tags, priority, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		r := rows[i]
		r.Normalize()

		tagsJSON, err := json.Marshal(r.Tags)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to encode tags for %s: %w", r.ID, err)
		}

		if _, err := stmt.Exec(r.ID, r.Title, r.Category, r.Content, string(tagsJSON), r.Priority, r.LastUpdated.UTC()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert resource %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace: %w", err)
	}

	duration := time.Since(start)
	s.logger.Store().Info("Resources replaced", "count", len(rows), "duration", duration)
	if duration > config.SlowQueryWarn {
		s.logger.LogSlowQuery("REPLACE_ALL medicalResources", duration)
	}
	return nil
}

// GetAll returns every stored resource ordered ascending by priority,
// ties broken by insertion order. Returns an empty slice, never an
// error, when the store is uninitialized or empty.
func (s *Store) GetAll() ([]resources.MedicalResource, error) {
	return s.query(`SELECT id, title, category, content, tags, priority, last_updated
		FROM medicalResources ORDER BY priority ASC, rowid ASC`)
}

// GetByCategory returns stored resources with an exact category match,
// in the same priority order as GetAll.
func (s *Store) GetByCategory(category string) ([]resources.MedicalResource, error) {
	return s.query(`SELECT id, title, category, content, tags, priority, last_updated
		FROM medicalResources WHERE category = ? ORDER BY priority ASC, rowid ASC`, category)
}

// Search filters the full stored set by a case-insensitive substring
// match against title, content, or any tag. The filter runs over
// GetAll's result, so priority ordering is preserved. An empty query
// matches everything.
func (s *Store) Search(query string) ([]resources.MedicalResource, error) {
	all, err := s.GetAll()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matches := make([]resources.MedicalResource, 0, len(all))
	for _, r := range all {
		if matchesQuery(&r, needle) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

func matchesQuery(r *resources.MedicalResource, needle string) bool {
	if strings.Contains(strings.ToLower(r.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Content), needle) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Clear empties the table.
func (s *Store) Clear() error {
	db := s.handle()
	if db == nil {
		return nil
	}

	if _, err := db.Exec("DELETE FROM medicalResources"); err != nil {
		return fmt.Errorf("failed to clear resources: %w", err)
	}

	s.logger.Store().Info("Content store cleared")
	return nil
}

// EstimateUsage reports row count, the most recent lastUpdated across
// rows, and a best-effort storage size. Never returns an error; fields
// the platform cannot report stay zero.
func (s *Store) EstimateUsage() resources.StorageStats {
	stats := resources.StorageStats{}

	db := s.handle()
	if db == nil {
		return stats
	}

	if err := db.QueryRow("SELECT COUNT(*) FROM medicalResources").Scan(&stats.ResourceCount); err != nil {
		s.logger.Store().Warn("Usage count query failed", "error", err.Error())
		return stats
	}

	if stats.ResourceCount > 0 {
		var last time.Time
		if err := db.QueryRow("SELECT last_updated FROM medicalResources ORDER BY last_updated DESC LIMIT 1").Scan(&last); err == nil {
			stats.LastUpdated = last
		}
	}

	// Page-level size estimate; unavailable on some drivers.
	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.ApproxBytes = pageCount * pageSize
		}
	}

	return stats
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) query(q string, args ...any) ([]resources.MedicalResource, error) {
	db := s.handle()
	if db == nil {
		return []resources.MedicalResource{}, nil
	}

	start := time.Now()
	rows, err := db.Query(q, args...)
	if err != nil {
		s.logger.Store().Error("Resource query failed", "error", err.Error())
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var result []resources.MedicalResource
	for rows.Next() {
		var r resources.MedicalResource
		var tagsJSON string
		if err := rows.Scan(&r.ID, &r.Title, &r.Category, &r.Content, &tagsJSON, &r.Priority, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
			return nil, fmt.Errorf("failed to parse tags for %s: %w", r.ID, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read resources: %w", err)
	}

	duration := time.Since(start)
	if duration > config.SlowQueryWarn {
		s.logger.LogSlowQuery(q, duration)
	}

	if result == nil {
		result = []resources.MedicalResource{}
	}
	return result, nil
}
