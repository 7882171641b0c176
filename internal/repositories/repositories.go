package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/yauma/internal/shared"
)

// CacheRepository persists playlists, songs and playlist membership.
type CacheRepository struct {
	path string
}

// NewCacheRepository creates a CacheRepository for the database at path.
//
// The schema is expected to exist; see [shared.InitDatabase].
func NewCacheRepository(path string) *CacheRepository {
	return &CacheRepository{path: path}
}

// Path returns the database location.
func (r *CacheRepository) Path() string {
	return r.path
}

// withDB opens the store, runs fn and closes it again.
func (r *CacheRepository) withDB(fn func(db *sql.DB) error) error {
	db, err := shared.NewDatabase(r.path)
	if err != nil {
		return err
	}
	defer db.Close()
	shared.ConfigureDatabase(db, 1, 1)
	return fn(db)
}

// withTx runs fn inside a single transaction, committing only if fn succeeds.
func (r *CacheRepository) withTx(fn func(tx *sql.Tx) error) error {
	return r.withDB(func(db *sql.DB) error {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// CacheStats summarizes the cache contents for one source.
type CacheStats struct {
	Source     string
	Playlists  int
	Songs      int
	Downloaded int
}

// Stats returns per-source counts, ordered by source name.
func (r *CacheRepository) Stats() ([]CacheStats, error) {
	var stats []CacheStats
	err := r.withDB(func(db *sql.DB) error {
		query := `
			SELECT s.source,
				(SELECT COUNT(*) FROM playlists p WHERE p.source = s.source),
				COUNT(*),
				SUM(CASE WHEN json_extract(s.song, '$.downloaded') THEN 1 ELSE 0 END)
			FROM songs s
			GROUP BY s.source
			UNION ALL
			SELECT p.source, COUNT(*), 0, 0
			FROM playlists p
			WHERE NOT EXISTS (SELECT 1 FROM songs s WHERE s.source = p.source)
			GROUP BY p.source
			ORDER BY 1
		`

		rows, err := db.Query(query)
		if err != nil {
			return fmt.Errorf("failed to query cache stats: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var s CacheStats
			if err := rows.Scan(&s.Source, &s.Playlists, &s.Songs, &s.Downloaded); err != nil {
				return fmt.Errorf("failed to scan cache stats: %w", err)
			}
			stats = append(stats, s)
		}
		return rows.Err()
	})
	return stats, err
}
