package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/yauma/internal/models"
)

// RemoveDownloaded filters songs down to those that still need downloading.
//
// A song is kept when its cached downloaded flag is false or its locator is not an existing local file.
// Returned songs are the cached copies; songs absent from the cache are returned as given.
// A copy whose file has gone missing is returned with its remote locator and the downloaded flag cleared.
func (r *CacheRepository) RemoveDownloaded(songs []models.Song, source string) ([]models.Song, error) {
	pending := []models.Song{}
	err := r.withDB(func(db *sql.DB) error {
		stmt, err := db.Prepare(`SELECT song, COALESCE(remote_url, '') FROM songs WHERE source = ? AND id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare song lookup: %w", err)
		}
		defer stmt.Close()

		for _, song := range songs {
			cached, remote, err := scanCachedSong(stmt.QueryRow(source, song.ID))
			switch {
			case errors.Is(err, sql.ErrNoRows):
				cached = song
			case err != nil:
				return err
			}

			if cached.Downloaded && fileExists(cached.URL) {
				continue
			}
			if cached.Downloaded {
				cached = restoreRemote(cached, song, remote)
			}
			pending = append(pending, cached)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// restoreRemote turns a downloaded song whose file is gone back into a remote one.
func restoreRemote(cached, requested models.Song, remote string) models.Song {
	cached.Downloaded = false
	switch {
	case remote != "":
		cached.URL = remote
	case !requested.Downloaded && requested.URL != "" && requested.URL != cached.URL:
		cached.URL = requested.URL
	default:
		cached.URL = ""
	}
	return cached
}

// UpdateSongs upserts song rows only, leaving playlists and membership untouched.
func (r *CacheRepository) UpdateSongs(songs []models.Song, source string) error {
	if len(songs) == 0 {
		return nil
	}
	return r.withTx(func(tx *sql.Tx) error {
		for _, song := range songs {
			if _, err := upsertSong(tx, source, song, remoteLocator(song)); err != nil {
				return err
			}
		}
		return nil
	})
}

// remoteLocator is the URL a not yet downloaded song is fetched from, or NULL.
func remoteLocator(song models.Song) sql.NullString {
	if song.Downloaded || song.URL == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: song.URL, Valid: true}
}

// upsertSong writes the serialized song and returns its row uid. A NULL remote keeps the
// previously stored remote locator.
func upsertSong(tx *sql.Tx, source string, song models.Song, remote sql.NullString) (int64, error) {
	data, err := json.Marshal(song)
	if err != nil {
		return 0, fmt.Errorf("failed to encode song %s: %w", song.ID, err)
	}

	query := `
		INSERT INTO songs (id, source, song, remote_url, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id, source) DO UPDATE SET
			song = excluded.song,
			remote_url = COALESCE(excluded.remote_url, songs.remote_url),
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := tx.Exec(query, song.ID, source, string(data), remote); err != nil {
		return 0, fmt.Errorf("failed to upsert song %s: %w", song.ID, err)
	}

	var uid int64
	if err := tx.QueryRow(`SELECT uid FROM songs WHERE source = ? AND id = ?`, source, song.ID).Scan(&uid); err != nil {
		return 0, fmt.Errorf("failed to read song uid: %w", err)
	}
	return uid, nil
}

// keepLocalCopy carries a previous download over a freshly fetched, not yet downloaded song,
// as long as the downloaded file still exists.
func keepLocalCopy(tx *sql.Tx, source string, song models.Song) models.Song {
	if song.Downloaded {
		return song
	}
	cached, err := scanSong(tx.QueryRow(`SELECT song FROM songs WHERE source = ? AND id = ?`, source, song.ID))
	if err != nil || !cached.Downloaded || !fileExists(cached.URL) {
		return song
	}
	song.URL = cached.URL
	song.Downloaded = true
	return song
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSong decodes the serialized song column.
func scanSong(row scanner) (models.Song, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Song{}, err
		}
		return models.Song{}, fmt.Errorf("failed to scan song: %w", err)
	}
	return decodeSong(data)
}

// scanCachedSong decodes a song row selected together with its remote locator.
func scanCachedSong(row scanner) (models.Song, string, error) {
	var data, remote string
	if err := row.Scan(&data, &remote); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Song{}, "", err
		}
		return models.Song{}, "", fmt.Errorf("failed to scan song: %w", err)
	}
	song, err := decodeSong(data)
	return song, remote, err
}

func decodeSong(data string) (models.Song, error) {
	var song models.Song
	if err := json.Unmarshal([]byte(data), &song); err != nil {
		return models.Song{}, fmt.Errorf("failed to decode cached song: %w", err)
	}
	return song, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
