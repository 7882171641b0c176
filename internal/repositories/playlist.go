package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/shared"
)

// NeedsUpdate reports whether the cached copy of a playlist is missing or stale.
//
// It returns false only when a row with exactly this (id, source, etag) exists.
// Any store failure reports true so that callers refetch instead of blocking.
func (r *CacheRepository) NeedsUpdate(id, source, etag string) bool {
	found := false
	err := r.withDB(func(db *sql.DB) error {
		query := `SELECT EXISTS (SELECT 1 FROM playlists WHERE source = ? AND id = ? AND etag = ?)`
		return db.QueryRow(query, source, id, etag).Scan(&found)
	})
	if err != nil {
		return true
	}
	return !found
}

// LoadPlaylist returns the cached playlist metadata.
func (r *CacheRepository) LoadPlaylist(id, source string) (models.Playlist, error) {
	var playlist models.Playlist
	err := r.withDB(func(db *sql.DB) error {
		query := `SELECT id, title, size, tags FROM playlists WHERE source = ? AND id = ?`
		p, err := r.scanOne(db.QueryRow(query, source, id))
		if err != nil {
			return err
		}
		playlist = p
		return nil
	})
	return playlist, err
}

// PlaylistEtag returns the etag stored alongside a cached playlist.
func (r *CacheRepository) PlaylistEtag(id, source string) (string, error) {
	var etag string
	err := r.withDB(func(db *sql.DB) error {
		err := db.QueryRow(`SELECT etag FROM playlists WHERE source = ? AND id = ?`, source, id).Scan(&etag)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: playlist %s/%s", shared.ErrCacheMiss, source, id)
		}
		return err
	})
	return etag, err
}

// PlaylistSongs returns the cached songs of a playlist in their stored order.
func (r *CacheRepository) PlaylistSongs(id, source string) ([]models.Song, error) {
	var songs []models.Song
	err := r.withDB(func(db *sql.DB) error {
		var uid int64
		err := db.QueryRow(`SELECT uid FROM playlists WHERE source = ? AND id = ?`, source, id).Scan(&uid)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: playlist %s/%s", shared.ErrCacheMiss, source, id)
		}
		if err != nil {
			return fmt.Errorf("failed to find playlist: %w", err)
		}

		query := `
			SELECT s.song
			FROM playlist_songs ps
			JOIN songs s ON s.uid = ps.song_uid
			WHERE ps.playlist_uid = ?
			ORDER BY ps.position ASC
		`
		rows, err := db.Query(query, uid)
		if err != nil {
			return fmt.Errorf("failed to query playlist songs: %w", err)
		}
		defer rows.Close()

		songs = []models.Song{}
		for rows.Next() {
			song, err := scanSong(rows)
			if err != nil {
				return err
			}
			songs = append(songs, song)
		}
		return rows.Err()
	})
	return songs, err
}

// UpsertPlaylist replaces the cached playlist, its songs and its membership in one transaction.
//
// Songs already downloaded keep their local locator when the incoming copy is not downloaded.
func (r *CacheRepository) UpsertPlaylist(source string, playlist models.Playlist, songs []models.Song, etag string) error {
	tags, err := json.Marshal(nonNilTags(playlist.Tags))
	if err != nil {
		return fmt.Errorf("failed to encode playlist tags: %w", err)
	}

	return r.withTx(func(tx *sql.Tx) error {
		query := `
			INSERT INTO playlists (id, title, size, etag, source, tags, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (id, source) DO UPDATE SET
				title = excluded.title,
				size = excluded.size,
				etag = excluded.etag,
				tags = excluded.tags,
				updated_at = CURRENT_TIMESTAMP
		`
		if _, err := tx.Exec(query, playlist.ID, playlist.Title, playlist.Size, etag, source, string(tags)); err != nil {
			return fmt.Errorf("failed to upsert playlist: %w", err)
		}

		var playlistUID int64
		if err := tx.QueryRow(`SELECT uid FROM playlists WHERE source = ? AND id = ?`, source, playlist.ID).Scan(&playlistUID); err != nil {
			return fmt.Errorf("failed to read playlist uid: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM playlist_songs WHERE playlist_uid = ?`, playlistUID); err != nil {
			return fmt.Errorf("failed to clear playlist membership: %w", err)
		}

		for position, song := range songs {
			remote := remoteLocator(song)
			song = keepLocalCopy(tx, source, song)
			songUID, err := upsertSong(tx, source, song, remote)
			if err != nil {
				return err
			}

			_, err = tx.Exec(
				`INSERT OR IGNORE INTO playlist_songs (playlist_uid, song_uid, position) VALUES (?, ?, ?)`,
				playlistUID, songUID, position,
			)
			if err != nil {
				return fmt.Errorf("failed to link song %s: %w", song.ID, err)
			}
		}
		return nil
	})
}

// scanOne scans a single row into a [models.Playlist]
func (r *CacheRepository) scanOne(row *sql.Row) (models.Playlist, error) {
	var (
		id    string
		title string
		size  uint32
		tags  string
	)

	err := row.Scan(&id, &title, &size, &tags)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, shared.ErrCacheMiss
	}
	if err != nil {
		return models.Playlist{}, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist := models.Playlist{ID: id, Title: title, Size: size, Tags: []string{}}
	if err := json.Unmarshal([]byte(tags), &playlist.Tags); err != nil {
		return models.Playlist{}, fmt.Errorf("failed to decode playlist tags: %w", err)
	}
	return playlist, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
