package mediastore

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// UnknownName stands in for missing artist and album tags.
const UnknownName = "<unknown>"

// AudioFile is one scanned track as written to the index.
type AudioFile struct {
	Path       string
	Size       int64
	Title      string
	Album      string
	Artist     string
	Composer   string
	Genre      string
	Year       int
	Track      int
	DurationMS int64
	IsPodcast  bool
	ModifiedAt time.Time
}

// DisplayName is the file name shown for the track.
func (f AudioFile) DisplayName() string {
	return filepath.Base(f.Path)
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return UnknownName
	}
	return s
}

// IndexAudio inserts or refreshes the track at f.Path along with its artist and album, and returns the track's id.
func (s *SQLiteStore) IndexAudio(ctx context.Context, f AudioFile) (int64, error) {
	artist := orUnknown(f.Artist)
	album := orUnknown(f.Album)
	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = strings.TrimSuffix(f.DisplayName(), filepath.Ext(f.Path))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin index: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO artists (artist, artist_key) VALUES (?, ?)", artist, SortKey(artist)); err != nil {
		return 0, fmt.Errorf("failed to insert artist: %w", err)
	}
	var artistID int64
	if err := tx.QueryRowContext(ctx, "SELECT _id FROM artists WHERE artist = ?", artist).Scan(&artistID); err != nil {
		return 0, fmt.Errorf("failed to read artist id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO albums (album, album_key, artist_id, artist) VALUES (?, ?, ?, ?)",
		album, SortKey(album), artistID, artist); err != nil {
		return 0, fmt.Errorf("failed to insert album: %w", err)
	}
	var albumID int64
	if err := tx.QueryRowContext(ctx,
		"SELECT _id FROM albums WHERE album = ? AND artist = ?", album, artist).Scan(&albumID); err != nil {
		return 0, fmt.Errorf("failed to read album id: %w", err)
	}

	dateAdded := f.ModifiedAt.Unix()
	if f.ModifiedAt.IsZero() {
		dateAdded = time.Now().Unix()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audio (
			_data, _display_name, _size, title, title_key, album_id, album, album_key,
			artist_id, artist, artist_key, composer, genre_name, year, track, duration,
			is_music, is_podcast, date_added
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(_data) DO UPDATE SET
			_display_name = excluded._display_name,
			_size = excluded._size,
			title = excluded.title,
			title_key = excluded.title_key,
			album_id = excluded.album_id,
			album = excluded.album,
			album_key = excluded.album_key,
			artist_id = excluded.artist_id,
			artist = excluded.artist,
			artist_key = excluded.artist_key,
			composer = excluded.composer,
			genre_name = excluded.genre_name,
			year = excluded.year,
			track = excluded.track,
			duration = excluded.duration,
			is_music = excluded.is_music,
			is_podcast = excluded.is_podcast
	`,
		f.Path, f.DisplayName(), f.Size, title, SortKey(title), albumID, album, SortKey(album),
		artistID, artist, SortKey(artist), nullString(f.Composer), nullString(f.Genre),
		nullInt(f.Year), nullInt(f.Track), f.DurationMS,
		!f.IsPodcast, f.IsPodcast, dateAdded,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to index %s: %w", f.Path, err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, "SELECT _id FROM audio WHERE _data = ?", f.Path).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read track id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit index: %w", err)
	}
	return id, nil
}

// RemovePaths drops the tracks stored under paths, their playlist memberships, and any albums
// and artists left without tracks. It returns the number of tracks removed.
func (s *SQLiteStore) RemovePaths(ctx context.Context, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin prune: %w", err)
	}
	defer tx.Rollback()

	var removed int64
	for _, p := range paths {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM playlist_members WHERE audio_id IN (SELECT _id FROM audio WHERE _data = ?)", p); err != nil {
			return 0, fmt.Errorf("failed to delete memberships of %s: %w", p, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM audio WHERE _data = ?", p)
		if err != nil {
			return 0, fmt.Errorf("failed to delete %s: %w", p, err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	for _, stmt := range []string{
		"DELETE FROM albums WHERE _id NOT IN (SELECT album_id FROM audio WHERE album_id IS NOT NULL)",
		"DELETE FROM artists WHERE _id NOT IN (SELECT artist_id FROM audio WHERE artist_id IS NOT NULL)",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to remove orphans: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return removed, nil
}

// SetAlbumArt records the artwork file for an album.
func (s *SQLiteStore) SetAlbumArt(ctx context.Context, albumID int64, path string) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE albums SET album_art = ? WHERE _id = ?", path, albumID); err != nil {
		return fmt.Errorf("failed to set album art for %d: %w", albumID, err)
	}
	return nil
}

// AlbumArt returns the artwork file recorded for an album, or "".
func (s *SQLiteStore) AlbumArt(ctx context.Context, albumID int64) (string, error) {
	var art sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT album_art FROM albums WHERE _id = ?", albumID).Scan(&art)
	if err != nil {
		return "", fmt.Errorf("failed to read album art for %d: %w", albumID, err)
	}
	return art.String, nil
}

// AlbumOf returns the album id of the track with the given id.
func (s *SQLiteStore) AlbumOf(ctx context.Context, trackID int64) (int64, error) {
	var albumID sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT album_id FROM audio WHERE _id = ?", trackID).Scan(&albumID); err != nil {
		return 0, fmt.Errorf("failed to read album of track %d: %w", trackID, err)
	}
	return albumID.Int64, nil
}

// Paths lists the file paths of every indexed track.
func (s *SQLiteStore) Paths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT _data FROM audio ORDER BY _data")
	if err != nil {
		return nil, fmt.Errorf("failed to list paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Count returns the number of indexed tracks.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audio").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n > 0}
}
