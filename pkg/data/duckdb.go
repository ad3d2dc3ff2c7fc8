package data

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	track_id      BIGINT PRIMARY KEY,
	title         VARCHAR NOT NULL,
	artist        VARCHAR NOT NULL,
	url           VARCHAR NOT NULL,
	filename      VARCHAR NOT NULL,
	playlist      VARCHAR NOT NULL DEFAULT '',
	size          BIGINT NOT NULL DEFAULT 0,
	downloaded_at TIMESTAMP NOT NULL
)`

func InitDuckDB(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Repository is the download archive. It replaces a flat track-id file with
// a queryable record of everything scget has placed on disk.
type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database at path.
// An empty path opens an in-memory database.
func Open(path string) (*Repository, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Record inserts or refreshes the archive entry for a track.
func (r *Repository) Record(d *Download) error {
	if d.DownloadedAt.IsZero() {
		d.DownloadedAt = time.Now()
	}
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO downloads
			(track_id, title, artist, url, filename, playlist, size, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.TrackID, d.Title, d.Artist, d.URL, d.Filename, d.Playlist, d.Size, d.DownloadedAt)
	return err
}

// Contains reports whether a track id is already archived.
func (r *Repository) Contains(trackID int64) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM downloads WHERE track_id = ?`, trackID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) Get(trackID int64) (*Download, error) {
	row := r.db.QueryRow(`
		SELECT track_id, title, artist, url, filename, playlist, size, downloaded_at
		FROM downloads WHERE track_id = ?`, trackID)
	d := &Download{}
	err := row.Scan(&d.TrackID, &d.Title, &d.Artist, &d.URL, &d.Filename,
		&d.Playlist, &d.Size, &d.DownloadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// List returns all archived downloads, newest first.
func (r *Repository) List() ([]*Download, error) {
	rows, err := r.db.Query(`
		SELECT track_id, title, artist, url, filename, playlist, size, downloaded_at
		FROM downloads ORDER BY downloaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []*Download
	for rows.Next() {
		d := &Download{}
		if err := rows.Scan(&d.TrackID, &d.Title, &d.Artist, &d.URL, &d.Filename,
			&d.Playlist, &d.Size, &d.DownloadedAt); err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}

func (r *Repository) Delete(trackID int64) error {
	_, err := r.db.Exec(`DELETE FROM downloads WHERE track_id = ?`, trackID)
	return err
}

// CountByPlaylist returns how many archived tracks belong to each playlist.
func (r *Repository) CountByPlaylist() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT playlist, COUNT(*) FROM downloads GROUP BY playlist`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var playlist string
		var n int
		if err := rows.Scan(&playlist, &n); err != nil {
			return nil, err
		}
		counts[playlist] = n
	}
	return counts, rows.Err()
}
