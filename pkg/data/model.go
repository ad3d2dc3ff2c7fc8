package data

import "time"

// Download is one archived track: the record proving a file was fetched and
// placed. Recorded only after the file is atomically in its final location.
type Download struct {
	TrackID      int64
	Title        string
	Artist       string
	URL          string
	Filename     string
	Playlist     string // empty for standalone tracks
	Size         int64
	DownloadedAt time.Time
}
