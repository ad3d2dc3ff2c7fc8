package soundcloud

import "time"

// Resource kinds returned by the resolve endpoint.
const (
	KindTrack    = "track"
	KindPlaylist = "playlist"
	KindUser     = "user"
)

// Track policy for geoblocked content.
const PolicyBlock = "BLOCK"

// Transcoding protocols.
const (
	ProtocolProgressive = "progressive"
	ProtocolHLS         = "hls"
)

type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	AvatarURL     string `json:"avatar_url"`
	PermalinkURL  string `json:"permalink_url"`
	TrackCount    int    `json:"track_count"`
	LikesCount    int    `json:"likes_count"`
	PlaylistCount int    `json:"playlist_count"`
	RepostsCount  int    `json:"reposts_count"`
}

type TranscodingFormat struct {
	Protocol string `json:"protocol"`
	MimeType string `json:"mime_type"`
}

type Transcoding struct {
	URL    string            `json:"url"`
	Format TranscodingFormat `json:"format"`
}

type Media struct {
	Transcodings []Transcoding `json:"transcodings"`
}

type Track struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	User             User      `json:"user"`
	ArtworkURL       string    `json:"artwork_url"`
	CreatedAt        time.Time `json:"created_at"`
	Genre            string    `json:"genre"`
	Description      string    `json:"description"`
	PermalinkURL     string    `json:"permalink_url"`
	Duration         int64     `json:"duration"` // milliseconds
	Policy           string    `json:"policy"`
	Streamable       bool      `json:"streamable"`
	Downloadable     bool      `json:"downloadable"`
	HasDownloadsLeft bool      `json:"has_downloads_left"`
	Media            Media     `json:"media"`
}

// IsStub reports whether this is a playlist track entry that only carries an
// ID and must be fetched in full before downloading.
func (t *Track) IsStub() bool {
	return t.Title == "" && t.PermalinkURL == ""
}

// Transcoding returns the first transcoding matching protocol, and whether
// mimePrefix (e.g. "audio/mp4") matched when non-empty.
func (t *Track) Transcoding(protocol, mimePrefix string) *Transcoding {
	for i := range t.Media.Transcodings {
		tc := &t.Media.Transcodings[i]
		if tc.Format.Protocol != protocol {
			continue
		}
		if mimePrefix == "" || len(tc.Format.MimeType) >= len(mimePrefix) &&
			tc.Format.MimeType[:len(mimePrefix)] == mimePrefix {
			return tc
		}
	}
	return nil
}

type Playlist struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	User       User    `json:"user"`
	TrackCount int     `json:"track_count"`
	Tracks     []Track `json:"tracks"`
}

// Resource is the result of resolving an arbitrary soundcloud URL. Exactly
// one of Track, Playlist or User is set, according to Kind.
type Resource struct {
	Kind     string
	Track    *Track
	Playlist *Playlist
	User     *User
}

// LikeItem is one entry of a user's likes feed: a liked track or playlist.
type LikeItem struct {
	Track    *Track    `json:"track"`
	Playlist *Playlist `json:"playlist"`
}

// StreamItem is one entry of a user's activity stream (uploads and reposts).
type StreamItem struct {
	Type     string    `json:"type"` // "track", "track-repost", "playlist", "playlist-repost"
	Track    *Track    `json:"track"`
	Playlist *Playlist `json:"playlist"`
}
