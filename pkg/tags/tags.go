package tags

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/scget/scget/pkg/logger"
	"github.com/scget/scget/pkg/services"
	"github.com/scget/scget/pkg/soundcloud"
)

// MetadataWriter rewrites metadata on formats the id3 writer cannot handle.
// Satisfied by services.FFmpeg.
type MetadataWriter interface {
	WriteTags(ctx context.Context, path string, meta map[string]string) error
}

type Options struct {
	OriginalArt   bool // fetch full-resolution cover art
	ExtractArtist bool // split "Artist - Title" titles
	NoAlbumTag    bool // omit the album tag on playlist downloads
}

// Tagger writes track metadata and cover art onto placed files.
type Tagger struct {
	client *http.Client
	writer MetadataWriter
	opts   Options
}

func New(client *http.Client, writer MetadataWriter, opts Options) *Tagger {
	if client == nil {
		client = http.DefaultClient
	}
	return &Tagger{client: client, writer: writer, opts: opts}
}

// artistDashes are the separators used to split artist out of a title.
var artistDashes = []string{" - ", " − ", " – ", " — ", " ― "}

// ExtractArtist splits titles like "Artist - Title". ok is false when no
// separator is present.
func ExtractArtist(title string) (artist, rest string, ok bool) {
	for _, dash := range artistDashes {
		if idx := strings.Index(title, dash); idx >= 0 {
			artist = strings.TrimSpace(title[:idx])
			rest = strings.TrimSpace(title[idx+len(dash):])
			if artist != "" && rest != "" {
				return artist, rest, true
			}
		}
	}
	return "", title, false
}

// Tag writes metadata for track onto the file at path.
func (t *Tagger) Tag(ctx context.Context, path string, track *soundcloud.Track, info *services.PlaylistInfo) error {
	title := track.Title
	artist := track.User.Username
	if t.opts.ExtractArtist {
		if a, rest, ok := ExtractArtist(title); ok {
			artist, title = a, rest
		}
	}

	date := ""
	if !track.CreatedAt.IsZero() {
		date = track.CreatedAt.Format("2006-01-02")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return t.tagMP3(ctx, path, track, info, title, artist, date)
	default:
		meta := map[string]string{
			"title":   title,
			"artist":  artist,
			"genre":   track.Genre,
			"date":    date,
			"comment": track.Description,
			"purl":    track.PermalinkURL,
		}
		if info != nil {
			if !t.opts.NoAlbumTag {
				meta["album"] = info.Title
			}
			meta["track"] = info.TrackNumber
		}
		if t.writer == nil {
			return nil
		}
		return t.writer.WriteTags(ctx, path, meta)
	}
}

func (t *Tagger) tagMP3(ctx context.Context, path string, track *soundcloud.Track, info *services.PlaylistInfo, title, artist, date string) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.DeleteAllFrames()
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(title)
	tag.SetArtist(artist)
	if track.Genre != "" {
		tag.SetGenre(track.Genre)
	}
	if date != "" {
		tag.SetYear(date[:4])
		tag.AddTextFrame("TDRC", id3v2.EncodingUTF8, date)
	}
	if info != nil {
		if !t.opts.NoAlbumTag {
			tag.SetAlbum(info.Title)
		}
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, info.TrackNumber)
	}
	if track.PermalinkURL != "" {
		// WOAS is a URL frame: ISO-8859-1 text, no encoding byte.
		tag.AddFrame("WOAS", id3v2.UnknownFrame{Body: []byte(track.PermalinkURL)})
	}
	if track.Description != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "",
			Text:        track.Description,
		})
	}

	if art, mimeType, err := t.fetchArtwork(ctx, track); err == nil && len(art) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    mimeType,
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     art,
		})
	} else if err != nil {
		logger.WithComponent("tags").Debugf("no cover art for %d: %v", track.ID, err)
	}

	return tag.Save()
}
