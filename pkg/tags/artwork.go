package tags

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"github.com/scget/scget/pkg/soundcloud"
	"golang.org/x/image/draw"
)

// maxArtDim caps embedded cover art; original uploads can be huge.
const maxArtDim = 800

// artworkURL picks the best artwork source for a track. The api hands out
// "-large" (100x100) URLs; swapping the suffix selects other renditions.
func (t *Tagger) artworkURL(track *soundcloud.Track) []string {
	base := track.ArtworkURL
	if base == "" {
		base = track.User.AvatarURL
	}
	if base == "" {
		return nil
	}
	var candidates []string
	if t.opts.OriginalArt {
		candidates = append(candidates, strings.Replace(base, "large", "original", 1))
	}
	return append(candidates, strings.Replace(base, "large", "t500x500", 1))
}

// fetchArtwork downloads the track artwork (falling back to the uploader's
// avatar) scaled down to at most maxArtDim pixels on the long edge.
func (t *Tagger) fetchArtwork(ctx context.Context, track *soundcloud.Track) ([]byte, string, error) {
	candidates := t.artworkURL(track)
	if len(candidates) == 0 {
		return nil, "", fmt.Errorf("track has no artwork")
	}

	var lastErr error
	for _, url := range candidates {
		art, mimeType, err := t.fetchImage(ctx, url)
		if err == nil {
			return art, mimeType, nil
		}
		lastErr = err
	}
	return nil, "", lastErr
}

func (t *Tagger) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("artwork: unexpected status %s", resp.Status)
	}
	contentType := resp.Header.Get("Content-Type")
	switch contentType {
	case "image/png", "image/jpeg", "image/jpg":
	default:
		return nil, "", fmt.Errorf("artwork: unsupported content type %q", contentType)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, "", err
	}
	return scaleArtwork(raw, contentType)
}

// scaleArtwork re-encodes oversized images to a jpeg bounded by maxArtDim.
// Images already within bounds pass through untouched.
func scaleArtwork(raw []byte, contentType string) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		// Not decodable but the server said it is an image; embed as-is.
		return raw, contentType, nil
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxArtDim && h <= maxArtDim {
		return raw, contentType, nil
	}

	scale := float64(maxArtDim) / float64(w)
	if h > w {
		scale = float64(maxArtDim) / float64(h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return raw, contentType, nil
	}
	return buf.Bytes(), "image/jpeg", nil
}
