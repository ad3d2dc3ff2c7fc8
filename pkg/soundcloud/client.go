package soundcloud

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const defaultBaseURL = "https://api-v2.soundcloud.com"

// Client talks to the soundcloud api-v2 endpoints. Every request carries the
// client_id query param, authorized requests add an OAuth header.
type Client struct {
	api       *http.Client
	baseURL   string
	clientID  string
	authToken string
}

func New(clientID, authToken string) *Client {
	return &Client{
		api:       http.DefaultClient,
		baseURL:   defaultBaseURL,
		clientID:  clientID,
		authToken: authToken,
	}
}

// AuthToken returns the configured OAuth token, if any.
func (c *Client) AuthToken() string {
	return c.authToken
}

func (c *Client) get(path string, params url.Values, v any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("client_id", c.clientID)
	return c.getAbs(c.baseURL+path+"?"+params.Encode(), v)
}

// getAbs fetches an absolute URL (used to follow next_href pagination links).
func (c *Client) getAbs(fullURL string, v any) error {
	req, err := http.NewRequest("GET", fullURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "OAuth "+c.authToken)
	}
	resp, err := c.api.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("soundcloud: unauthorized (check client_id / auth_token)")
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("soundcloud: not found")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("soundcloud: unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// ValidClientID probes the API with a cheap request to verify the client_id.
func (c *Client) ValidClientID() bool {
	var out struct {
		Collection []json.RawMessage `json:"collection"`
	}
	params := url.Values{}
	params.Set("q", "test")
	params.Set("limit", "1")
	return c.get("/search/tracks", params, &out) == nil
}

// Resolve identifies what a soundcloud URL denotes: a track, a playlist
// (or album) or a user profile.
func (c *Client) Resolve(trackURL string) (*Resource, error) {
	params := url.Values{}
	params.Set("url", trackURL)
	var raw json.RawMessage
	if err := c.get("/resolve", params, &raw); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", trackURL, err)
	}
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	res := &Resource{Kind: probe.Kind}
	switch probe.Kind {
	case KindTrack:
		res.Track = &Track{}
		return res, json.Unmarshal(raw, res.Track)
	case KindPlaylist:
		res.Playlist = &Playlist{}
		return res, json.Unmarshal(raw, res.Playlist)
	case KindUser:
		res.User = &User{}
		return res, json.Unmarshal(raw, res.User)
	default:
		return nil, fmt.Errorf("resolve %s: unknown resource kind %q", trackURL, probe.Kind)
	}
}

func (c *Client) GetTrack(id int64) (*Track, error) {
	var track Track
	if err := c.get(fmt.Sprintf("/tracks/%d", id), nil, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// GetTracks batch-fetches full tracks for playlist stubs.
func (c *Client) GetTracks(ids []int64) ([]Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = strconv.FormatInt(id, 10)
	}
	params := url.Values{}
	params.Set("ids", strings.Join(strIDs, ","))
	var tracks []Track
	if err := c.get("/tracks", params, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

func (c *Client) GetPlaylist(id int64) (*Playlist, error) {
	var playlist Playlist
	if err := c.get(fmt.Sprintf("/playlists/%d", id), nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

func (c *Client) SearchTracks(query string, limit int) ([]Track, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	var out struct {
		Collection []Track `json:"collection"`
	}
	if err := c.get("/search/tracks", params, &out); err != nil {
		return nil, err
	}
	return out.Collection, nil
}

// collect follows next_href pagination until limit items were gathered or
// the feed ends. fetchPage decodes one page and returns how many items it
// held plus the next page URL.
func (c *Client) collect(firstPath string, limit int, fetchPage func(fullURL string) (int, string, error)) error {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("client_id", c.clientID)
	next := c.baseURL + firstPath + "?" + params.Encode()
	total := 0
	for next != "" && total < limit {
		n, nextHref, err := fetchPage(next)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		total += n
		if nextHref == "" {
			return nil
		}
		u, err := url.Parse(nextHref)
		if err != nil {
			return err
		}
		q := u.Query()
		q.Set("client_id", c.clientID)
		u.RawQuery = q.Encode()
		next = u.String()
	}
	return nil
}

func (c *Client) GetUserLikes(userID int64, limit int) ([]LikeItem, error) {
	var items []LikeItem
	err := c.collect(fmt.Sprintf("/users/%d/likes", userID), limit, func(fullURL string) (int, string, error) {
		var page struct {
			Collection []LikeItem `json:"collection"`
			NextHref   string     `json:"next_href"`
		}
		if err := c.getAbs(fullURL, &page); err != nil {
			return 0, "", err
		}
		items = append(items, page.Collection...)
		return len(page.Collection), page.NextHref, nil
	})
	return items, err
}

func (c *Client) GetUserTracks(userID int64, limit int) ([]Track, error) {
	var items []Track
	err := c.collect(fmt.Sprintf("/users/%d/tracks", userID), limit, func(fullURL string) (int, string, error) {
		var page struct {
			Collection []Track `json:"collection"`
			NextHref   string  `json:"next_href"`
		}
		if err := c.getAbs(fullURL, &page); err != nil {
			return 0, "", err
		}
		items = append(items, page.Collection...)
		return len(page.Collection), page.NextHref, nil
	})
	return items, err
}

func (c *Client) GetUserPlaylists(userID int64, limit int) ([]Playlist, error) {
	var items []Playlist
	err := c.collect(fmt.Sprintf("/users/%d/playlists", userID), limit, func(fullURL string) (int, string, error) {
		var page struct {
			Collection []Playlist `json:"collection"`
			NextHref   string     `json:"next_href"`
		}
		if err := c.getAbs(fullURL, &page); err != nil {
			return 0, "", err
		}
		items = append(items, page.Collection...)
		return len(page.Collection), page.NextHref, nil
	})
	return items, err
}

// GetUserStream returns a user's uploads and reposts, newest first.
func (c *Client) GetUserStream(userID int64, limit int) ([]StreamItem, error) {
	return c.streamItems(fmt.Sprintf("/stream/users/%d", userID), limit)
}

// GetUserReposts returns only the reposts of a user.
func (c *Client) GetUserReposts(userID int64, limit int) ([]StreamItem, error) {
	return c.streamItems(fmt.Sprintf("/stream/users/%d/reposts", userID), limit)
}

func (c *Client) streamItems(path string, limit int) ([]StreamItem, error) {
	var items []StreamItem
	err := c.collect(path, limit, func(fullURL string) (int, string, error) {
		var page struct {
			Collection []StreamItem `json:"collection"`
			NextHref   string       `json:"next_href"`
		}
		if err := c.getAbs(fullURL, &page); err != nil {
			return 0, "", err
		}
		items = append(items, page.Collection...)
		return len(page.Collection), page.NextHref, nil
	})
	return items, err
}

// OriginalDownloadURL returns the direct URL for a track's original upload,
// or "" when the track has no download available.
func (c *Client) OriginalDownloadURL(trackID int64) (string, error) {
	var out struct {
		RedirectURI string `json:"redirectUri"`
	}
	if err := c.get(fmt.Sprintf("/tracks/%d/download", trackID), nil, &out); err != nil {
		return "", err
	}
	return out.RedirectURI, nil
}

// StreamURL dereferences a transcoding into a fetchable URL: a progressive
// mp3/m4a URL or an HLS m3u8 playlist URL.
func (c *Client) StreamURL(tc *Transcoding) (string, error) {
	if tc == nil {
		return "", fmt.Errorf("no matching transcoding")
	}
	var out struct {
		URL string `json:"url"`
	}
	u, err := url.Parse(tc.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", c.clientID)
	u.RawQuery = q.Encode()
	if err := c.getAbs(u.String(), &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("transcoding returned no stream url")
	}
	return out.URL, nil
}
