package services

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/scget/scget/pkg/data"
	"github.com/scget/scget/pkg/logger"
	"github.com/scget/scget/pkg/platform"
	"github.com/scget/scget/pkg/soundcloud"
)

// Progress statuses.
const (
	StatusResolving   = "resolving"
	StatusDownloading = "downloading"
	StatusConverting  = "converting"
	StatusTagging     = "tagging"
	StatusComplete    = "complete"
	StatusSkipped     = "skipped"
	StatusError       = "error"
)

// Progress represents the state of one track within a download run.
type Progress struct {
	TrackID  int64
	Title    string
	Index    int
	Total    int
	Received int64
	Size     int64 // -1 if unknown
	Status   string
	Message  string
	Error    error
}

// UserSelection picks which of a user's collections to download.
type UserSelection string

const (
	SelectNone      UserSelection = ""
	SelectLikes     UserSelection = "likes"
	SelectTracks    UserSelection = "tracks"
	SelectPlaylists UserSelection = "playlists"
	SelectReposts   UserSelection = "reposts"
	SelectAll       UserSelection = "all"
)

// Options is the per-run download configuration.
type Options struct {
	Path             string
	Continue         bool // skip tracks whose file already exists
	Overwrite        bool // replace existing files
	Offset           int  // 1-based playlist offset
	MaxTracks        int  // 0 = all; otherwise the n most recent tracks
	NoPlaylistFolder bool
	MinSize          int64
	MaxSize          int64

	NameFormat         string
	PlaylistNameFormat string
	AddToFile          bool
	AddTimestamp       bool
	OriginalName       bool

	OnlyMP3       bool
	NoOriginal    bool
	OnlyOriginal  bool
	OriginalArt   bool
	ExtractArtist bool
	NoAlbumTag    bool
	ForceMetadata bool
	Flac          bool
	Remove        bool

	MaxConcurrent int
	UserSelection UserSelection
	UserLimit     int
}

// Result summarizes a download run.
type Result struct {
	Total      int
	Downloaded int
	Skipped    int
	Errors     []error
}

// PlaylistInfo carries playlist context into filenames and tags.
type PlaylistInfo struct {
	Title       string
	Author      string
	TrackNumber string
}

// Source is the soundcloud surface the downloader needs.
type Source interface {
	Resolve(url string) (*soundcloud.Resource, error)
	GetTrack(id int64) (*soundcloud.Track, error)
	GetTracks(ids []int64) ([]soundcloud.Track, error)
	GetPlaylist(id int64) (*soundcloud.Playlist, error)
	GetUserLikes(userID int64, limit int) ([]soundcloud.LikeItem, error)
	GetUserTracks(userID int64, limit int) ([]soundcloud.Track, error)
	GetUserPlaylists(userID int64, limit int) ([]soundcloud.Playlist, error)
	GetUserStream(userID int64, limit int) ([]soundcloud.StreamItem, error)
	GetUserReposts(userID int64, limit int) ([]soundcloud.StreamItem, error)
	OriginalDownloadURL(trackID int64) (string, error)
	StreamURL(tc *soundcloud.Transcoding) (string, error)
}

// Archive records finished downloads and answers skip checks.
type Archive interface {
	Record(d *data.Download) error
	Contains(trackID int64) (bool, error)
}

// Tagger writes metadata onto a placed file.
type Tagger interface {
	Tag(ctx context.Context, path string, track *soundcloud.Track, info *PlaylistInfo) error
}

// Downloader turns one soundcloud URL into files on disk: resolve the URL,
// expand it to a track list, fetch each track resumably, place it atomically
// and record it in the archive.
type Downloader struct {
	source  Source
	archive Archive // nil disables archive checks and recording
	tagger  Tagger  // nil disables tagging
	fetcher *Fetcher
	ffmpeg  *FFmpeg
	opts    Options

	rateLimiter  *time.Ticker
	progressChan chan Progress

	mu   sync.Mutex
	keep map[string]struct{} // files produced by this run, for --remove
}

// NewDownloader creates a Downloader. archive and tagger may be nil.
func NewDownloader(source Source, archive Archive, tagger Tagger, opts Options) *Downloader {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.UserLimit < 1 {
		opts.UserLimit = 1000
	}
	if opts.Path == "" {
		opts.Path = "."
	}
	return &Downloader{
		source:       source,
		archive:      archive,
		tagger:       tagger,
		fetcher:      NewFetcher(http.DefaultClient),
		ffmpeg:       NewFFmpeg(),
		opts:         opts,
		rateLimiter:  time.NewTicker(500 * time.Millisecond), // 2 req/sec
		progressChan: make(chan Progress, 100),
		keep:         make(map[string]struct{}),
	}
}

// GetProgressChannel returns the channel for receiving progress updates.
func (d *Downloader) GetProgressChannel() <-chan Progress {
	return d.progressChan
}

// Close releases the rate limiter and progress channel.
func (d *Downloader) Close() {
	d.rateLimiter.Stop()
	close(d.progressChan)
}

type job struct {
	track    soundcloud.Track
	playlist *soundcloud.Playlist
	info     *PlaylistInfo
	index    int
}

// Run downloads everything url denotes. Individual track failures are
// collected into the Result; Run itself fails only when nothing could even
// be attempted.
func (d *Downloader) Run(ctx context.Context, url string) (*Result, error) {
	d.sendProgress(Progress{Status: StatusResolving, Message: url})

	resource, err := d.source.Resolve(url)
	if err != nil {
		return nil, err
	}

	jobs, err := d.expand(resource)
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(jobs)}
	var resultMu sync.Mutex

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, d.opts.MaxConcurrent)

	for i := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			skipped, err := d.downloadTrack(ctx, j, len(jobs))
			resultMu.Lock()
			defer resultMu.Unlock()
			switch {
			case err != nil:
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", j.track.Title, err))
			case skipped:
				result.Skipped++
			default:
				result.Downloaded++
			}
		}(jobs[i])
	}
	wg.Wait()

	if d.opts.Remove {
		if err := d.removeStale(); err != nil {
			result.Errors = append(result.Errors, err)
		}
	}
	return result, nil
}

// expand turns a resolved resource into the flat list of track jobs.
func (d *Downloader) expand(resource *soundcloud.Resource) ([]job, error) {
	switch resource.Kind {
	case soundcloud.KindTrack:
		return []job{{track: *resource.Track}}, nil
	case soundcloud.KindPlaylist:
		return d.expandPlaylist(resource.Playlist)
	case soundcloud.KindUser:
		return d.expandUser(resource.User)
	default:
		return nil, fmt.Errorf("unknown resource kind %q", resource.Kind)
	}
}

func (d *Downloader) expandPlaylist(playlist *soundcloud.Playlist) ([]job, error) {
	tracks, err := d.fillStubs(playlist.Tracks)
	if err != nil {
		return nil, err
	}

	offset := 1
	if d.opts.MaxTracks > 0 {
		// The n most recent tracks by creation date.
		sort.Slice(tracks, func(i, j int) bool {
			return tracks[i].CreatedAt.After(tracks[j].CreatedAt)
		})
		if len(tracks) > d.opts.MaxTracks {
			tracks = tracks[:d.opts.MaxTracks]
		}
	} else if d.opts.Offset > 1 {
		offset = d.opts.Offset
		if offset-1 >= len(tracks) {
			return nil, fmt.Errorf("offset %d is beyond the %d tracks of %q", offset, len(tracks), playlist.Title)
		}
		tracks = tracks[offset-1:]
	}

	digits := len(strconv.Itoa(len(playlist.Tracks)))
	jobs := make([]job, len(tracks))
	for i := range tracks {
		number := strconv.Itoa(offset + i)
		for len(number) < digits {
			number = "0" + number
		}
		jobs[i] = job{
			track:    tracks[i],
			playlist: playlist,
			index:    i,
			info: &PlaylistInfo{
				Title:       playlist.Title,
				Author:      playlist.User.Username,
				TrackNumber: number,
			},
		}
	}
	return jobs, nil
}

func (d *Downloader) expandUser(user *soundcloud.User) ([]job, error) {
	log := logger.WithComponent("downloader")
	var jobs []job

	appendPlaylist := func(p soundcloud.Playlist) error {
		if len(p.Tracks) < p.TrackCount {
			// Collection feeds truncate playlist tracks; refetch in full.
			full, err := d.source.GetPlaylist(p.ID)
			if err != nil {
				return err
			}
			p = *full
		}
		expanded, err := d.expandPlaylist(&p)
		if err != nil {
			return err
		}
		jobs = append(jobs, expanded...)
		return nil
	}

	switch d.opts.UserSelection {
	case SelectLikes:
		log.Infof("retrieving likes of %s", user.Username)
		likes, err := d.source.GetUserLikes(user.ID, d.opts.UserLimit)
		if err != nil {
			return nil, err
		}
		for _, like := range likes {
			switch {
			case like.Track != nil:
				jobs = append(jobs, job{track: *like.Track})
			case like.Playlist != nil:
				if err := appendPlaylist(*like.Playlist); err != nil {
					return nil, err
				}
			}
		}
	case SelectTracks:
		log.Infof("retrieving tracks of %s", user.Username)
		tracks, err := d.source.GetUserTracks(user.ID, d.opts.UserLimit)
		if err != nil {
			return nil, err
		}
		for _, t := range tracks {
			jobs = append(jobs, job{track: t})
		}
	case SelectPlaylists:
		log.Infof("retrieving playlists of %s", user.Username)
		playlists, err := d.source.GetUserPlaylists(user.ID, d.opts.UserLimit)
		if err != nil {
			return nil, err
		}
		for _, p := range playlists {
			if err := appendPlaylist(p); err != nil {
				return nil, err
			}
		}
	case SelectReposts, SelectAll:
		var items []soundcloud.StreamItem
		var err error
		if d.opts.UserSelection == SelectReposts {
			log.Infof("retrieving reposts of %s", user.Username)
			items, err = d.source.GetUserReposts(user.ID, d.opts.UserLimit)
		} else {
			log.Infof("retrieving tracks and reposts of %s", user.Username)
			items, err = d.source.GetUserStream(user.ID, d.opts.UserLimit)
		}
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			switch {
			case item.Track != nil:
				jobs = append(jobs, job{track: *item.Track})
			case item.Playlist != nil:
				if err := appendPlaylist(*item.Playlist); err != nil {
					return nil, err
				}
			}
		}
	default:
		return nil, fmt.Errorf("%s is a user profile: pick one of --likes, --tracks, --playlists, --reposts or --all", user.Username)
	}
	// Number the jobs across the whole collection for i/N progress lines.
	for i := range jobs {
		jobs[i].index = i
	}
	return jobs, nil
}

// fillStubs fetches full track objects for playlist entries that only carry
// an id, in batches of 50 like the api expects.
func (d *Downloader) fillStubs(tracks []soundcloud.Track) ([]soundcloud.Track, error) {
	var stubIDs []int64
	for i := range tracks {
		if tracks[i].IsStub() {
			stubIDs = append(stubIDs, tracks[i].ID)
		}
	}
	if len(stubIDs) == 0 {
		return tracks, nil
	}

	full := make(map[int64]soundcloud.Track, len(stubIDs))
	for start := 0; start < len(stubIDs); start += 50 {
		end := start + 50
		if end > len(stubIDs) {
			end = len(stubIDs)
		}
		batch, err := d.source.GetTracks(stubIDs[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to fetch playlist tracks: %w", err)
		}
		for _, t := range batch {
			full[t.ID] = t
		}
	}

	out := make([]soundcloud.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.IsStub() {
			ft, ok := full[t.ID]
			if !ok {
				continue // removed or private track
			}
			t = ft
		}
		out = append(out, t)
	}
	return out, nil
}

// downloadTrack runs the full pipeline for one track: filters, skip checks,
// fetch, place, convert, tag, archive.
func (d *Downloader) downloadTrack(ctx context.Context, j job, total int) (skipped bool, err error) {
	<-d.rateLimiter.C

	track := j.track
	if track.IsStub() {
		fetched, err := d.source.GetTrack(track.ID)
		if err != nil {
			return false, fmt.Errorf("failed to fetch track %d: %w", track.ID, err)
		}
		track = *fetched
	}

	report := func(p Progress) {
		p.TrackID = track.ID
		p.Title = track.Title
		p.Index = j.index + 1
		p.Total = total
		d.sendProgress(p)
	}

	if !track.Streamable {
		report(Progress{Status: StatusSkipped, Message: "not streamable"})
		return true, nil
	}
	if track.Policy == soundcloud.PolicyBlock {
		report(Progress{Status: StatusSkipped, Message: "not available in your location"})
		return true, nil
	}

	if d.archive != nil && !d.opts.ForceMetadata {
		archived, err := d.archive.Contains(track.ID)
		if err != nil {
			return false, fmt.Errorf("archive check: %w", err)
		}
		if archived {
			report(Progress{Status: StatusSkipped, Message: "already in archive"})
			return true, nil
		}
	}

	destDir := d.opts.Path
	if j.playlist != nil && !d.opts.NoPlaylistFolder {
		destDir = filepath.Join(destDir, platform.SanitizeFilename(j.playlist.Title))
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return false, err
	}

	var finalPath string
	var fileSkipped bool
	if d.wantOriginal(&track) {
		finalPath, fileSkipped, err = d.downloadOriginal(ctx, &track, j.info, destDir, report)
		if err != nil {
			return false, err
		}
	}
	if finalPath == "" && !fileSkipped {
		if d.opts.OnlyOriginal {
			report(Progress{Status: StatusSkipped, Message: "no original file available"})
			return true, nil
		}
		finalPath, fileSkipped, err = d.downloadStream(ctx, &track, j.info, destDir, report)
		if err != nil {
			return false, err
		}
	}

	if fileSkipped {
		if finalPath == "" {
			// Filtered out; the skip was already reported where it was decided.
			return true, nil
		}
		d.markKept(finalPath)
		if !d.opts.ForceMetadata {
			report(Progress{Status: StatusSkipped, Message: "file already exists"})
			return true, nil
		}
	}
	if finalPath == "" {
		return true, nil
	}

	if d.opts.Flac && CanConvertToFlac(finalPath) {
		report(Progress{Status: StatusConverting})
		finalPath, err = d.ffmpeg.ConvertToFlac(ctx, finalPath)
		if err != nil {
			return false, fmt.Errorf("flac conversion: %w", err)
		}
	}

	if d.tagger != nil && isTaggable(finalPath) {
		report(Progress{Status: StatusTagging})
		if err := d.tagger.Tag(ctx, finalPath, &track, j.info); err != nil {
			// Tagging failure leaves a playable file; log and move on.
			logger.WithComponent("downloader").Warnf("failed to tag %s: %v", finalPath, err)
		}
	}

	if !track.CreatedAt.IsZero() {
		if err := platform.Utime(finalPath, track.CreatedAt); err != nil {
			logger.WithComponent("downloader").Debugf("cannot update mtime of %s: %v", finalPath, err)
		}
	}

	d.markKept(finalPath)

	if d.archive != nil {
		fi, _ := os.Stat(finalPath)
		var size int64
		if fi != nil {
			size = fi.Size()
		}
		playlistTitle := ""
		if j.playlist != nil {
			playlistTitle = j.playlist.Title
		}
		record := &data.Download{
			TrackID:  track.ID,
			Title:    track.Title,
			Artist:   track.User.Username,
			URL:      track.PermalinkURL,
			Filename: finalPath,
			Playlist: playlistTitle,
			Size:     size,
		}
		if err := d.archive.Record(record); err != nil {
			return false, fmt.Errorf("archive record: %w", err)
		}
	}

	report(Progress{Status: StatusComplete, Message: finalPath})
	return false, nil
}

func (d *Downloader) wantOriginal(track *soundcloud.Track) bool {
	return track.Downloadable && track.HasDownloadsLeft &&
		!d.opts.OnlyMP3 && !d.opts.NoOriginal
}

// downloadOriginal fetches the uploader's original file. Returns "" with no
// error when the download link is gone, so the caller falls back to streams.
func (d *Downloader) downloadOriginal(ctx context.Context, track *soundcloud.Track, info *PlaylistInfo, destDir string, report func(Progress)) (string, bool, error) {
	url, err := d.source.OriginalDownloadURL(track.ID)
	if err != nil || url == "" {
		logger.WithComponent("downloader").Debugf("no original download for %d: %v", track.ID, err)
		return "", false, nil
	}

	probe, err := d.fetcher.Probe(ctx, url)
	if err != nil {
		logger.WithComponent("downloader").Debugf("cannot probe original of %d: %v", track.ID, err)
		return "", false, nil
	}

	originalName := probe.Filename
	ext := filepath.Ext(originalName)
	if probe.Ext != "" {
		ext = probe.Ext
	}

	filename := d.trackFilename(track, info, ext, originalName)
	dest := filepath.Join(destDir, filename)

	if skip, err := d.checkExisting(dest); skip || err != nil {
		return dest, skip, err
	}
	if msg := d.sizeFilter(probe.Size); msg != "" {
		report(Progress{Status: StatusSkipped, Message: msg})
		return "", true, nil
	}

	report(Progress{Status: StatusDownloading, Size: probe.Size})
	final, err := d.fetcher.Fetch(ctx, url, dest, func(received, size int64) {
		report(Progress{Status: StatusDownloading, Received: received, Size: size})
	})
	if err != nil {
		return "", false, err
	}
	return final, false, nil
}

// downloadStream fetches a transcoded stream: the progressive rendition when
// one exists (resumable), otherwise HLS remuxed through ffmpeg.
func (d *Downloader) downloadStream(ctx context.Context, track *soundcloud.Track, info *PlaylistInfo, destDir string, report func(Progress)) (string, bool, error) {
	var tc *soundcloud.Transcoding
	ext := ".mp3"

	if !d.opts.OnlyMP3 {
		if aac := track.Transcoding(soundcloud.ProtocolHLS, "audio/mp4"); aac != nil {
			tc, ext = aac, ".m4a"
		}
	}
	progressive := track.Transcoding(soundcloud.ProtocolProgressive, "")
	if tc == nil {
		if progressive != nil {
			tc = progressive
		} else {
			tc = track.Transcoding(soundcloud.ProtocolHLS, "audio/mpeg")
		}
	}
	if tc == nil {
		return "", false, fmt.Errorf("no usable transcoding")
	}

	filename := d.trackFilename(track, info, ext, "")
	dest := filepath.Join(destDir, filename)

	if skip, err := d.checkExisting(dest); skip || err != nil {
		return dest, skip, err
	}

	streamURL, err := d.source.StreamURL(tc)
	if err != nil {
		return "", false, err
	}

	if tc.Format.Protocol == soundcloud.ProtocolProgressive {
		probe, err := d.fetcher.Probe(ctx, streamURL)
		if err == nil {
			if msg := d.sizeFilter(probe.Size); msg != "" {
				report(Progress{Status: StatusSkipped, Message: msg})
				return "", true, nil
			}
		}
		report(Progress{Status: StatusDownloading})
		final, err := d.fetcher.Fetch(ctx, streamURL, dest, func(received, size int64) {
			report(Progress{Status: StatusDownloading, Received: received, Size: size})
		})
		if err != nil {
			return "", false, err
		}
		return final, false, nil
	}

	if !d.ffmpeg.Available() {
		return "", false, fmt.Errorf("ffmpeg is required for HLS downloads but was not found on PATH")
	}
	report(Progress{Status: StatusDownloading, Size: -1})
	final, err := d.ffmpeg.RemuxHLS(ctx, streamURL, dest)
	if err != nil {
		return "", false, err
	}
	return final, false, nil
}

// checkExisting applies the collision policy to an existing destination:
// overwrite removes it, continue skips the track, otherwise the run aborts
// with a hint (matching the cautious default of the original tool).
func (d *Downloader) checkExisting(dest string) (skip bool, err error) {
	if _, statErr := os.Stat(dest); statErr != nil {
		return false, nil
	}
	switch {
	case d.opts.Overwrite:
		return false, os.Remove(dest)
	case d.opts.Continue || d.opts.Remove || d.opts.ForceMetadata:
		return true, nil
	default:
		return false, fmt.Errorf("%s already exists (use --continue to skip or --overwrite to replace)", filepath.Base(dest))
	}
}

func (d *Downloader) sizeFilter(size int64) string {
	if size < 0 {
		return ""
	}
	if d.opts.MinSize > 0 && size < d.opts.MinSize {
		return fmt.Sprintf("smaller than %d bytes", d.opts.MinSize)
	}
	if d.opts.MaxSize > 0 && size > d.opts.MaxSize {
		return fmt.Sprintf("larger than %d bytes", d.opts.MaxSize)
	}
	return ""
}

// trackFilename builds the sanitized destination filename for a track,
// honoring the template and prefix options.
func (d *Downloader) trackFilename(track *soundcloud.Track, info *PlaylistInfo, ext, originalName string) string {
	if d.opts.OriginalName && originalName != "" {
		return platform.TruncateFilename(platform.SanitizeFilename(originalName))
	}

	title := track.Title
	username := track.User.Username
	timestamp := track.CreatedAt.Unix()

	switch {
	case d.opts.AddToFile || d.opts.AddTimestamp:
		if d.opts.AddToFile && !strings.Contains(title, username) && !strings.Contains(title, "-") {
			title = username + " - " + title
		}
		if d.opts.AddTimestamp {
			title = strconv.FormatInt(timestamp, 10) + "_" + title
		}
	default:
		format := d.opts.NameFormat
		fields := platform.NameFields{
			Title:     track.Title,
			User:      username,
			ID:        track.ID,
			Timestamp: timestamp,
		}
		if info != nil {
			format = d.opts.PlaylistNameFormat
			fields.Playlist = info.Title
			fields.TrackNumber = info.TrackNumber
		}
		if format != "" {
			title = platform.FormatName(format, fields)
		}
	}

	return platform.TruncateFilename(platform.SanitizeFilename(title) + strings.ToLower(ext))
}

func isTaggable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".m4a", ".flac":
		return true
	}
	return false
}

func (d *Downloader) markKept(path string) {
	if path == "" {
		return
	}
	d.mu.Lock()
	d.keep[filepath.Clean(path)] = struct{}{}
	d.mu.Unlock()
}

// removeStale deletes files directly under the download path that this run
// did not produce or skip-keep. Subdirectories are left alone.
func (d *Downloader) removeStale() error {
	entries, err := os.ReadDir(d.opts.Path)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		full := filepath.Clean(filepath.Join(d.opts.Path, entry.Name()))
		if _, ok := d.keep[full]; ok {
			continue
		}
		logger.WithComponent("downloader").Infof("removing %s", full)
		if err := os.Remove(full); err != nil {
			return err
		}
	}
	return nil
}

// sendProgress sends a progress update (non-blocking).
func (d *Downloader) sendProgress(progress Progress) {
	select {
	case d.progressChan <- progress:
	default:
		// Channel full, skip this update
	}
}
