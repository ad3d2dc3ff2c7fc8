package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// rangeServer serves content honoring byte-range requests, the way a CDN does.
func rangeServer(content string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "track.mp3", modTime, strings.NewReader(content))
	}))
}

var modTime = time.Unix(1700000000, 0)

func TestFetch(t *testing.T) {
	content := strings.Repeat("abcdefgh", 1024)
	srv := rangeServer(content)
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "track.mp3")

	var lastReceived, lastTotal int64
	f := NewFetcher(srv.Client())
	got, err := f.Fetch(context.Background(), srv.URL, dest, func(received, total int64) {
		lastReceived, lastTotal = received, total
	})
	assert.NoError(t, err)
	assert.Equal(t, dest, got)

	data, err := os.ReadFile(dest)
	assert.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.Equal(t, int64(len(content)), lastReceived)
	assert.Equal(t, int64(len(content)), lastTotal)

	// Staging file is gone after placement
	_, err = os.Stat(dest + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestFetchResume(t *testing.T) {
	content := strings.Repeat("0123456789", 1000)
	var sawRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawRange = r.Header.Get("Range")
		http.ServeContent(w, r, "track.mp3", modTime, strings.NewReader(content))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "track.mp3")

	// A previous run left the first 4000 bytes behind.
	if err := os.WriteFile(dest+".part", []byte(content[:4000]), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(srv.Client())
	got, err := f.Fetch(context.Background(), srv.URL, dest, nil)
	assert.NoError(t, err)
	assert.Equal(t, dest, got)
	assert.Equal(t, "bytes=4000-", sawRange)

	data, err := os.ReadFile(dest)
	assert.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestFetchServerIgnoresRange(t *testing.T) {
	content := "full body every time"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No range support: always 200 with the whole body.
		fmt.Fprint(w, content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(dest+".part", []byte("stale partial data"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(srv.Client())
	_, err := f.Fetch(context.Background(), srv.URL, dest, nil)
	assert.NoError(t, err)

	data, err := os.ReadFile(dest)
	assert.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestFetchRangeNotSatisfiable(t *testing.T) {
	content := "short"
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("Range") != "" {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		fmt.Fprint(w, content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(dest+".part", []byte("way too much stale data here"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(srv.Client())
	_, err := f.Fetch(context.Background(), srv.URL, dest, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, requests)

	data, err := os.ReadFile(dest)
	assert.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestFetchPrematureClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte(strings.Repeat("x", 400)))
		w.(http.Flusher).Flush()
		// Drop the connection mid-body.
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, _ := hj.Hijack()
			conn.Close()
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "track.mp3")

	f := NewFetcher(srv.Client())
	_, err := f.Fetch(context.Background(), srv.URL, dest, nil)
	assert.Error(t, err)

	// Destination was never created; staging file keeps what arrived.
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	fi, statErr := os.Stat(dest + ".part")
	assert.NoError(t, statErr)
	assert.Equal(t, int64(400), fi.Size())
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	_, err := f.Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x.mp3"), nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestFetchDestCollision(t *testing.T) {
	srv := rangeServer("new content")
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(dest, []byte("existing file"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(srv.Client())
	got, err := f.Fetch(context.Background(), srv.URL, dest, nil)
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "track (1).mp3"), got)

	// Existing file untouched
	data, _ := os.ReadFile(dest)
	assert.Equal(t, "existing file", string(data))
	data, _ = os.ReadFile(got)
	assert.Equal(t, "new content", string(data))
}

func TestProbe(t *testing.T) {
	content := strings.Repeat("z", 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="My Song.wav"`)
		w.Header().Set("Content-Type", "audio/mpeg")
		http.ServeContent(w, r, "", modTime, strings.NewReader(content))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	res, err := f.Probe(context.Background(), srv.URL)
	assert.NoError(t, err)
	assert.Equal(t, "My Song.wav", res.Filename)
	assert.Equal(t, int64(5000), res.Size)
	assert.True(t, res.AcceptRanges)
}

func TestProbeNoRangeSupport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "12")
		fmt.Fprint(w, "hello world!")
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	res, err := f.Probe(context.Background(), srv.URL)
	assert.NoError(t, err)
	assert.Equal(t, "", res.Filename)
	assert.Equal(t, int64(12), res.Size)
	assert.False(t, res.AcceptRanges)
}
