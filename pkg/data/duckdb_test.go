package data

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestRepo(t *testing.T) (*Repository, func()) {
	repo, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Failed to open test archive: %v", err)
	}
	return repo, func() { repo.Close() }
}

func sampleDownload(id int64) *Download {
	return &Download{
		TrackID:  id,
		Title:    "Test Track",
		Artist:   "Test Artist",
		URL:      "https://soundcloud.com/test-artist/test-track",
		Filename: "/music/test artist - test track.mp3",
		Size:     4 << 20,
	}
}

func TestRecordAndGet(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	d := sampleDownload(100)
	if err := repo.Record(d); err != nil {
		t.Fatalf("Failed to record download: %v", err)
	}
	if d.DownloadedAt.IsZero() {
		t.Error("Expected Record to fill in DownloadedAt")
	}

	got, err := repo.Get(100)
	if err != nil {
		t.Fatalf("Failed to get download: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a download, got nil")
	}
	if got.Title != "Test Track" || got.Artist != "Test Artist" {
		t.Errorf("Got wrong record back: %+v", got)
	}
	if got.Size != 4<<20 {
		t.Errorf("Expected size %d, got %d", 4<<20, got.Size)
	}
}

func TestGetMissing(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	got, err := repo.Get(999)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing track, got %+v", got)
	}
}

func TestContains(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	ok, err := repo.Contains(100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ok {
		t.Error("Expected empty archive to not contain track 100")
	}

	if err := repo.Record(sampleDownload(100)); err != nil {
		t.Fatalf("Failed to record download: %v", err)
	}

	ok, err = repo.Contains(100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !ok {
		t.Error("Expected archive to contain track 100 after recording")
	}
}

func TestRecordUpsert(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	d := sampleDownload(100)
	if err := repo.Record(d); err != nil {
		t.Fatalf("Failed to record download: %v", err)
	}

	d.Title = "Renamed Track"
	d.Filename = "/music/renamed.mp3"
	if err := repo.Record(d); err != nil {
		t.Fatalf("Failed to re-record download: %v", err)
	}

	downloads, err := repo.List()
	if err != nil {
		t.Fatalf("Failed to list downloads: %v", err)
	}
	if len(downloads) != 1 {
		t.Fatalf("Expected 1 record after upsert, got %d", len(downloads))
	}
	if downloads[0].Title != "Renamed Track" {
		t.Errorf("Expected upserted title, got %q", downloads[0].Title)
	}
}

func TestListNewestFirst(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	old := sampleDownload(1)
	old.DownloadedAt = time.Now().Add(-time.Hour)
	recent := sampleDownload(2)
	recent.DownloadedAt = time.Now()

	if err := repo.Record(old); err != nil {
		t.Fatalf("Failed to record download: %v", err)
	}
	if err := repo.Record(recent); err != nil {
		t.Fatalf("Failed to record download: %v", err)
	}

	downloads, err := repo.List()
	if err != nil {
		t.Fatalf("Failed to list downloads: %v", err)
	}
	if len(downloads) != 2 {
		t.Fatalf("Expected 2 downloads, got %d", len(downloads))
	}
	if downloads[0].TrackID != 2 {
		t.Errorf("Expected newest download first, got track %d", downloads[0].TrackID)
	}
}

func TestDelete(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	if err := repo.Record(sampleDownload(100)); err != nil {
		t.Fatalf("Failed to record download: %v", err)
	}
	if err := repo.Delete(100); err != nil {
		t.Fatalf("Failed to delete download: %v", err)
	}

	ok, err := repo.Contains(100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ok {
		t.Error("Expected track to be gone after delete")
	}
}

func TestCountByPlaylist(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	for i, playlist := range []string{"Mix A", "Mix A", "Mix B", ""} {
		d := sampleDownload(int64(i + 1))
		d.Playlist = playlist
		if err := repo.Record(d); err != nil {
			t.Fatalf("Failed to record download: %v", err)
		}
	}

	counts, err := repo.CountByPlaylist()
	if err != nil {
		t.Fatalf("Failed to count by playlist: %v", err)
	}
	if counts["Mix A"] != 2 {
		t.Errorf("Expected 2 tracks in Mix A, got %d", counts["Mix A"])
	}
	if counts["Mix B"] != 1 {
		t.Errorf("Expected 1 track in Mix B, got %d", counts["Mix B"])
	}
	if counts[""] != 1 {
		t.Errorf("Expected 1 standalone track, got %d", counts[""])
	}
}

func TestOpenInMemory(t *testing.T) {
	repo, err := Open("")
	if err != nil {
		t.Fatalf("Failed to open in-memory archive: %v", err)
	}
	defer repo.Close()

	if err := repo.Record(sampleDownload(1)); err != nil {
		t.Fatalf("Failed to record download: %v", err)
	}
}
