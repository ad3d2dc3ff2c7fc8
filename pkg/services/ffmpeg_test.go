package services

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemuxHLSArgs(t *testing.T) {
	args := RemuxHLSArgs("https://cdn.example.com/playlist.m3u8", "/music/track.mp3")
	assert.Equal(t, []string{
		"-y", "-i", "https://cdn.example.com/playlist.m3u8",
		"-c", "copy", "/music/track.mp3", "-loglevel", "error",
	}, args)
}

func TestConvertArgs(t *testing.T) {
	args := ConvertArgs("/music/track.wav", "/music/track.flac")
	assert.Equal(t, []string{
		"-y", "-i", "/music/track.wav", "/music/track.flac", "-loglevel", "error",
	}, args)
}

func TestWriteTagsArgs(t *testing.T) {
	meta := map[string]string{
		"title":  "Night Drive",
		"artist": "Neon",
		"genre":  "",
		"date":   "2021",
	}
	args := WriteTagsArgs("in.m4a", "out.m4a", meta, tagKeyOrder)
	assert.Equal(t, []string{
		"-y", "-i", "in.m4a", "-c", "copy",
		"-metadata", "title=Night Drive",
		"-metadata", "artist=Neon",
		"-metadata", "date=2021",
		"out.m4a", "-loglevel", "error",
	}, args)
}

func TestCanConvertToFlac(t *testing.T) {
	assert.True(t, CanConvertToFlac("track.wav"))
	assert.True(t, CanConvertToFlac("track.WAV"))
	assert.True(t, CanConvertToFlac("track.aiff"))
	assert.True(t, CanConvertToFlac("track.aif"))
	assert.False(t, CanConvertToFlac("track.mp3"))
	assert.False(t, CanConvertToFlac("track.m4a"))
	assert.False(t, CanConvertToFlac("track.flac"))
}

func TestRemuxHLS(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "track.mp3")

	var gotArgs []string
	f := &FFmpeg{
		binary: "ffmpeg",
		run: func(cmd *exec.Cmd) error {
			gotArgs = cmd.Args[1:]
			// ffmpeg would write the staging file; fake it.
			return os.WriteFile(cmd.Args[len(cmd.Args)-3], []byte("audio"), 0o644)
		},
	}

	got, err := f.RemuxHLS(context.Background(), "https://cdn.example.com/p.m3u8", dest)
	assert.NoError(t, err)
	assert.Equal(t, dest, got)
	assert.Equal(t, filepath.Join(dir, "track.remux.mp3"), gotArgs[5]) // -y -i <url> -c copy <staging>

	data, err := os.ReadFile(dest)
	assert.NoError(t, err)
	assert.Equal(t, "audio", string(data))

	// Staging file is gone
	_, err = os.Stat(filepath.Join(dir, "track.remux.mp3"))
	assert.True(t, os.IsNotExist(err))
}

func TestRemuxHLSFailure(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "track.mp3")

	f := &FFmpeg{
		binary: "ffmpeg",
		run: func(cmd *exec.Cmd) error {
			cmd.Stderr.Write([]byte("Invalid data found when processing input"))
			return exec.ErrNotFound
		},
	}

	_, err := f.RemuxHLS(context.Background(), "https://cdn.example.com/p.m3u8", dest)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConvertToFlac(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "track.wav")
	if err := os.WriteFile(src, []byte("wav data"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &FFmpeg{
		binary: "ffmpeg",
		run: func(cmd *exec.Cmd) error {
			return os.WriteFile(cmd.Args[len(cmd.Args)-3], []byte("flac data"), 0o644)
		},
	}

	got, err := f.ConvertToFlac(context.Background(), src)
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "track.flac"), got)

	// Original removed, flac in place
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(got)
	assert.NoError(t, err)
	assert.Equal(t, "flac data", string(data))
}

func TestWriteTags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.m4a")
	if err := os.WriteFile(path, []byte("untagged"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &FFmpeg{
		binary: "ffmpeg",
		run: func(cmd *exec.Cmd) error {
			return os.WriteFile(cmd.Args[len(cmd.Args)-3], []byte("tagged"), 0o644)
		},
	}

	err := f.WriteTags(context.Background(), path, map[string]string{"title": "x"})
	assert.NoError(t, err)

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "tagged", string(data))

	_, err = os.Stat(filepath.Join(dir, "track.tagged.m4a"))
	assert.True(t, os.IsNotExist(err))
}
