package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/scget/scget/pkg/logger"
)

// FFmpeg shells out to the external ffmpeg binary for everything scget does
// not do itself: HLS remuxing, flac conversion and non-mp3 tagging.
type FFmpeg struct {
	binary string
	run    func(cmd *exec.Cmd) error // seam for tests
}

func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		binary: "ffmpeg",
		run:    func(cmd *exec.Cmd) error { return cmd.Run() },
	}
}

// Available reports whether ffmpeg can be found on PATH.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.binary)
	return err == nil
}

func (f *FFmpeg) exec(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	logger.WithComponent("ffmpeg").Debugf("running %s %s", f.binary, strings.Join(args, " "))
	if err := f.run(cmd); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("ffmpeg: %s: %w", msg, err)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// RemuxHLSArgs builds the argument list for remuxing an HLS playlist into a
// local file without re-encoding.
func RemuxHLSArgs(m3u8URL, dest string) []string {
	return []string{"-y", "-i", m3u8URL, "-c", "copy", dest, "-loglevel", "error"}
}

// RemuxHLS downloads an HLS stream into dest via a staging file, so a failed
// remux never leaves a half-written file at the destination.
func (f *FFmpeg) RemuxHLS(ctx context.Context, m3u8URL, dest string) (string, error) {
	// ffmpeg infers the container from the extension, so the staging name
	// keeps it: "x.mp3.part" would remux to a raw stream.
	staging := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".remux" + filepath.Ext(dest)
	defer os.Remove(staging)
	if err := f.exec(ctx, RemuxHLSArgs(m3u8URL, staging)); err != nil {
		return "", err
	}
	return place(staging, dest)
}

// ConvertArgs builds the argument list for converting src into dst,
// letting ffmpeg pick codecs from the extensions.
func ConvertArgs(src, dst string) []string {
	return []string{"-y", "-i", src, dst, "-loglevel", "error"}
}

// CanConvertToFlac reports whether the original file format is a lossless
// one worth converting (wav or aiff uploads).
func CanConvertToFlac(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return strings.Contains(ext, "wav") || strings.Contains(ext, "aif")
}

// ConvertToFlac converts a wav/aiff file to flac and removes the original.
func (f *FFmpeg) ConvertToFlac(ctx context.Context, src string) (string, error) {
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".flac"
	if err := f.exec(ctx, ConvertArgs(src, dst)); err != nil {
		return "", err
	}
	if err := os.Remove(src); err != nil {
		return "", err
	}
	return dst, nil
}

// WriteTagsArgs builds the argument list for rewriting a file's metadata
// without re-encoding the audio stream.
func WriteTagsArgs(src, dst string, meta map[string]string, keys []string) []string {
	args := []string{"-y", "-i", src, "-c", "copy"}
	for _, k := range keys {
		if v := meta[k]; v != "" {
			args = append(args, "-metadata", k+"="+v)
		}
	}
	return append(args, dst, "-loglevel", "error")
}

// tagKeyOrder keeps metadata arguments deterministic.
var tagKeyOrder = []string{"title", "artist", "album", "track", "genre", "date", "comment", "purl"}

// WriteTags rewrites metadata on formats the id3 tagger cannot handle
// (m4a, flac) by remuxing through a sibling temp file.
func (f *FFmpeg) WriteTags(ctx context.Context, path string, meta map[string]string) error {
	tmp := strings.TrimSuffix(path, filepath.Ext(path)) + ".tagged" + filepath.Ext(path)
	if err := f.exec(ctx, WriteTagsArgs(path, tmp, meta, tagKeyOrder)); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
