package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/scget/scget/pkg/platform"
)

// Fetcher streams remote bytes into a ".part" staging file next to the
// destination and renames it into place once complete. An interrupted
// download leaves the staging file behind; the next run resumes it with a
// byte-range request when the server supports ranges.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// ProbeResult describes a remote file without downloading it.
type ProbeResult struct {
	Filename     string // from Content-Disposition, "" if absent
	Ext          string // from Content-Type, "" if unknown
	Size         int64  // -1 if unknown
	AcceptRanges bool
}

// Probe issues a one-byte range request to learn the remote filename,
// extension and total size before committing to a destination path.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) (*ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 2))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("probe: unexpected status %s", resp.Status)
	}

	result := &ProbeResult{Size: -1}
	result.AcceptRanges = resp.StatusCode == http.StatusPartialContent

	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			result.Filename = params["filename"]
		}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if exts, err := mime.ExtensionsByType(ct); err == nil && len(exts) > 0 {
			result.Ext = exts[0]
		}
	}
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		// "bytes 0-0/12345"
		if idx := strings.LastIndex(cr, "/"); idx >= 0 {
			if size, err := strconv.ParseInt(cr[idx+1:], 10, 64); err == nil {
				result.Size = size
			}
		}
	} else if resp.StatusCode == http.StatusOK && resp.ContentLength >= 0 {
		result.Size = resp.ContentLength
	}
	return result, nil
}

// Fetch downloads rawURL into dest. It returns the final path, which differs
// from dest only if dest appeared on disk while the download was running.
// progress may be nil.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string, progress func(received, total int64)) (string, error) {
	part := dest + ".part"

	var offset int64
	if fi, err := os.Stat(part); err == nil {
		offset = fi.Size()
	}

	resp, offset, err := f.request(ctx, rawURL, offset)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	total := int64(-1)
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if idx := strings.LastIndex(cr, "/"); idx >= 0 {
			if size, err := strconv.ParseInt(cr[idx+1:], 10, 64); err == nil {
				total = size
			}
		}
	} else if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(part, flags, 0o644)
	if err != nil {
		return "", err
	}

	received := offset
	buf := make([]byte, 64*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				file.Close()
				return "", err
			}
			received += int64(n)
			if progress != nil {
				progress(received, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			file.Close()
			return "", fmt.Errorf("fetch %s: %w", dest, readErr)
		}
	}

	if total >= 0 && received != total {
		file.Close()
		return "", fmt.Errorf("fetch %s: connection closed prematurely (%d of %d bytes)", dest, received, total)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}

	return place(part, dest)
}

// request opens the response, retrying once from zero when the server
// rejects the resume range. The returned offset is the position the
// response body starts at.
func (f *Fetcher) request(ctx context.Context, rawURL string, offset int64) (*http.Response, int64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		return resp, offset, nil
	case http.StatusOK:
		// Server ignored the range; start over.
		return resp, 0, nil
	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		if offset == 0 {
			return nil, 0, fmt.Errorf("fetch: unexpected status %s", resp.Status)
		}
		return f.request(ctx, rawURL, 0)
	default:
		resp.Body.Close()
		return nil, 0, fmt.Errorf("fetch: unexpected status %s", resp.Status)
	}
}

// place atomically moves a completed staging file to its destination.
// If the destination appeared meanwhile, the file is renamed alongside it.
func place(part, dest string) (string, error) {
	if _, err := os.Stat(dest); err == nil {
		dest = platform.UniquePath(dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	if err := os.Rename(part, dest); err != nil {
		return "", err
	}
	return dest, nil
}
