// Package download fetches installer assets into the local cache, verifying
// them against a pinned checksum when the version definition carries one.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/imbi7py/snafu/internal/config"
)

// Progress is called as bytes arrive. total is -1 when the server does not
// announce a length.
type Progress func(received, total int64)

// ApplyMirror rewrites url to use the configured mirror when it points at
// the default python.org prefix.
func ApplyMirror(url, mirror string) string {
	if mirror == "" || mirror == config.DefaultMirror {
		return url
	}
	if strings.HasPrefix(url, config.DefaultMirror) {
		return mirror + strings.TrimPrefix(url, config.DefaultMirror)
	}
	return url
}

// Fetch downloads url into destDir, names the file after the last URL
// segment, and verifies it against sha256hex. An empty sha256hex skips
// verification entirely. A cached file that already verifies is reused
// without a network round trip; a corrupt cached file is discarded and
// fetched again.
func Fetch(ctx context.Context, url, destDir, sha256hex string, progress Progress) (string, error) {
	name := url[strings.LastIndex(url, "/")+1:]
	if name == "" {
		return "", fmt.Errorf("cannot derive file name from %s", url)
	}
	dest := filepath.Join(destDir, name)

	if _, err := os.Stat(dest); err == nil {
		if sha256hex == "" {
			return dest, nil
		}
		ok, err := verify(dest, sha256hex)
		if err != nil {
			return "", err
		}
		if ok {
			return dest, nil
		}
		if err := os.Remove(dest); err != nil {
			return "", fmt.Errorf("discard corrupt cache entry: %w", err)
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	if err := fetchTo(ctx, url, dest, progress); err != nil {
		return "", err
	}
	if sha256hex == "" {
		return dest, nil
	}
	ok, err := verify(dest, sha256hex)
	if err != nil {
		return "", err
	}
	if !ok {
		_ = os.Remove(dest)
		return "", fmt.Errorf("checksum mismatch for %s", name)
	}
	return dest, nil
}

func fetchTo(ctx context.Context, url, dest string, progress Progress) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	tmp := filepath.Join(filepath.Dir(dest), ".dl-"+uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	defer func() { _ = os.Remove(tmp) }()

	total := resp.ContentLength
	var received int64
	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				_ = f.Close()
				return fmt.Errorf("write download: %w", werr)
			}
			received += int64(n)
			if progress != nil {
				progress(received, total)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = f.Close()
			return fmt.Errorf("read download: %w", rerr)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close download file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}
	return nil
}

func verify(path, sha256hex string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, fmt.Errorf("hash %s: %w", path, err)
	}
	return strings.EqualFold(hex.EncodeToString(h.Sum(nil)), sha256hex), nil
}
