package deps

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/evergreen-ci/cloak/util"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// ErrChecksumMismatch is returned when a downloaded installer does not
// have the expected SHA-1.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Fetcher downloads installers into a cache directory and reuses cached
// files whose checksum still matches.
type Fetcher struct {
	CacheDir string
	Retry    utility.RetryOptions
}

func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{
		CacheDir: cacheDir,
		Retry: utility.RetryOptions{
			MaxAttempts: 3,
			MinDelay:    time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

func (f *Fetcher) Fetch(ctx context.Context, exe dependency.Exe) (string, error) {
	if err := os.MkdirAll(f.CacheDir, 0755); err != nil {
		return "", errors.Wrapf(err, "creating cache directory '%s'", f.CacheDir)
	}

	target := filepath.Join(f.CacheDir, exe.File())
	if util.ChecksumMatches(target, exe.SHA1) {
		grip.Debug(message.Fields{
			"message": "using cached installer",
			"path":    target,
		})
		return target, nil
	}

	if err := f.download(ctx, exe.URL, target); err != nil {
		return "", errors.Wrapf(err, "downloading '%s'", exe.URL)
	}

	if !util.ChecksumMatches(target, exe.SHA1) {
		grip.Warning(message.WrapError(os.Remove(target), message.Fields{
			"message": "could not remove installer with a bad checksum",
			"path":    target,
		}))
		return "", errors.Wrapf(ErrChecksumMismatch, "installer '%s' from '%s'", exe.File(), exe.URL)
	}

	return target, nil
}

func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, error) {
	client := utility.GetHTTPClient()
	defer utility.PutHTTPClient(client)

	var body []byte
	err := utility.Retry(ctx, func() (bool, error) {
		resp, err := get(ctx, client, url)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode >= http.StatusInternalServerError, errors.Errorf("unexpected status %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		return true, errors.Wrap(err, "reading response")
	}, f.Retry)

	return body, errors.Wrapf(err, "downloading '%s'", url)
}

func (f *Fetcher) download(ctx context.Context, url, target string) error {
	client := utility.GetHTTPClient()
	defer utility.PutHTTPClient(client)

	partial := target + ".part"
	start := time.Now()
	var size int64

	err := utility.Retry(ctx, func() (bool, error) {
		resp, err := get(ctx, client, url)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode >= http.StatusInternalServerError, errors.Errorf("unexpected status %d", resp.StatusCode)
		}

		out, err := os.Create(partial)
		if err != nil {
			return false, errors.Wrapf(err, "creating '%s'", partial)
		}
		size, err = io.Copy(out, resp.Body)
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		return true, errors.Wrap(err, "writing download")
	}, f.Retry)
	if err != nil {
		_ = os.Remove(partial)
		return err
	}

	grip.Info(message.Fields{
		"message":  "downloaded installer",
		"url":      url,
		"path":     target,
		"size":     humanize.Bytes(uint64(size)),
		"duration": time.Since(start).String(),
	})

	return errors.Wrapf(os.Rename(partial, target), "moving download to '%s'", target)
}

func get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	resp, err := client.Do(req)
	return resp, errors.WithStack(err)
}
