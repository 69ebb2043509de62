// Package dataset downloads the NBA SQLite database from a Hugging Face dataset repository.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://huggingface.co"
	DefaultRepo     = "qpmulho/nba-data-repo"
	DefaultFilename = "nba.sqlite"
)

// Options selects the file to fetch and where to put it.
type Options struct {
	Repo     string
	Filename string
	Revision string
	Token    string
	BaseURL  string
	Dest     string
	Force    bool
	Client   *http.Client
}

// File describes a fetched dataset file.
type File struct {
	Repo     string
	Revision string
	Path     string
	Size     int64
	Cached   bool
}

type repoInfo struct {
	SHA string `json:"sha"`
}

// Fetch downloads the dataset file into opts.Dest. An existing destination is
// reused without touching the network unless opts.Force is set.
func Fetch(ctx context.Context, opts Options) (File, error) {
	opts = withDefaults(opts)
	if opts.Dest == "" {
		return File{}, fmt.Errorf("destination path is required")
	}

	if !opts.Force {
		info, err := os.Stat(opts.Dest)
		if err == nil {
			return File{Repo: opts.Repo, Path: opts.Dest, Size: info.Size(), Cached: true}, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return File{}, fmt.Errorf("failed to stat cached dataset: %w", err)
		}
	}

	dir := filepath.Dir(opts.Dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return File{}, fmt.Errorf("failed to create dataset dir: %w", err)
	}

	sha, err := resolveRevision(ctx, opts)
	if err != nil {
		return File{}, err
	}

	tmpFile, err := os.CreateTemp(dir, "nba-*.sqlite.part")
	if err != nil {
		return File{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	resp, err := httpRequest(ctx, opts, resolveURL(opts, sha))
	if err != nil {
		return File{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return File{}, fmt.Errorf("unexpected download status: %s", resp.Status)
	}

	size, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		return File{}, fmt.Errorf("failed to download dataset: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return File{}, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, opts.Dest); err != nil {
		return File{}, fmt.Errorf("failed to move dataset into place: %w", err)
	}

	return File{Repo: opts.Repo, Revision: sha, Path: opts.Dest, Size: size}, nil
}

func withDefaults(opts Options) Options {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Repo == "" {
		opts.Repo = DefaultRepo
	}
	if opts.Filename == "" {
		opts.Filename = DefaultFilename
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Minute}
	}
	return opts
}

func resolveRevision(ctx context.Context, opts Options) (string, error) {
	endpoint := opts.BaseURL + "/api/datasets/" + opts.Repo
	if opts.Revision != "" {
		endpoint += "/revision/" + url.PathEscape(opts.Revision)
	}
	resp, err := httpRequest(ctx, opts, endpoint)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected dataset info status: %s", resp.Status)
	}

	var info repoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode dataset info: %w", err)
	}
	if info.SHA == "" {
		return "", fmt.Errorf("missing revision in dataset info")
	}
	return info.SHA, nil
}

func resolveURL(opts Options, sha string) string {
	return fmt.Sprintf("%s/datasets/%s/resolve/%s/%s", opts.BaseURL, opts.Repo, sha, url.PathEscape(opts.Filename))
}

func httpRequest(ctx context.Context, opts Options, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	resp, err := opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
