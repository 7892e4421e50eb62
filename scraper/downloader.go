package scraper

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
)

// AssetKind selects the extension policy of a download.
type AssetKind int

const (
	AssetText AssetKind = iota
	AssetImage
)

func (k AssetKind) String() string {
	switch k {
	case AssetText:
		return kindText
	case AssetImage:
		return kindImage
	default:
		return "unknown"
	}
}

const textExtension = ".txt"

// A short alphanumeric suffix counts as an extension; "Vol. 2" does not.
var extensionPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,5}$`)

// Downloader fetches assets and writes them under a content folder.
type Downloader struct {
	fetcher  *Fetcher
	sanitize func(string) string
	workDir  string
}

// NewDownloader builds a downloader. A nil sanitizer defaults to
// SafeFileName.
func NewDownloader(fetcher *Fetcher, sanitizer func(string) string) *Downloader {
	if sanitizer == nil {
		sanitizer = SafeFileName
	}
	workDir, err := os.Getwd()
	if err != nil {
		workDir = ""
	}
	return &Downloader{
		fetcher:  fetcher,
		sanitize: sanitizer,
		workDir:  workDir,
	}
}

// Download fetches rawURL into folder and returns the written file's path
// relative to the working directory, with forward slashes. An extension
// already present on desiredName is kept as is.
func (d *Downloader) Download(ctx context.Context, rawURL, desiredName, folder string, kind AssetKind) (string, error) {
	stem, ext := splitExtension(desiredName)
	if ext == "" {
		ext = assetExtension(rawURL, kind)
	}
	return d.save(ctx, rawURL, stem, ext, folder, kind)
}

// DownloadAs is Download for a name that never carries an extension, such
// as "{id} {title}". The extension always follows kind: .txt for texts and
// the URL's own extension for images.
func (d *Downloader) DownloadAs(ctx context.Context, rawURL, stem, folder string, kind AssetKind) (string, error) {
	return d.save(ctx, rawURL, stem, assetExtension(rawURL, kind), folder, kind)
}

func (d *Downloader) save(ctx context.Context, rawURL, stem, ext, folder string, kind AssetKind) (string, error) {
	resp, err := d.fetcher.Fetch(ctx, rawURL, kind.String())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create directory %q: %w", folder, err)
	}

	name := d.sanitize(stem)
	if name == "" {
		return "", fmt.Errorf("empty file name for %q", stem)
	}
	target := filepath.Join(folder, name+ext)
	if err := os.WriteFile(target, resp.Body, 0o644); err != nil {
		return "", fmt.Errorf("write %q: %w", target, err)
	}

	return d.relative(target), nil
}

func assetExtension(rawURL string, kind AssetKind) string {
	if kind == AssetText {
		return textExtension
	}
	return urlExtension(rawURL)
}

func (d *Downloader) relative(target string) string {
	if d.workDir != "" && filepath.IsAbs(target) {
		if rel, err := filepath.Rel(d.workDir, target); err == nil {
			target = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(target))
}

func splitExtension(name string) (stem, ext string) {
	ext = path.Ext(name)
	if !extensionPattern.MatchString(ext) {
		return name, ""
	}
	return name[:len(name)-len(ext)], ext
}

// urlExtension returns the extension of the last decoded path segment of
// rawURL, or "" when there is none.
func urlExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	decoded, err := url.PathUnescape(u.EscapedPath())
	if err != nil {
		decoded = u.Path
	}
	ext := path.Ext(path.Base(decoded))
	if ext == "." {
		return ""
	}
	return ext
}
