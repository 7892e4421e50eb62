package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds scraper configuration. The scraper keeps its own copy, so
// changing a Config after construction has no effect on a running crawl.
type Config struct {
	BaseURL string

	Genre     int
	StartPage int
	EndPage   int // exclusive

	// StartID and EndID select the id-range mode ([StartID, EndID)) instead
	// of walking the genre catalog.
	StartID int
	EndID   int

	BooksFolder  string
	ImagesFolder string
	JSONPath     string
	SkipText     bool
	SkipImages   bool

	// ASCIIFileNames transliterates titles in asset file names.
	ASCIIFileNames bool

	RetryInterval    time.Duration
	PageMaxAttempts  int // 0 retries a book page until interrupted
	AssetMaxAttempts int

	Timeout          time.Duration
	Delay            time.Duration
	MaxBodySize      int
	UserAgent        string
	RespectRobotsTxt bool
	DedupeMaxSize    int

	OutputFormat string // json or dual
	MetricsAddr  string
	Verbose      bool
}

// DefaultConfig returns defaults matching the tululu.org catalog layout.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://tululu.org/",
		Genre:            55,
		StartPage:        1,
		EndPage:          5,
		BooksFolder:      "media/books",
		ImagesFolder:     "media/images",
		JSONPath:         "media/books_info.json",
		RetryInterval:    time.Second,
		PageMaxAttempts:  0,
		AssetMaxAttempts: 3,
		Timeout:          30 * time.Second,
		Delay:            0,
		MaxBodySize:      0,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt: false,
		DedupeMaxSize:    100000,
		OutputFormat:     "json",
	}
}

// IDMode reports whether the crawl iterates a numeric id range instead of
// the genre catalog.
func (c *Config) IDMode() bool {
	return c.StartID > 0 || c.EndID > 0
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if !strings.HasSuffix(parsedURL.Path, "/") && parsedURL.Path != "" {
		return fmt.Errorf("base URL path must end with a slash")
	}

	if c.IDMode() {
		if c.StartID <= 0 {
			return fmt.Errorf("start id must be positive")
		}
		if c.EndID <= c.StartID {
			return fmt.Errorf("end id (%d) must be greater than start id (%d)", c.EndID, c.StartID)
		}
	} else {
		if c.Genre <= 0 {
			return fmt.Errorf("genre must be positive")
		}
		if c.StartPage <= 0 {
			return fmt.Errorf("start page must be positive")
		}
		if c.EndPage <= c.StartPage {
			return fmt.Errorf("end page (%d) must be greater than start page (%d)", c.EndPage, c.StartPage)
		}
	}

	if !c.SkipText && strings.TrimSpace(c.BooksFolder) == "" {
		return fmt.Errorf("books folder cannot be empty")
	}
	if !c.SkipImages && strings.TrimSpace(c.ImagesFolder) == "" {
		return fmt.Errorf("images folder cannot be empty")
	}
	if strings.TrimSpace(c.JSONPath) == "" {
		return fmt.Errorf("json path cannot be empty")
	}
	if strings.HasSuffix(c.JSONPath, "/") {
		return fmt.Errorf("json path %q must name a file", c.JSONPath)
	}

	if c.RetryInterval < 0 {
		return fmt.Errorf("retry interval cannot be negative")
	}
	if c.PageMaxAttempts < 0 {
		return fmt.Errorf("page max attempts cannot be negative")
	}
	if c.AssetMaxAttempts <= 0 {
		return fmt.Errorf("asset max attempts must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size cannot be negative")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be json or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
