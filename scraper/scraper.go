package scraper

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alexnv/09-online-library-parser/config"
	"github.com/alexnv/09-online-library-parser/models"
	"github.com/alexnv/09-online-library-parser/parser"
)

// Sink receives every completed book record.
type Sink interface {
	Process(books ...*models.Book) error
}

// Option customises a Scraper.
type Option func(*Scraper)

// WithSleep replaces the cooldown used by every retry policy.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scraper) {
		s.pageRetry.Sleep = sleep
		s.assetRetry.Sleep = sleep
		s.walker.cooldown.Sleep = sleep
	}
}

// WithSanitizer replaces the file name sanitizer used for downloads.
func WithSanitizer(sanitizer func(string) string) Option {
	return func(s *Scraper) {
		if sanitizer != nil {
			s.downloader.sanitize = sanitizer
		}
	}
}

func fileNamer(cfg *config.Config) func(string) string {
	if cfg.ASCIIFileNames {
		return ASCIIFileName
	}
	return SafeFileName
}

// Scraper drives a crawl: it walks the catalog (or an id range), extracts
// every book page, downloads its assets and hands the record to a Sink.
type Scraper struct {
	cfg        config.Config
	base       *url.URL
	fetcher    *Fetcher
	downloader *Downloader
	walker     *Walker
	pageRetry  RetryPolicy
	assetRetry RetryPolicy
	visited    *lru.Cache[int, struct{}]
	Metrics    *Metrics
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config, opts ...Option) (*Scraper, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	visited, err := lru.New[int, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create visited cache: %w", err)
	}

	s := &Scraper{
		cfg:        *cfg,
		base:       base,
		fetcher:    fetcher,
		downloader: NewDownloader(fetcher, fileNamer(cfg)),
		walker:     NewWalker(fetcher, RetryPolicy{Interval: cfg.RetryInterval}, metrics),
		pageRetry:  RetryPolicy{Interval: cfg.RetryInterval, MaxAttempts: cfg.PageMaxAttempts},
		assetRetry: RetryPolicy{Interval: cfg.RetryInterval, MaxAttempts: cfg.AssetMaxAttempts},
		visited:    visited,
		Metrics:    metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run crawls every configured book and returns the collected records. It
// only stops early when ctx is cancelled, in which case the partial result
// is returned together with the context error.
func (s *Scraper) Run(ctx context.Context, sink Sink) (*models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.CrawlResult{
		StartTime:    time.Now(),
		Books:        []*models.Book{},
		ErrorsByType: make(map[string]int),
	}
	s.walker.onPage = func(int, int) {
		result.PageCount++
	}

	for link := range s.links(ctx) {
		if ctx.Err() != nil {
			break
		}
		s.crawlLink(ctx, link, sink, result)
	}

	result.EndTime = time.Now()
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("crawl interrupted: %w", err)
	}
	return result, nil
}

func (s *Scraper) links(ctx context.Context) iter.Seq[string] {
	if !s.cfg.IDMode() {
		return s.walker.Walk(ctx, s.base, s.cfg.Genre, s.cfg.StartPage, s.cfg.EndPage)
	}
	return func(yield func(string) bool) {
		for id := s.cfg.StartID; id < s.cfg.EndID; id++ {
			if !yield(parser.BookLink(id)) {
				return
			}
		}
	}
}

func (s *Scraper) crawlLink(ctx context.Context, link string, sink Sink, result *models.CrawlResult) {
	id, err := parser.BookIDFromLink(link)
	if err != nil {
		slog.Warn("skipping unrecognised book link", slog.String("link", link), slog.Any("error", err))
		s.Metrics.IncSkipped("bad_link")
		return
	}
	if s.visited.Contains(id) {
		slog.Debug("book already crawled", slog.Int("id", id))
		return
	}
	s.visited.Add(id, struct{}{})

	book, err := s.crawlBook(ctx, id, link, result)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		category := errorTypeLabel(err)
		result.ErrorsByType[category]++
		result.SkippedIDs = append(result.SkippedIDs, id)
		s.Metrics.IncSkipped(category)
		slog.Warn("skipping book",
			slog.Int("id", id),
			slog.String("link", link),
			slog.String("category", category),
			slog.Any("error", err),
		)
		return
	}

	result.Books = append(result.Books, book)
	s.Metrics.IncBooks()
	if sink != nil {
		if err := sink.Process(book); err != nil {
			slog.Error("pipeline process error", slog.Int("id", id), slog.Any("error", err))
		}
	}
}

func (s *Scraper) crawlBook(ctx context.Context, id int, link string, result *models.CrawlResult) (*models.Book, error) {
	pageURL, err := resolve(s.base, link)
	if err != nil {
		return nil, err
	}

	slog.Info("fetching book page", slog.Int("id", id), slog.String("url", pageURL))
	var page *Response
	err = s.pageRetry.Do(ctx, func() error {
		resp, err := s.fetcher.Fetch(ctx, pageURL, kindPage)
		if err != nil {
			return err
		}
		page = resp
		return nil
	}, s.retryLogger(result, pageURL, s.pageRetry))
	result.RequestCount++
	if err != nil {
		result.FailedURLs = append(result.FailedURLs, pageURL)
		return nil, err
	}

	book, err := parser.ParseBookPage(page.Body)
	if err != nil {
		return nil, err
	}
	book.ID = id
	parser.NormalizeBook(book)

	book.ImageURL, err = resolve(page.URL, book.ImageURL)
	if err != nil {
		return nil, parser.ErrMalformedPage{Anchor: "image url", Reason: err.Error()}
	}
	if book.DownloadURL != "" {
		if book.DownloadURL, err = resolve(page.URL, book.DownloadURL); err != nil {
			slog.Warn("ignoring unparsable download url", slog.Int("id", id), slog.Any("error", err))
			book.DownloadURL = ""
		}
	}

	s.downloadAssets(ctx, book, result)
	return book, nil
}

func (s *Scraper) downloadAssets(ctx context.Context, book *models.Book, result *models.CrawlResult) {
	stem := fmt.Sprintf("%d %s", book.ID, book.Name)

	if !s.cfg.SkipText {
		if book.DownloadURL == "" {
			slog.Info("no text available", slog.Int("id", book.ID))
		} else if path, err := s.download(ctx, book.DownloadURL, stem, s.cfg.BooksFolder, AssetText, result); err == nil {
			book.BookPath = path
		}
	}

	if !s.cfg.SkipImages {
		if path, err := s.download(ctx, book.ImageURL, stem, s.cfg.ImagesFolder, AssetImage, result); err == nil {
			book.ImgSrc = path
		}
	}
}

func (s *Scraper) download(ctx context.Context, rawURL, stem, folder string, kind AssetKind, result *models.CrawlResult) (string, error) {
	var saved string
	err := s.assetRetry.Do(ctx, func() error {
		path, err := s.downloader.DownloadAs(ctx, rawURL, stem, folder, kind)
		if err != nil {
			return err
		}
		saved = path
		return nil
	}, s.retryLogger(result, rawURL, s.assetRetry))
	result.RequestCount++
	s.Metrics.IncDownload(kind, err == nil)

	if err != nil {
		if ctx.Err() == nil {
			category := errorTypeLabel(err)
			result.FailedDownloads++
			result.FailedURLs = append(result.FailedURLs, rawURL)
			result.ErrorsByType[category]++
			slog.Error("asset download failed",
				slog.String("asset", kind.String()),
				slog.String("url", rawURL),
				slog.String("category", category),
				slog.Any("error", err),
			)
		}
		return "", err
	}

	slog.Info("asset saved", slog.String("asset", kind.String()), slog.String("path", saved))
	return saved, nil
}

func (s *Scraper) retryLogger(result *models.CrawlResult, rawURL string, policy RetryPolicy) func(int, error) {
	return func(attempt int, err error) {
		result.RetryCount++
		result.ErrorsByType[errorTypeLabel(err)]++
		s.Metrics.IncRetries()
		slog.Warn("transient failure, retrying",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt),
			slog.Duration("cooldown", policy.Interval),
			slog.Any("error", err),
		)
	}
}

func resolve(base *url.URL, ref string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	return base.ResolveReference(parsed).String(), nil
}
