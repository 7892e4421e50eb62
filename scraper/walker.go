package scraper

import (
	"context"
	"iter"
	"log/slog"
	"net/url"

	"github.com/alexnv/09-online-library-parser/parser"
)

// Walker iterates genre listing pages and yields the book links on them.
type Walker struct {
	fetcher  *Fetcher
	cooldown RetryPolicy
	metrics  *Metrics

	// onPage, when set, is called for every listing page that was parsed.
	onPage func(page int, links int)
}

// NewWalker builds a walker. cooldown.Interval is paused once after a
// transport failure before moving on to the next page.
func NewWalker(fetcher *Fetcher, cooldown RetryPolicy, metrics *Metrics) *Walker {
	return &Walker{fetcher: fetcher, cooldown: cooldown, metrics: metrics}
}

// Walk lazily yields site-relative book links for pages [startPage, endPage).
// Pages that fail to load are skipped. Links are unique within a page only.
func (w *Walker) Walk(ctx context.Context, base *url.URL, genre, startPage, endPage int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for page := startPage; page < endPage; page++ {
			if ctx.Err() != nil {
				return
			}

			links, ok := w.page(ctx, base, genre, page)
			if !ok {
				continue
			}
			for _, link := range links {
				if !yield(link) {
					return
				}
			}
		}
	}
}

func (w *Walker) page(ctx context.Context, base *url.URL, genre, page int) ([]string, bool) {
	pageURL := base.JoinPath(parser.CatalogLink(genre, page)).String()

	resp, err := w.fetcher.Fetch(ctx, pageURL, kindCatalog)
	if err != nil {
		slog.Warn("skipping catalog page",
			slog.Int("page", page),
			slog.String("url", pageURL),
			slog.String("category", errorTypeLabel(err)),
			slog.Any("error", err),
		)
		if IsTransient(err) {
			w.metrics.IncRetries()
			if perr := w.cooldown.Pause(ctx); perr != nil {
				return nil, false
			}
		}
		return nil, false
	}

	links, err := parser.ParseCatalogPage(resp.Body)
	if err != nil {
		slog.Warn("skipping unparsable catalog page", slog.String("url", pageURL), slog.Any("error", err))
		return nil, false
	}

	slog.Debug("catalog page parsed", slog.Int("page", page), slog.Int("links", len(links)))
	if w.onPage != nil {
		w.onPage(page, len(links))
	}
	return links, true
}
