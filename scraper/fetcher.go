package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/alexnv/09-online-library-parser/config"
)

const (
	ctxStart    = "start"
	ctxResponse = "response"
)

// Internal headers carrying the request kind to rawAssetTransport and the
// served Content-Type back to Fetch. Neither leaves the process.
const (
	kindHeader       = "X-Library-Kind"
	servedTypeHeader = "X-Library-Served-Content-Type"
)

var errRedirected = errors.New("redirect refused")

// Request kinds used as metric labels.
const (
	kindCatalog = "catalog"
	kindPage    = "page"
	kindText    = "text"
	kindImage   = "image"
)

// Response is a successfully fetched resource.
type Response struct {
	URL         *url.URL
	StatusCode  int
	ContentType string
	Body        []byte
}

// Text returns the body decoded as text.
func (r *Response) Text() string {
	return string(r.Body)
}

// Fetcher issues synchronous GET requests and classifies failures into
// ErrNotFound and ErrTransport.
type Fetcher struct {
	collector *colly.Collector
	metrics   *Metrics
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(cfg.MaxBodySize),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(rawAssetTransport{next: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	// tululu answers unknown ids with a redirect to the home page, so any
	// redirect means the resource does not exist.
	collector.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		return errRedirected
	})

	f := &Fetcher{collector: collector, metrics: metrics}
	f.configureHandlers()
	return f, nil
}

// WithTransport replaces the HTTP transport.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rawAssetTransport{next: rt})
}

// rawAssetTransport drops the charset parameter from text and image
// responses so colly hands over the served bytes instead of transcoding
// them to UTF-8. The original header is kept under servedTypeHeader.
type rawAssetTransport struct {
	next http.RoundTripper
}

func (t rawAssetTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	kind := req.Header.Get(kindHeader)
	if kind != "" {
		req = req.Clone(req.Context())
		req.Header.Del(kindHeader)
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil || (kind != kindText && kind != kindImage) {
		return resp, err
	}

	served := resp.Header.Get("Content-Type")
	mediaType, params, found := strings.Cut(served, ";")
	if !found || !strings.Contains(strings.ToLower(params), "charset") {
		return resp, nil
	}
	resp.Header = resp.Header.Clone()
	resp.Header.Set(servedTypeHeader, served)
	resp.Header.Set("Content-Type", strings.TrimSpace(mediaType))
	return resp, nil
}

func (f *Fetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStart, time.Now())
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxResponse, r)
		if start, ok := r.Ctx.GetAny(ctxStart).(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		url := ""
		if r != nil && r.Request != nil && r.Request.URL != nil {
			url = r.Request.URL.String()
		}
		slog.Debug("request error", slog.String("url", url), slog.Any("error", err))
	})
}

// Fetch retrieves rawURL. kind labels the request in metrics.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, kind string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid url %q: expected absolute http(s) url", rawURL)
	}

	f.metrics.IncRequest(kind)
	reqCtx := colly.NewContext()
	hdr := http.Header{}
	hdr.Set(kindHeader, kind)
	if err := f.collector.Request(http.MethodGet, parsed.String(), nil, reqCtx, hdr); err != nil {
		classified := classifyError(rawURL, err)
		f.metrics.IncError(errorTypeLabel(classified))
		return nil, classified
	}

	resp, ok := reqCtx.GetAny(ctxResponse).(*colly.Response)
	if !ok {
		return nil, ErrTransport{URL: rawURL, Err: errors.New("no response received")}
	}

	var classified error
	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		classified = ErrNotFound{URL: rawURL}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		classified = ErrTransport{URL: rawURL, StatusCode: resp.StatusCode}
	}
	if classified != nil {
		f.metrics.IncError(errorTypeLabel(classified))
		return nil, classified
	}

	out := &Response{
		URL:        parsed,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		out.URL = resp.Request.URL
	}
	if resp.Headers != nil {
		out.ContentType = resp.Headers.Get(servedTypeHeader)
		if out.ContentType == "" {
			out.ContentType = resp.Headers.Get("Content-Type")
		}
	}
	return out, nil
}

// classifyError maps a failed colly request to the scraper error taxonomy.
// Errors raised by colly before any network I/O are permanent.
func classifyError(rawURL string, err error) error {
	if errors.Is(err, errRedirected) {
		return ErrNotFound{URL: rawURL}
	}
	for _, permanent := range []error{
		colly.ErrForbiddenDomain,
		colly.ErrForbiddenURL,
		colly.ErrNoURLFiltersMatch,
		colly.ErrMissingURL,
		colly.ErrMaxDepth,
		colly.ErrAlreadyVisited,
		colly.ErrRobotsTxtBlocked,
	} {
		if errors.Is(err, permanent) {
			return fmt.Errorf("fetch %s: %w", rawURL, err)
		}
	}
	return ErrTransport{URL: rawURL, Err: err}
}
