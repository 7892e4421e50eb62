// Package render turns a book dataset into a paginated static site.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/alexnv/09-online-library-parser/models"
	"github.com/alexnv/09-online-library-parser/pipeline"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Options controls the page layout.
type Options struct {
	BooksPerPage int
	Columns      int
}

// DefaultOptions returns the layout used by cmd/render.
func DefaultOptions() Options {
	return Options{BooksPerPage: 20, Columns: 2}
}

// Validate checks the layout values.
func (o Options) Validate() error {
	if o.BooksPerPage <= 0 {
		return fmt.Errorf("books per page must be positive")
	}
	if o.Columns <= 0 {
		return fmt.Errorf("columns must be positive")
	}
	return nil
}

// Card is a book as shown on a page, with asset links relative to the page.
type Card struct {
	Name     string
	Author   string
	Genres   []string
	Cover    string
	TextLink string
}

// PageLink is one entry of the pagination bar.
type PageLink struct {
	Number  int
	Href    string
	Current bool
}

type pageData struct {
	Number int
	Total  int
	Rows   [][]Card
	Links  []PageLink
	Prev   string
	Next   string
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// PageName returns the file name of a 1-based page.
func PageName(n int) string {
	return fmt.Sprintf("index%d.html", n)
}

// Render reads the dataset at datasetPath and writes index{n}.html pages
// plus an index.html copy of the first page into outDir. It returns the
// number of pages written.
func Render(datasetPath, outDir string, opts Options) (int, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	books, err := pipeline.ReadDataset(datasetPath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output directory %q: %w", outDir, err)
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return 0, fmt.Errorf("resolve output directory: %w", err)
	}

	cards := make([]Card, 0, len(books))
	for _, book := range books {
		cards = append(cards, newCard(book, absOut))
	}

	pages := Chunk(cards, opts.BooksPerPage)
	if len(pages) == 0 {
		pages = [][]Card{{}}
	}

	var first []byte
	for i, page := range pages {
		number := i + 1
		html, err := renderPage(pageData{
			Number: number,
			Total:  len(pages),
			Rows:   Chunk(page, opts.Columns),
			Links:  pageLinks(number, len(pages)),
			Prev:   neighbour(number-1, len(pages)),
			Next:   neighbour(number+1, len(pages)),
		})
		if err != nil {
			return 0, err
		}
		target := filepath.Join(outDir, PageName(number))
		if err := os.WriteFile(target, html, 0o644); err != nil {
			return 0, fmt.Errorf("write %q: %w", target, err)
		}
		slog.Debug("page rendered", slog.String("path", target), slog.Int("books", len(page)))
		if number == 1 {
			first = html
		}
	}

	index := filepath.Join(outDir, "index.html")
	if err := os.WriteFile(index, first, 0o644); err != nil {
		return 0, fmt.Errorf("write %q: %w", index, err)
	}

	slog.Info("site rendered",
		slog.String("out", outDir),
		slog.Int("books", len(books)),
		slog.Int("pages", len(pages)),
	)
	return len(pages), nil
}

func renderPage(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render page %d: %w", data.Number, err)
	}
	return buf.Bytes(), nil
}

func newCard(book *models.Book, outDir string) Card {
	card := Card{
		Name:   book.Name,
		Author: book.Author,
		Genres: book.Genres,
		Cover:  book.ImageURL,
	}
	if book.ImgSrc != "" {
		card.Cover = relativeLink(book.ImgSrc, outDir)
	}
	if book.BookPath != "" {
		card.TextLink = relativeLink(book.BookPath, outDir)
	}
	return card
}

// relativeLink rewrites a working-directory relative asset path so it can
// be linked from a page in outDir.
func relativeLink(assetPath, outDir string) string {
	if u, err := url.Parse(assetPath); err == nil && u.IsAbs() && u.Host != "" {
		return assetPath
	}
	abs, err := filepath.Abs(filepath.FromSlash(assetPath))
	if err != nil {
		return assetPath
	}
	rel, err := filepath.Rel(outDir, abs)
	if err != nil {
		return assetPath
	}
	return filepath.ToSlash(rel)
}

func pageLinks(current, total int) []PageLink {
	links := make([]PageLink, 0, total)
	for n := 1; n <= total; n++ {
		links = append(links, PageLink{Number: n, Href: PageName(n), Current: n == current})
	}
	return links
}

func neighbour(n, total int) string {
	if n < 1 || n > total {
		return ""
	}
	return PageName(n)
}
