package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alexnv/09-online-library-parser/models"
)

// Selectors for the book detail page.
const (
	titleSelector    = "#content h1"
	imageSelector    = "div.bookimage img"
	genreSelector    = "span.d_book a"
	commentSelector  = "div.texts span.black"
	downloadSelector = `table.d_book a[href*="txt.php"]`

	titleSeparator = " :: "
)

// ParseBookPage extracts a book record from a detail page. The returned
// record has no ID or download paths and its URLs are still site-relative.
func ParseBookPage(html []byte) (*models.Book, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return ExtractBook(doc)
}

// ExtractBook applies every extraction rule to a parsed document.
func ExtractBook(doc *goquery.Document) (*models.Book, error) {
	name, author, err := ParseTitle(doc)
	if err != nil {
		return nil, err
	}
	imageURL, err := ParseImageURL(doc)
	if err != nil {
		return nil, err
	}

	return &models.Book{
		Name:        name,
		Author:      author,
		Genres:      ParseGenres(doc),
		Comments:    ParseComments(doc),
		ImageURL:    imageURL,
		DownloadURL: ParseDownloadURL(doc),
	}, nil
}

// ParseTitle splits the title heading into book name and author.
func ParseTitle(doc *goquery.Document) (name, author string, err error) {
	heading := doc.Find(titleSelector).First()
	if heading.Length() == 0 {
		return "", "", ErrMalformedPage{Anchor: titleSelector}
	}

	text := strings.ReplaceAll(heading.Text(), "\u00a0", " ")
	parts := strings.Split(text, titleSeparator)
	if len(parts) != 2 {
		return "", "", ErrMalformedPage{
			Anchor: titleSelector,
			Reason: fmt.Sprintf("expected name%sauthor, got %d parts", titleSeparator, len(parts)),
		}
	}

	name = strings.TrimSpace(parts[0])
	author = strings.TrimSpace(parts[1])
	if name == "" || author == "" {
		return "", "", ErrMalformedPage{Anchor: titleSelector, Reason: "empty name or author"}
	}
	return name, author, nil
}

// ParseImageURL returns the cover src from the image container.
func ParseImageURL(doc *goquery.Document) (string, error) {
	img := doc.Find(imageSelector).First()
	if img.Length() == 0 {
		return "", ErrMalformedPage{Anchor: imageSelector}
	}
	src, ok := img.Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return "", ErrMalformedPage{Anchor: imageSelector, Reason: "empty src"}
	}
	return src, nil
}

// ParseGenres collects the genre link texts.
func ParseGenres(doc *goquery.Document) []string {
	return collectText(doc.Find(genreSelector))
}

// ParseComments collects reader comment texts.
func ParseComments(doc *goquery.Document) []string {
	return collectText(doc.Find(commentSelector))
}

// ParseDownloadURL returns the text download href, or "" when the book has
// no text available.
func ParseDownloadURL(doc *goquery.Document) string {
	href, _ := doc.Find(downloadSelector).First().Attr("href")
	return strings.TrimSpace(href)
}

func collectText(sel *goquery.Selection) []string {
	values := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		values = append(values, s.Text())
	})
	return UniqueStrings(values)
}
