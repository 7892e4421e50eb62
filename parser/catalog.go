package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const bookEntrySelector = "table.d_book"

// ParseCatalogPage returns the book links listed on one genre page.
func ParseCatalogPage(html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return ParseBookLinks(doc), nil
}

// ParseBookLinks returns the first link of every book entry, deduplicated
// within the page.
func ParseBookLinks(doc *goquery.Document) []string {
	var links []string
	doc.Find(bookEntrySelector).Each(func(_ int, entry *goquery.Selection) {
		href, ok := entry.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		links = append(links, href)
	})
	return UniqueStrings(links)
}

// BookIDFromLink extracts the numeric id from a book link such as "/b239/".
func BookIDFromLink(link string) (int, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return 0, fmt.Errorf("parse book link %q: %w", link, err)
	}
	segment := strings.Trim(u.Path, "/")
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	if !strings.HasPrefix(segment, "b") {
		return 0, fmt.Errorf("book link %q has no id segment", link)
	}
	id, err := strconv.Atoi(strings.TrimPrefix(segment, "b"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("book link %q has no id segment", link)
	}
	return id, nil
}

// BookLink builds the site-relative link of a book id.
func BookLink(id int) string {
	return fmt.Sprintf("b%d/", id)
}

// CatalogLink builds the site-relative link of a genre listing page.
func CatalogLink(genre, page int) string {
	return fmt.Sprintf("l%d/%d/", genre, page)
}
