// Package parser extracts book records and catalog links from tululu pages.
package parser

import (
	"fmt"
	"strings"

	"github.com/alexnv/09-online-library-parser/models"
)

// ValidateBook ensures the scraper captured the required fields.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if b.ID <= 0 {
		return fmt.Errorf("book %q has no id", b.Name)
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("book %d missing name", b.ID)
	}
	if strings.TrimSpace(b.Author) == "" {
		return fmt.Errorf("book %d missing author", b.ID)
	}
	if strings.TrimSpace(b.ImageURL) == "" {
		return fmt.Errorf("book %d missing image url", b.ID)
	}
	return nil
}

// UniqueStrings trims values, drops empty ones and collapses duplicates,
// keeping first-seen order. The result is never nil.
func UniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// NormalizeBook trims text fields and collapses duplicate set members.
func NormalizeBook(b *models.Book) {
	b.Name = strings.TrimSpace(b.Name)
	b.Author = strings.TrimSpace(b.Author)
	b.Genres = UniqueStrings(b.Genres)
	b.Comments = UniqueStrings(b.Comments)
}
