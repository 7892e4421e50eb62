// Package models defines data structures for the scraper.
package models

import "time"

// Book represents one harvested book record.
type Book struct {
	ID          int      `csv:"id" json:"id"`
	Name        string   `csv:"name" json:"name"`
	Author      string   `csv:"author" json:"author"`
	Genres      []string `csv:"genres" json:"genres"`
	Comments    []string `csv:"comments" json:"comments"`
	ImageURL    string   `csv:"image_url" json:"image_url"`
	DownloadURL string   `csv:"download_url" json:"download_url,omitempty"`
	ImgSrc      string   `csv:"img_src" json:"img_src,omitempty"`
	BookPath    string   `csv:"book_path" json:"book_path,omitempty"`
}

// CrawlResult holds the overall result of a crawl run. It is owned by the
// scraper for the duration of the run and never persisted.
type CrawlResult struct {
	Books           []*Book
	StartTime       time.Time
	EndTime         time.Time
	PageCount       int
	RequestCount    int
	RetryCount      int
	SkippedIDs      []int
	FailedDownloads int
	FailedURLs      []string
	ErrorsByType    map[string]int
}

// TotalCount returns the number of saved records.
func (r *CrawlResult) TotalCount() int {
	if r == nil {
		return 0
	}
	return len(r.Books)
}
