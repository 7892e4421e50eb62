package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alexnv/09-online-library-parser/models"
)

// MultiWriter fans every batch out to several writers in order.
type MultiWriter struct {
	mu      sync.Mutex
	names   []string
	writers []OutputWriter
}

// NewDualWriter writes the JSON dataset plus a CSV export of the same records.
func NewDualWriter(jsonFilename, csvFilename string) (*MultiWriter, error) {
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		return nil, fmt.Errorf("create json writer: %w", err)
	}
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}
	return &MultiWriter{
		names:   []string{"json", "csv"},
		writers: []OutputWriter{jsonWriter, csvWriter},
	}, nil
}

// CSVSibling returns the CSV export path next to a JSON dataset.
func CSVSibling(jsonFilename string) string {
	return strings.TrimSuffix(jsonFilename, ".json") + ".csv"
}

// Write stops at the first writer that fails.
func (mw *MultiWriter) Write(books []*models.Book) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for i, w := range mw.writers {
		if err := w.Write(books); err != nil {
			return fmt.Errorf("%s write: %w", mw.names[i], err)
		}
	}
	return nil
}

// Close closes every writer, even when an earlier one fails.
func (mw *MultiWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.each(OutputWriter.Close, "close")
}

// Validate checks every output file.
func (mw *MultiWriter) Validate() error {
	return mw.each(OutputWriter.Validate, "validate")
}

func (mw *MultiWriter) each(op func(OutputWriter) error, verb string) error {
	var errs []error
	for i, w := range mw.writers {
		if err := op(w); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", mw.names[i], verb, err))
		}
	}
	return errors.Join(errs...)
}
