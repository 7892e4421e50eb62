package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/alexnv/09-online-library-parser/models"
)

const listSeparator = "; "

// CSVWriter writes records to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	header := []string{"id", "name", "author", "genres", "comments", "image_url", "download_url", "img_src", "book_path"}
	if err := writer.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends books to the CSV output.
func (cw *CSVWriter) Write(books []*models.Book) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, book := range books {
		record := []string{
			strconv.Itoa(book.ID),
			book.Name,
			book.Author,
			strings.Join(book.Genres, listSeparator),
			strings.Join(book.Comments, listSeparator),
			book.ImageURL,
			book.DownloadURL,
			book.ImgSrc,
			book.BookPath,
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content besides the header.
func (cw *CSVWriter) Validate() error {
	info, err := os.Stat(cw.file.Name())
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter collects records and writes them as one JSON array when
// closed. An existing file at the same path is replaced.
type JSONWriter struct {
	filename string
	books    []*models.Book
	closed   bool
	mu       sync.Mutex
}

// NewJSONWriter initialises the JSON writer. Nothing touches the disk until
// Close.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("json file name cannot be empty")
	}
	return &JSONWriter{
		filename: filename,
		books:    []*models.Book{},
	}, nil
}

// Write buffers books for the final dataset.
func (jw *JSONWriter) Write(books []*models.Book) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrPipelineClosed
	}
	jw.books = append(jw.books, books...)
	return nil
}

// Close serializes the collected books. The file is written to a temporary
// sibling and renamed so a failed run never leaves a truncated dataset.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return nil
	}
	jw.closed = true

	if err := ensureDir(jw.filename); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(jw.filename), "."+filepath.Base(jw.filename)+".*")
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(jw.books); err != nil {
		tmp.Close()
		return fmt.Errorf("encode json dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close json file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod json file: %w", err)
	}
	if err := os.Rename(tmp.Name(), jw.filename); err != nil {
		return fmt.Errorf("replace json file: %w", err)
	}
	return nil
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	info, err := os.Stat(jw.filename)
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

// ReadDataset loads a dataset written by JSONWriter.
func ReadDataset(filename string) ([]*models.Book, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var books []*models.Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("decode dataset %q: %w", filename, err)
	}
	return books, nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
