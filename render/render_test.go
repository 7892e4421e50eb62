package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/alexnv/09-online-library-parser/models"
	"github.com/alexnv/09-online-library-parser/pipeline"
)

func writeDataset(t *testing.T, path string, books []*models.Book) {
	t.Helper()
	writer, err := pipeline.NewJSONWriter(path)
	if err != nil {
		t.Fatalf("json writer: %v", err)
	}
	if err := writer.Write(books); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dataset: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestChunk(t *testing.T) {
	tests := []struct {
		items []int
		size  int
		want  [][]int
	}{
		{items: []int{1, 2, 3, 4, 5}, size: 2, want: [][]int{{1, 2}, {3, 4}, {5}}},
		{items: []int{1, 2}, size: 2, want: [][]int{{1, 2}}},
		{items: []int{1}, size: 5, want: [][]int{{1}}},
		{items: nil, size: 3, want: [][]int{}},
		{items: []int{1}, size: 0, want: nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%d", tt.items, tt.size), func(t *testing.T) {
			if got := Chunk(tt.items, tt.size); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Chunk(%v, %d) = %v, want %v", tt.items, tt.size, got, tt.want)
			}
		})
	}
}

func TestRenderPaginates(t *testing.T) {
	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "media", "books_info.json")
	outDir := filepath.Join(dir, "pages")

	var books []*models.Book
	for id := 1; id <= 5; id++ {
		books = append(books, &models.Book{
			ID:       id,
			Name:     fmt.Sprintf("Book %d", id),
			Author:   fmt.Sprintf("Author %d", id),
			Genres:   []string{"Научная фантастика"},
			Comments: []string{},
			ImageURL: fmt.Sprintf("https://tululu.org/shots/%d.jpg", id),
			ImgSrc:   filepath.ToSlash(filepath.Join(dir, "media", "images", fmt.Sprintf("%d Book %d.jpg", id, id))),
			BookPath: filepath.ToSlash(filepath.Join(dir, "media", "books", fmt.Sprintf("%d Book %d.txt", id, id))),
		})
	}
	books[4].ImgSrc = ""
	books[4].BookPath = ""
	writeDataset(t, datasetPath, books)

	pages, err := Render(datasetPath, outDir, Options{BooksPerPage: 2, Columns: 2})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if pages != 3 {
		t.Fatalf("pages = %d, want 3", pages)
	}

	for _, name := range []string{"index.html", "index1.html", "index2.html", "index3.html"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "index4.html")); !os.IsNotExist(err) {
		t.Fatalf("unexpected fourth page")
	}

	index := readFile(t, filepath.Join(outDir, "index.html"))
	first := readFile(t, filepath.Join(outDir, "index1.html"))
	if index != first {
		t.Fatalf("index.html should be a copy of the first page")
	}

	if !strings.Contains(first, "Book 1") || !strings.Contains(first, "Book 2") || strings.Contains(first, "Book 3") {
		t.Fatalf("first page holds the wrong books:\n%s", first)
	}
	if !strings.Contains(first, `src="../media/images/1%20Book%201.jpg"`) {
		t.Fatalf("cover should link relative to the page:\n%s", first)
	}
	if !strings.Contains(first, `href="../media/books/1%20Book%201.txt"`) {
		t.Fatalf("text should link relative to the page:\n%s", first)
	}
	if !strings.Contains(first, `href="index2.html"`) || !strings.Contains(first, `<span class="current">1</span>`) {
		t.Fatalf("pagination missing on first page:\n%s", first)
	}

	last := readFile(t, filepath.Join(outDir, "index3.html"))
	if !strings.Contains(last, `src="https://tululu.org/shots/5.jpg"`) {
		t.Fatalf("book without a local cover should use the remote image:\n%s", last)
	}
	if strings.Contains(last, "Читать") {
		t.Fatalf("book without text should have no read link:\n%s", last)
	}
	if !strings.Contains(last, `href="index2.html"`) {
		t.Fatalf("last page should link back:\n%s", last)
	}
}

func TestRenderEscapesText(t *testing.T) {
	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "books.json")
	writeDataset(t, datasetPath, []*models.Book{{
		ID:       1,
		Name:     "<script>alert(1)</script>",
		Author:   "A & B",
		Genres:   []string{},
		Comments: []string{},
		ImageURL: "https://tululu.org/shots/1.jpg",
	}})

	if _, err := Render(datasetPath, dir, DefaultOptions()); err != nil {
		t.Fatalf("render: %v", err)
	}
	page := readFile(t, filepath.Join(dir, "index1.html"))
	if strings.Contains(page, "<script>alert(1)</script>") {
		t.Fatalf("book name should be escaped:\n%s", page)
	}
	if !strings.Contains(page, "A &amp; B") {
		t.Fatalf("author should be escaped:\n%s", page)
	}
	if strings.Contains(page, "<nav>") {
		t.Fatalf("single page should have no pagination")
	}
}

func TestRenderEmptyDataset(t *testing.T) {
	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "books.json")
	writeDataset(t, datasetPath, nil)

	pages, err := Render(datasetPath, filepath.Join(dir, "site"), DefaultOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if pages != 1 {
		t.Fatalf("pages = %d, want 1", pages)
	}
	page := readFile(t, filepath.Join(dir, "site", "index1.html"))
	if !bytes.Contains([]byte(page), []byte("Книг пока нет")) {
		t.Fatalf("empty page should say there are no books:\n%s", page)
	}
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Render(filepath.Join(dir, "missing.json"), dir, DefaultOptions()); err == nil {
		t.Fatalf("expected an error for a missing dataset")
	}
	if _, err := Render(filepath.Join(dir, "missing.json"), dir, Options{BooksPerPage: 0, Columns: 2}); err == nil {
		t.Fatalf("expected an error for invalid options")
	}
}
