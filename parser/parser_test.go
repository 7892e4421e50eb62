package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/alexnv/09-online-library-parser/models"
)

const bookPage = `<html><body><div id="content">
<h1>Алиса в стране чудес &nbsp; :: &nbsp; <a href="/a1/">Кэрролл Льюис</a></h1>
<div class="bookimage"><a href="/b9/"><img src="/shots/9.jpg" alt="cover"></a></div>
<table class="d_book"><tr><td>
<a href="/txt.php?id=9" title="скачать книгу txt">скачать txt</a>
</td></tr></table>
<span class="d_book">Жанр книги: <a href="/l55/">Научная фантастика</a>, <a href="/l3/">Прочие приключения</a>, <a href="/l55/">Научная фантастика</a></span>
<div class="texts"><b>Читатель</b><span class="black">Отличная книга</span></div>
<div class="texts"><b>Другой</b><span class="black">Скучно</span></div>
<div class="texts"><b>Третий</b><span class="black">Отличная книга</span></div>
</div></body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

func TestParseBookPage(t *testing.T) {
	book, err := ParseBookPage([]byte(bookPage))
	if err != nil {
		t.Fatalf("ParseBookPage: %v", err)
	}

	if book.Name != "Алиса в стране чудес" {
		t.Errorf("name = %q", book.Name)
	}
	if book.Author != "Кэрролл Льюис" {
		t.Errorf("author = %q", book.Author)
	}
	if book.ImageURL != "/shots/9.jpg" {
		t.Errorf("image url = %q", book.ImageURL)
	}
	if book.DownloadURL != "/txt.php?id=9" {
		t.Errorf("download url = %q", book.DownloadURL)
	}
	wantGenres := []string{"Научная фантастика", "Прочие приключения"}
	if !reflect.DeepEqual(book.Genres, wantGenres) {
		t.Errorf("genres = %v, want %v", book.Genres, wantGenres)
	}
	wantComments := []string{"Отличная книга", "Скучно"}
	if !reflect.DeepEqual(book.Comments, wantComments) {
		t.Errorf("comments = %v, want %v", book.Comments, wantComments)
	}
	if book.ID != 0 || book.BookPath != "" || book.ImgSrc != "" {
		t.Errorf("extractor should not populate id or paths: %+v", book)
	}
}

func TestParseBookPageMalformed(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		anchor string
	}{
		{
			name:   "missing title heading",
			html:   `<div id="content"><div class="bookimage"><img src="/shots/1.jpg"></div></div>`,
			anchor: titleSelector,
		},
		{
			name:   "title without separator",
			html:   `<div id="content"><h1>Just a name</h1><div class="bookimage"><img src="/shots/1.jpg"></div></div>`,
			anchor: titleSelector,
		},
		{
			name:   "title with three parts",
			html:   `<div id="content"><h1>A :: B :: C</h1><div class="bookimage"><img src="/shots/1.jpg"></div></div>`,
			anchor: titleSelector,
		},
		{
			name:   "empty author",
			html:   `<div id="content"><h1>A :: </h1><div class="bookimage"><img src="/shots/1.jpg"></div></div>`,
			anchor: titleSelector,
		},
		{
			name:   "missing image container",
			html:   `<div id="content"><h1>A :: B</h1></div>`,
			anchor: imageSelector,
		},
		{
			name:   "image without src",
			html:   `<div id="content"><h1>A :: B</h1><div class="bookimage"><img alt="x"></div></div>`,
			anchor: imageSelector,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBookPage([]byte(tt.html))
			var malformed ErrMalformedPage
			if !errors.As(err, &malformed) {
				t.Fatalf("expected ErrMalformedPage, got %v", err)
			}
			if malformed.Anchor != tt.anchor {
				t.Fatalf("anchor = %q, want %q", malformed.Anchor, tt.anchor)
			}
		})
	}
}

func TestParseDownloadURLOptional(t *testing.T) {
	doc := mustDoc(t, `<div id="content"><h1>A :: B</h1><div class="bookimage"><img src="/shots/1.jpg"></div>
<table class="d_book"><tr><td><a href="/read1/">читать</a></td></tr></table></div>`)

	if got := ParseDownloadURL(doc); got != "" {
		t.Fatalf("download url = %q, want empty", got)
	}
	book, err := ExtractBook(doc)
	if err != nil {
		t.Fatalf("book without text should still extract, got %v", err)
	}
	if book.Genres == nil || book.Comments == nil {
		t.Fatalf("empty sets should be non-nil: %+v", book)
	}
}

func TestParseBookLinks(t *testing.T) {
	doc := mustDoc(t, `<div id="content">
<table class="d_book"><tr><td><a href="/b239/"><img src="/shots/239.jpg"></a></td></tr><tr><td><a href="/a5/">author</a></td></tr></table>
<table class="d_book"><tr><td><a href="/b550/">x</a></td></tr></table>
<table class="d_book"><tr><td><a href="/b239/">dup</a></td></tr></table>
<table class="d_book"><tr><td>no link</td></tr></table>
</div>`)

	got := ParseBookLinks(doc)
	want := []string{"/b239/", "/b550/"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("links = %v, want %v", got, want)
	}
}

func TestBookIDFromLink(t *testing.T) {
	tests := []struct {
		link    string
		want    int
		wantErr bool
	}{
		{link: "/b239/", want: 239},
		{link: "b7/", want: 7},
		{link: "https://tululu.org/b12/", want: 12},
		{link: "/a239/", wantErr: true},
		{link: "/bxyz/", wantErr: true},
		{link: "/b0/", wantErr: true},
		{link: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			got, err := BookIDFromLink(tt.link)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BookIDFromLink(%q) error = %v, wantErr %v", tt.link, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("BookIDFromLink(%q) = %d, want %d", tt.link, got, tt.want)
			}
		})
	}
}

func TestLinkBuilders(t *testing.T) {
	if got := CatalogLink(55, 3); got != "l55/3/" {
		t.Errorf("CatalogLink = %q", got)
	}
	if got := BookLink(42); got != "b42/" {
		t.Errorf("BookLink = %q", got)
	}
}

func TestValidateBook(t *testing.T) {
	tests := []struct {
		name    string
		book    *models.Book
		wantErr bool
	}{
		{
			name:    "valid book",
			book:    &models.Book{ID: 1, Name: "Name", Author: "Author", ImageURL: "http://example.test/1.jpg"},
			wantErr: false,
		},
		{
			name:    "nil book",
			book:    nil,
			wantErr: true,
		},
		{
			name:    "missing id",
			book:    &models.Book{Name: "Name", Author: "Author", ImageURL: "http://example.test/1.jpg"},
			wantErr: true,
		},
		{
			name:    "missing name",
			book:    &models.Book{ID: 1, Name: "  ", Author: "Author", ImageURL: "http://example.test/1.jpg"},
			wantErr: true,
		},
		{
			name:    "missing author",
			book:    &models.Book{ID: 1, Name: "Name", ImageURL: "http://example.test/1.jpg"},
			wantErr: true,
		},
		{
			name:    "missing image",
			book:    &models.Book{ID: 1, Name: "Name", Author: "Author"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBook(tt.book)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBook() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUniqueStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil", input: nil, expected: []string{}},
		{name: "duplicates", input: []string{"a", "b", "a"}, expected: []string{"a", "b"}},
		{name: "whitespace", input: []string{" a ", "a", "", "  "}, expected: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := UniqueStrings(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("UniqueStrings(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
