package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFilenameFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://cdn.discordapp.com/attachments/1/2/cat.png", "cat.png"},
		{"https://cdn.discordapp.com/attachments/1/2/cat.png?ex=abc&is=def", "cat.png"},
		{"https://example.com/files/my%20doc.pdf", "my doc.pdf"},
		{"https://api.telegram.org/file/bot123:abc/photos/file_7.jpg", "file_7.jpg"},
		{"https://example.com/", "file"},
		{"", "file"},
	}

	for _, tc := range tests {
		if got := FilenameFromURL(tc.in); got != tc.want {
			t.Fatalf("FilenameFromURL(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtension(t *testing.T) {
	if got := Extension("Party.GIF"); got != ".gif" {
		t.Fatalf("Extension=%q want .gif", got)
	}
	if got := Extension("README"); got != "" {
		t.Fatalf("Extension=%q want empty", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename("../../etc/passwd"); got != "passwd" {
		t.Fatalf("SanitizeFilename=%q", got)
	}
	if got := SanitizeFilename(""); got != "file" {
		t.Fatalf("SanitizeFilename(empty)=%q", got)
	}
}

func TestHTTPFetcherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.txt":
			_, _ = w.Write([]byte("hello"))
		case "/big.bin":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetchOptions{MaxBytes: 32})

	data, err := f.Fetch(context.Background(), srv.URL+"/ok.txt")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected body %q", data)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatalf("expected error for 404")
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/big.bin"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
