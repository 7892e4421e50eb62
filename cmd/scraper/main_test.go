package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexnv/09-online-library-parser/pipeline"
)

func TestCreateWriter(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "books_info.json")

	tests := []struct {
		format  string
		wantErr bool
	}{
		{format: "json"},
		{format: "dual"},
		{format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			writer, err := createWriter(tt.format, jsonPath)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error for format %q", tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("createWriter(%q): %v", tt.format, err)
			}
			if err := writer.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			if err := writer.Validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
		})
	}

	if _, ok := mustWriter(t, "dual", jsonPath).(*pipeline.MultiWriter); !ok {
		t.Fatalf("dual format should fan out to several writers")
	}
}

func mustWriter(t *testing.T, format, path string) pipeline.OutputWriter {
	t.Helper()
	writer, err := createWriter(format, path)
	if err != nil {
		t.Fatalf("createWriter: %v", err)
	}
	t.Cleanup(func() { writer.Close() })
	return writer
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("LIBRARY_GENRE", "12")
	t.Setenv("LIBRARY_SKIP_TEXT", "true")
	t.Setenv("LIBRARY_TIMEOUT", "5s")
	t.Setenv("LIBRARY_BASE_URL", " ")
	t.Setenv("LIBRARY_PAGE_ATTEMPTS", "4")
	t.Setenv("LIBRARY_ASSET_ATTEMPTS", "7")
	t.Setenv("LIBRARY_DELAY", "250ms")
	t.Setenv("LIBRARY_FORMAT", "DUAL")
	t.Setenv("LIBRARY_ASCII_NAMES", "1")

	cfg, err := parseConfig(nil)
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.Genre != 12 {
		t.Fatalf("genre = %d, want 12", cfg.Genre)
	}
	if cfg.StartPage != 1 {
		t.Fatalf("start page = %d, want the default 1", cfg.StartPage)
	}
	if !cfg.SkipText {
		t.Fatalf("skip text should be read from the environment")
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.BaseURL != "https://tululu.org/" {
		t.Fatalf("blank values should fall back, got %q", cfg.BaseURL)
	}
	if cfg.PageMaxAttempts != 4 || cfg.AssetMaxAttempts != 7 {
		t.Fatalf("attempts = %d/%d, want 4/7", cfg.PageMaxAttempts, cfg.AssetMaxAttempts)
	}
	if cfg.Delay != 250*time.Millisecond {
		t.Fatalf("delay = %v, want 250ms", cfg.Delay)
	}
	if cfg.OutputFormat != "dual" {
		t.Fatalf("format = %q, want dual", cfg.OutputFormat)
	}
	if !cfg.ASCIIFileNames {
		t.Fatalf("ascii names should be read from the environment")
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("LIBRARY_ASSET_ATTEMPTS", "7")
	t.Setenv("LIBRARY_DELAY", "250ms")

	cfg, err := parseConfig([]string{"-asset-attempts", "2", "-delay", "1s", "-start-id", "5", "-end-id", "9"})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.AssetMaxAttempts != 2 || cfg.Delay != time.Second {
		t.Fatalf("flags should win over the environment: attempts=%d delay=%v", cfg.AssetMaxAttempts, cfg.Delay)
	}
	if !cfg.IDMode() || cfg.StartID != 5 || cfg.EndID != 9 {
		t.Fatalf("id range = [%d, %d)", cfg.StartID, cfg.EndID)
	}
}

func TestMalformedEnvIsRejected(t *testing.T) {
	t.Setenv("LIBRARY_PAGE_ATTEMPTS", "many")

	if _, err := parseConfig(nil); err == nil || !strings.Contains(err.Error(), "LIBRARY_PAGE_ATTEMPTS") {
		t.Fatalf("expected an error naming the variable, got %v", err)
	}
}
