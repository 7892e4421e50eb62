package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/alexnv/09-online-library-parser/config"
	"github.com/alexnv/09-online-library-parser/render"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	defaultCfg := config.DefaultConfig()
	defaultOpts := render.DefaultOptions()

	jsonDefault := defaultCfg.JSONPath
	if value, ok := config.EnvString("LIBRARY_JSON_PATH"); ok {
		jsonDefault = value
	}
	outDefault := "pages"
	if value, ok := config.EnvString("LIBRARY_SITE_DIR"); ok {
		outDefault = value
	}

	jsonPath := flag.String("json-path", jsonDefault, "Path to the books dataset")
	outDir := flag.String("out", outDefault, "Directory for the rendered pages")
	perPage := flag.Int("per-page", defaultOpts.BooksPerPage, "Books per page")
	columns := flag.Int("columns", defaultOpts.Columns, "Books per row")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	pages, err := render.Render(*jsonPath, *outDir, render.Options{BooksPerPage: *perPage, Columns: *columns})
	if err != nil {
		slog.Error("render failed", slog.Any("error", err))
		os.Exit(1)
	}

	color.New(color.FgGreen, color.Bold).Printf("Rendered %d page(s)", pages)
	fmt.Printf(" into %s\n", *outDir)
}
