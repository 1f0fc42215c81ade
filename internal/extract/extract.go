// Package extract reads source documents into per-page text records.
//
// Extraction fails softly: a missing or unreadable source is logged and yields no
// pages, so a build over several sources keeps going with whatever could be read.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bull/docsearch/internal/markdown"
)

// Page is the trimmed text of one page of a source file. Page numbers start at 1.
type Page struct {
	Filename string
	Page     int
	Text     string
}

// Extractor dispatches on file extension.
type Extractor struct {
	logger   *slog.Logger
	sections *markdown.Splitter
}

// New creates an extractor. A nil logger means slog.Default().
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		logger:   logger,
		sections: markdown.NewSplitter(),
	}
}

// Extract returns the pages of path that have text. It never fails; problems are logged.
func (e *Extractor) Extract(path string) []Page {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return e.PDF(path)
	case ".md", ".markdown":
		return e.Markdown(path)
	default:
		e.logger.Warn("Unsupported source type, skipping", "path", path)
		return []Page{}
	}
}

// PDF extracts one record per page with text. Pages without text are skipped.
func (e *Extractor) PDF(path string) []Page {
	pages := []Page{}
	if !e.exists(path) {
		return pages
	}

	f, reader, err := openPDF(path)
	if err != nil {
		e.logger.Error("Error opening PDF", "path", path, "error", err)
		return pages
	}
	defer f.Close()

	filename := filepath.Base(path)
	fonts := make(map[string]*pdf.Font)
	total := reader.NumPage()

	for i := 1; i <= total; i++ {
		text, err := pageText(reader, i, fonts)
		if err != nil {
			e.logger.Warn("Failed to read PDF page", "path", path, "page", i, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			e.logger.Debug("Skipping page without text", "path", path, "page", i)
			continue
		}
		pages = append(pages, Page{Filename: filename, Page: i, Text: text})
	}

	e.logger.Info("Extracted PDF", "path", path, "pages", total, "with_text", len(pages))
	return pages
}

// Markdown extracts one record per H1/H2 section; the section ordinal is the page number.
func (e *Extractor) Markdown(path string) []Page {
	pages := []Page{}
	if !e.exists(path) {
		return pages
	}

	source, err := os.ReadFile(path)
	if err != nil {
		e.logger.Error("Error reading markdown", "path", path, "error", err)
		return pages
	}

	sections, err := e.sections.Split(source)
	if err != nil {
		e.logger.Error("Error parsing markdown", "path", path, "error", err)
		return pages
	}

	filename := filepath.Base(path)
	for _, s := range sections {
		pages = append(pages, Page{Filename: filename, Page: s.Index + 1, Text: s.WithContext()})
	}

	e.logger.Info("Extracted markdown", "path", path, "sections", len(pages))
	return pages
}

func (e *Extractor) exists(path string) bool {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		e.logger.Error("Source file does not exist", "path", path)
		return false
	}
	if err != nil {
		e.logger.Error("Cannot stat source file", "path", path, "error", err)
		return false
	}
	return true
}

// openPDF wraps pdf.Open, turning parser panics on malformed input into errors.
func openPDF(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdf.Open(path)
}

func pageText(reader *pdf.Reader, num int, fonts map[string]*pdf.Font) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("malformed page: %v", rec)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(fonts)
}
