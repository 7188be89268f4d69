package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

const maxTitleRunes = 120

var fenceExpr = regexp.MustCompile("(?s)```.*?```")

// Loader walks the knowledge-base directories and returns every
// supported document in deterministic path order. Unsupported files are
// skipped, unreadable ones are logged and skipped; a bad file must not
// sink the whole build.
type Loader struct {
	dirs []string
	log  *slog.Logger
}

func NewLoader(dirs []string, log *slog.Logger) *Loader {
	return &Loader{dirs: dirs, log: log}
}

func (l *Loader) Load(ctx context.Context) ([]domain.SourceDocument, error) {
	paths, err := l.listFiles()
	if err != nil {
		return nil, err
	}

	docs := make([]domain.SourceDocument, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := l.loadFile(path)
		if err != nil {
			l.log.Warn("skipping unreadable source", "path", path, "error", err)
			continue
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (l *Loader) listFiles() ([]string, error) {
	var paths []string
	for _, dir := range l.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".md", ".txt", ".jsonl", ".pdf", ".xlsx":
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (l *Loader) loadFile(path string) (*domain.SourceDocument, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		return loadText(path)
	case ".jsonl":
		return loadJSONL(path)
	case ".pdf":
		return loadPDF(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, nil
	}
}

func loadText(path string) (*domain.SourceDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := normalizeText(decodeText(raw))
	if text == "" {
		return nil, nil
	}
	return &domain.SourceDocument{
		Source: path,
		Title:  titleOf(text, path),
		Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		Units:  []domain.SourceUnit{{Text: text}},
	}, nil
}

type jsonlRecord struct {
	Text        string  `json:"text"`
	Source      string  `json:"source"`
	Title       string  `json:"title"`
	DocType     string  `json:"doc_type"`
	VersionDate *string `json:"version_date"`
	Page        *int    `json:"page"`
}

// loadJSONL reads pre-chunked records. Each line is one retrievable
// unit carrying its own provenance, so the chunker must not re-split it.
func loadJSONL(path string) (*domain.SourceDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var units []domain.SourceUnit
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var record jsonlRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		text := normalizeText(record.Text)
		if text == "" {
			continue
		}
		units = append(units, domain.SourceUnit{
			Text:        text,
			Source:      record.Source,
			Title:       record.Title,
			DocType:     domain.DocType(record.DocType),
			VersionDate: record.VersionDate,
			Page:        record.Page,
			PreChunked:  true,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, nil
	}
	return &domain.SourceDocument{
		Source: path,
		Title:  stemTitle(path),
		Format: "jsonl",
		Units:  units,
	}, nil
}

// normalizeText strips fenced code blocks and collapses runs of blank
// lines and intra-line whitespace.
func normalizeText(text string) string {
	text = fenceExpr.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// titleOf prefers the first markdown heading, then a short first line,
// then the filename stem.
func titleOf(text, path string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if heading := strings.TrimSpace(strings.TrimLeft(line, "#")); strings.HasPrefix(line, "#") && heading != "" {
			return heading
		}
		if utf8.RuneCountInString(line) <= maxTitleRunes {
			return line
		}
		break
	}
	return stemTitle(path)
}

func stemTitle(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.TrimSpace(stem)
	if stem == "" {
		return "Uten tittel"
	}
	return stem
}

// decodeText falls back to Latin-1 for legacy exports that are not
// valid UTF-8.
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
