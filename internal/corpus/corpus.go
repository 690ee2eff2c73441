// Package corpus loads the token sequences a workload feeds to the interner.
//
// Files are read as text, one sequence per line, optionally LZ4 frame
// compressed (".lz4" suffix). Each document is tagged with the language
// enry detects for it.
package corpus

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pierrec/lz4/v4"
	"github.com/src-d/enry/v2"
)

// CompressedExt marks LZ4 frame compressed corpus files.
const CompressedExt = ".lz4"

// UnknownLanguage labels documents enry cannot classify.
const UnknownLanguage = "Unknown"

// maxLineBytes bounds a single corpus line.
const maxLineBytes = 1 << 20

// ErrEmpty indicates no readable documents were found.
var ErrEmpty = errors.New("corpus is empty")

// Document is one source file split into token lines.
type Document struct {
	Path     string
	Language string
	Lines    [][]string
}

// Corpus is an ordered set of documents.
type Corpus struct {
	Documents []Document
}

// Sequences returns every non-empty line of every document in order.
func (c *Corpus) Sequences() [][]string {
	var out [][]string

	for _, doc := range c.Documents {
		for _, line := range doc.Lines {
			if len(line) > 0 {
				out = append(out, line)
			}
		}
	}

	return out
}

// Languages counts documents per detected language.
func (c *Corpus) Languages() map[string]int {
	counts := make(map[string]int)
	for _, doc := range c.Documents {
		counts[doc.Language]++
	}

	return counts
}

// Tokens counts tokens across all documents.
func (c *Corpus) Tokens() int {
	total := 0

	for _, doc := range c.Documents {
		for _, line := range doc.Lines {
			total += len(line)
		}
	}

	return total
}

// Load reads every path. Directories are walked recursively, skipping vendored
// and binary files.
func Load(ctx context.Context, paths ...string) (*Corpus, error) {
	c := &Corpus{}

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if vendored(root, path, d.IsDir()) {
				if d.IsDir() {
					return filepath.SkipDir
				}

				return nil
			}

			if d.IsDir() {
				return nil
			}

			doc, ok, err := ReadFile(path)
			if err != nil {
				return err
			}

			if ok {
				c.Documents = append(c.Documents, doc)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("load corpus %s: %w", root, err)
		}
	}

	if len(c.Documents) == 0 {
		return nil, ErrEmpty
	}

	return c, nil
}

// ReadFile reads one corpus file. It reports false for binary content.
func ReadFile(path string) (Document, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f

	name := filepath.Base(path)
	if strings.HasSuffix(name, CompressedExt) {
		r = lz4.NewReader(f)
		name = strings.TrimSuffix(name, CompressedExt)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, false, fmt.Errorf("read %s: %w", path, err)
	}

	if enry.IsBinary(data) {
		return Document{}, false, nil
	}

	lines, err := Split(bytes.NewReader(data))
	if err != nil {
		return Document{}, false, fmt.Errorf("split %s: %w", path, err)
	}

	return Document{Path: path, Language: detectLanguage(name, data), Lines: lines}, true, nil
}

// Split tokenizes r line by line.
func Split(r io.Reader) ([][]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)

	var lines [][]string

	for sc.Scan() {
		lines = append(lines, Tokenize(sc.Text()))
	}

	err := sc.Err()
	if err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}

	return lines, nil
}

// Tokenize splits a line into identifier-like words and single punctuation
// runes, dropping whitespace.
func Tokenize(line string) []string {
	var (
		tokens []string
		start  = -1
	)

	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, line[start:end])
			start = -1
		}
	}

	for i, r := range line {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if start < 0 {
				start = i
			}
		case unicode.IsSpace(r):
			flush(i)
		default:
			flush(i)
			tokens = append(tokens, string(r))
		}
	}

	flush(len(line))

	return tokens
}

// vendored matches path relative to root against enry's vendor patterns.
func vendored(root, path string, dir bool) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}

	rel = filepath.ToSlash(rel)
	if dir {
		rel += "/"
	}

	return enry.IsVendor(rel)
}

func detectLanguage(name string, data []byte) string {
	lang := enry.GetLanguage(name, nil)
	if lang == "" {
		lang = enry.GetLanguage(name, data)
	}

	if lang == "" {
		return UnknownLanguage
	}

	return lang
}
