// Package chunker splits source and documentation files into overlapping
// chunks for retrieval indexing.
package chunker

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/panbanda/insight/pkg/source"
	"github.com/zeebo/blake3"
)

// Chunk types.
const (
	TypeCode          = "code"
	TypeDocumentation = "documentation"
)

// Defaults for the chunk size policy.
const (
	DefaultSize         = 1500
	DefaultOverlapLines = 10

	// minBoundarySize is the size a code chunk must exceed before a
	// definition boundary closes it.
	minBoundarySize = 300
	windowLines     = 100
	windowStep      = 80
)

// Chunk is one retrievable slice of a file. Documentation chunks carry no
// line range.
type Chunk struct {
	ID        string `json:"id" toon:"id"`
	Content   string `json:"content" toon:"content"`
	FilePath  string `json:"file_path" toon:"file_path"`
	StartLine int    `json:"start_line,omitempty" toon:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty" toon:"end_line,omitempty"`
	Type      string `json:"type" toon:"type"`
	Language  string `json:"language,omitempty" toon:"language,omitempty"`
}

var boundaries = map[string]*regexp.Regexp{
	".py":   regexp.MustCompile(`^(class |def |async def )`),
	".js":   regexp.MustCompile(`^(class |function |const \w+ = |export |async )`),
	".ts":   regexp.MustCompile(`^(class |function |const \w+ = |export |interface |type )`),
	".java": regexp.MustCompile(`^(public |private |protected |class |interface )`),
	".go":   regexp.MustCompile(`^(func |type |package )`),
}

var defaultBoundary = regexp.MustCompile(`^(def |function |class )`)

var codeExts = map[string]bool{
	".py": true, ".java": true, ".js": true, ".ts": true, ".go": true, ".rb": true, ".php": true,
}

var docExts = map[string]bool{".md": true, ".txt": true, ".rst": true}

// Chunker holds the chunk size policy.
type Chunker struct {
	Size         int
	OverlapLines int
}

// New creates a Chunker. Non-positive values fall back to the defaults,
// except overlapLines which may be zero.
func New(size, overlapLines int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlapLines < 0 {
		overlapLines = DefaultOverlapLines
	}
	return &Chunker{Size: size, OverlapLines: overlapLines}
}

// Chunk splits one file. Code files break at definition boundaries,
// documentation at blank lines, anything else into fixed line windows.
func (c *Chunker) Chunk(path, content string) []Chunk {
	if content == "" {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(path))

	var chunks []Chunk
	switch {
	case codeExts[ext]:
		chunks = c.byDefinitions(path, content, ext)
	case docExts[ext]:
		chunks = c.byParagraphs(path, content)
	default:
		chunks = slidingWindow(path, content)
	}
	assignIDs(chunks)
	return chunks
}

// ChunkFiles chunks every file in order; ids are numbered across files.
func (c *Chunker) ChunkFiles(files []source.File) []Chunk {
	var all []Chunk
	for _, f := range files {
		all = append(all, c.Chunk(f.Path, f.Text)...)
	}
	assignIDs(all)
	return all
}

func (c *Chunker) byDefinitions(path, content, ext string) []Chunk {
	boundary, ok := boundaries[ext]
	if !ok {
		boundary = defaultBoundary
	}
	lang := ext[1:]
	lines := strings.Split(content, "\n")

	var chunks []Chunk
	emit := func(block []string, start, end int) {
		chunks = append(chunks, Chunk{
			Content:   strings.Join(block, "\n"),
			FilePath:  path,
			StartLine: start,
			EndLine:   end,
			Type:      TypeCode,
			Language:  lang,
		})
	}

	var current []string
	size, start := 0, 1
	for idx, line := range lines {
		n := idx + 1
		if boundary.MatchString(strings.TrimSpace(line)) && len(current) > 0 && size > minBoundarySize {
			emit(current, start, n-1)
			carry := c.tail(current)
			current = append(carry, line)
			size = textSize(current)
			start = n - len(carry)
			continue
		}

		current = append(current, line)
		size += utf8.RuneCountInString(line)
		if size > c.Size {
			emit(current, start, n)
			current = c.tail(current)
			size = textSize(current)
			start = n - len(current) + 1
		}
	}
	if len(current) > 0 {
		emit(current, start, len(lines))
	}
	return chunks
}

// tail returns a copy of the last OverlapLines lines.
func (c *Chunker) tail(lines []string) []string {
	from := max(len(lines)-c.OverlapLines, 0)
	out := make([]string, len(lines)-from, len(lines)-from+1)
	copy(out, lines[from:])
	return out
}

func (c *Chunker) byParagraphs(path, content string) []Chunk {
	var chunks []Chunk
	emit := func(paras []string) {
		chunks = append(chunks, Chunk{
			Content:  strings.Join(paras, "\n\n"),
			FilePath: path,
			Type:     TypeDocumentation,
		})
	}

	var current []string
	size := 0
	for _, para := range strings.Split(content, "\n\n") {
		n := utf8.RuneCountInString(para)
		if size+n > c.Size && len(current) > 0 {
			emit(current)
			current = []string{current[len(current)-1], para}
			size = textSize(current)
			continue
		}
		current = append(current, para)
		size += n
	}
	if len(current) > 0 {
		emit(current)
	}
	return chunks
}

func slidingWindow(path, content string) []Chunk {
	lines := strings.Split(content, "\n")
	var chunks []Chunk
	for i := 0; i < len(lines); i += windowStep {
		end := min(i+windowLines, len(lines))
		chunks = append(chunks, Chunk{
			Content:   strings.Join(lines[i:end], "\n"),
			FilePath:  path,
			StartLine: i + 1,
			EndLine:   end,
			Type:      TypeCode,
		})
	}
	return chunks
}

func textSize(lines []string) int {
	n := 0
	for _, l := range lines {
		n += utf8.RuneCountInString(l)
	}
	return n
}

// ID returns "chunk_<i>_<first 8 hex digits of the content's blake3 hash>".
func ID(i int, content string) string {
	sum := blake3.Sum256([]byte(content))
	return fmt.Sprintf("chunk_%d_%s", i, hex.EncodeToString(sum[:4]))
}

func assignIDs(chunks []Chunk) {
	for i := range chunks {
		chunks[i].ID = ID(i, chunks[i].Content)
	}
}
