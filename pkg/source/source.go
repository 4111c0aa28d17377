// Package source loads the (path, text) pairs that every analysis consumes.
package source

import (
	"bufio"
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// File is one source file handed to the analyzers. Path is relative to the
// loaded root and uses forward slashes.
type File struct {
	Path string `json:"path" toon:"path"`
	Text string `json:"-" toon:"-"`
}

// Paths returns the paths of files in order.
func Paths(files []File) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

// DefaultExcludeSubstrings are path fragments that remove a file from analysis.
var DefaultExcludeSubstrings = []string{"test", "example", "__pycache__"}

// DefaultExtensions are the file extensions loaded by default.
var DefaultExtensions = []string{".py"}

// Loader walks a directory tree and reads matching source files.
type Loader struct {
	fs          afero.Fs
	extensions  []string
	excludes    []string
	gitignore   bool
	maxFileSize int64
}

// Option configures a Loader.
type Option func(*Loader)

// WithExtensions sets the file extensions to load.
func WithExtensions(exts []string) Option {
	return func(l *Loader) {
		l.extensions = exts
	}
}

// WithExcludeSubstrings sets the path fragments that exclude a file.
func WithExcludeSubstrings(subs []string) Option {
	return func(l *Loader) {
		l.excludes = subs
	}
}

// WithGitignore toggles .gitignore handling.
func WithGitignore(enabled bool) Option {
	return func(l *Loader) {
		l.gitignore = enabled
	}
}

// WithMaxFileSize skips files larger than maxSize bytes (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(l *Loader) {
		l.maxFileSize = maxSize
	}
}

// NewLoader creates a loader reading from fsys. A nil fsys means the OS filesystem.
func NewLoader(fsys afero.Fs, opts ...Option) *Loader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	l := &Loader{
		fs:         fsys,
		extensions: DefaultExtensions,
		excludes:   DefaultExcludeSubstrings,
		gitignore:  true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load walks root and returns matching files sorted by relative path.
// Unreadable or non-UTF-8 files are skipped.
func (l *Loader) Load(ctx context.Context, root string) ([]File, error) {
	var (
		files    []File
		patterns []gitignore.Pattern
	)

	err := afero.Walk(l.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		parts := splitPath(rel)

		if info.IsDir() {
			if rel != "." && (info.Name() == ".git" || l.ignored(patterns, parts, true)) {
				return filepath.SkipDir
			}
			if l.gitignore {
				patterns = append(patterns, l.readGitignore(path, parts)...)
			}
			return nil
		}

		if !l.wanted(rel) || l.ignored(patterns, parts, false) {
			return nil
		}
		if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
			log.Debug().Str("file", rel).Int64("size", info.Size()).Msg("skipping oversized file")
			return nil
		}

		data, readErr := afero.ReadFile(l.fs, path)
		if readErr != nil {
			log.Debug().Str("file", rel).Err(readErr).Msg("skipping unreadable file")
			return nil
		}
		if !utf8.Valid(data) {
			log.Debug().Str("file", rel).Msg("skipping non-UTF-8 file")
			return nil
		}

		files = append(files, File{Path: rel, Text: string(data)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b File) int {
		return strings.Compare(a.Path, b.Path)
	})
	return files, nil
}

// wanted applies the extension and substring rules to a relative path.
func (l *Loader) wanted(rel string) bool {
	if !slices.Contains(l.extensions, strings.ToLower(filepath.Ext(rel))) {
		return false
	}
	for _, sub := range l.excludes {
		if sub != "" && strings.Contains(rel, sub) {
			return false
		}
	}
	return true
}

func (l *Loader) ignored(patterns []gitignore.Pattern, parts []string, isDir bool) bool {
	if len(patterns) == 0 || len(parts) == 0 {
		return false
	}
	return gitignore.NewMatcher(patterns).Match(parts, isDir)
}

// readGitignore parses dir/.gitignore, scoping each pattern to dir.
func (l *Loader) readGitignore(dir string, domain []string) []gitignore.Pattern {
	f, err := l.fs.Open(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, domain))
	}
	return patterns
}

func splitPath(rel string) []string {
	if rel == "." || rel == "" {
		return nil
	}
	return strings.Split(rel, "/")
}

// FromMap builds files from path to text, sorted by path.
func FromMap(m map[string]string) []File {
	files := make([]File, 0, len(m))
	for path, text := range m {
		files = append(files, File{Path: path, Text: text})
	}
	slices.SortFunc(files, func(a, b File) int {
		return strings.Compare(a.Path, b.Path)
	})
	return files
}
