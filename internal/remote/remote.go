// Package remote resolves repository references and shallow-clones them
// into a local cache directory.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog/log"
)

// Source represents a remote repository to analyze.
type Source struct {
	URL      string // normalized git URL
	Ref      string // branch or tag (empty = default branch)
	Name     string // repository name used for the cache directory
	CloneDir string // set after Clone
}

// Parse detects if a path is a remote reference.
// Returns nil if path exists on filesystem (local path takes precedence).
func Parse(path string) (*Source, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	ref := ""
	// the @ of an scp-style git@host address is not a ref separator
	if idx := strings.LastIndex(path, "@"); idx > 0 && !(strings.HasPrefix(path, "git@") && idx == 3) {
		ref = path[idx+1:]
		path = path[:idx]
	}

	var url string
	switch {
	case strings.HasPrefix(path, "https://"), strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "git@"):
		url = path
	case strings.HasPrefix(path, "github.com/"):
		url = "https://" + path
	case isGitHubShorthand(path):
		url = "https://github.com/" + path
	default:
		return nil, nil
	}

	name := repoName(url)
	if name == "" {
		return nil, fmt.Errorf("cannot determine repository name from %q", url)
	}
	return &Source{URL: url, Ref: ref, Name: name}, nil
}

// isGitHubShorthand returns true if path matches owner/repo pattern.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 || strings.Count(path, "/") != 1 {
		return false
	}
	// a dot before the slash would be a domain
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	return slashIdx > 0 && slashIdx < len(path)-1
}

func repoName(url string) string {
	url = strings.TrimSuffix(strings.TrimSuffix(url, "/"), ".git")
	if i := strings.LastIndexAny(url, "/:"); i != -1 {
		url = url[i+1:]
	}
	return url
}

// Dir returns the cache directory for the source under cacheDir.
func (s *Source) Dir(cacheDir string) string {
	name := s.Name
	if s.Ref != "" {
		name += "@" + strings.ReplaceAll(s.Ref, "/", "_")
	}
	return filepath.Join(cacheDir, name)
}

// Clone shallow-clones the repository into its cache directory, reusing an
// existing clone. Clone progress is written to progress when non-nil.
func (s *Source) Clone(ctx context.Context, cacheDir string, progress io.Writer) error {
	dir := s.Dir(cacheDir)

	if _, err := git.PlainOpen(dir); err == nil {
		log.Debug().Str("path", dir).Msg("reusing cached clone")
		s.CloneDir = dir
		return nil
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	log.Info().Str("url", s.URL).Str("path", dir).Msg("cloning repository")

	opts := &git.CloneOptions{
		URL:      s.URL,
		Depth:    1,
		Progress: progress,
	}

	var err error
	if s.Ref == "" {
		_, err = git.PlainCloneContext(ctx, dir, false, opts)
	} else {
		err = s.cloneRef(ctx, dir, opts)
	}
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("failed to clone %s: %w", s.URL, err)
	}

	s.CloneDir = dir
	return nil
}

// cloneRef tries the ref as a branch, then as a tag.
func (s *Source) cloneRef(ctx context.Context, dir string, opts *git.CloneOptions) error {
	opts.SingleBranch = true
	var err error
	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(s.Ref),
		plumbing.NewTagReferenceName(s.Ref),
	} {
		opts.ReferenceName = name
		_, err = git.PlainCloneContext(ctx, dir, false, opts)
		if err == nil {
			return nil
		}
		if !errors.Is(err, plumbing.ErrReferenceNotFound) && !strings.Contains(err.Error(), "reference not found") {
			return err
		}
		log.Debug().Str("ref", name.String()).Msg("reference not found")
		os.RemoveAll(dir)
	}
	return err
}

// Cleanup removes the clone directory.
func (s *Source) Cleanup() error {
	if s.CloneDir == "" {
		return nil
	}
	return os.RemoveAll(s.CloneDir)
}
