package analysis

import (
	"context"
	"io"

	"github.com/panbanda/insight/internal/remote"
	"github.com/panbanda/insight/pkg/source"
)

// Resolve maps a local path or GitHub reference to a local directory,
// cloning remote repositories into the configured cache directory.
func (s *Service) Resolve(ctx context.Context, path string, progress io.Writer) (string, error) {
	if path == "" {
		return ".", nil
	}
	src, err := remote.Parse(path)
	if err != nil {
		return "", err
	}
	if src == nil {
		return path, nil
	}
	if err := src.Clone(ctx, s.config.Source.CacheDir, progress); err != nil {
		return "", err
	}
	return src.CloneDir, nil
}

// LoadPath resolves path and loads its source files. The resolved local
// directory is returned alongside the files.
func (s *Service) LoadPath(ctx context.Context, path string, progress io.Writer) ([]source.File, string, error) {
	dir, err := s.Resolve(ctx, path, progress)
	if err != nil {
		return nil, "", err
	}
	files, err := s.LoadFiles(ctx, dir)
	if err != nil {
		return nil, "", err
	}
	return files, dir, nil
}
