// Package file reads transcripts saved as a JSON array of
// {"text","start","duration"} records.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"videorag/internal/domain"
)

// Source loads transcripts from the local filesystem. With a directory set,
// references must be relative paths that stay inside it.
type Source struct {
	dir string
}

func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

func (s *Source) Name() string { return "file" }

func (s *Source) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", domain.ErrInvalidSource)
	}
	if !strings.EqualFold(filepath.Ext(ref), ".json") {
		return "", fmt.Errorf("%w: %q is not a .json transcript", domain.ErrInvalidSource, ref)
	}
	if s.dir == "" {
		return filepath.Clean(ref), nil
	}
	if filepath.IsAbs(ref) {
		return "", fmt.Errorf("%w: %q must be relative to the transcript directory", domain.ErrInvalidSource, ref)
	}
	path := filepath.Join(s.dir, ref)
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q is outside the transcript directory", domain.ErrInvalidSource, ref)
	}
	return path, nil
}

func (s *Source) Fetch(_ context.Context, path string) ([]domain.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %s", domain.ErrSourceFetch, domain.ErrVideoNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceFetch, err)
	}
	var fragments []domain.Fragment
	if err := json.Unmarshal(data, &fragments); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrSourceFetch, path, err)
	}
	return fragments, nil
}
