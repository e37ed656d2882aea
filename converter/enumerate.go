package converter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"webpconv/models"
)

// SupportedExtensions are the source formats picked up from the input folder
var SupportedExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tiff"}

// IsSupported reports whether path has one of the supported extensions, ignoring case
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Enumerate lists the absolute paths of all convertible files under the
// input folder, descending into subfolders only when asked to. Symlinked
// folders are followed, each real folder at most once. Paths stay below the
// input folder as given, are deduplicated case-insensitively and returned sorted.
func Enumerate(opts models.ConversionOptions) ([]string, error) {
	root, err := filepath.Abs(opts.InputFolder)
	if err != nil {
		return nil, fmt.Errorf("resolve input folder: %w", err)
	}

	s := &scanner{
		recursive: opts.IncludeSubfolders,
		seen:      make(map[string]struct{}),
		visited:   make(map[string]struct{}),
	}
	if err := s.walk(root); err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Strings(s.files)
	return s.files, nil
}

type scanner struct {
	recursive bool
	seen      map[string]struct{} // lower-cased file paths
	visited   map[string]struct{} // resolved folder paths
	files     []string
}

// walk scans dir, which may be or contain symlinks. Reported paths keep
// dir as their prefix so they map back onto the input folder.
func (s *scanner) walk(dir string) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if _, done := s.visited[real]; done {
		return nil
	}
	s.visited[real] = struct{}{}

	return filepath.WalkDir(real, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(real, path)
		if err != nil {
			return err
		}
		logical := filepath.Join(dir, rel)

		if d.IsDir() {
			if path == real {
				return nil
			}
			if !s.recursive {
				return filepath.SkipDir
			}
			if _, done := s.visited[path]; done {
				return filepath.SkipDir
			}
			s.visited[path] = struct{}{}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			// dangling links fall through and fail at conversion like any unreadable file
			if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				if !s.recursive {
					return nil
				}
				return s.walk(logical)
			}
		}

		if !IsSupported(path) {
			return nil
		}
		key := strings.ToLower(logical)
		if _, dup := s.seen[key]; dup {
			return nil
		}
		s.seen[key] = struct{}{}
		s.files = append(s.files, logical)
		return nil
	})
}
