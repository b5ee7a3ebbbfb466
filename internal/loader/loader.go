// Package loader finds pedigree files on disk so a server can be seeded from
// a directory.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"heredity/internal/codec"
	"heredity/internal/domain"
)

// Source is a pedigree read from a file
type Source struct {
	// ID is derived from the absolute path, so reloading a file replaces
	// the pedigree it created before
	ID          string
	Path        string
	Name        string
	Format      string
	Individuals []domain.Individual
}

// IDForPath returns the stable pedigree ID of a file
func IDForPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(abs))).String(), nil
}

// LoadFile reads one pedigree file. The pedigree is named after the file.
func LoadFile(path string) (*Source, error) {
	format, err := codec.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	people, err := codec.LoadFile(path, format)
	if err != nil {
		return nil, err
	}
	id, err := IDForPath(path)
	if err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(path)

	base := filepath.Base(path)
	return &Source{
		ID:          id,
		Path:        abs,
		Name:        strings.TrimSuffix(base, filepath.Ext(base)),
		Format:      format,
		Individuals: people,
	}, nil
}

// Paths lists the pedigree files directly inside dir, sorted by name.
// Files without a known extension are skipped.
func Paths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, err := codec.FormatFromPath(e.Name()); err != nil {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadDir loads every pedigree file in dir. A file that fails to load stops
// the scan.
func LoadDir(dir string) ([]*Source, error) {
	paths, err := Paths(dir)
	if err != nil {
		return nil, err
	}

	sources := make([]*Source, 0, len(paths))
	for _, path := range paths {
		src, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
