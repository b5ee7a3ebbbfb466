// Package codec reads and writes pedigree records and inference reports.
package codec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"heredity/internal/domain"
)

// ErrUnknownFormat is returned for a format name or file extension with no codec
var ErrUnknownFormat = errors.New("codec: unknown format")

// Importer interface for importing pedigree records from various formats
type Importer interface {
	Parse(r io.Reader) ([]domain.Individual, error)
	Format() string
}

// Exporter interface for exporting pedigree records to various formats
type Exporter interface {
	Export(people []domain.Individual, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// Formats lists the supported record formats
func Formats() []string {
	return []string{"csv", "yaml", "json"}
}

// ForFormat returns the codec for a format name
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "csv":
		return NewCSVCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// FormatFromPath picks a format name from a file extension
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv", nil
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(path))
	}
}

// LoadFile reads pedigree records from path. An empty format is inferred
// from the file extension.
func LoadFile(path, format string) ([]domain.Individual, error) {
	if format == "" {
		var err error
		if format, err = FormatFromPath(path); err != nil {
			return nil, err
		}
	}
	c, err := ForFormat(format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	people, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return people, nil
}
