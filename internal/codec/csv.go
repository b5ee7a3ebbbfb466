package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"heredity/internal/domain"
)

var csvHeader = []string{"name", "mother", "father", "trait"}

// CSVCodec handles the name,mother,father,trait record format. Trait is 1,
// 0 or blank for unknown; blank parents mark a root.
type CSVCodec struct{}

// NewCSVCodec creates a new CSV codec
func NewCSVCodec() *CSVCodec {
	return &CSVCodec{}
}

// Format returns the codec format identifier
func (c *CSVCodec) Format() string {
	return "csv"
}

// Parse imports records from CSV. Columns are found by header name, so extra
// columns and any column order are accepted.
func (c *CSVCodec) Parse(r io.Reader) ([]domain.Individual, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse CSV: missing header")
		}
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range csvHeader {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("failed to parse CSV: missing column %q", required)
		}
	}

	var people []domain.Individual
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}

		line, _ := reader.FieldPos(0)
		field := func(name string) string {
			return strings.TrimSpace(row[cols[name]])
		}

		p := domain.Individual{
			Name:   field("name"),
			Mother: field("mother"),
			Father: field("father"),
		}
		trait, err := parseTrait(field("trait"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: line %d: %w", line, err)
		}
		p.Trait = trait
		people = append(people, p)
	}

	return people, nil
}

// Export exports records to CSV
func (c *CSVCodec) Export(people []domain.Individual, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	for _, p := range people {
		if err := writer.Write([]string{p.Name, p.Mother, p.Father, formatTrait(p.Trait)}); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func parseTrait(s string) (*bool, error) {
	var has bool
	switch strings.ToLower(s) {
	case "":
		return nil, nil
	case "1", "true":
		has = true
	case "0", "false":
		has = false
	default:
		return nil, fmt.Errorf("invalid trait value %q (want 1, 0 or blank)", s)
	}
	return &has, nil
}

func formatTrait(trait *bool) string {
	switch {
	case trait == nil:
		return ""
	case *trait:
		return "1"
	default:
		return "0"
	}
}
