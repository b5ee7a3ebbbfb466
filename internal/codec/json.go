package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"heredity/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// jsonRecord writes unset parents and traits as null
type jsonRecord struct {
	Name   string  `json:"name"`
	Mother *string `json:"mother"`
	Father *string `json:"father"`
	Trait  *bool   `json:"trait"`
}

// Parse imports records from a JSON array
func (c *JSONCodec) Parse(r io.Reader) ([]domain.Individual, error) {
	var records []jsonRecord
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	people := make([]domain.Individual, 0, len(records))
	for _, rec := range records {
		p := domain.Individual{Name: rec.Name, Trait: rec.Trait}
		if rec.Mother != nil {
			p.Mother = *rec.Mother
		}
		if rec.Father != nil {
			p.Father = *rec.Father
		}
		people = append(people, p)
	}
	return people, nil
}

// Export exports records to JSON
func (c *JSONCodec) Export(people []domain.Individual, w io.Writer) error {
	records := make([]jsonRecord, 0, len(people))
	for _, p := range people {
		rec := jsonRecord{Name: p.Name, Trait: p.Trait}
		if p.Mother != "" {
			rec.Mother = &p.Mother
		}
		if p.Father != "" {
			rec.Father = &p.Father
		}
		records = append(records, rec)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
