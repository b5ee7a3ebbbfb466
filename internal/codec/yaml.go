package codec

import (
	"errors"
	"fmt"
	"io"

	"heredity/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlPedigree represents the YAML structure for pedigree records
type yamlPedigree struct {
	Individuals []domain.Individual `yaml:"individuals"`
}

// Parse imports records from YAML
func (c *YAMLCodec) Parse(r io.Reader) ([]domain.Individual, error) {
	var yp yamlPedigree
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&yp); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return yp.Individuals, nil
}

// Export exports records to YAML
func (c *YAMLCodec) Export(people []domain.Individual, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(yamlPedigree{Individuals: people}); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}
