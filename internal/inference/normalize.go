package inference

import (
	"fmt"

	"heredity/internal/domain"
)

// NormalizationError reports a distribution with no probability mass, which
// happens when the evidence is impossible under the model.
type NormalizationError struct {
	Individual   string
	Distribution string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("cannot normalize %s distribution of %s: total probability is zero",
		e.Distribution, e.Individual)
}

// Normalize rescales every accumulated table so each distribution sums to 1.
// Tables are keyed by individual name.
func Normalize(g *domain.FamilyGraph, acc *Accumulator) (map[string]domain.PosteriorTable, error) {
	if acc.Len() != g.Len() {
		return nil, fmt.Errorf("accumulator has %d individuals, graph has %d", acc.Len(), g.Len())
	}

	out := make(map[string]domain.PosteriorTable, g.Len())
	for i := range g.Len() {
		name := g.At(i).Name
		raw := acc.Table(i)

		gene, ok := raw.Gene.Normalize()
		if !ok {
			return nil, &NormalizationError{Individual: name, Distribution: "gene"}
		}
		trait, ok := raw.Trait.Normalize()
		if !ok {
			return nil, &NormalizationError{Individual: name, Distribution: "trait"}
		}
		out[name] = domain.PosteriorTable{Gene: gene, Trait: trait}
	}
	return out, nil
}
