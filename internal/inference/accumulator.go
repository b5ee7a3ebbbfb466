package inference

import (
	"fmt"

	"heredity/internal/domain"
)

// Accumulator sums unnormalized probability mass per individual. It is not
// safe for concurrent use; parallel runs give each worker its own and Merge
// them afterwards.
type Accumulator struct {
	tables []domain.PosteriorTable
}

// NewAccumulator creates an empty accumulator for n individuals
func NewAccumulator(n int) *Accumulator {
	return &Accumulator{tables: make([]domain.PosteriorTable, n)}
}

// Len returns the number of individuals
func (a *Accumulator) Len() int {
	return len(a.tables)
}

// Table returns the unnormalized table for individual i
func (a *Accumulator) Table(i int) domain.PosteriorTable {
	return a.tables[i]
}

// Add credits p to the gene and trait bucket each individual takes in w
func (a *Accumulator) Add(w World, p float64) {
	for i := range a.tables {
		t := &a.tables[i]
		t.Gene[w.Gene(i)] += p
		if w.HasTrait(i) {
			t.Trait[1] += p
		} else {
			t.Trait[0] += p
		}
	}
}

// Merge adds every bucket of other into a
func (a *Accumulator) Merge(other *Accumulator) error {
	if len(other.tables) != len(a.tables) {
		return fmt.Errorf("cannot merge accumulator of %d individuals into one of %d",
			len(other.tables), len(a.tables))
	}
	for i := range a.tables {
		for g := range a.tables[i].Gene {
			a.tables[i].Gene[g] += other.tables[i].Gene[g]
		}
		for t := range a.tables[i].Trait {
			a.tables[i].Trait[t] += other.tables[i].Trait[t]
		}
	}
	return nil
}
