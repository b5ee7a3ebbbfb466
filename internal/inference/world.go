package inference

import "heredity/internal/domain"

// World is one complete assignment of gene counts and traits. Bit i of each
// mask refers to individual i in graph order. One and Two never overlap;
// anyone in neither has no copies.
type World struct {
	One   uint64
	Two   uint64
	Trait uint64
}

// Gene returns the gene count of individual i
func (w World) Gene(i int) domain.GeneCount {
	bit := uint64(1) << i
	switch {
	case w.Two&bit != 0:
		return domain.TwoCopies
	case w.One&bit != 0:
		return domain.OneCopy
	default:
		return domain.NoCopies
	}
}

// HasTrait reports whether individual i has the trait in this world
func (w World) HasTrait(i int) bool {
	return w.Trait&(uint64(1)<<i) != 0
}
