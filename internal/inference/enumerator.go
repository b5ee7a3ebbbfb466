package inference

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"math/bits"

	"heredity/internal/domain"
)

// MaxBits is the largest pedigree a World bitmask can describe
const MaxBits = 62

// ErrTooManyIndividuals is returned when a pedigree is too large for exact
// enumeration.
var ErrTooManyIndividuals = errors.New("inference: too many individuals for exact enumeration")

// Enumerator generates every World consistent with the observed traits of a
// family graph. The number of worlds is 2^k * 3^n for n individuals of whom k
// are unobserved, so it is only usable on small pedigrees.
type Enumerator struct {
	n            int
	observedTrue uint64
	unobserved   uint64
}

// NewEnumerator creates an enumerator over g. maxIndividuals <= 0 means only
// the bitmask width limits the size.
func NewEnumerator(g *domain.FamilyGraph, maxIndividuals int) (*Enumerator, error) {
	n := g.Len()
	limit := MaxBits
	if maxIndividuals > 0 && maxIndividuals < limit {
		limit = maxIndividuals
	}
	if n > limit {
		return nil, fmt.Errorf("%w: %d individuals, limit %d", ErrTooManyIndividuals, n, limit)
	}

	e := &Enumerator{n: n}
	for i := 0; i < n; i++ {
		p := g.At(i)
		bit := uint64(1) << i
		switch {
		case !p.Observed():
			e.unobserved |= bit
		case p.HasTrait():
			e.observedTrue |= bit
		}
	}
	return e, nil
}

// Len returns the number of individuals
func (e *Enumerator) Len() int {
	return e.n
}

// Count returns the number of worlds Worlds yields, saturating at
// math.MaxUint64.
func (e *Enumerator) Count() uint64 {
	k := bits.OnesCount64(e.unobserved)
	total := uint64(1) << k
	for i := 0; i < e.n; i++ {
		hi, lo := bits.Mul64(total, 3)
		if hi != 0 {
			return math.MaxUint64
		}
		total = lo
	}
	return total
}

// TraitSets yields every trait mask that agrees with the evidence: each
// subset of the unobserved individuals joined with the observed-true ones.
func (e *Enumerator) TraitSets() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for s := range submasks(e.unobserved) {
			if !yield(s | e.observedTrue) {
				return
			}
		}
	}
}

// Worlds yields every world consistent with the evidence
func (e *Enumerator) Worlds() iter.Seq[World] {
	return e.worldsIn(0, e.oneLimit())
}

// oneLimit is the exclusive upper bound of the One mask
func (e *Enumerator) oneLimit() uint64 {
	return uint64(1) << e.n
}

// worldsIn yields the worlds whose One mask lies in [lo, hi)
func (e *Enumerator) worldsIn(lo, hi uint64) iter.Seq[World] {
	all := e.oneLimit() - 1
	return func(yield func(World) bool) {
		for one := lo; one < hi; one++ {
			for two := range submasks(all &^ one) {
				for trait := range e.TraitSets() {
					if !yield(World{One: one, Two: two, Trait: trait}) {
						return
					}
				}
			}
		}
	}
}

// submasks yields every subset of mask, mask itself first and 0 last
func submasks(mask uint64) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		s := mask
		for {
			if !yield(s) {
				return
			}
			if s == 0 {
				return
			}
			s = (s - 1) & mask
		}
	}
}
