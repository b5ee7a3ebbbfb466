package inference

import (
	"fmt"

	"heredity/internal/domain"
	"heredity/internal/model"
)

// Scorer computes the joint probability of a World. It holds only
// read-only state and is safe for concurrent use.
type Scorer struct {
	model *model.Model
	order []int

	// mother[i] and father[i] are graph positions, -1 for roots
	mother []int
	father []int
}

// NewScorer creates a scorer for g. The graph must be valid.
func NewScorer(g *domain.FamilyGraph, m *model.Model) (*Scorer, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	s := &Scorer{
		model:  m,
		order:  order,
		mother: make([]int, g.Len()),
		father: make([]int, g.Len()),
	}
	for i := range g.Len() {
		s.mother[i], s.father[i], _ = g.Parents(i)
	}
	return s, nil
}

// JointProbability returns the probability of w: the product, over every
// individual, of its gene probability given its parents (or the prior for
// roots) and its trait probability given its gene count.
func (s *Scorer) JointProbability(w World) (float64, error) {
	p := 1.0
	for _, i := range s.order {
		gene := w.Gene(i)

		var pg float64
		var err error
		if s.mother[i] < 0 {
			pg, err = s.model.Prior(gene)
		} else {
			pg, err = s.model.ChildGene(gene, w.Gene(s.mother[i]), w.Gene(s.father[i]))
		}
		if err != nil {
			return 0, fmt.Errorf("failed to score individual %d: %w", i, err)
		}

		pt, err := s.model.Trait(gene, w.HasTrait(i))
		if err != nil {
			return 0, fmt.Errorf("failed to score individual %d: %w", i, err)
		}

		p *= pg * pt
		if p == 0 {
			return 0, nil
		}
	}
	return p, nil
}
