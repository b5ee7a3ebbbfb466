// Package model implements the inheritance model: how many copies of the
// gene a child receives given its parents, and how likely each gene count is
// to express the trait.
package model

import (
	"fmt"

	"heredity/internal/domain"
)

// ModelError reports a lookup with a gene count outside 0..2
type ModelError struct {
	Op   string
	Gene domain.GeneCount
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model: %s: gene count %d out of range", e.Op, e.Gene)
}

// Model answers conditional-probability queries for a fixed Params value.
// It is safe for concurrent use.
type Model struct {
	params Params

	// child[m][f] is the child's gene distribution for parent gene counts m, f
	child [3][3]domain.GeneDistribution
}

// New creates a model after validating p
func New(p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	m := &Model{params: p}
	for _, mother := range domain.GeneCounts {
		for _, father := range domain.GeneCounts {
			m.child[mother][father] = childDistribution(p.Mutation, mother, father)
		}
	}
	return m, nil
}

// Default creates a model over DefaultParams
func Default() *Model {
	m, err := New(DefaultParams())
	if err != nil {
		panic(err)
	}
	return m
}

// Params returns the model's parameters
func (m *Model) Params() Params {
	return m.params
}

// passOn is the probability that a parent with g copies passes the gene on,
// mutation included.
func passOn(mutation float64, g domain.GeneCount) float64 {
	switch g {
	case domain.TwoCopies:
		return 1 - mutation
	case domain.OneCopy:
		return 0.5
	default:
		return mutation
	}
}

func childDistribution(mutation float64, mother, father domain.GeneCount) domain.GeneDistribution {
	pm := passOn(mutation, mother)
	pf := passOn(mutation, father)

	var d domain.GeneDistribution
	d[domain.TwoCopies] = pm * pf
	d[domain.NoCopies] = (1 - pm) * (1 - pf)
	d[domain.OneCopy] = 1 - d[domain.TwoCopies] - d[domain.NoCopies]
	return d
}

// PassOn returns the probability that a parent with g copies passes one copy
// to a child.
func (m *Model) PassOn(g domain.GeneCount) (float64, error) {
	if !g.Valid() {
		return 0, &ModelError{Op: "pass on", Gene: g}
	}
	return passOn(m.params.Mutation, g), nil
}

// ChildDistribution returns the child's gene distribution given both parents
func (m *Model) ChildDistribution(mother, father domain.GeneCount) (domain.GeneDistribution, error) {
	if !mother.Valid() {
		return domain.GeneDistribution{}, &ModelError{Op: "child distribution (mother)", Gene: mother}
	}
	if !father.Valid() {
		return domain.GeneDistribution{}, &ModelError{Op: "child distribution (father)", Gene: father}
	}
	return m.child[mother][father], nil
}

// ChildGene returns P(child has g copies | mother, father)
func (m *Model) ChildGene(g, mother, father domain.GeneCount) (float64, error) {
	if !g.Valid() {
		return 0, &ModelError{Op: "child gene", Gene: g}
	}
	d, err := m.ChildDistribution(mother, father)
	if err != nil {
		return 0, err
	}
	return d.Of(g), nil
}

// Prior returns the unconditional probability of a founder having g copies
func (m *Model) Prior(g domain.GeneCount) (float64, error) {
	if !g.Valid() {
		return 0, &ModelError{Op: "gene prior", Gene: g}
	}
	return m.params.GenePrior.Of(g), nil
}

// Trait returns P(trait = has | g copies)
func (m *Model) Trait(g domain.GeneCount, has bool) (float64, error) {
	if !g.Valid() {
		return 0, &ModelError{Op: "trait", Gene: g}
	}
	return m.params.Trait[g].Of(has), nil
}
