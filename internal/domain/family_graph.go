package domain

import "fmt"

// FamilyGraph is the validated in-memory pedigree used for a single
// inference run. Individuals keep their input order, which is also the order
// results are reported in.
type FamilyGraph struct {
	individuals []Individual
	index       map[string]int
	duplicates  []string
}

// NewFamilyGraph creates a graph over the given individuals. Structural
// problems are reported by Validate, not here.
func NewFamilyGraph(people []Individual) *FamilyGraph {
	g := &FamilyGraph{
		individuals: make([]Individual, len(people)),
		index:       make(map[string]int, len(people)),
	}
	copy(g.individuals, people)

	for i, p := range g.individuals {
		if _, exists := g.index[p.Name]; exists {
			g.duplicates = append(g.duplicates, p.Name)
			continue
		}
		g.index[p.Name] = i
	}
	return g
}

// Len returns the number of individuals
func (g *FamilyGraph) Len() int {
	return len(g.individuals)
}

// Individuals returns a copy of the individuals in input order
func (g *FamilyGraph) Individuals() []Individual {
	out := make([]Individual, len(g.individuals))
	copy(out, g.individuals)
	return out
}

// At returns the individual at position i
func (g *FamilyGraph) At(i int) Individual {
	return g.individuals[i]
}

// Names returns individual names in input order
func (g *FamilyGraph) Names() []string {
	names := make([]string, len(g.individuals))
	for i, p := range g.individuals {
		names[i] = p.Name
	}
	return names
}

// Individual looks up an individual by name
func (g *FamilyGraph) Individual(name string) (Individual, bool) {
	i, ok := g.index[name]
	if !ok {
		return Individual{}, false
	}
	return g.individuals[i], true
}

// IndexOf returns the input position of the named individual
func (g *FamilyGraph) IndexOf(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// Parents returns the positions of an individual's mother and father.
// ok is false for roots and for unresolved references.
func (g *FamilyGraph) Parents(i int) (mother, father int, ok bool) {
	p := g.individuals[i]
	if p.IsRoot() {
		return -1, -1, false
	}
	m, mok := g.index[p.Mother]
	f, fok := g.index[p.Father]
	if !mok || !fok {
		return -1, -1, false
	}
	return m, f, true
}

// Validate checks every structural invariant of the pedigree: unique
// non-empty names, zero or two parents, resolvable parent references and an
// acyclic parent relation.
func (g *FamilyGraph) Validate() error {
	_, err := g.TopologicalOrder()
	return err
}

// TopologicalOrder returns individual positions ordered so every individual
// appears after both parents. Roots come first; within a generation input
// order is preserved.
func (g *FamilyGraph) TopologicalOrder() ([]int, error) {
	if err := g.checkRecords(); err != nil {
		return nil, err
	}

	n := len(g.individuals)
	placed := make([]bool, n)
	order := make([]int, 0, n)

	for len(order) < n {
		var generation []int
		for i := range g.individuals {
			if placed[i] {
				continue
			}
			m, f, hasParents := g.Parents(i)
			if !hasParents || (placed[m] && placed[f]) {
				generation = append(generation, i)
			}
		}

		if len(generation) == 0 {
			for i := range g.individuals {
				if !placed[i] {
					return nil, &GraphError{
						Individual: g.individuals[i].Name,
						Check:      CheckCycle,
						Detail:     "ancestry loops back on itself",
					}
				}
			}
		}

		for _, i := range generation {
			placed[i] = true
		}
		order = append(order, generation...)
	}

	return order, nil
}

// checkRecords validates everything except cycles
func (g *FamilyGraph) checkRecords() error {
	if len(g.duplicates) > 0 {
		return &GraphError{Individual: g.duplicates[0], Check: CheckDuplicateName}
	}

	for i, p := range g.individuals {
		if p.Name == "" {
			return &GraphError{
				Individual: fmt.Sprintf("#%d", i),
				Check:      CheckEmptyName,
			}
		}
		if (p.Mother == "") != (p.Father == "") {
			return &GraphError{
				Individual: p.Name,
				Check:      CheckSingleParent,
				Detail:     "mother and father must both be set or both be empty",
			}
		}
		if p.IsRoot() {
			continue
		}
		if p.Mother == p.Name || p.Father == p.Name {
			return &GraphError{Individual: p.Name, Check: CheckSelfParent}
		}
		for _, parent := range []string{p.Mother, p.Father} {
			if _, ok := g.index[parent]; !ok {
				return &GraphError{
					Individual: p.Name,
					Check:      CheckUnknownParent,
					Detail:     fmt.Sprintf("parent %q not in graph", parent),
				}
			}
		}
	}

	return nil
}
