package domain

import "time"

// Pedigree is a stored family: a named collection of individual records.
// Version is assigned by the repository and grows with every save.
type Pedigree struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Individuals []Individual `json:"individuals"`
	Version     int64        `json:"version"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Graph builds the family graph for the pedigree's individuals
func (p *Pedigree) Graph() *FamilyGraph {
	return NewFamilyGraph(p.Individuals)
}

// PedigreeSummary is the list view of a stored pedigree
type PedigreeSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Individuals int       `json:"individuals"`
	UpdatedAt   time.Time `json:"updated_at"`
	HasRun      bool      `json:"has_run"`
}

// InferenceRun records the outcome of one inference over a pedigree. Version
// is the pedigree version the run was computed from; zero means unchecked.
type InferenceRun struct {
	PedigreeID  string           `json:"pedigree_id"`
	Version     int64            `json:"pedigree_version,omitempty"`
	Worlds      uint64           `json:"worlds"`
	Elapsed     time.Duration    `json:"elapsed_ns"`
	CompletedAt time.Time        `json:"completed_at"`
	Posteriors  []NamedPosterior `json:"posteriors"`
}

// Posterior finds the posterior table for a named individual
func (r *InferenceRun) Posterior(name string) (PosteriorTable, bool) {
	for _, p := range r.Posteriors {
		if p.Name == name {
			return p.PosteriorTable, true
		}
	}
	return PosteriorTable{}, false
}
