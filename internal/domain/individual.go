package domain

// Individual is one member of a pedigree as supplied by a record loader
type Individual struct {
	Name   string `json:"name" yaml:"name"`
	Mother string `json:"mother,omitempty" yaml:"mother,omitempty"`
	Father string `json:"father,omitempty" yaml:"father,omitempty"`

	// Trait is the observed phenotype; nil means unobserved
	Trait *bool `json:"trait" yaml:"trait,omitempty"`
}

// NewIndividual creates a root individual with no observed trait
func NewIndividual(name string) Individual {
	return Individual{Name: name}
}

// WithParents returns a copy of the individual with both parents set
func (i Individual) WithParents(mother, father string) Individual {
	i.Mother = mother
	i.Father = father
	return i
}

// WithTrait returns a copy of the individual with an observed trait
func (i Individual) WithTrait(has bool) Individual {
	i.Trait = &has
	return i
}

// IsRoot reports whether the individual has no parents
func (i Individual) IsRoot() bool {
	return i.Mother == "" && i.Father == ""
}

// Observed reports whether the trait value is known
func (i Individual) Observed() bool {
	return i.Trait != nil
}

// HasTrait returns the observed trait value, false when unobserved
func (i Individual) HasTrait() bool {
	return i.Trait != nil && *i.Trait
}
