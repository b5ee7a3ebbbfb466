// Package domain defines the core domain types for the heredity inference engine.
//
// This package contains the entities and value objects shared by every layer:
// the individuals of a pedigree, the family graph built over them, and the
// posterior tables produced by inference.
//
// # Core Types
//
// Individual is one member of a family with optional mother and father
// references and an optional observed trait (the evidence).
//
// FamilyGraph indexes a set of individuals, validates the parent relation
// (zero or two parents, resolvable references, no cycles) and produces the
// topological order the joint-probability calculation walks.
//
// GeneCount, GeneDistribution, TraitDistribution and PosteriorTable describe
// the marginal distributions reported for each individual.
//
// # Storage Types
//
// Pedigree and InferenceRun are the persisted forms of a family and of one
// completed inference over it.
//
// # Design Principles
//
// - Immutable value objects where possible
// - No database or external dependencies
// - Structural errors carry the individual and the failed check
package domain
