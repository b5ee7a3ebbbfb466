package repository

import (
	"context"
	"errors"

	"heredity/internal/domain"
)

// ErrNotFound is returned when a pedigree or run does not exist
var ErrNotFound = errors.New("repository: not found")

// ErrStaleRun is returned when a run was computed from a pedigree version
// that has since been replaced
var ErrStaleRun = errors.New("repository: run is for a stale pedigree version")

// Repository defines the interface for pedigree data access
type Repository interface {
	// Pedigrees
	SavePedigree(ctx context.Context, p *domain.Pedigree) error
	GetPedigree(ctx context.Context, id string) (*domain.Pedigree, error)
	ListPedigrees(ctx context.Context) ([]domain.PedigreeSummary, error)
	DeletePedigree(ctx context.Context, id string) error

	// Inference runs (the latest run per pedigree)
	SaveRun(ctx context.Context, run *domain.InferenceRun) error
	GetRun(ctx context.Context, pedigreeID string) (*domain.InferenceRun, error)

	// Close releases resources
	Close() error
}
