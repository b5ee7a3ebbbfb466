// Package inference computes exact posterior gene and trait distributions for
// every member of a family by enumerating all worlds consistent with the
// observed traits.
package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"heredity/internal/domain"
	"heredity/internal/model"
)

// DefaultMaxIndividuals guards against accidentally exponential runs
const DefaultMaxIndividuals = 16

// chunksPerWorker controls how finely the One-mask range is split
const chunksPerWorker = 4

// cancelCheckInterval is how many worlds a chunk scores between context checks
const cancelCheckInterval = 1 << 14

// Options configures an Engine
type Options struct {
	// Workers is the number of goroutines scoring worlds. <= 1 runs inline.
	Workers int

	// MaxIndividuals caps the pedigree size. 0 uses DefaultMaxIndividuals;
	// a negative value leaves only the bitmask limit.
	MaxIndividuals int

	Logger  logrus.FieldLogger
	Metrics *Metrics
}

// Engine runs exact inference with a fixed model
type Engine struct {
	model *model.Model
	opts  Options
	log   logrus.FieldLogger
}

// NewEngine creates a new inference engine
func NewEngine(m *model.Model, opts Options) *Engine {
	if opts.MaxIndividuals == 0 {
		opts.MaxIndividuals = DefaultMaxIndividuals
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		model: m,
		opts:  opts,
		log:   log.WithField("component", "inference"),
	}
}

// Result holds the normalized posteriors of one inference run
type Result struct {
	// Order lists individual names in input order
	Order   []string
	Tables  map[string]domain.PosteriorTable
	Worlds  uint64
	Elapsed time.Duration
}

// Table returns the posterior table for a named individual
func (r *Result) Table(name string) (domain.PosteriorTable, bool) {
	t, ok := r.Tables[name]
	return t, ok
}

// Posteriors returns the tables in input order
func (r *Result) Posteriors() []domain.NamedPosterior {
	out := make([]domain.NamedPosterior, 0, len(r.Order))
	for _, name := range r.Order {
		out = append(out, domain.NamedPosterior{Name: name, PosteriorTable: r.Tables[name]})
	}
	return out
}

// Run converts the result into its stored form
func (r *Result) Run(pedigreeID string, completedAt time.Time) *domain.InferenceRun {
	return &domain.InferenceRun{
		PedigreeID:  pedigreeID,
		Worlds:      r.Worlds,
		Elapsed:     r.Elapsed,
		CompletedAt: completedAt,
		Posteriors:  r.Posteriors(),
	}
}

// Infer validates g and computes the posterior table of every individual
func (e *Engine) Infer(ctx context.Context, g *domain.FamilyGraph) (*Result, error) {
	start := time.Now()
	res, err := e.infer(ctx, g)
	elapsed := time.Since(start)

	var worlds uint64
	if res != nil {
		res.Elapsed = elapsed
		worlds = res.Worlds
	}
	e.opts.Metrics.observe(err, g.Len(), worlds, elapsed)

	if err != nil {
		e.log.WithError(err).WithField("individuals", g.Len()).Debug("Inference failed")
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"individuals": g.Len(),
		"worlds":      worlds,
		"workers":     e.workers(),
		"elapsed":     elapsed,
	}).Debug("Inference completed")
	return res, nil
}

func (e *Engine) infer(ctx context.Context, g *domain.FamilyGraph) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	enum, err := NewEnumerator(g, e.opts.MaxIndividuals)
	if err != nil {
		return nil, err
	}
	scorer, err := NewScorer(g, e.model)
	if err != nil {
		return nil, err
	}

	var acc *Accumulator
	var worlds uint64
	if e.workers() <= 1 {
		acc = NewAccumulator(g.Len())
		worlds, err = scoreRange(ctx, enum, scorer, acc, 0, enum.oneLimit())
	} else {
		acc, worlds, err = e.scoreParallel(ctx, enum, scorer)
	}
	if err != nil {
		return nil, err
	}

	tables, err := Normalize(g, acc)
	if err != nil {
		return nil, err
	}

	return &Result{
		Order:  g.Names(),
		Tables: tables,
		Worlds: worlds,
	}, nil
}

func (e *Engine) workers() int {
	return max(e.opts.Workers, 1)
}

type chunk struct {
	lo, hi uint64
	acc    *Accumulator
	worlds uint64
}

// scoreParallel splits the One-mask range into chunks, scores them on a
// bounded errgroup and merges the accumulators in chunk order so results do
// not depend on scheduling.
func (e *Engine) scoreParallel(ctx context.Context, enum *Enumerator, scorer *Scorer) (*Accumulator, uint64, error) {
	chunks := splitRange(enum.oneLimit(), uint64(e.workers()*chunksPerWorker))
	for i := range chunks {
		chunks[i].acc = NewAccumulator(enum.Len())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i := range chunks {
		c := &chunks[i]
		g.Go(func() error {
			n, err := scoreRange(ctx, enum, scorer, c.acc, c.lo, c.hi)
			c.worlds = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	acc := NewAccumulator(enum.Len())
	var worlds uint64
	for _, c := range chunks {
		if err := acc.Merge(c.acc); err != nil {
			return nil, 0, err
		}
		worlds += c.worlds
	}
	return acc, worlds, nil
}

// splitRange divides [0, total) into at most n contiguous chunks
func splitRange(total, n uint64) []chunk {
	n = min(max(n, 1), total)
	size := total / n
	if total%n != 0 {
		size++
	}

	chunks := make([]chunk, 0, n)
	for lo := uint64(0); lo < total; lo += size {
		chunks = append(chunks, chunk{lo: lo, hi: min(lo+size, total)})
	}
	return chunks
}

// scoreRange scores every world whose One mask is in [lo, hi) into acc
func scoreRange(ctx context.Context, enum *Enumerator, scorer *Scorer, acc *Accumulator, lo, hi uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var worlds uint64
	for w := range enum.worldsIn(lo, hi) {
		worlds++
		if worlds%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return worlds, err
			}
		}

		p, err := scorer.JointProbability(w)
		if err != nil {
			return worlds, fmt.Errorf("failed to score world: %w", err)
		}
		acc.Add(w, p)
	}
	return worlds, nil
}
