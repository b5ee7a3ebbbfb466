package model

import (
	"errors"
	"fmt"
	"math"

	"heredity/internal/domain"
)

// ErrInvalidParams is wrapped by every Params.Validate failure.
// Use errors.Is to check: errors.Is(err, model.ErrInvalidParams)
var ErrInvalidParams = errors.New("model: parameters out of bounds")

// sumTolerance is how far a distribution may drift from 1 and still count as
// normalized.
const sumTolerance = 1e-9

// Params are the fixed constants of the inheritance model. A Params value is
// never mutated after it is handed to New.
type Params struct {
	// GenePrior is the unconditional gene-count distribution for founders,
	// indexed by gene count.
	GenePrior domain.GeneDistribution

	// Trait is P(trait | gene count), indexed [gene][false=0, true=1].
	Trait [3]domain.TraitDistribution

	// Mutation is the probability that a passed-on gene flips.
	Mutation float64
}

// DefaultParams returns the standard parameter set.
func DefaultParams() Params {
	return Params{
		GenePrior: domain.GeneDistribution{
			domain.NoCopies:  0.96,
			domain.OneCopy:   0.03,
			domain.TwoCopies: 0.01,
		},
		Trait: [3]domain.TraitDistribution{
			domain.NoCopies:  {0.99, 0.01},
			domain.OneCopy:   {0.44, 0.56},
			domain.TwoCopies: {0.35, 0.65},
		},
		Mutation: 0.01,
	}
}

// Validate checks that every probability lies in [0,1] and that the prior and
// each trait row sum to 1.
func (p Params) Validate() error {
	if err := checkProbability("mutation", p.Mutation); err != nil {
		return err
	}

	for _, g := range domain.GeneCounts {
		if err := checkProbability(fmt.Sprintf("gene prior[%d]", g), p.GenePrior[g]); err != nil {
			return err
		}
	}
	if sum := p.GenePrior.Sum(); math.Abs(sum-1) > sumTolerance {
		return fmt.Errorf("%w: gene prior sums to %f", ErrInvalidParams, sum)
	}

	for _, g := range domain.GeneCounts {
		row := p.Trait[g]
		for _, has := range []bool{true, false} {
			name := fmt.Sprintf("trait[%d][%t]", g, has)
			if err := checkProbability(name, row.Of(has)); err != nil {
				return err
			}
		}
		if sum := row.Sum(); math.Abs(sum-1) > sumTolerance {
			return fmt.Errorf("%w: trait[%d] sums to %f", ErrInvalidParams, g, sum)
		}
	}

	return nil
}

func checkProbability(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s = %f, bounds [0, 1]", ErrInvalidParams, name, v)
	}
	return nil
}
