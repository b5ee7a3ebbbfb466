package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// GeneCount is the number of copies (0, 1 or 2) of the trait-causing gene
type GeneCount int

const (
	NoCopies  GeneCount = 0
	OneCopy   GeneCount = 1
	TwoCopies GeneCount = 2
)

// GeneCounts lists every gene count in display order
var GeneCounts = [...]GeneCount{TwoCopies, OneCopy, NoCopies}

// Valid reports whether g is 0, 1 or 2
func (g GeneCount) Valid() bool {
	return g >= NoCopies && g <= TwoCopies
}

func (g GeneCount) String() string {
	return strconv.Itoa(int(g))
}

// GeneDistribution is indexed by gene count
type GeneDistribution [3]float64

// Of returns the probability mass for gene count g, or 0 when g is not a
// valid count
func (d GeneDistribution) Of(g GeneCount) float64 {
	if !g.Valid() {
		return 0
	}
	return d[g]
}

// Sum returns the total mass
func (d GeneDistribution) Sum() float64 {
	return d[0] + d[1] + d[2]
}

// Normalize rescales the distribution to sum to 1. It returns false when the
// total mass is zero.
func (d GeneDistribution) Normalize() (GeneDistribution, bool) {
	total := d.Sum()
	if total <= 0 || math.IsNaN(total) {
		return d, false
	}
	for i := range d {
		d[i] /= total
	}
	return d, true
}

// MarshalJSON writes {"2": p2, "1": p1, "0": p0}
func (d GeneDistribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{
		"2": d[TwoCopies],
		"1": d[OneCopy],
		"0": d[NoCopies],
	})
}

// UnmarshalJSON reads the form written by MarshalJSON
func (d *GeneDistribution) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for key, p := range m {
		g, err := strconv.Atoi(key)
		if err != nil || !GeneCount(g).Valid() {
			return fmt.Errorf("invalid gene count %q", key)
		}
		d[g] = p
	}
	return nil
}

// TraitDistribution holds P(false) at index 0 and P(true) at index 1
type TraitDistribution [2]float64

func traitIndex(has bool) int {
	if has {
		return 1
	}
	return 0
}

// Of returns the probability mass for the given trait value
func (d TraitDistribution) Of(has bool) float64 {
	return d[traitIndex(has)]
}

// True is shorthand for Of(true)
func (d TraitDistribution) True() float64 {
	return d[1]
}

// False is shorthand for Of(false)
func (d TraitDistribution) False() float64 {
	return d[0]
}

// Sum returns the total mass
func (d TraitDistribution) Sum() float64 {
	return d[0] + d[1]
}

// Normalize rescales the distribution to sum to 1. It returns false when the
// total mass is zero.
func (d TraitDistribution) Normalize() (TraitDistribution, bool) {
	total := d.Sum()
	if total <= 0 || math.IsNaN(total) {
		return d, false
	}
	d[0] /= total
	d[1] /= total
	return d, true
}

// MarshalJSON writes {"true": p, "false": q}
func (d TraitDistribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{
		"true":  d[1],
		"false": d[0],
	})
}

// UnmarshalJSON reads the form written by MarshalJSON
func (d *TraitDistribution) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for key, p := range m {
		has, err := strconv.ParseBool(key)
		if err != nil {
			return fmt.Errorf("invalid trait value %q", key)
		}
		d[traitIndex(has)] = p
	}
	return nil
}

// PosteriorTable holds one individual's marginal gene and trait
// distributions. The inference engine fills it with unnormalized mass and
// then rescales it in place.
type PosteriorTable struct {
	Gene  GeneDistribution  `json:"gene"`
	Trait TraitDistribution `json:"trait"`
}

// NamedPosterior pairs a posterior table with the individual it belongs to
type NamedPosterior struct {
	Name string `json:"name"`
	PosteriorTable
}
