package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heredity/internal/domain"
	"heredity/internal/model"
)

// reportDelta matches values printed at four decimals
const reportDelta = 1e-4

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestEngine(workers int) *Engine {
	return NewEngine(model.Default(), Options{Workers: workers, Logger: quietLogger()})
}

func assertGene(t *testing.T, want [3]float64, got domain.GeneDistribution, who string) {
	t.Helper()
	assert.InDelta(t, want[0], got.Of(domain.TwoCopies), reportDelta, "%s gene 2", who)
	assert.InDelta(t, want[1], got.Of(domain.OneCopy), reportDelta, "%s gene 1", who)
	assert.InDelta(t, want[2], got.Of(domain.NoCopies), reportDelta, "%s gene 0", who)
}

func assertTrait(t *testing.T, wantTrue float64, got domain.TraitDistribution, who string) {
	t.Helper()
	assert.InDelta(t, wantTrue, got.True(), reportDelta, "%s trait true", who)
	assert.InDelta(t, 1-wantTrue, got.False(), reportDelta, "%s trait false", who)
}

func TestInferNoEvidenceRoot(t *testing.T) {
	g := domain.NewFamilyGraph([]domain.Individual{domain.NewIndividual("Alone")})

	res, err := newTestEngine(1).Infer(context.Background(), g)
	require.NoError(t, err)

	table, ok := res.Table("Alone")
	require.True(t, ok)
	assertGene(t, [3]float64{0.0100, 0.0300, 0.9600}, table.Gene, "Alone")
	assertTrait(t, 0.0329, table.Trait, "Alone")
}

func TestInferSingleObservation(t *testing.T) {
	g := domain.NewFamilyGraph([]domain.Individual{domain.NewIndividual("Seen").WithTrait(true)})

	res, err := newTestEngine(1).Infer(context.Background(), g)
	require.NoError(t, err)

	table, _ := res.Table("Seen")
	assertGene(t, [3]float64{0.1976, 0.5107, 0.2918}, table.Gene, "Seen")
	assert.Equal(t, 1.0, table.Trait.True())
	assert.Equal(t, 0.0, table.Trait.False())
}

func TestInferFamily(t *testing.T) {
	res, err := newTestEngine(1).Infer(context.Background(), potterFamily())
	require.NoError(t, err)

	assert.Equal(t, []string{"Harry", "James", "Lily"}, res.Order)
	assert.Equal(t, uint64(54), res.Worlds)

	harry, _ := res.Table("Harry")
	assertGene(t, [3]float64{0.0092, 0.4557, 0.5351}, harry.Gene, "Harry")
	assertTrait(t, 0.2665, harry.Trait, "Harry")

	james, _ := res.Table("James")
	assertGene(t, [3]float64{0.1976, 0.5106, 0.2918}, james.Gene, "James")
	assertTrait(t, 1, james.Trait, "James")

	lily, _ := res.Table("Lily")
	assertGene(t, [3]float64{0.0036, 0.0136, 0.9827}, lily.Gene, "Lily")
	assertTrait(t, 0, lily.Trait, "Lily")
}

func TestInferPosteriorsAreNormalized(t *testing.T) {
	g := domain.NewFamilyGraph([]domain.Individual{
		domain.NewIndividual("Arthur").WithTrait(false),
		domain.NewIndividual("Molly"),
		domain.NewIndividual("Ron").WithParents("Molly", "Arthur"),
		domain.NewIndividual("Hermione").WithTrait(false),
		domain.NewIndividual("Rose").WithParents("Hermione", "Ron").WithTrait(true),
	})

	res, err := newTestEngine(1).Infer(context.Background(), g)
	require.NoError(t, err)

	for _, p := range res.Posteriors() {
		assert.InDelta(t, 1.0, p.Gene.Sum(), 1e-6, p.Name)
		assert.InDelta(t, 1.0, p.Trait.Sum(), 1e-6, p.Name)
		for _, v := range p.Gene {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}

	t.Run("evidence fixes observed traits", func(t *testing.T) {
		arthur, _ := res.Table("Arthur")
		assert.Zero(t, arthur.Trait.True())

		rose, _ := res.Table("Rose")
		assert.Zero(t, rose.Trait.False())
	})
}

func TestInferParallelMatchesSequential(t *testing.T) {
	g := domain.NewFamilyGraph([]domain.Individual{
		domain.NewIndividual("Arthur").WithTrait(false),
		domain.NewIndividual("Molly"),
		domain.NewIndividual("Ron").WithParents("Molly", "Arthur"),
		domain.NewIndividual("Hermione"),
		domain.NewIndividual("Rose").WithParents("Hermione", "Ron").WithTrait(true),
		domain.NewIndividual("Hugo").WithParents("Hermione", "Ron"),
	})

	seq, err := newTestEngine(1).Infer(context.Background(), g)
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8} {
		t.Run(fmt.Sprintf("%d workers", workers), func(t *testing.T) {
			par, err := newTestEngine(workers).Infer(context.Background(), g)
			require.NoError(t, err)
			assert.Equal(t, seq.Worlds, par.Worlds)

			for _, name := range seq.Order {
				want, _ := seq.Table(name)
				got, _ := par.Table(name)
				for i := range want.Gene {
					assert.InDelta(t, want.Gene[i], got.Gene[i], 1e-12, name)
				}
				for i := range want.Trait {
					assert.InDelta(t, want.Trait[i], got.Trait[i], 1e-12, name)
				}
			}
		})
	}
}

func TestInferParallelIsDeterministic(t *testing.T) {
	engine := newTestEngine(4)

	first, err := engine.Infer(context.Background(), potterFamily())
	require.NoError(t, err)
	for range 5 {
		again, err := engine.Infer(context.Background(), potterFamily())
		require.NoError(t, err)
		assert.Equal(t, first.Tables, again.Tables)
	}
}

func TestInferGraphError(t *testing.T) {
	g := domain.NewFamilyGraph([]domain.Individual{
		domain.NewIndividual("Harry").WithParents("Lily", "James"),
	})

	_, err := newTestEngine(1).Infer(context.Background(), g)

	var gerr *domain.GraphError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, domain.CheckUnknownParent, gerr.Check)
	assert.Equal(t, "Harry", gerr.Individual)
}

func TestInferNormalizationError(t *testing.T) {
	p := model.DefaultParams()
	for g := range p.Trait {
		p.Trait[g] = domain.TraitDistribution{1, 0}
	}
	m, err := model.New(p)
	require.NoError(t, err)

	g := domain.NewFamilyGraph([]domain.Individual{domain.NewIndividual("Impossible").WithTrait(true)})
	_, err = NewEngine(m, Options{Logger: quietLogger()}).Infer(context.Background(), g)

	var nerr *NormalizationError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, "Impossible", nerr.Individual)
	assert.Equal(t, "gene", nerr.Distribution)
}

func TestInferTooManyIndividuals(t *testing.T) {
	people := make([]domain.Individual, 4)
	for i := range people {
		people[i] = domain.NewIndividual(fmt.Sprintf("P%d", i))
	}

	engine := NewEngine(model.Default(), Options{MaxIndividuals: 3, Logger: quietLogger()})
	_, err := engine.Infer(context.Background(), domain.NewFamilyGraph(people))
	assert.ErrorIs(t, err, ErrTooManyIndividuals)
}

func TestInferCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		_, err := newTestEngine(workers).Infer(ctx, potterFamily())
		assert.ErrorIs(t, err, context.Canceled, "%d workers", workers)
	}
}

func TestInferMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	engine := NewEngine(model.Default(), Options{Logger: quietLogger(), Metrics: metrics})

	_, err := engine.Infer(context.Background(), potterFamily())
	require.NoError(t, err)

	bad := domain.NewFamilyGraph([]domain.Individual{{Name: "Orphan", Mother: "Nobody"}})
	_, err = engine.Infer(context.Background(), bad)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("error")))
	assert.Equal(t, 54.0, testutil.ToFloat64(metrics.worlds))
}

func TestAccumulatorMerge(t *testing.T) {
	w := World{One: 0b01, Trait: 0b10}

	a := NewAccumulator(2)
	a.Add(w, 0.25)
	b := NewAccumulator(2)
	b.Add(w, 0.5)
	b.Add(World{}, 0.125)

	require.NoError(t, a.Merge(b))
	assert.Equal(t, domain.GeneDistribution{0.125, 0.75, 0}, a.Table(0).Gene)
	assert.Equal(t, domain.TraitDistribution{0.875, 0}, a.Table(0).Trait)
	assert.Equal(t, domain.GeneDistribution{0.875, 0, 0}, a.Table(1).Gene)
	assert.Equal(t, domain.TraitDistribution{0.125, 0.75}, a.Table(1).Trait)

	assert.Error(t, a.Merge(NewAccumulator(3)))
}

func TestScorerJointProbability(t *testing.T) {
	g := potterFamily()
	s, err := NewScorer(g, model.Default())
	require.NoError(t, err)

	// Harry 1 copy no trait, James 2 copies with trait, Lily 0 copies no trait
	w := World{One: 0b001, Two: 0b010, Trait: 0b010}
	p, err := s.JointProbability(w)
	require.NoError(t, err)

	// James: 0.01 * 0.65, Lily: 0.96 * 0.99,
	// Harry: (0.99*0.99 + 0.01*0.01) * 0.44
	want := 0.01 * 0.65 * 0.96 * 0.99 * (0.99*0.99 + 0.01*0.01) * 0.44
	assert.InDelta(t, want, p, 1e-15)
}

func BenchmarkInfer(b *testing.B) {
	g := domain.NewFamilyGraph([]domain.Individual{
		domain.NewIndividual("Arthur").WithTrait(false),
		domain.NewIndividual("Molly"),
		domain.NewIndividual("Ron").WithParents("Molly", "Arthur"),
		domain.NewIndividual("Hermione"),
		domain.NewIndividual("Rose").WithParents("Hermione", "Ron").WithTrait(true),
	})

	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			engine := NewEngine(model.Default(), Options{Workers: workers, Logger: quietLogger()})
			for b.Loop() {
				if _, err := engine.Infer(context.Background(), g); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
