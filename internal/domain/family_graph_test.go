package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family() []Individual {
	return []Individual{
		NewIndividual("Harry").WithParents("Lily", "James"),
		NewIndividual("James").WithTrait(true),
		NewIndividual("Lily").WithTrait(false),
	}
}

func requireGraphError(t *testing.T, err error, check GraphCheck, who string) {
	t.Helper()
	var gerr *GraphError
	require.True(t, errors.As(err, &gerr), "expected *GraphError, got %v", err)
	assert.Equal(t, check, gerr.Check)
	assert.Equal(t, who, gerr.Individual)
}

func TestNewFamilyGraph(t *testing.T) {
	t.Run("keeps input order", func(t *testing.T) {
		g := NewFamilyGraph(family())

		assert.Equal(t, 3, g.Len())
		assert.Equal(t, []string{"Harry", "James", "Lily"}, g.Names())
	})

	t.Run("copies its input", func(t *testing.T) {
		people := family()
		g := NewFamilyGraph(people)
		people[0].Name = "Modified"

		assert.Equal(t, "Harry", g.At(0).Name)
	})

	t.Run("looks up by name", func(t *testing.T) {
		g := NewFamilyGraph(family())

		james, ok := g.Individual("James")
		require.True(t, ok)
		assert.True(t, james.HasTrait())

		idx, ok := g.IndexOf("Lily")
		require.True(t, ok)
		assert.Equal(t, 2, idx)

		_, ok = g.Individual("Ron")
		assert.False(t, ok)
	})

	t.Run("resolves parents", func(t *testing.T) {
		g := NewFamilyGraph(family())

		m, f, ok := g.Parents(0)
		require.True(t, ok)
		assert.Equal(t, 2, m)
		assert.Equal(t, 1, f)

		_, _, ok = g.Parents(1)
		assert.False(t, ok, "roots have no parents")
	})
}

func TestFamilyGraphValidate(t *testing.T) {
	t.Run("valid family passes", func(t *testing.T) {
		assert.NoError(t, NewFamilyGraph(family()).Validate())
	})

	t.Run("empty graph passes", func(t *testing.T) {
		assert.NoError(t, NewFamilyGraph(nil).Validate())
	})

	t.Run("single parent fails", func(t *testing.T) {
		people := []Individual{
			NewIndividual("Lily"),
			{Name: "Harry", Mother: "Lily"},
		}
		requireGraphError(t, NewFamilyGraph(people).Validate(), CheckSingleParent, "Harry")
	})

	t.Run("unknown parent fails", func(t *testing.T) {
		people := []Individual{
			NewIndividual("Lily"),
			NewIndividual("Harry").WithParents("Lily", "James"),
		}
		err := NewFamilyGraph(people).Validate()
		requireGraphError(t, err, CheckUnknownParent, "Harry")
		assert.Contains(t, err.Error(), `"James"`)
	})

	t.Run("duplicate name fails", func(t *testing.T) {
		people := []Individual{NewIndividual("Lily"), NewIndividual("Lily")}
		requireGraphError(t, NewFamilyGraph(people).Validate(), CheckDuplicateName, "Lily")
	})

	t.Run("empty name fails", func(t *testing.T) {
		people := []Individual{NewIndividual("Lily"), {}}
		requireGraphError(t, NewFamilyGraph(people).Validate(), CheckEmptyName, "#1")
	})

	t.Run("self parent fails", func(t *testing.T) {
		people := []Individual{
			NewIndividual("Lily"),
			NewIndividual("Harry").WithParents("Lily", "Harry"),
		}
		requireGraphError(t, NewFamilyGraph(people).Validate(), CheckSelfParent, "Harry")
	})

	t.Run("cycle fails", func(t *testing.T) {
		people := []Individual{
			NewIndividual("Root"),
			NewIndividual("A").WithParents("Root", "B"),
			NewIndividual("B").WithParents("Root", "A"),
		}
		requireGraphError(t, NewFamilyGraph(people).Validate(), CheckCycle, "A")
	})
}

func TestFamilyGraphTopologicalOrder(t *testing.T) {
	t.Run("parents precede children", func(t *testing.T) {
		people := []Individual{
			NewIndividual("Grandchild").WithParents("Child", "Spouse"),
			NewIndividual("Child").WithParents("Mother", "Father"),
			NewIndividual("Spouse"),
			NewIndividual("Mother"),
			NewIndividual("Father"),
		}
		g := NewFamilyGraph(people)

		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		require.Len(t, order, len(people))

		pos := make(map[int]int, len(order))
		for at, i := range order {
			pos[i] = at
		}
		for i := range people {
			if m, f, ok := g.Parents(i); ok {
				assert.Less(t, pos[m], pos[i], "%s after mother", people[i].Name)
				assert.Less(t, pos[f], pos[i], "%s after father", people[i].Name)
			}
		}
	})

	t.Run("roots first in input order", func(t *testing.T) {
		g := NewFamilyGraph(family())

		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 0}, order)
	})

	t.Run("invalid graph has no order", func(t *testing.T) {
		people := []Individual{{Name: "Harry", Father: "James"}}

		order, err := NewFamilyGraph(people).TopologicalOrder()
		assert.Nil(t, order)
		assert.Error(t, err)
	})
}
