package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/table-seating/internal/allocation"
	"github.com/eugenenazirov/table-seating/internal/registry"
)

func TestRenderIdentityOrder(t *testing.T) {
	t.Parallel()

	reg, err := registry.New([]int{5, 24, 0})
	require.NoError(t, err)

	want := []string{
		"Tisch 1: 5 Plätze",
		"Tisch 2: 24 Plätze",
		"Tisch 3: 0 Plätze",
	}
	if diff := cmp.Diff(want, Render(reg)); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	t.Parallel()

	reg := registry.NewDefault()
	_, err := allocation.New().Allocate(reg, 100)
	require.NoError(t, err)

	first := Render(reg)
	second := Render(reg)
	assert.Equal(t, first, second)
	assert.Len(t, first, 20)
	assert.Equal(t, "Tisch 1: 14 Plätze", first[0])
	assert.Equal(t, 218, reg.TotalCapacity(), "rendering must not mutate the registry")
}

func TestAllocationLines(t *testing.T) {
	t.Parallel()

	t.Run("satisfied", func(t *testing.T) {
		res := allocation.Result{
			Requested: 30,
			Assigned:  30,
			Allocations: []allocation.Allocation{
				{TableID: 8, Cards: 24},
				{TableID: 1, Cards: 6},
			},
		}
		if diff := cmp.Diff([]string{"Tisch 8: 24 Karten", "Tisch 1: 6 Karten"}, AllocationLines(res)); diff != "" {
			t.Errorf("AllocationLines mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("shortfall", func(t *testing.T) {
		res := allocation.Result{
			Requested:   10,
			Assigned:    4,
			Unassigned:  6,
			Allocations: []allocation.Allocation{{TableID: 2, Cards: 4}},
		}
		if diff := cmp.Diff([]string{"Tisch 2: 4 Karten", "Nicht zugeteilt: 6 Karten"}, AllocationLines(res)); diff != "" {
			t.Errorf("AllocationLines mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, AllocationLines(allocation.Result{}))
	})
}

func TestWrite(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []string{"a", "b"}))
	assert.Equal(t, "a\nb\n\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWritePropagatesErrors(t *testing.T) {
	t.Parallel()

	assert.Error(t, Write(failingWriter{}, []string{"a"}))
}
