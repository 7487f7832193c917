package allocation

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/eugenenazirov/table-seating/internal/registry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func seatCounts(reg *registry.Registry) []int {
	tables := reg.Ordered()
	out := make([]int, len(tables))
	for i, t := range tables {
		out[i] = t.Capacity()
	}
	return out
}

func mustRegistry(t testing.TB, capacities []int) *registry.Registry {
	t.Helper()

	reg, err := registry.New(capacities)
	require.NoError(t, err)
	return reg
}

func TestAllocate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		seed      []int
		cards     int
		want      Result
		wantSeats []int
	}{
		{
			name:  "ExactMatchPicksFirstTieInCapacityOrder",
			seed:  registry.DefaultCapacities(),
			cards: 18,
			want: Result{
				Requested:   18,
				Assigned:    18,
				Strategy:    StrategyExactMatch,
				Allocations: []Allocation{{TableID: 1, Cards: 18}},
			},
			wantSeats: []int{0, 18, 18, 18, 18, 12, 18, 24, 24, 24, 24, 18, 12, 18, 18, 18, 18, 0, 0, 0},
		},
		{
			name:  "ExactMatchBeatsLargerTable",
			seed:  []int{24, 12, 18},
			cards: 12,
			want: Result{
				Requested:   12,
				Assigned:    12,
				Strategy:    StrategyExactMatch,
				Allocations: []Allocation{{TableID: 2, Cards: 12}},
			},
			wantSeats: []int{24, 0, 18},
		},
		{
			name:  "SingleTableUsesLargest",
			seed:  registry.DefaultCapacities(),
			cards: 20,
			want: Result{
				Requested:   20,
				Assigned:    20,
				Strategy:    StrategySingleTable,
				Allocations: []Allocation{{TableID: 8, Cards: 20}},
			},
			wantSeats: []int{18, 18, 18, 18, 18, 12, 18, 4, 24, 24, 24, 18, 12, 18, 18, 18, 18, 0, 0, 0},
		},
		{
			name:  "SpreadDrainsLargestFirst",
			seed:  registry.DefaultCapacities(),
			cards: 100,
			want: Result{
				Requested: 100,
				Assigned:  100,
				Strategy:  StrategySpread,
				Allocations: []Allocation{
					{TableID: 8, Cards: 24},
					{TableID: 9, Cards: 24},
					{TableID: 10, Cards: 24},
					{TableID: 11, Cards: 24},
					{TableID: 1, Cards: 4},
				},
			},
			wantSeats: []int{14, 18, 18, 18, 18, 12, 18, 0, 0, 0, 0, 18, 12, 18, 18, 18, 18, 0, 0, 0},
		},
		{
			name:  "SpreadStopsWhenTableHoldsExactRemainder",
			seed:  []int{10, 6, 6},
			cards: 16,
			want: Result{
				Requested:   16,
				Assigned:    16,
				Strategy:    StrategySpread,
				Allocations: []Allocation{{TableID: 1, Cards: 10}, {TableID: 2, Cards: 6}},
			},
			wantSeats: []int{0, 0, 6},
		},
		{
			name:  "ShortfallDrainsEverything",
			seed:  registry.DefaultCapacities(),
			cards: 1000,
			want: Result{
				Requested:  1000,
				Assigned:   318,
				Unassigned: 682,
				Strategy:   StrategySpread,
				Allocations: []Allocation{
					{TableID: 8, Cards: 24},
					{TableID: 9, Cards: 24},
					{TableID: 10, Cards: 24},
					{TableID: 11, Cards: 24},
					{TableID: 1, Cards: 18},
					{TableID: 2, Cards: 18},
					{TableID: 3, Cards: 18},
					{TableID: 4, Cards: 18},
					{TableID: 5, Cards: 18},
					{TableID: 7, Cards: 18},
					{TableID: 12, Cards: 18},
					{TableID: 14, Cards: 18},
					{TableID: 15, Cards: 18},
					{TableID: 16, Cards: 18},
					{TableID: 17, Cards: 18},
					{TableID: 6, Cards: 12},
					{TableID: 13, Cards: 12},
				},
			},
			wantSeats: make([]int, 20),
		},
		{
			name:  "ZeroCards",
			seed:  []int{5, 0},
			cards: 0,
			want: Result{
				Strategy:    StrategyNone,
				Allocations: []Allocation{},
			},
			wantSeats: []int{5, 0},
		},
		{
			name:  "EmptyRegistryCapacity",
			seed:  []int{0, 0},
			cards: 3,
			want: Result{
				Requested:   3,
				Unassigned:  3,
				Strategy:    StrategySpread,
				Allocations: []Allocation{},
			},
			wantSeats: []int{0, 0},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reg := mustRegistry(t, tc.seed)
			got, err := New(WithLogger(zaptest.NewLogger(t))).Allocate(reg, tc.cards)
			require.NoError(t, err)

			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("unexpected result (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantSeats, seatCounts(reg)); diff != "" {
				t.Errorf("unexpected capacities (-want +got):\n%s", diff)
			}
			assert.Equal(t, tc.want.Unassigned > 0, got.Shortfall())
		})
	}
}

func TestAllocate_InvalidRequest(t *testing.T) {
	t.Parallel()

	reg := registry.NewDefault()
	_, err := New().Allocate(reg, -1)
	require.ErrorIs(t, err, ErrInvalidRequest)
	if diff := cmp.Diff(registry.DefaultCapacities(), seatCounts(reg)); diff != "" {
		t.Errorf("registry mutated (-want +got):\n%s", diff)
	}
}

func TestAllocate_SequentialRequestsSeeUpdatedCapacity(t *testing.T) {
	t.Parallel()

	reg := registry.NewDefault()
	engine := New()

	first, err := engine.Allocate(reg, 24)
	require.NoError(t, err)
	second, err := engine.Allocate(reg, 24)
	require.NoError(t, err)

	want := [][]Allocation{{{TableID: 8, Cards: 24}}, {{TableID: 9, Cards: 24}}}
	if diff := cmp.Diff(want, [][]Allocation{first.Allocations, second.Allocations}); diff != "" {
		t.Errorf("unexpected allocations (-want +got):\n%s", diff)
	}
}

func TestAllocate_Properties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	engine := New()

	for round := 0; round < 500; round++ {
		seed := make([]int, 1+rng.Intn(12))
		for i := range seed {
			seed[i] = rng.Intn(30)
		}
		reg := mustRegistry(t, seed)
		before := seatCounts(reg)
		total := reg.TotalCapacity()
		cards := rng.Intn(total + 40)

		got, err := engine.Allocate(reg, cards)
		require.NoError(t, err, "seed %v cards %d", seed, cards)

		sum := 0
		seen := make(map[int]bool, len(got.Allocations))
		for _, a := range got.Allocations {
			require.Positive(t, a.Cards, "seed %v cards %d: allocation %+v", seed, cards, a)
			require.False(t, seen[a.TableID], "seed %v cards %d: table %d allocated twice", seed, cards, a.TableID)
			seen[a.TableID] = true
			sum += a.Cards
		}

		want := min(cards, total)
		require.Equal(t, want, sum, "seed %v cards %d: allocation sum", seed, cards)
		require.Equal(t, want, got.Assigned, "seed %v cards %d: assigned", seed, cards)
		require.Equal(t, cards, got.Assigned+got.Unassigned, "seed %v cards %d: assigned+unassigned", seed, cards)

		after := seatCounts(reg)
		for i := range after {
			require.GreaterOrEqual(t, after[i], 0, "seed %v cards %d: table %d negative", seed, cards, i+1)
			if before[i] != after[i] {
				require.True(t, seen[i+1], "seed %v cards %d: table %d changed without allocation", seed, cards, i+1)
			}
		}

		if cards > 0 && slices.Contains(before, cards) {
			require.Equal(t, StrategyExactMatch, got.Strategy, "seed %v cards %d", seed, cards)
			require.Len(t, got.Allocations, 1, "seed %v cards %d", seed, cards)
			require.Zero(t, after[got.Allocations[0].TableID-1], "seed %v cards %d: exact match table not drained", seed, cards)
		}
	}
}

func TestAllocate_ConcurrentRequestsNeverDoubleSpend(t *testing.T) {
	reg := registry.NewDefault()
	engine := New()

	results := make([]Result, 64)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			res, err := engine.Allocate(reg, 7)
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	assigned := 0
	for _, res := range results {
		assigned += res.Assigned
	}
	assert.Equal(t, 318, assigned, "every seat assigned exactly once")
	assert.Zero(t, reg.TotalCapacity(), "registry should be drained")
}

func BenchmarkAllocateDefaultSeed(b *testing.B) {
	engine := New()
	for i := 0; i < b.N; i++ {
		reg := registry.NewDefault()
		_, err := engine.Allocate(reg, 100)
		require.NoError(b, err)
	}
}
