package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	randv2 "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/benz9527/xindex/lib/tree"
	"github.com/benz9527/xindex/xlog"
)

func clrsDistribution() Distribution[string] {
	return Distribution[string]{
		Name: "clrs",
		Keys: []string{"k1", "k2", "k3", "k4", "k5"},
		P:    []float64{0.15, 0.10, 0.05, 0.10, 0.20},
		Q:    []float64{0.05, 0.10, 0.05, 0.05, 0.05, 0.10},
	}
}

func randomDistribution(name string, n int) Distribution[int] {
	dist := Distribution[int]{
		Name: name,
		Keys: make([]int, n),
		P:    make([]float64, n),
		Q:    make([]float64, n+1),
	}
	total := 0.0
	for i := 0; i < n; i++ {
		dist.Keys[i] = i * 3
		dist.P[i] = randv2.Float64()
		total += dist.P[i]
	}
	for j := range dist.Q {
		dist.Q[j] = randv2.Float64() / 4
		total += dist.Q[j]
	}
	for i := range dist.P {
		dist.P[i] /= total
	}
	for j := range dist.Q {
		dist.Q[j] /= total
	}
	return dist
}

func quietLogger() xlog.XLogger {
	return xlog.NewXLogger(xlog.WithXLoggerLevel(xlog.LogLevelError))
}

func TestDistributionFromFrequencies(t *testing.T) {
	freq := map[string]int{"pear": 1, "apple": 6, "fig": 3}
	dist, err := DistributionFromFrequencies(freq, 0.8)
	require.NoError(t, err)
	require.NoError(t, dist.Validate())
	require.Equal(t, []string{"apple", "fig", "pear"}, dist.Keys)
	require.InDeltaSlice(t, []float64{0.48, 0.24, 0.08}, dist.P, 1e-12)
	require.Len(t, dist.Q, 4)
	for _, q := range dist.Q {
		require.InDelta(t, 0.05, q, 1e-12)
	}

	sum := 0.0
	for _, v := range append(append([]float64{}, dist.P...), dist.Q...) {
		sum += v
	}
	require.InDelta(t, 1.0, sum, 1e-12)

	dist, err = DistributionFromFrequencies(map[string]int{"only": 2}, 1)
	require.NoError(t, err)
	require.Equal(t, []float64{1}, dist.P)
	require.Equal(t, []float64{0, 0}, dist.Q)
}

func TestDistributionFromFrequencies_Errors(t *testing.T) {
	testcases := []struct {
		name   string
		freq   map[string]int
		mass   float64
		target error
	}{
		{"nil map", nil, 0.5, ErrEmptyDistribution},
		{"zero sum", map[string]int{"a": 0, "b": 0}, 0.5, ErrEmptyDistribution},
		{"negative frequency", map[string]int{"a": 5, "b": -1}, 0.5, ErrNegativeFrequency},
		{"negative frequency with zero sum", map[string]int{"a": 1, "b": -1}, 0.5, ErrNegativeFrequency},
		{"mass above one", map[string]int{"a": 1}, 1.5, ErrInvalidSuccessMass},
		{"negative mass", map[string]int{"a": 1}, -0.1, ErrInvalidSuccessMass},
		{"nan mass", map[string]int{"a": 1}, math.NaN(), ErrInvalidSuccessMass},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			_, err := DistributionFromFrequencies(tc.freq, tc.mass)
			require.ErrorIs(tt, err, tc.target)
			if tc.target == ErrNegativeFrequency {
				require.NotErrorIs(tt, err, ErrEmptyDistribution)
			}
		})
	}
}

func TestDistribution_Validate(t *testing.T) {
	dist := Distribution[int]{
		Name: "broken",
		Keys: []int{3, 1},
		P:    []float64{0.5, -0.1},
		Q:    []float64{0.1},
	}
	err := dist.Validate()
	require.ErrorIs(t, err, tree.ErrInvalidProbabilityArrays)
	require.ErrorIs(t, err, ErrUnsortedKeys)
	require.Len(t, multierr.Errors(err), 3)

	require.NoError(t, Distribution[int]{Q: []float64{1}}.Validate())
	require.ErrorIs(t, Distribution[int]{Keys: []int{1, 1}, P: []float64{0, 0}, Q: []float64{0, 0, 0}}.Validate(), ErrUnsortedKeys)
}

func TestExpectedCost_MatchesOptimalCost(t *testing.T) {
	dist := clrsDistribution()
	optimal, root, err := tree.OptimalBST[string](dist.Keys, dist.P, dist.Q)
	require.NoError(t, err)

	cost, err := ExpectedCost[string](root, dist.Keys, dist.P, dist.Q)
	require.NoError(t, err)
	require.InDelta(t, 2.75, cost, 1e-9)
	require.InDelta(t, optimal, cost, 1e-9)

	// k2:1 k1:2 k5:2 k4:3 k3:4
	realized := 0.15*2 + 0.10*1 + 0.05*4 + 0.10*3 + 0.20*2
	require.InDelta(t, realized, RealizedCost[string](root, dist.Keys, dist.P), 1e-9)

	for round := 0; round < 20; round++ {
		rdist := randomDistribution(fmt.Sprintf("random-%d", round), 1+randv2.IntN(40))
		optimal, root, err := tree.OptimalBST[int](rdist.Keys, rdist.P, rdist.Q)
		require.NoError(t, err)
		cost, err := ExpectedCost[int](root, rdist.Keys, rdist.P, rdist.Q)
		require.NoError(t, err)
		require.InDelta(t, optimal, cost, 1e-9)
	}
}

func TestExpectedCost_EmptyAndSingle(t *testing.T) {
	cost, err := ExpectedCost[int](nil, nil, nil, []float64{0.25})
	require.NoError(t, err)
	require.InDelta(t, 0.25, cost, 1e-12)

	avl := tree.NewAVLTree[int]()
	avl.Insert(9)
	cost, err = ExpectedCost[int](avl.Root(), []int{9}, []float64{0.7}, []float64{0.1, 0.2})
	require.NoError(t, err)
	require.InDelta(t, 1.3, cost, 1e-12)
}

func TestExpectedCost_Errors(t *testing.T) {
	rbt := tree.NewRBTree[int]()
	for _, key := range []int{1, 2, 3} {
		rbt.Insert(key)
	}
	testcases := []struct {
		name   string
		keys   []int
		p, q   []float64
		target error
	}{
		{"short q", []int{1, 2, 3}, []float64{0, 0, 0}, []float64{0, 0, 0}, tree.ErrInvalidProbabilityArrays},
		{"fewer keys than tree", []int{1, 2}, []float64{0, 0}, []float64{0, 0, 0}, ErrTreeKeysMismatch},
		{"more keys than tree", []int{1, 2, 3, 4}, []float64{0, 0, 0, 0}, []float64{0, 0, 0, 0, 0}, ErrTreeKeysMismatch},
		{"different keys", []int{1, 2, 4}, []float64{0, 0, 0}, []float64{0, 0, 0, 0}, ErrTreeKeysMismatch},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			_, err := ExpectedCost[int](rbt.Root(), tc.keys, tc.p, tc.q)
			require.ErrorIs(tt, err, tc.target)
		})
	}
}

func TestRealizedCost_MissingKeys(t *testing.T) {
	avl := tree.NewAVLTree[int]()
	for _, key := range []int{2, 1, 3} {
		avl.Insert(key)
	}
	// 1 and 3 at depth 2, 7 is absent.
	require.InDelta(t, 0.5*2+0.25*2, RealizedCost[int](avl.Root(), []int{1, 3, 7}, []float64{0.5, 0.25, 0.25}), 1e-12)
	require.Zero(t, RealizedCost[int](nil, []int{1}, []float64{1}))
	require.Zero(t, RealizedCost[int](avl.Root(), []int{1, 2}, nil))
}

func TestAnalyzer_Compare(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() {
		require.NoError(t, mp.Shutdown(context.Background()))
	}()

	analyzer, err := NewAnalyzer[string](
		WithLogger(quietLogger()),
		WithMeter(mp.Meter("xindex/analysis/test")),
		WithShuffleSeed(42),
	)
	require.NoError(t, err)

	report, err := analyzer.Compare(context.Background(), clrsDistribution())
	require.NoError(t, err)
	require.Equal(t, "clrs", report.Name)
	require.Equal(t, 5, report.Keys)
	require.InDelta(t, 2.75, report.OptimalCost, 1e-9)
	require.InDelta(t, 2.75, report.OBST.ExpectedCost, 1e-9)
	require.Equal(t, 4, report.OBST.Height)

	trees := report.Trees()
	require.Len(t, trees, 3)
	require.Equal(t, []string{KindOBST, KindAVL, KindRBTree}, []string{trees[0].Kind, trees[1].Kind, trees[2].Kind})
	for _, tr := range trees {
		require.Equal(t, 5, tr.Nodes)
		require.GreaterOrEqual(t, tr.ExpectedCost, report.OptimalCost-1e-9, tr.Kind)
		require.Positive(t, tr.RealizedCost)
	}
	require.LessOrEqual(t, report.AVL.Height, 3)
	require.LessOrEqual(t, report.RBTree.Height, 4)

	rm := metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["index.tree.inserts"])
	assert.True(t, names["index.tree.build.duration"])
	assert.True(t, names["index.tree.cost.expected"])
}

func TestAnalyzer_CompareSeedIsDeterministic(t *testing.T) {
	dist := randomDistribution("seeded", 200)
	a1, err := NewAnalyzer[int](WithLogger(quietLogger()), WithShuffleSeed(7))
	require.NoError(t, err)
	a2, err := NewAnalyzer[int](WithLogger(quietLogger()), WithShuffleSeed(7))
	require.NoError(t, err)

	r1, err := a1.Compare(context.Background(), dist)
	require.NoError(t, err)
	r2, err := a2.Compare(context.Background(), dist)
	require.NoError(t, err)
	require.Equal(t, r1.AVL.Height, r2.AVL.Height)
	require.InDelta(t, r1.AVL.ExpectedCost, r2.AVL.ExpectedCost, 1e-12)
	require.InDelta(t, r1.RBTree.ExpectedCost, r2.RBTree.ExpectedCost, 1e-12)
	require.LessOrEqual(t, float64(r1.RBTree.Height), 2*math.Log2(201))
}

func TestAnalyzer_CompareErrors(t *testing.T) {
	analyzer, err := NewAnalyzer[string](WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = analyzer.Compare(context.Background(), Distribution[string]{Keys: []string{"a"}, P: []float64{1}})
	require.ErrorIs(t, err, tree.ErrInvalidProbabilityArrays)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = analyzer.Compare(ctx, clrsDistribution())
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewAnalyzer_InvalidOptions(t *testing.T) {
	_, err := NewAnalyzer[int](WithPoolSize(0))
	require.Error(t, err)
	_, err = NewAnalyzer[int](WithLogger(nil))
	require.Error(t, err)
	_, err = NewAnalyzer[int](WithMeter(nil))
	require.Error(t, err)
	analyzer, err := NewAnalyzer[int](nil, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.Positive(t, analyzer.poolSize)
}

func TestAnalyzer_BatchCompare(t *testing.T) {
	analyzer, err := NewAnalyzer[int](WithLogger(quietLogger()), WithPoolSize(3), WithShuffleSeed(1))
	require.NoError(t, err)

	dists := make([]Distribution[int], 0, 10)
	for i := 0; i < 9; i++ {
		dists = append(dists, randomDistribution(fmt.Sprintf("d%d", i), 10+i*7))
	}
	dists = append(dists, Distribution[int]{Name: "broken", Keys: []int{2, 1}, P: []float64{0.5, 0.5}, Q: []float64{0, 0, 0}})

	reports, err := analyzer.BatchCompare(context.Background(), dists)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnsortedKeys)
	require.Len(t, multierr.Errors(err), 1)
	require.Len(t, reports, 10)
	for i, report := range reports[:9] {
		require.NotNil(t, report, "dist %d", i)
		require.Equal(t, dists[i].Name, report.Name)
		require.Equal(t, len(dists[i].Keys), report.AVL.Nodes)
		require.InDelta(t, report.OptimalCost, report.OBST.ExpectedCost, 1e-9)
		require.LessOrEqual(t, report.OptimalCost, report.AVL.ExpectedCost+1e-9)
		require.LessOrEqual(t, report.OptimalCost, report.RBTree.ExpectedCost+1e-9)
	}
	require.Nil(t, reports[9])

	reports, err = analyzer.BatchCompare(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, reports)
}

func TestAnalyzer_BatchCompareCancelled(t *testing.T) {
	analyzer, err := NewAnalyzer[int](WithLogger(quietLogger()), WithPoolSize(2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dists := []Distribution[int]{randomDistribution("a", 5), randomDistribution("b", 5)}
	reports, err := analyzer.BatchCompare(ctx, dists)
	require.True(t, errors.Is(err, context.Canceled))
	require.Len(t, multierr.Errors(err), 2)
	require.Nil(t, reports[0])
	require.Nil(t, reports[1])
}
