package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/benz9527/xindex/lib/infra"
	"github.com/benz9527/xindex/lib/tree"
)

// DistributionFromFrequencies turns the access counts of the keys into
// a distribution. successMass of the total probability is spread over the
// keys in proportion to their frequency, the rest is shared evenly by the
// n+1 gaps.
func DistributionFromFrequencies(freq map[string]int, successMass float64) (Distribution[string], error) {
	if math.IsNaN(successMass) || successMass < 0 || successMass > 1 {
		return Distribution[string]{}, infra.WrapErrorStackWithMessage(
			ErrInvalidSuccessMass,
			fmt.Sprintf("[analysis] success mass %v", successMass),
		)
	}

	keys := lo.Keys(freq)
	sort.Strings(keys)
	for _, key := range keys {
		if freq[key] < 0 {
			return Distribution[string]{}, infra.WrapErrorStackWithMessage(
				ErrNegativeFrequency,
				fmt.Sprintf("[analysis] frequency %d of key %q", freq[key], key),
			)
		}
	}
	total := lo.Sum(lo.Values(freq))
	if len(keys) == 0 || total <= 0 {
		return Distribution[string]{}, infra.WrapErrorStackWithMessage(
			ErrEmptyDistribution,
			fmt.Sprintf("[analysis] %d keys, total frequency %d", len(keys), total),
		)
	}

	n := len(keys)
	dist := Distribution[string]{
		Keys: keys,
		P: lo.Map(keys, func(key string, _ int) float64 {
			return float64(freq[key]) / float64(total) * successMass
		}),
		Q: make([]float64, n+1),
	}
	gap := (1 - successMass) / float64(n+1)
	for j := range dist.Q {
		dist.Q[j] = gap
	}
	return dist, nil
}

// Validate checks the shape of the arrays and the key order.
// Probabilities are not required to sum to one.
func (d Distribution[K]) Validate() error {
	var merr error
	n := len(d.Keys)
	if len(d.P) != n || len(d.Q) != n+1 {
		merr = multierr.Append(merr, infra.WrapErrorStackWithMessage(
			tree.ErrInvalidProbabilityArrays,
			fmt.Sprintf("[analysis] %q keys: %d, p: %d, q: %d", d.Name, n, len(d.P), len(d.Q)),
		))
	}
	for i := 1; i < n; i++ {
		if infra.Compare[K](d.Keys[i-1], d.Keys[i]) >= 0 {
			merr = multierr.Append(merr, infra.WrapErrorStackWithMessage(
				ErrUnsortedKeys,
				fmt.Sprintf("[analysis] %q keys[%d] >= keys[%d]", d.Name, i-1, i),
			))
			break
		}
	}
	negative := func(v float64) bool { return v < 0 || math.IsNaN(v) }
	if lo.SomeBy(d.P, negative) || lo.SomeBy(d.Q, negative) {
		merr = multierr.Append(merr, infra.WrapErrorStackWithMessage(
			tree.ErrInvalidProbabilityArrays,
			fmt.Sprintf("[analysis] %q has a negative probability", d.Name),
		))
	}
	return merr
}
