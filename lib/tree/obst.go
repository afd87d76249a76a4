package tree

import (
	"fmt"
	"math"

	"github.com/benz9527/xindex/lib/infra"
)

// References:
// CLRS 3rd, 15.5 Optimal binary search trees.

// RootTable is the side output of BuildOptimalBST. The table is 0-indexed
// but addresses 1-indexed key intervals: root[i-1][j-1] = r means key r
// (keys[r-1]) is the root of the optimal subtree spanning keys i..j.
// 0 means no root was recorded for that interval.
type RootTable [][]int

func (rt RootTable) Len() int {
	return len(rt)
}

// At looks up the root of the 1-indexed interval i..j, 0 if out of range.
func (rt RootTable) At(i, j int) int {
	if i < 1 || j < 1 || i > len(rt) || j > len(rt[i-1]) {
		return 0
	}
	return rt[i-1][j-1]
}

type obstNode[K infra.OrderedKey] struct {
	left  *obstNode[K]
	right *obstNode[K]
	key   K
}

func (node *obstNode[K]) Key() K {
	return node.key
}

func (node *obstNode[K]) Left() Node[K] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *obstNode[K]) Right() Node[K] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func newDPTable(n int) [][]float64 {
	table := make([][]float64, n)
	for i := range table {
		table[i] = make([]float64, n)
	}
	return table
}

/*
BuildOptimalBST computes the minimum expected search cost of a static
tree over n sorted keys, their n success probabilities p and the n+1
gap probabilities q (q[0] before keys[0], q[n] after keys[n-1]).

E and W are (n+2)x(n+2) and 1-indexed, E[i][i-1] is the empty interval
left of key i whose cost is the gap q[i-1].

	W[i][j] = W[i][j-1] + p[j-1] + q[j]
	E[i][j] = min{ E[i][r-1] + E[r+1][j] + W[i][j] }, i <= r <= j

Ties keep the smallest r. Probabilities are not checked for sign or sum.
*/
func BuildOptimalBST[K infra.OrderedKey](keys []K, p, q []float64) (float64, RootTable, error) {
	n := len(keys)
	if len(p) != n || len(q) != n+1 {
		return 0, nil, infra.WrapErrorStackWithMessage(
			ErrInvalidProbabilityArrays,
			fmt.Sprintf("[obst] keys: %d, p: %d (want %d), q: %d (want %d)", n, len(p), n, len(q), n+1),
		)
	}

	e, w := newDPTable(n+2), newDPTable(n+2)
	root := make(RootTable, n)
	for i := range root {
		root[i] = make([]int, n)
	}

	// Empty intervals.
	for i := 1; i <= n+1; i++ {
		e[i][i-1] = q[i-1]
		w[i][i-1] = q[i-1]
	}

	for l := 1; l <= n; l++ {
		for i := 1; i+l-1 <= n; i++ {
			j := i + l - 1
			w[i][j] = w[i][j-1] + p[j-1] + q[j]
			e[i][j] = math.Inf(1)
			for r := i; r <= j; r++ {
				if cost := e[i][r-1] + e[r+1][j] + w[i][j]; cost < e[i][j] {
					e[i][j] = cost
					root[i-1][j-1] = r
				}
			}
		}
	}
	return e[1][n], root, nil
}

// ReconstructOptimalBST rebuilds the subtree of the 1-indexed interval i..j
// from the root table. An empty interval (i > j) is the nil tree.
// Intervals outside the table or keys, and recorded roots outside i..j,
// are reported as ErrMalformedTable.
func ReconstructOptimalBST[K infra.OrderedKey](root RootTable, keys []K, i, j int) (Node[K], error) {
	node, err := reconstructOptimalBST[K](root, keys, i, j)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nil
	}
	return node, nil
}

func reconstructOptimalBST[K infra.OrderedKey](root RootTable, keys []K, i, j int) (*obstNode[K], error) {
	if i > j {
		return nil, nil
	}
	if i < 1 || j > len(keys) || j > len(root) || j > len(root[i-1]) {
		return nil, infra.WrapErrorStackWithMessage(
			ErrMalformedTable,
			fmt.Sprintf("[obst] interval [%d, %d] out of table (%d rows) or keys (%d)", i, j, len(root), len(keys)),
		)
	}

	r := root[i-1][j-1]
	if r < i || r > j {
		return nil, infra.WrapErrorStackWithMessage(
			ErrMalformedTable,
			fmt.Sprintf("[obst] root %d recorded for interval [%d, %d]", r, i, j),
		)
	}

	left, err := reconstructOptimalBST[K](root, keys, i, r-1)
	if err != nil {
		return nil, err
	}
	right, err := reconstructOptimalBST[K](root, keys, r+1, j)
	if err != nil {
		return nil, err
	}
	return &obstNode[K]{
		key:   keys[r-1],
		left:  left,
		right: right,
	}, nil
}

// OptimalBST builds the table and reconstructs the whole tree in one call.
func OptimalBST[K infra.OrderedKey](keys []K, p, q []float64) (float64, Node[K], error) {
	cost, root, err := BuildOptimalBST[K](keys, p, q)
	if err != nil {
		return 0, nil, err
	}
	node, err := ReconstructOptimalBST[K](root, keys, 1, len(keys))
	if err != nil {
		return 0, nil, err
	}
	return cost, node, nil
}
