package analysis

import (
	"fmt"

	"github.com/benz9527/xindex/lib/infra"
	"github.com/benz9527/xindex/lib/tree"
)

// RealizedCost is the probability weighted depth of the successful
// searches, sum(depth(keys[i]) * p[i]) with the root at depth 1.
// Keys missing from the tree contribute nothing.
func RealizedCost[K infra.OrderedKey](root tree.Node[K], keys []K, p []float64) float64 {
	cost := 0.0
	for i, key := range keys {
		if i >= len(p) {
			break
		}
		if found, depth := tree.SearchWithDepth[K](root, key); found {
			cost += float64(depth) * p[i]
		}
	}
	return cost
}

/*
ExpectedCost also charges the failed searches. A search falling in gap j
ends at the nil child between keys[j-1] and keys[j], one level below its
parent, so

	cost = sum(depth(keys[i]) * p[i]) + sum(depth(nil_j) * q[j])

The tree must hold exactly the keys, in order. For the tree rebuilt from
the OBST root table the result equals the cost of the dynamic program.
*/
func ExpectedCost[K infra.OrderedKey](root tree.Node[K], keys []K, p, q []float64) (float64, error) {
	n := len(keys)
	if len(p) != n || len(q) != n+1 {
		return 0, infra.WrapErrorStackWithMessage(
			tree.ErrInvalidProbabilityArrays,
			fmt.Sprintf("[analysis] keys: %d, p: %d, q: %d", n, len(p), len(q)),
		)
	}

	type frame struct {
		node  tree.Node[K]
		depth int
	}
	var (
		cost  = 0.0
		idx   = 0 // next key in order
		gap   = 0 // next nil child in order
		stack = make([]frame, 0, 32)
		aux   = frame{node: root, depth: 1}
	)
	mismatch := func(msg string) error {
		return infra.WrapErrorStackWithMessage(ErrTreeKeysMismatch, "[analysis] "+msg)
	}

	for {
		// Descend left, the nil child met at the bottom is the next gap.
		for !tree.IsNilNode[K](aux.node) {
			stack = append(stack, aux)
			aux = frame{node: aux.node.Left(), depth: aux.depth + 1}
		}
		if gap > n {
			return 0, mismatch(fmt.Sprintf("more than %d keys in tree", n))
		}
		cost += float64(aux.depth) * q[gap]
		gap++

		if len(stack) == 0 {
			break
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if idx >= n || infra.Compare[K](top.node.Key(), keys[idx]) != 0 {
			return 0, mismatch(fmt.Sprintf("tree key at inorder index %d", idx))
		}
		cost += float64(top.depth) * p[idx]
		idx++
		aux = frame{node: top.node.Right(), depth: top.depth + 1}
	}
	if idx != n {
		return 0, mismatch(fmt.Sprintf("%d of %d keys in tree", idx, n))
	}
	return cost, nil
}
