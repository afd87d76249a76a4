package tree

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/benz9527/xindex/lib/infra"
)

// Tree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

func colorOf[K infra.OrderedKey](node Node[K]) RBColor {
	if isNilNode[K](node) {
		return Black
	}
	if rb, ok := node.(RBNode[K]); ok {
		return rb.Color()
	}
	return Black
}

func isRedNode[K infra.OrderedKey](node Node[K]) bool {
	return colorOf[K](node) == Red
}

// Inorder traversal to validate no red node has a red child.
func RedViolationValidate[K infra.OrderedKey](tree RBTree[K]) error {
	var aux Node[K] = tree.Root()
	if isNilNode[K](aux) {
		return nil
	}

	stack := make([]Node[K], 0, tree.Len()>>1)
	defer func() {
		clear(stack)
	}()

	for ; !isNilNode[K](aux); aux = aux.Left() {
		stack = append(stack, aux)
	}

	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; isRedNode[K](aux) {
			if isRedNode[K](aux.Left()) || isRedNode[K](aux.Right()) {
				return infra.WrapErrorStackWithMessage(ErrRedViolation, fmt.Sprintf("red node %v has a red child", aux.Key()))
			}
		}

		stack = stack[:size-1]
		for aux = aux.Right(); !isNilNode[K](aux); aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return nil
}

func blackDepthTo[K infra.OrderedKey](target, to RBNode[K]) int {
	depth := 0
	for aux := target; aux != nil && aux != to; aux = aux.Parent() {
		if aux.Color() == Black {
			depth++
		}
	}
	return depth
}

// BFS traversal to load all nodes owning at least one NIL leaf.
func bfsLeaves[K infra.OrderedKey](tree RBTree[K]) []RBNode[K] {
	aux := tree.Root()
	if aux == nil {
		return nil
	}

	leaves := make([]RBNode[K], 0, tree.Len()>>1+1)
	queue := make([]RBNode[K], 0, tree.Len()>>1+1)
	defer func() {
		clear(queue)
	}()
	queue = append(queue, aux)

	for len(queue) > 0 {
		aux = queue[0]
		queue = queue[1:]
		l, r := aux.Left(), aux.Right()
		if /* nil leaves, keep one */ isNilNode[K](l) || isNilNode[K](r) {
			leaves = append(leaves, aux)
		}
		if !isNilNode[K](l) {
			queue = append(queue, l.(RBNode[K]))
		}
		if !isNilNode[K](r) {
			queue = append(queue, r.(RBNode[K]))
		}
	}
	return leaves
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

Each NIL leaf to root node black depth are equal.
*/
func BlackViolationValidate[K infra.OrderedKey](tree RBTree[K]) error {
	leaves := bfsLeaves[K](tree)
	if leaves == nil {
		return nil
	}

	blackDepth := blackDepthTo[K](leaves[0], tree.Root())
	for i := 1; i < len(leaves); i++ {
		if depth := blackDepthTo[K](leaves[i], tree.Root()); depth != blackDepth {
			return infra.WrapErrorStackWithMessage(
				ErrBlackViolation,
				fmt.Sprintf("node %v black depth %d, expected %d", leaves[i].Key(), depth, blackDepth),
			)
		}
	}
	return nil
}

func RootColorValidate[K infra.OrderedKey](tree RBTree[K]) error {
	if root := tree.Root(); root != nil && root.Color() != Black {
		return infra.WrapErrorStack(ErrRootNotBlack)
	}
	return nil
}

// RBTreeValidate collects every red-black rule violation.
func RBTreeValidate[K infra.OrderedKey](tree RBTree[K]) error {
	return multierr.Combine(
		RootColorValidate[K](tree),
		RedViolationValidate[K](tree),
		BlackViolationValidate[K](tree),
		orderValidate[K](tree.Root(), treeComparator[K](tree)),
	)
}

// AVLBalanceValidate checks the recorded heights and that every balance
// factor is within [-1, 1].
func AVLBalanceValidate[K infra.OrderedKey](tree AVLTree[K]) error {
	_, err := avlHeightValidate[K](tree.Root())
	return multierr.Combine(err, orderValidate[K](tree.Root(), treeComparator[K](tree)))
}

func avlHeightValidate[K infra.OrderedKey](node Node[K]) (int, error) {
	if isNilNode[K](node) {
		return 0, nil
	}
	lh, err := avlHeightValidate[K](node.Left())
	if err != nil {
		return 0, err
	}
	rh, err := avlHeightValidate[K](node.Right())
	if err != nil {
		return 0, err
	}

	height := 1 + max(lh, rh)
	if avl, ok := node.(AVLNode[K]); ok && avl.Height() != height {
		return 0, infra.WrapErrorStackWithMessage(
			ErrAVLHeightMismatch,
			fmt.Sprintf("node %v height %d, expected %d", node.Key(), avl.Height(), height),
		)
	}
	if bf := lh - rh; bf > 1 || bf < -1 {
		return 0, infra.WrapErrorStackWithMessage(
			ErrAVLUnbalanced,
			fmt.Sprintf("node %v balance factor %d", node.Key(), bf),
		)
	}
	return height, nil
}

type comparatorOwner[K infra.OrderedKey] interface {
	comparator() infra.OrderedKeyComparator[K]
}

func treeComparator[K infra.OrderedKey](tree any) infra.OrderedKeyComparator[K] {
	if owner, ok := tree.(comparatorOwner[K]); ok {
		if cmp := owner.comparator(); cmp != nil {
			return cmp
		}
	}
	return infra.Compare[K]
}

// OrderValidate checks the inorder keys are non-decreasing.
func OrderValidate[K infra.OrderedKey](root Node[K]) error {
	return orderValidate[K](root, infra.Compare[K])
}

func orderValidate[K infra.OrderedKey](root Node[K], cmp infra.OrderedKeyComparator[K]) error {
	keys := Inorder[K](root)
	for i := 1; i < len(keys); i++ {
		if cmp(keys[i], keys[i-1]) < 0 {
			return infra.WrapErrorStackWithMessage(
				ErrOrderViolation,
				fmt.Sprintf("key %v follows %v", keys[i], keys[i-1]),
			)
		}
	}
	return nil
}
