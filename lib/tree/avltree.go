package tree

import (
	"github.com/benz9527/xindex/lib/infra"
)

type avlNode[K infra.OrderedKey] struct {
	left   *avlNode[K]
	right  *avlNode[K]
	key    K
	height int
}

func (node *avlNode[K]) Key() K {
	return node.key
}

func (node *avlNode[K]) Height() int {
	if node == nil {
		return 0
	}
	return node.height
}

func (node *avlNode[K]) Left() Node[K] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *avlNode[K]) Right() Node[K] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func (node *avlNode[K]) updateHeight() {
	node.height = 1 + max(node.left.Height(), node.right.Height())
}

// Positive means left-heavy, negative means right-heavy.
func (node *avlNode[K]) balanceFactor() int {
	if node == nil {
		return 0
	}
	return node.left.Height() - node.right.Height()
}

type avlTree[K infra.OrderedKey] struct {
	root  *avlNode[K]
	count int64
	cmp   infra.OrderedKeyComparator[K]
}

func (tree *avlTree[K]) comparator() infra.OrderedKeyComparator[K] {
	return tree.cmp
}

func (tree *avlTree[K]) Len() int64 {
	return tree.count
}

func (tree *avlTree[K]) Height() int {
	return tree.root.Height()
}

func (tree *avlTree[K]) Root() AVLNode[K] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

/*
T2 is the only subtree re-parented by a rotation.

		 |                         |
		 X                         Y
		/ \     leftRotate(X)     / \
	   T1  Y    ============>    X   T3
		  / \                   / \
		T2   T3                T1  T2
*/
func (tree *avlTree[K]) leftRotate(x *avlNode[K]) *avlNode[K] {
	if x == nil || x.right == nil {
		// impossible run to here
		panic( /* debug assertion */ "[avltree] left rotate node x is nil or x.right is nil")
	}

	y := x.right
	x.right, y.left = y.left, x
	x.updateHeight()
	y.updateHeight()
	return y
}

/*
		 |                         |
		 Y                         X
		/ \     rightRotate(Y)    / \
	   X   T3   ============>    T1  Y
	  / \                           / \
	T1   T2                        T2  T3
*/
func (tree *avlTree[K]) rightRotate(y *avlNode[K]) *avlNode[K] {
	if y == nil || y.left == nil {
		// impossible run to here
		panic( /* debug assertion */ "[avltree] right rotate node y is nil or y.left is nil")
	}

	x := y.left
	y.left, x.right = x.right, y
	y.updateHeight()
	x.updateHeight()
	return x
}

/*
r1 (LL): balance > 1 and the left child is not right-heavy.
rightRotate(N).

r2 (LR): balance > 1 and the left child is right-heavy.
leftRotate(N.left), then r1.

r3 (RR): balance < -1 and the right child is not left-heavy.
leftRotate(N).

r4 (RL): balance < -1 and the right child is left-heavy.
rightRotate(N.right), then r3.
*/
func (tree *avlTree[K]) rebalance(node *avlNode[K]) *avlNode[K] {
	switch bf := node.balanceFactor(); {
	case bf > 1:
		if /* r2 */ node.left.balanceFactor() < 0 {
			node.left = tree.leftRotate(node.left)
		}
		return /* r1 */ tree.rightRotate(node)
	case bf < -1:
		if /* r4 */ node.right.balanceFactor() > 0 {
			node.right = tree.rightRotate(node.right)
		}
		return /* r3 */ tree.leftRotate(node)
	default:
	}
	return node
}

// Returns the new local root, rotations may replace it.
func (tree *avlTree[K]) insert(node *avlNode[K], key K) *avlNode[K] {
	if node == nil {
		tree.count++
		return &avlNode[K]{
			key:    key,
			height: 1,
		}
	}

	if /* less */ tree.cmp(key, node.key) < 0 {
		node.left = tree.insert(node.left, key)
	} else /* greater or equal */ {
		node.right = tree.insert(node.right, key)
	}
	node.updateHeight()
	return tree.rebalance(node)
}

func (tree *avlTree[K]) Insert(key K) {
	tree.root = tree.insert(tree.root, key)
}

func (tree *avlTree[K]) Search(key K) bool {
	for aux := tree.root; aux != nil; {
		res := tree.cmp(key, aux.key)
		if res == 0 {
			return true
		} else if res < 0 {
			aux = aux.left
		} else {
			aux = aux.right
		}
	}
	return false
}

// Inorder traversal to implement the DFS.
func (tree *avlTree[K]) Foreach(action func(idx int64, key K) bool) {
	aux := tree.root
	if aux == nil {
		return
	}

	stack := make([]*avlNode[K], 0, tree.root.height)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; !action(idx, aux.key) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = aux.right; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
	}
}

type AVLTreeOpt[K infra.OrderedKey] func(*avlTree[K])

func WithAVLTreeDesc[K infra.OrderedKey]() AVLTreeOpt[K] {
	return func(tree *avlTree[K]) {
		tree.cmp = infra.ReverseCompare[K]
	}
}

func NewAVLTree[K infra.OrderedKey](opts ...AVLTreeOpt[K]) AVLTree[K] {
	tree := &avlTree[K]{
		cmp: infra.Compare[K],
	}
	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	return tree
}
