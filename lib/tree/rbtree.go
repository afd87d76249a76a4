package tree

import (
	"github.com/benz9527/xindex/lib/infra"
)

// A nil *rbNode is the NIL leaf. It is always black and never mutated,
// so there is no shared sentinel node to guard.
type rbNode[K infra.OrderedKey] struct {
	parent *rbNode[K] // non-owning back-reference for the fixup walk
	left   *rbNode[K]
	right  *rbNode[K]
	key    K
	color  RBColor
}

func (node *rbNode[K]) Key() K {
	return node.key
}

func (node *rbNode[K]) Color() RBColor {
	if node == nil {
		return Black
	}
	return node.color
}

func (node *rbNode[K]) Left() Node[K] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *rbNode[K]) Right() Node[K] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func (node *rbNode[K]) Parent() RBNode[K] {
	if node == nil || node.parent == nil {
		return nil
	}
	return node.parent
}

func (node *rbNode[K]) isRed() bool {
	return node != nil && node.color == Red
}

func (node *rbNode[K]) isBlack() bool {
	return node == nil || node.color == Black
}

func (node *rbNode[K]) isRoot() bool {
	return node != nil && node.parent == nil
}

func (node *rbNode[K]) Direction() RBDirection {
	if node == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}

	if node.isRoot() {
		return Root
	}
	if node == node.parent.left {
		return Left
	}
	return Right
}

func (node *rbNode[K]) sibling() *rbNode[K] {
	switch node.Direction() {
	case Left:
		return node.parent.right
	case Right:
		return node.parent.left
	default:
	}
	return nil
}

func (node *rbNode[K]) uncle() *rbNode[K] {
	return node.parent.sibling()
}

func (node *rbNode[K]) grandpa() *rbNode[K] {
	return node.parent.parent
}

func (node *rbNode[K]) fixLink() {
	if node.left != nil {
		node.left.parent = node
	}
	if node.right != nil {
		node.right.parent = node
	}
}

type rbTree[K infra.OrderedKey] struct {
	root  *rbNode[K]
	count int64
	cmp   infra.OrderedKeyComparator[K]
}

func (tree *rbTree[K]) comparator() infra.OrderedKeyComparator[K] {
	return tree.cmp
}

func (tree *rbTree[K]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K]) Height() int {
	return NodeHeight[K](tree.Root())
}

func (tree *rbTree[K]) Root() RBNode[K] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// The longest path nodes' number is at most 2 * shortest path nodes' number,
// so the height is bounded by 2*log2(n+1).

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K]) leftRotate(x *rbNode[K]) {
	if x == nil || x.right == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	p, y := x.parent, x.right
	dir := x.Direction()
	x.right, y.left = y.left, x

	x.fixLink()
	y.fixLink()

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to left-rotate")
	}
	y.parent = p
}

/*
		     |                         |
		     X                         P
		    / \    rightRotate(X)     / \
		   P   R   ============>     Pc  X
		  / \                           / \
		Pc   Pd                        Pd  R
*/
func (tree *rbTree[K]) rightRotate(x *rbNode[K]) {
	if x == nil || x.left == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	p, y := x.parent, x.left
	dir := x.Direction()
	x.left, y.right = y.right, x

	x.fixLink()
	y.fixLink()

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to right-rotate")
	}
	y.parent = p
}

// i1: Empty rbtree, the new node becomes the root and is painted black.
// i2: The parent is the root. A red child under a black root breaks nothing.
func (tree *rbTree[K]) Insert(key K) {
	var x, y *rbNode[K] = tree.root, nil
	for x != nil {
		y = x
		if /* less */ tree.cmp(key, x.key) < 0 {
			x = x.left
		} else /* greater or equal */ {
			x = x.right
		}
	}

	z := &rbNode[K]{
		key:    key,
		color:  Red,
		parent: y,
	}
	tree.count++

	if /* i1 */ y == nil {
		z.color = Black
		tree.root = z
		return
	}

	if tree.cmp(key, y.key) < 0 {
		y.left = z
	} else {
		y.right = z
	}

	if /* i2 */ y.isRoot() {
		return
	}
	tree.insertRebalance(z)
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).

im3: Both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Loop to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im4: The parent P is red but the uncle U is black. (red-violation)
X is opposite direction to P. Rotate P to straighten the path.
Here must enter im5 to fix.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im5: Current node is the same direction as parent.
Repaint then rotate G to the opposite direction. Loop terminates.

	    [G]                 <G>               [P]
	    / \    repaint      / \   rotate(G)   / \
	  <P> [U]  ======>    [P] [U]  =======> <X> <G>
	  /                   /                       \
	<X>                 <X>                       [U]
*/
func (tree *rbTree[K]) insertRebalance(x *rbNode[K]) {
	for !x.isRoot() && x.parent.isRed() {
		if /* im3 */ u := x.uncle(); u.isRed() {
			x.parent.color = Black
			u.color = Black
			gp := x.grandpa()
			gp.color = Red
			x = gp
			continue
		}

		if /* im4 */ dir := x.Direction(); dir != x.parent.Direction() {
			x = x.parent
			switch dir {
			case Left:
				tree.rightRotate(x)
			case Right:
				tree.leftRotate(x)
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] insert violate (im4)")
			}
		}

		/* im5 */
		gp := x.grandpa()
		x.parent.color = Black
		gp.color = Red
		switch x.parent.Direction() {
		case Left:
			tree.rightRotate(gp)
		case Right:
			tree.leftRotate(gp)
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] insert violate (im5)")
		}
		break
	}
	tree.root.color = Black
}

func (tree *rbTree[K]) Search(key K) bool {
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
func (tree *rbTree[K]) Foreach(action func(idx int64, color RBColor, key K) bool) {
	aux := tree.root
	if aux == nil {
		return
	}

	stack := make([]*rbNode[K], 0, tree.count>>1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.key) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = aux.right; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
	}
}

type RBTreeOpt[K infra.OrderedKey] func(*rbTree[K])

// WithRBTreeDesc keeps the greater keys on the left, Foreach then
// visits the keys in descending order.
func WithRBTreeDesc[K infra.OrderedKey]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.cmp = infra.ReverseCompare[K]
	}
}

func NewRBTree[K infra.OrderedKey](opts ...RBTreeOpt[K]) RBTree[K] {
	tree := &rbTree[K]{
		cmp: infra.Compare[K],
	}
	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	return tree
}
