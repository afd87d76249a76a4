package tree

import "github.com/benz9527/xindex/lib/infra"

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

//go:generate stringer -type=RBDirection
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

// Node is the shape shared by every tree in this package.
// A nil Node is the absent child (leaf). Implementations outside this
// package may return a typed nil pointer for an absent child as well.
type Node[K infra.OrderedKey] interface {
	Key() K
	Left() Node[K]
	Right() Node[K]
}

type AVLNode[K infra.OrderedKey] interface {
	Node[K]
	Height() int
}

type RBNode[K infra.OrderedKey] interface {
	Node[K]
	Color() RBColor
	Parent() RBNode[K]
}

// AVLTree is a height-balanced binary search tree.
// Equal keys are accepted and placed in the right subtree.
type AVLTree[K infra.OrderedKey] interface {
	Len() int64
	Height() int
	Root() AVLNode[K]
	Insert(key K)
	Search(key K) bool
	Foreach(action func(idx int64, key K) bool)
}

// RBTree is a red-black binary search tree.
// Equal keys are accepted and placed in the right subtree.
type RBTree[K infra.OrderedKey] interface {
	Len() int64
	Height() int
	Root() RBNode[K]
	Insert(key K)
	Search(key K) bool
	Foreach(action func(idx int64, color RBColor, key K) bool)
}

type TreeErr string

const (
	ErrInvalidProbabilityArrays TreeErr = "invalid obst probability arrays"
	ErrMalformedTable           TreeErr = "malformed obst root table"
	ErrRedViolation             TreeErr = "rbtree red violation"
	ErrBlackViolation           TreeErr = "rbtree black violation"
	ErrRootNotBlack             TreeErr = "rbtree root is not black"
	ErrAVLUnbalanced            TreeErr = "avltree balance violation"
	ErrAVLHeightMismatch        TreeErr = "avltree height violation"
	ErrOrderViolation           TreeErr = "bst order violation"
)

func (err TreeErr) Error() string {
	return string(err)
}
