package tree

import (
	"reflect"

	"github.com/benz9527/xindex/lib/infra"
)

// SearchWithDepth descends from root and reports whether key was found
// and at which depth. The root is at depth 1; a miss reports -1.
// It works on AVL, red-black and reconstructed optimal trees alike,
// as long as they keep the keys in ascending order.
func SearchWithDepth[K infra.OrderedKey](root Node[K], key K) (found bool, depth int) {
	for aux := root; !isNilNode[K](aux); {
		depth++
		res := infra.Compare[K](key, aux.Key())
		if res == 0 {
			return true, depth
		} else if res < 0 {
			aux = aux.Left()
		} else {
			aux = aux.Right()
		}
	}
	return false, -1
}

// Inorder traversal by stack to collect the keys in sorted order.
func Inorder[K infra.OrderedKey](root Node[K]) []K {
	keys := make([]K, 0, 16)
	stack := make([]Node[K], 0, 16)
	defer func() {
		clear(stack)
	}()

	for aux := root; !isNilNode[K](aux) || len(stack) > 0; {
		for ; !isNilNode[K](aux); aux = aux.Left() {
			stack = append(stack, aux)
		}
		aux = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		keys = append(keys, aux.Key())
		aux = aux.Right()
	}
	return keys
}

// NodeHeight counts the nodes on the longest root-to-leaf path.
// An empty tree has height 0.
func NodeHeight[K infra.OrderedKey](root Node[K]) int {
	if isNilNode[K](root) {
		return 0
	}
	return 1 + max(NodeHeight[K](root.Left()), NodeHeight[K](root.Right()))
}

// Size counts the nodes reachable from root.
func Size[K infra.OrderedKey](root Node[K]) int {
	if isNilNode[K](root) {
		return 0
	}
	return 1 + Size[K](root.Left()) + Size[K](root.Right())
}

// IsNilNode reports the absent child, typed nil pointers included.
func IsNilNode[K infra.OrderedKey](node Node[K]) bool {
	return isNilNode[K](node)
}

// isNilNode also catches a typed nil pointer hidden in the interface.
// Foreign Node implementations fall back to reflection.
func isNilNode[K infra.OrderedKey](node Node[K]) bool {
	if node == nil {
		return true
	}
	switch n := node.(type) {
	case *avlNode[K]:
		return n == nil
	case *rbNode[K]:
		return n == nil
	case *obstNode[K]:
		return n == nil
	default:
	}
	switch v := reflect.ValueOf(node); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
	}
	return false
}
