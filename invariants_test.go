// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

package bptree

import (
	"cmp"
	"fmt"
	"testing"
)

// validateTree checks the structural invariants of the whole tree:
// uniform leaf depth, key-count bounds, arity, parent linkage, separator
// ordering, and agreement between the leaf chain and the tree walk.
// Separators are checked as range bounds; after deletions a separator
// may sit below the minimum of its right subtree, which is harmless for
// navigation, so exact equality is asserted separately by insert-only
// tests.
func validateTree[K cmp.Ordered, V any](tr *Tree[K, V]) error {
	if tr.root == nil {
		if tr.size != 0 {
			return fmt.Errorf("empty tree reports %d entries", tr.size)
		}
		return nil
	}
	if tr.root.parentNode() != nil {
		return fmt.Errorf("root has a parent reference")
	}

	leafDepth := -1
	var leaves []*leafNode[K, V]

	var walk func(n node[K, V], depth int, lo, hi *K) error
	walk = func(n node[K, V], depth int, lo, hi *K) error {
		isRoot := n == tr.root
		switch x := n.(type) {
		case *leafNode[K, V]:
			if leafDepth == -1 {
				leafDepth = depth
			} else if depth != leafDepth {
				return fmt.Errorf("leaf at depth %d, expected %d", depth, leafDepth)
			}
			if len(x.keys) != len(x.values) {
				return fmt.Errorf("leaf has %d keys but %d values", len(x.keys), len(x.values))
			}
			if err := checkKeys(x.keys, isRoot, tr.minKeys, tr.maxKeys, lo, hi); err != nil {
				return fmt.Errorf("leaf: %w", err)
			}
			leaves = append(leaves, x)
		case *internalNode[K, V]:
			if len(x.children) != len(x.keys)+1 {
				return fmt.Errorf("internal node has %d keys but %d children", len(x.keys), len(x.children))
			}
			if err := checkKeys(x.keys, isRoot, tr.minKeys, tr.maxKeys, lo, hi); err != nil {
				return fmt.Errorf("internal node: %w", err)
			}
			for i, c := range x.children {
				if c.parentNode() != x {
					return fmt.Errorf("child %d does not point back at its parent", i)
				}
				clo, chi := lo, hi
				if i > 0 {
					clo = &x.keys[i-1]
				}
				if i < len(x.keys) {
					chi = &x.keys[i]
				}
				if err := walk(c, depth+1, clo, chi); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(tr.root, 0, nil, nil); err != nil {
		return err
	}

	// The chain from the leftmost leaf must visit exactly the leaves the
	// walk found, in the same order, and carry size entries in
	// non-decreasing key order.
	chain := tr.leftmostLeaf()
	total := 0
	for i, l := range leaves {
		if chain != l {
			return fmt.Errorf("leaf chain diverges from tree order at leaf %d", i)
		}
		total += len(l.keys)
		chain = chain.next
	}
	if chain != nil {
		return fmt.Errorf("leaf chain continues past the rightmost leaf")
	}
	if total != tr.size {
		return fmt.Errorf("leaves hold %d entries, tree reports %d", total, tr.size)
	}
	items := tr.Items()
	for i := 1; i < len(items); i++ {
		if items[i].Key < items[i-1].Key {
			return fmt.Errorf("leaf chain out of order at entry %d", i)
		}
	}
	return nil
}

// checkKeys verifies ordering, count bounds, and the [lo, hi) range a
// parent separator pair imposes.
func checkKeys[K cmp.Ordered](keys []K, isRoot bool, minKeys, maxKeys int, lo, hi *K) error {
	if isRoot {
		if len(keys) < 1 {
			return fmt.Errorf("root holds no keys")
		}
	} else if len(keys) < minKeys {
		return fmt.Errorf("%d keys, below minimum %d", len(keys), minKeys)
	}
	if len(keys) > maxKeys {
		return fmt.Errorf("%d keys, above maximum %d", len(keys), maxKeys)
	}
	for i, k := range keys {
		if i > 0 && k < keys[i-1] {
			return fmt.Errorf("keys out of order at index %d", i)
		}
		if lo != nil && k < *lo {
			return fmt.Errorf("key below the separator range")
		}
		if hi != nil && k >= *hi {
			return fmt.Errorf("key at or above the separator range")
		}
	}
	return nil
}

// checkSeparatorsExact additionally requires each separator to equal the
// minimum key of the subtree to its right. This holds on any tree built
// by insertions alone.
func checkSeparatorsExact[K cmp.Ordered, V any](tr *Tree[K, V]) error {
	var walk func(n node[K, V]) error
	walk = func(n node[K, V]) error {
		x, ok := n.(*internalNode[K, V])
		if !ok {
			return nil
		}
		for i, k := range x.keys {
			if min := subtreeMin[K, V](x.children[i+1]); min != k {
				return fmt.Errorf("separator %v does not match subtree minimum %v", k, min)
			}
		}
		for _, c := range x.children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if tr.root == nil {
		return nil
	}
	return walk(tr.root)
}

func checkTree[K cmp.Ordered, V any](t *testing.T, tr *Tree[K, V]) {
	t.Helper()
	if err := validateTree(tr); err != nil {
		t.Fatalf("invalid tree: %v", err)
	}
}
