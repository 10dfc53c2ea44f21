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
	"slices"
	"sort"
)

// node is implemented by the two node variants. The set is closed:
// every routine that walks the tree switches on the concrete type.
type node[K cmp.Ordered, V any] interface {
	parentNode() *internalNode[K, V]
	setParent(*internalNode[K, V])
}

type (
	// internalNode routes lookups. children[i] covers the key range
	// [keys[i-1], keys[i]), with the usual open ends; there is always
	// one more child than keys.
	internalNode[K cmp.Ordered, V any] struct {
		parent   *internalNode[K, V]
		keys     []K
		children []node[K, V]
	}

	// leafNode stores the actual entries. keys and values are aligned,
	// and next chains the leaves in ascending key order.
	leafNode[K cmp.Ordered, V any] struct {
		parent *internalNode[K, V]
		keys   []K
		values []V
		next   *leafNode[K, V]
	}
)

func (n *internalNode[K, V]) parentNode() *internalNode[K, V] { return n.parent }
func (n *internalNode[K, V]) setParent(p *internalNode[K, V]) { n.parent = p }

func (n *leafNode[K, V]) parentNode() *internalNode[K, V] { return n.parent }
func (n *leafNode[K, V]) setParent(p *internalNode[K, V]) { n.parent = p }

// Pair is a single key/value entry, as yielded by range scans.
type Pair[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

// Tree is an in-memory B+ tree mapping totally ordered keys to values.
// A tree of order m holds at most m-1 keys per node; all entries live
// in the leaves, which are chained for sequential iteration.
//
// A Tree is not safe for concurrent use. Callers sharing one across
// goroutines must serialize every call through a single mutex.
type Tree[K cmp.Ordered, V any] struct {
	root    node[K, V]
	maxKeys int
	minKeys int
	size    int
	unique  bool
}

// New creates an empty tree with branching factor order. The order must
// be at least 3.
func New[K cmp.Ordered, V any](order int, opts ...Option) (*Tree[K, V], error) {
	if order < minOrder {
		return nil, ErrInvalidOrder
	}
	var o treeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Tree[K, V]{
		maxKeys: order - 1,
		minKeys: (order+1)/2 - 1,
		unique:  o.uniqueKeys,
	}, nil
}

// Len returns the number of stored entries.
func (t *Tree[K, V]) Len() int {
	return t.size
}

// lowerBound returns the first index at which keys[i] >= key,
// or len(keys) if there is none.
func lowerBound[K cmp.Ordered](keys []K, key K) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] >= key })
}

// splitIndex returns the first index at which key < keys[i]. This is the
// descent rule: strictly less, so that a key equal to a separator is
// looked up to its right. A leaf split inside a run of equal keys can
// leave earlier occurrences left of an equal separator, where descent
// does not look.
func splitIndex[K cmp.Ordered](keys []K, key K) int {
	return sort.Search(len(keys), func(i int) bool { return key < keys[i] })
}

// findLeaf descends from the root to the unique leaf whose key range
// covers key. The key itself may or may not be present in it.
func (t *Tree[K, V]) findLeaf(key K) *leafNode[K, V] {
	n := t.root
	for {
		inner, ok := n.(*internalNode[K, V])
		if !ok {
			return n.(*leafNode[K, V])
		}
		n = inner.children[splitIndex(inner.keys, key)]
	}
}

// Insert adds an entry to the tree. Inserting a key that is already
// present adds a second record alongside the first, unless the tree was
// built with WithUniqueKeys, in which case the first occurrence is
// overwritten in place.
func (t *Tree[K, V]) Insert(key K, value V) {
	if t.root == nil {
		t.root = &leafNode[K, V]{keys: []K{key}, values: []V{value}}
		t.size++
		return
	}

	leaf := t.findLeaf(key)
	i := lowerBound(leaf.keys, key)
	if t.unique && i < len(leaf.keys) && leaf.keys[i] == key {
		leaf.values[i] = value
		return
	}
	leaf.keys = slices.Insert(leaf.keys, i, key)
	leaf.values = slices.Insert(leaf.values, i, value)
	t.size++

	if len(leaf.keys) > t.maxKeys {
		t.splitCascade(leaf)
	}
}

// splitCascade walks from an overfull node toward the root, splitting at
// each level until the bounds are restored. A node is allowed to reach
// maxKeys+1 entries before its split so that the midpoint is fixed.
func (t *Tree[K, V]) splitCascade(n node[K, V]) {
	for {
		switch x := n.(type) {
		case *leafNode[K, V]:
			if len(x.keys) <= t.maxKeys {
				return
			}
			t.splitLeaf(x)
			n = x.parent
		case *internalNode[K, V]:
			if len(x.keys) <= t.maxKeys {
				return
			}
			t.splitInternal(x)
			n = x.parent
		}
	}
}

// splitLeaf moves the upper half of l into a fresh leaf, splices it into
// the chain right after l, and hands the new leaf's first key to the
// parent as separator.
func (t *Tree[K, V]) splitLeaf(l *leafNode[K, V]) {
	mid := len(l.keys) / 2
	right := &leafNode[K, V]{
		keys:   append([]K(nil), l.keys[mid:]...),
		values: append([]V(nil), l.values[mid:]...),
		next:   l.next,
	}
	l.keys = l.keys[:mid]
	l.values = l.values[:mid]
	l.next = right
	t.insertIntoParent(l, right.keys[0], right)
}

// splitInternal promotes the middle key and moves everything above it
// into a fresh sibling. The promoted key does not appear in either half.
func (t *Tree[K, V]) splitInternal(n *internalNode[K, V]) {
	mid := len(n.keys) / 2
	promoted := n.keys[mid]
	right := &internalNode[K, V]{
		keys:     append([]K(nil), n.keys[mid+1:]...),
		children: append([]node[K, V](nil), n.children[mid+1:]...),
	}
	for _, c := range right.children {
		c.setParent(right)
	}
	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]
	t.insertIntoParent(n, promoted, right)
}

// insertIntoParent records the separator and the freshly split-off right
// node in left's parent. Splitting the root grows the tree instead: a
// new root is created with the two halves as its only children.
func (t *Tree[K, V]) insertIntoParent(left node[K, V], sep K, right node[K, V]) {
	p := left.parentNode()
	if p == nil {
		root := &internalNode[K, V]{
			keys:     []K{sep},
			children: []node[K, V]{left, right},
		}
		left.setParent(root)
		right.setParent(root)
		t.root = root
		return
	}
	// First-greater position, not lower bound: when duplicate entries
	// promote equal separators, the new child must still land directly
	// to the right of the node that was split.
	i := splitIndex(p.keys, sep)
	p.keys = slices.Insert(p.keys, i, sep)
	p.children = slices.Insert(p.children, i+1, right)
	right.setParent(p)
}

// Search returns the value stored under key. With duplicate entries it
// returns the first occurrence in the leaf that descent reaches; when a
// run of equal keys spans several leaves, occurrences left of an equal
// separator are not returned.
func (t *Tree[K, V]) Search(key K) (V, bool) {
	var zero V
	if t.root == nil {
		return zero, false
	}
	leaf := t.findLeaf(key)
	i := lowerBound(leaf.keys, key)
	if i < len(leaf.keys) && leaf.keys[i] == key {
		return leaf.values[i], true
	}
	return zero, false
}

// Modify overwrites the value of the occurrence of key that Search
// returns and reports whether the key was present. An absent key leaves
// the tree unchanged.
func (t *Tree[K, V]) Modify(key K, value V) bool {
	if t.root == nil {
		return false
	}
	leaf := t.findLeaf(key)
	i := lowerBound(leaf.keys, key)
	if i < len(leaf.keys) && leaf.keys[i] == key {
		leaf.values[i] = value
		return true
	}
	return false
}

// Height returns the number of levels in the tree, counting from the
// leaves: 0 when empty, 1 for a lone leaf root.
func (t *Tree[K, V]) Height() int {
	h := 0
	n := t.root
	for n != nil {
		h++
		inner, ok := n.(*internalNode[K, V])
		if !ok {
			break
		}
		n = inner.children[0]
	}
	return h
}

// NodeCount returns the total number of nodes, internal and leaf.
func (t *Tree[K, V]) NodeCount() int {
	return countNodes(t.root)
}

func countNodes[K cmp.Ordered, V any](n node[K, V]) int {
	switch x := n.(type) {
	case *internalNode[K, V]:
		total := 1
		for _, c := range x.children {
			total += countNodes(c)
		}
		return total
	case *leafNode[K, V]:
		return 1
	}
	return 0
}
