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
)

// Remove deletes the occurrence of key that Search returns and reports
// whether it was present. Removing the last entry leaves the tree empty.
func (t *Tree[K, V]) Remove(key K) bool {
	if t.root == nil {
		return false
	}

	leaf := t.findLeaf(key)
	i := lowerBound(leaf.keys, key)
	if i >= len(leaf.keys) || leaf.keys[i] != key {
		return false
	}
	leaf.keys = slices.Delete(leaf.keys, i, i+1)
	leaf.values = slices.Delete(leaf.values, i, i+1)
	t.size--

	if t.root == node[K, V](leaf) {
		if len(leaf.keys) == 0 {
			t.root = nil
		}
		return true
	}
	if len(leaf.keys) < t.minKeys {
		t.rebalance(leaf)
	}
	return true
}

// rebalance restores the key-count lower bound on an underfull non-root
// node: borrow a single entry from a sibling that can spare one, or
// failing that merge with a sibling and recurse on the parent.
func (t *Tree[K, V]) rebalance(n node[K, V]) {
	p := n.parentNode()
	i := childPos(p, n)

	var left, right node[K, V]
	if i > 0 {
		left = p.children[i-1]
	}
	if i+1 < len(p.children) {
		right = p.children[i+1]
	}

	switch {
	case left != nil && keyCount(left) > t.minKeys:
		t.borrowFromLeft(p, i, n, left)
		return
	case right != nil && keyCount(right) > t.minKeys:
		t.borrowFromRight(p, i, n, right)
		return
	case left != nil:
		t.mergeWithLeft(p, i, n, left)
	default:
		t.mergeWithRight(p, i, n, right)
	}

	// A merge took one separator out of p.
	t.adjustParent(p)
}

// adjustParent continues the cascade after a merge. An empty root is
// collapsed onto its single remaining child, which loses its parent
// reference in the same step.
func (t *Tree[K, V]) adjustParent(p *internalNode[K, V]) {
	if t.root == node[K, V](p) {
		if len(p.keys) == 0 && len(p.children) == 1 {
			t.root = p.children[0]
			t.root.setParent(nil)
		}
		return
	}
	if len(p.keys) < t.minKeys {
		t.rebalance(p)
	}
}

// borrowFromLeft shifts the left sibling's last entry (or child) into
// the front of n. For internal nodes the separator pulled into n is the
// smallest key of n's own subtree before the transfer, so that it
// correctly partitions the arriving child from the old first child.
func (t *Tree[K, V]) borrowFromLeft(p *internalNode[K, V], i int, n, left node[K, V]) {
	switch x := n.(type) {
	case *leafNode[K, V]:
		l := left.(*leafNode[K, V])
		last := len(l.keys) - 1
		x.keys = slices.Insert(x.keys, 0, l.keys[last])
		x.values = slices.Insert(x.values, 0, l.values[last])
		l.keys = l.keys[:last]
		l.values = l.values[:last]
		p.keys[i-1] = x.keys[0]
	case *internalNode[K, V]:
		l := left.(*internalNode[K, V])
		sep := subtreeMin[K, V](x)
		last := len(l.keys) - 1
		moved := l.children[last+1]
		x.children = slices.Insert(x.children, 0, moved)
		moved.setParent(x)
		x.keys = slices.Insert(x.keys, 0, sep)
		p.keys[i-1] = l.keys[last]
		l.keys = l.keys[:last]
		l.children = l.children[:last+1]
	}
}

// borrowFromRight shifts the right sibling's first entry (or child) onto
// the end of n. The separator appended to an internal n is the smallest
// key under the arriving subtree, read off before the transfer.
func (t *Tree[K, V]) borrowFromRight(p *internalNode[K, V], i int, n, right node[K, V]) {
	switch x := n.(type) {
	case *leafNode[K, V]:
		r := right.(*leafNode[K, V])
		x.keys = append(x.keys, r.keys[0])
		x.values = append(x.values, r.values[0])
		r.keys = slices.Delete(r.keys, 0, 1)
		r.values = slices.Delete(r.values, 0, 1)
		p.keys[i] = r.keys[0]
	case *internalNode[K, V]:
		r := right.(*internalNode[K, V])
		sep := subtreeMin[K, V](r)
		moved := r.children[0]
		x.keys = append(x.keys, sep)
		x.children = append(x.children, moved)
		moved.setParent(x)
		p.keys[i] = r.keys[0]
		r.keys = slices.Delete(r.keys, 0, 1)
		r.children = slices.Delete(r.children, 0, 1)
	}
}

// mergeWithLeft absorbs n into its left sibling and drops the separator
// between them from p. Merging leaves re-links the forward chain;
// merging internal nodes pulls the separator down as the bridging key.
func (t *Tree[K, V]) mergeWithLeft(p *internalNode[K, V], i int, n, left node[K, V]) {
	switch x := n.(type) {
	case *leafNode[K, V]:
		l := left.(*leafNode[K, V])
		l.keys = append(l.keys, x.keys...)
		l.values = append(l.values, x.values...)
		l.next = x.next
	case *internalNode[K, V]:
		l := left.(*internalNode[K, V])
		for _, c := range x.children {
			c.setParent(l)
		}
		l.keys = append(l.keys, p.keys[i-1])
		l.keys = append(l.keys, x.keys...)
		l.children = append(l.children, x.children...)
	}
	p.keys = slices.Delete(p.keys, i-1, i)
	p.children = slices.Delete(p.children, i, i+1)
}

// mergeWithRight absorbs the right sibling into n, symmetrically to
// mergeWithLeft.
func (t *Tree[K, V]) mergeWithRight(p *internalNode[K, V], i int, n, right node[K, V]) {
	switch x := n.(type) {
	case *leafNode[K, V]:
		r := right.(*leafNode[K, V])
		x.keys = append(x.keys, r.keys...)
		x.values = append(x.values, r.values...)
		x.next = r.next
	case *internalNode[K, V]:
		r := right.(*internalNode[K, V])
		for _, c := range r.children {
			c.setParent(x)
		}
		x.keys = append(x.keys, p.keys[i])
		x.keys = append(x.keys, r.keys...)
		x.children = append(x.children, r.children...)
	}
	p.keys = slices.Delete(p.keys, i, i+1)
	p.children = slices.Delete(p.children, i+1, i+2)
}

// childPos locates c among p's children.
func childPos[K cmp.Ordered, V any](p *internalNode[K, V], c node[K, V]) int {
	for i, ch := range p.children {
		if ch == c {
			return i
		}
	}
	return -1
}

func keyCount[K cmp.Ordered, V any](n node[K, V]) int {
	switch x := n.(type) {
	case *internalNode[K, V]:
		return len(x.keys)
	case *leafNode[K, V]:
		return len(x.keys)
	}
	return 0
}

// subtreeMin returns the smallest key stored under n, by descending
// along first children to the leftmost leaf.
func subtreeMin[K cmp.Ordered, V any](n node[K, V]) K {
	for {
		inner, ok := n.(*internalNode[K, V])
		if !ok {
			return n.(*leafNode[K, V]).keys[0]
		}
		n = inner.children[0]
	}
}
