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

// RangeScan collects every entry with lo <= key <= hi, in ascending key
// order. It descends once to the leaf covering lo and then follows the
// leaf chain, so the cost is one descent plus the size of the result.
func (t *Tree[K, V]) RangeScan(lo, hi K) []Pair[K, V] {
	if t.root == nil {
		return nil
	}
	var out []Pair[K, V]
	leaf := t.findLeaf(lo)
	i := lowerBound(leaf.keys, lo)
	for leaf != nil {
		for ; i < len(leaf.keys); i++ {
			if leaf.keys[i] > hi {
				return out
			}
			out = append(out, Pair[K, V]{leaf.keys[i], leaf.values[i]})
		}
		leaf = leaf.next
		i = 0
	}
	return out
}

// Items returns every entry in ascending key order, walking the leaf
// chain from the leftmost leaf.
func (t *Tree[K, V]) Items() []Pair[K, V] {
	out := make([]Pair[K, V], 0, t.size)
	for leaf := t.leftmostLeaf(); leaf != nil; leaf = leaf.next {
		for i := range leaf.keys {
			out = append(out, Pair[K, V]{leaf.keys[i], leaf.values[i]})
		}
	}
	return out
}

func (t *Tree[K, V]) leftmostLeaf() *leafNode[K, V] {
	if t.root == nil {
		return nil
	}
	n := t.root
	for {
		inner, ok := n.(*internalNode[K, V])
		if !ok {
			return n.(*leafNode[K, V])
		}
		n = inner.children[0]
	}
}
