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
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Snapshot layout: a fixed metadata block, then one record per node.
// Records reference each other by absolute file offset; offset 0 (the
// metadata block) doubles as "no child" / "no successor". All integers
// are little-endian, so snapshots are portable across hosts.
//
//	meta:     maxKeys u32 | minKeys u32 | rootOffset u64 | height u32
//	leaf:     0x01 | count u32 | keys | values | nextOffset u64
//	internal: 0x00 | count u32 | keys | childOffsets (count+1) × u64

const (
	internalRecordTag byte = 0
	leafRecordTag     byte = 1
)

var snapshotOrder = binary.LittleEndian

type snapshotMeta struct {
	MaxKeys    uint32
	MinKeys    uint32
	RootOffset uint64
	Height     uint32
}

var metaSize = binary.Size(snapshotMeta{})

// payloadSize returns the encoded size of T, which must be fixed-size in
// the encoding/binary sense.
func payloadSize[T any]() (int, error) {
	var zero T
	n := binary.Size(zero)
	if n < 0 {
		return 0, fmt.Errorf("bptree: type %T is not fixed-size", zero)
	}
	return n, nil
}

// Serialize writes a snapshot of the tree to path, replacing any
// existing file. The in-memory tree is left untouched; a failed write
// leaves the file in an unspecified state, so callers needing atomic
// replacement should write to a temporary path and rename.
func (t *Tree[K, V]) Serialize(path string) (err error) {
	keySize, err := payloadSize[K]()
	if err != nil {
		return err
	}
	valSize, err := payloadSize[V]()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing snapshot: %w", cerr)
		}
	}()

	w := &snapshotWriter[K, V]{
		f:       f,
		keySize: keySize,
		valSize: valSize,
		next:    uint64(metaSize),
		offsets: make(map[node[K, V]]uint64),
	}

	var rootOffset uint64
	if t.root != nil {
		if rootOffset, err = w.writeNode(t.root); err != nil {
			return err
		}
		// Every leaf offset is known now; fill in the chain.
		if err = w.patchLeafChain(t.leftmostLeaf()); err != nil {
			return err
		}
	}

	meta := snapshotMeta{
		MaxKeys:    uint32(t.maxKeys),
		MinKeys:    uint32(t.minKeys),
		RootOffset: rootOffset,
		Height:     uint32(t.Height()),
	}
	buf := new(bytes.Buffer)
	if err = binary.Write(buf, snapshotOrder, meta); err != nil {
		return err
	}
	if _, err = f.WriteAt(buf.Bytes(), 0); err != nil {
		return fmt.Errorf("writing snapshot metadata: %w", err)
	}
	return nil
}

type snapshotWriter[K cmp.Ordered, V any] struct {
	f       *os.File
	keySize int
	valSize int
	next    uint64
	offsets map[node[K, V]]uint64
}

func (w *snapshotWriter[K, V]) leafRecordSize(count int) uint64 {
	return uint64(1 + 4 + count*w.keySize + count*w.valSize + 8)
}

func (w *snapshotWriter[K, V]) internalRecordSize(count int) uint64 {
	return uint64(1 + 4 + count*w.keySize + (count+1)*8)
}

// writeNode lays out the subtree rooted at n and returns n's offset.
// An internal node reserves its own record first, so that its children
// land contiguously behind it, and is written once all child offsets
// are known. Leaves are written in place with a zero next pointer,
// patched later by patchLeafChain.
func (w *snapshotWriter[K, V]) writeNode(n node[K, V]) (uint64, error) {
	buf := new(bytes.Buffer)
	switch x := n.(type) {
	case *leafNode[K, V]:
		off := w.next
		w.next += w.leafRecordSize(len(x.keys))
		w.offsets[n] = off
		buf.WriteByte(leafRecordTag)
		for _, v := range []any{uint32(len(x.keys)), x.keys, x.values, uint64(0)} {
			if err := binary.Write(buf, snapshotOrder, v); err != nil {
				return 0, err
			}
		}
		if _, err := w.f.WriteAt(buf.Bytes(), int64(off)); err != nil {
			return 0, fmt.Errorf("writing leaf record: %w", err)
		}
		return off, nil
	case *internalNode[K, V]:
		off := w.next
		w.next += w.internalRecordSize(len(x.keys))
		w.offsets[n] = off
		childOffsets := make([]uint64, len(x.children))
		for i, c := range x.children {
			co, err := w.writeNode(c)
			if err != nil {
				return 0, err
			}
			childOffsets[i] = co
		}
		buf.WriteByte(internalRecordTag)
		for _, v := range []any{uint32(len(x.keys)), x.keys, childOffsets} {
			if err := binary.Write(buf, snapshotOrder, v); err != nil {
				return 0, err
			}
		}
		if _, err := w.f.WriteAt(buf.Bytes(), int64(off)); err != nil {
			return 0, fmt.Errorf("writing internal record: %w", err)
		}
		return off, nil
	}
	panic("bptree: unknown node variant")
}

// patchLeafChain rewrites each leaf's trailing nextOffset field with the
// offset of its successor.
func (w *snapshotWriter[K, V]) patchLeafChain(leftmost *leafNode[K, V]) error {
	var buf [8]byte
	for l := leftmost; l != nil && l.next != nil; l = l.next {
		pos := w.offsets[node[K, V](l)] + w.leafRecordSize(len(l.keys)) - 8
		snapshotOrder.PutUint64(buf[:], w.offsets[node[K, V](l.next)])
		if _, err := w.f.WriteAt(buf[:], int64(pos)); err != nil {
			return fmt.Errorf("patching leaf chain: %w", err)
		}
	}
	return nil
}

// Deserialize replaces the tree's contents with the snapshot at path.
// The snapshot must have been written by a tree with the same branching
// factor; otherwise ErrIncompatibleSnapshot is returned. Deserialization
// is not transactional: on error the tree may hold partial state and
// should be discarded.
func (t *Tree[K, V]) Deserialize(path string) error {
	keySize, err := payloadSize[K]()
	if err != nil {
		return err
	}
	valSize, err := payloadSize[V]()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	hdr := make([]byte, metaSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return fmt.Errorf("reading snapshot metadata: %w", err)
	}
	var meta snapshotMeta
	if err := binary.Read(bytes.NewReader(hdr), snapshotOrder, &meta); err != nil {
		return err
	}
	if int(meta.MaxKeys) != t.maxKeys || int(meta.MinKeys) != t.minKeys {
		return fmt.Errorf("%w: file has bounds %d/%d, tree has %d/%d",
			ErrIncompatibleSnapshot, meta.MinKeys, meta.MaxKeys, t.minKeys, t.maxKeys)
	}

	if meta.RootOffset == 0 {
		t.root = nil
		t.size = 0
		return nil
	}

	r := &snapshotReader[K, V]{
		f:       f,
		keySize: keySize,
		valSize: valSize,
		maxKeys: int(meta.MaxKeys),
		nodes:   make(map[uint64]node[K, V]),
	}
	root, err := r.readNode(meta.RootOffset)
	if err != nil {
		return err
	}
	root.setParent(nil)
	t.root = root
	t.size = r.entries
	return nil
}

type snapshotReader[K cmp.Ordered, V any] struct {
	f       *os.File
	keySize int
	valSize int
	maxKeys int
	entries int
	nodes   map[uint64]node[K, V]
}

// readNode loads the record at off, recursing into children and the
// leaf chain. Records already materialized are shared via the offset
// cache, so common structure is never walked twice. Parent references
// are wired on the way back up, by the internal node that owns each
// child.
func (r *snapshotReader[K, V]) readNode(off uint64) (node[K, V], error) {
	if n, ok := r.nodes[off]; ok {
		return n, nil
	}

	var hdr [5]byte
	if _, err := r.f.ReadAt(hdr[:], int64(off)); err != nil {
		return nil, fmt.Errorf("reading node record: %w", err)
	}
	count := int(snapshotOrder.Uint32(hdr[1:]))
	if count > r.maxKeys {
		return nil, fmt.Errorf("%w: node record claims %d keys", ErrCorruptSnapshot, count)
	}

	switch hdr[0] {
	case leafRecordTag:
		body := make([]byte, count*(r.keySize+r.valSize)+8)
		if _, err := r.f.ReadAt(body, int64(off)+int64(len(hdr))); err != nil {
			return nil, fmt.Errorf("reading leaf record: %w", err)
		}
		leaf := &leafNode[K, V]{
			keys:   make([]K, count),
			values: make([]V, count),
		}
		br := bytes.NewReader(body)
		var nextOff uint64
		for _, v := range []any{leaf.keys, leaf.values, &nextOff} {
			if err := binary.Read(br, snapshotOrder, v); err != nil {
				return nil, err
			}
		}
		r.nodes[off] = leaf
		r.entries += count
		if nextOff != 0 {
			nx, err := r.readNode(nextOff)
			if err != nil {
				return nil, err
			}
			nxLeaf, ok := nx.(*leafNode[K, V])
			if !ok {
				return nil, fmt.Errorf("%w: leaf chain points at an internal record", ErrCorruptSnapshot)
			}
			leaf.next = nxLeaf
		}
		return leaf, nil

	case internalRecordTag:
		body := make([]byte, count*r.keySize+(count+1)*8)
		if _, err := r.f.ReadAt(body, int64(off)+int64(len(hdr))); err != nil {
			return nil, fmt.Errorf("reading internal record: %w", err)
		}
		n := &internalNode[K, V]{
			keys:     make([]K, count),
			children: make([]node[K, V], count+1),
		}
		childOffsets := make([]uint64, count+1)
		br := bytes.NewReader(body)
		for _, v := range []any{n.keys, childOffsets} {
			if err := binary.Read(br, snapshotOrder, v); err != nil {
				return nil, err
			}
		}
		r.nodes[off] = n
		for i, co := range childOffsets {
			if co == 0 {
				return nil, fmt.Errorf("%w: internal record is missing child %d", ErrCorruptSnapshot, i)
			}
			c, err := r.readNode(co)
			if err != nil {
				return nil, err
			}
			n.children[i] = c
			c.setParent(n)
		}
		return n, nil

	default:
		return nil, fmt.Errorf("%w: unknown record tag %#x", ErrCorruptSnapshot, hdr[0])
	}
}
