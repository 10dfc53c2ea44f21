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
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"
)

// The tree itself is single-threaded; sharing one across goroutines
// requires every call to go through one mutex. This test exercises that
// contract: several writers serialized by a lock, then a full
// invariant sweep.
func TestSerializedConcurrentAccess(t *testing.T) {
	t.Parallel()

	tr := mustNew(t, 4)
	var mu sync.Mutex
	var g errgroup.Group

	const workers = 8
	const perWorker = 2000
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			// Disjoint key ranges per worker and no repeats, so lookups
			// are deterministic regardless of interleaving.
			rnd := rand.New(rand.NewSource(int64(w)))
			for _, i := range rnd.Perm(perWorker) {
				k := w*1000000 + i
				mu.Lock()
				tr.Insert(k, k*10)
				v, ok := tr.Search(k)
				mu.Unlock()
				if !ok || v != k*10 {
					return fmt.Errorf("worker %d: Search(%d) = %d, %t", w, k, v, ok)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	checkTree(t, tr)

	// Serialized removals drain the tree back down.
	items := tr.Items()
	for w := 0; w < workers; w++ {
		lo, hi := w*(len(items)/workers), (w+1)*(len(items)/workers)
		batch := items[lo:hi]
		g.Go(func() error {
			for _, p := range batch {
				mu.Lock()
				ok := tr.Remove(p.Key)
				mu.Unlock()
				if !ok {
					return fmt.Errorf("Remove(%d) failed", p.Key)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	checkTree(t, tr)
}
