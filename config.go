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

import "errors"

// minOrder is the smallest usable branching factor. Below it a split
// could not produce two non-empty halves.
const minOrder = 3

var (
	// ErrInvalidOrder is returned by New for a branching factor below 3.
	ErrInvalidOrder = errors.New("bptree: branching factor must be at least 3")

	// ErrIncompatibleSnapshot is returned by Deserialize when the file
	// was written by a tree with different key-count bounds.
	ErrIncompatibleSnapshot = errors.New("bptree: snapshot parameters do not match tree")

	// ErrCorruptSnapshot is returned by Deserialize when the file does
	// not decode as a snapshot.
	ErrCorruptSnapshot = errors.New("bptree: corrupt snapshot")
)

type treeOptions struct {
	uniqueKeys bool
}

// Option configures a tree at construction time.
type Option func(*treeOptions)

// WithUniqueKeys makes Insert overwrite the existing entry when the key
// is already present, instead of storing a second record beside it.
func WithUniqueKeys() Option {
	return func(o *treeOptions) {
		o.uniqueKeys = true
	}
}
