/*
Copyright 2026 The Segplan Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package seghash maps distribution-key tuples to segments.
//
// A hash function turns the encoded key tuple into a 64-bit digest and the
// digest is reduced to a segment index with a jump consistent hash, so that
// growing the cluster by one segment moves only 1/N of the keys.
package seghash

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"

	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/vterrors"
	vtrpcpb "segplan.io/segplan/go/vt/vtrpc"
)

// Default is the hash used by tables that do not name one.
const Default = "xxhash"

// Func hashes an encoded key tuple.
type Func func(key []byte) uint64

var (
	mu       sync.Mutex
	registry = make(map[string]Func)
)

// Register adds a hash function. Registering a name twice panics.
func Register(name string, fn Func) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registry[name]; ok {
		panic("seghash: " + name + " is already registered")
	}
	registry[name] = fn
}

// Lookup returns the named hash function. The empty name selects Default.
func Lookup(name string) (Func, error) {
	if name == "" {
		name = Default
	}
	mu.Lock()
	defer mu.Unlock()
	fn, ok := registry[name]
	if !ok {
		return nil, vterrors.Errorf(vtrpcpb.Code_NOT_FOUND, "unknown segment hash %q", name)
	}
	return fn, nil
}

// Names lists the registered hash functions.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// siphash keys are fixed so that placement is stable across processes.
const (
	sipK0 = 0x736567706c616e30
	sipK1 = 0x736567706c616e31
)

func init() {
	Register("xxhash", xxhash.Sum64)
	Register("siphash", func(key []byte) uint64 {
		return siphash.Hash(sipK0, sipK1, key)
	})
}

// EncodeKey appends the hash encoding of a key tuple to dst. Each value is
// a presence marker followed by its length-prefixed hash bytes, so NULL and
// the empty string differ and tuple boundaries are unambiguous.
func EncodeKey(dst []byte, vals []sqltypes.Value) []byte {
	for _, v := range vals {
		if v.IsNull() {
			dst = append(dst, 0)
			continue
		}
		b := v.HashBytes()
		dst = append(dst, 1)
		dst = binary.AppendUvarint(dst, uint64(len(b)))
		dst = append(dst, b...)
	}
	return dst
}

// Jump maps a digest onto [0, buckets) with Lamping and Veach's jump
// consistent hash.
func Jump(key uint64, buckets int) int {
	var b, j int64 = -1, 0
	for j < int64(buckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}
	return int(b)
}

// Hasher places key tuples of one table.
type Hasher struct {
	fn          Func
	numSegments int
	buf         []byte
}

// New returns a Hasher for the named hash and segment count.
func New(name string, numSegments int) (*Hasher, error) {
	if numSegments <= 0 {
		return nil, vterrors.VT03001("segment count must be positive")
	}
	fn, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return &Hasher{fn: fn, numSegments: numSegments}, nil
}

// NumSegments returns the segment count.
func (h *Hasher) NumSegments() int {
	return h.numSegments
}

// Segment returns the segment holding rows with the given key tuple.
func (h *Hasher) Segment(vals []sqltypes.Value) int {
	h.buf = EncodeKey(h.buf[:0], vals)
	return Jump(h.fn(h.buf), h.numSegments)
}
