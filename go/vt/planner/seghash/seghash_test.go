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

package seghash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/vterrors"
	vtrpcpb "segplan.io/segplan/go/vt/vtrpc"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"siphash", "xxhash"}, Names())

	_, err := Lookup("md5")
	assert.Equal(t, vtrpcpb.Code_NOT_FOUND, vterrors.Code(err))

	fn, err := Lookup("")
	require.NoError(t, err)
	xx, _ := Lookup("xxhash")
	assert.Equal(t, xx([]byte("abc")), fn([]byte("abc")))

	assert.Panics(t, func() { Register("xxhash", xx) })
}

func TestJumpRange(t *testing.T) {
	for key := uint64(0); key < 2000; key++ {
		s := Jump(key*0x9e3779b97f4a7c15, 12)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 12)
	}
	assert.Equal(t, 0, Jump(12345, 1))
}

func TestJumpMovesFewKeys(t *testing.T) {
	moved := 0
	const n = 10000
	for key := uint64(0); key < n; key++ {
		k := key * 0x9e3779b97f4a7c15
		if Jump(k, 10) != Jump(k, 11) {
			moved++
		}
	}
	// roughly n/11 keys move
	assert.Less(t, moved, n/5)
	assert.Greater(t, moved, 0)
}

func TestEncodeKey(t *testing.T) {
	assert.NotEqual(t,
		EncodeKey(nil, []sqltypes.Value{sqltypes.NULL}),
		EncodeKey(nil, []sqltypes.Value{sqltypes.NewVarChar("")}))
	assert.NotEqual(t,
		EncodeKey(nil, []sqltypes.Value{sqltypes.NewVarChar("ab"), sqltypes.NewVarChar("c")}),
		EncodeKey(nil, []sqltypes.Value{sqltypes.NewVarChar("a"), sqltypes.NewVarChar("bc")}))
	assert.Equal(t,
		EncodeKey(nil, []sqltypes.Value{sqltypes.NewInt16(7)}),
		EncodeKey(nil, []sqltypes.Value{sqltypes.NewInt64(7)}))
}

func TestHasherSegment(t *testing.T) {
	_, err := New("xxhash", 0)
	require.Error(t, err)

	for _, name := range []string{"xxhash", "siphash"} {
		h, err := New(name, 12)
		require.NoError(t, err)
		assert.Equal(t, 12, h.NumSegments())
		seen := map[int]bool{}
		for i := int64(0); i < 200; i++ {
			s := h.Segment([]sqltypes.Value{sqltypes.NewInt64(i)})
			require.Less(t, s, 12)
			seen[s] = true
			assert.Equal(t, s, h.Segment([]sqltypes.Value{sqltypes.NewInt32(int32(i))}))
		}
		assert.Len(t, seen, 12, name)
	}
}
