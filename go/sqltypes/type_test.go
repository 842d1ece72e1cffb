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

package sqltypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeFlags(t *testing.T) {
	testcases := []struct {
		typ                             Type
		integral, float, quoted, isBool bool
	}{
		{Null, false, false, false, false},
		{Int16, true, false, false, false},
		{Int32, true, false, false, false},
		{Int64, true, false, false, false},
		{Float64, false, true, false, false},
		{Decimal, false, false, false, false},
		{Text, false, false, true, false},
		{VarChar, false, false, true, false},
		{Date, false, false, true, false},
		{Timestamp, false, false, true, false},
		{Boolean, false, false, false, true},
	}
	for _, tc := range testcases {
		t.Run(tc.typ.String(), func(t *testing.T) {
			assert.Equal(t, tc.integral, IsIntegral(tc.typ))
			assert.Equal(t, tc.float, IsFloat(tc.typ))
			assert.Equal(t, tc.quoted, IsQuoted(tc.typ))
			assert.Equal(t, tc.isBool, IsBool(tc.typ))
		})
	}
	assert.True(t, IsNumber(Decimal))
	assert.Equal(t, "Type(99)", Type(99).String())
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{
		"SMALLINT": Int16,
		"int":      Int32,
		"int8":     Int64,
		"Text":     Text,
		"boolean":  Boolean,
		"numeric":  Decimal,
	} {
		got, ok := ParseType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseType("geometry")
	assert.False(t, ok)
}
