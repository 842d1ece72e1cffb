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
	"math"
	"strconv"

	"golang.org/x/exp/constraints"
)

// bounds returns the inclusive range of the signed integer type T.
func bounds[T constraints.Signed]() (lo, hi int64) {
	var zero T
	switch any(zero).(type) {
	case int16:
		return math.MinInt16, math.MaxInt16
	case int32:
		return math.MinInt32, math.MaxInt32
	}
	return math.MinInt64, math.MaxInt64
}

func fits[T constraints.Signed](i int64) bool {
	lo, hi := bounds[T]()
	return lo <= i && i <= hi
}

func narrow(i int64, typ Type) (Value, bool) {
	var ok bool
	switch typ {
	case Int16:
		ok = fits[int16](i)
	case Int32:
		ok = fits[int32](i)
	case Int64:
		ok = true
	}
	if !ok {
		return NULL, false
	}
	return MakeTrusted(typ, strconv.AppendInt(nil, i, 10)), true
}

// NarrowIntegral converts the integral value v into the integral type typ.
// ok is false when the number does not fit in typ, which callers treat as a
// proven contradiction: no datum of typ can equal v.
// Values that are not integral, or a non-integral typ, also report !ok.
func NarrowIntegral(v Value, typ Type) (out Value, ok bool) {
	if !v.IsIntegral() || !IsIntegral(typ) {
		return NULL, false
	}
	i, err := v.ToInt64()
	if err != nil {
		return NULL, false
	}
	return narrow(i, typ)
}
