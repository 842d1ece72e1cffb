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
	"encoding/binary"
	"strconv"
	"strings"

	"segplan.io/segplan/go/vt/vterrors"
	vtrpcpb "segplan.io/segplan/go/vt/vtrpc"
)

// NULL represents the NULL value.
var NULL = Value{}

// Value is a typed constant. The value is held in its canonical text form:
// integers in base 10 without leading zeros, booleans as "t"/"f".
// Two Values are the same datum when their types' representations and
// their bytes are equal.
type Value struct {
	typ Type
	val []byte
}

// NewValue builds a Value using typ and val. The contents of val are
// validated and canonicalized for numeric and boolean types.
func NewValue(typ Type, val []byte) (v Value, err error) {
	switch {
	case typ == Null:
		return NULL, nil
	case IsIntegral(typ):
		i, err := strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
		if err != nil {
			return NULL, vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "cannot parse %q as %v: %v", val, typ, err)
		}
		n, ok := narrow(i, typ)
		if !ok {
			return NULL, vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "value %d is out of range for %v", i, typ)
		}
		return n, nil
	case IsFloat(typ):
		f, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		if err != nil {
			return NULL, vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "cannot parse %q as %v: %v", val, typ, err)
		}
		return NewFloat64(f), nil
	case IsBool(typ):
		b, err := strconv.ParseBool(strings.TrimSpace(string(val)))
		if err != nil {
			return NULL, vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "cannot parse %q as %v: %v", val, typ, err)
		}
		return NewBoolean(b), nil
	}
	return MakeTrusted(typ, val), nil
}

// MakeTrusted makes a new Value based on the type without validation.
// NULL type always yields NULL.
func MakeTrusted(typ Type, val []byte) Value {
	if typ == Null {
		return NULL
	}
	return Value{typ: typ, val: val}
}

// NewInt16 builds an Int16 Value.
func NewInt16(v int16) Value {
	return MakeTrusted(Int16, strconv.AppendInt(nil, int64(v), 10))
}

// NewInt32 builds an Int32 Value.
func NewInt32(v int32) Value {
	return MakeTrusted(Int32, strconv.AppendInt(nil, int64(v), 10))
}

// NewInt64 builds an Int64 Value.
func NewInt64(v int64) Value {
	return MakeTrusted(Int64, strconv.AppendInt(nil, v, 10))
}

// NewFloat64 builds a Float64 Value.
func NewFloat64(v float64) Value {
	return MakeTrusted(Float64, strconv.AppendFloat(nil, v, 'g', -1, 64))
}

// NewVarChar builds a VarChar Value.
func NewVarChar(v string) Value {
	return MakeTrusted(VarChar, []byte(v))
}

// NewText builds a Text Value.
func NewText(v string) Value {
	return MakeTrusted(Text, []byte(v))
}

// NewBoolean builds a Boolean Value.
func NewBoolean(v bool) Value {
	if v {
		return MakeTrusted(Boolean, []byte("t"))
	}
	return MakeTrusted(Boolean, []byte("f"))
}

// Type returns the type of Value.
func (v Value) Type() Type {
	return v.typ
}

// Raw returns the internal representation of the value. It must not be
// modified.
func (v Value) Raw() []byte {
	return v.val
}

// IsNull returns true if Value is null.
func (v Value) IsNull() bool {
	return v.typ == Null
}

// IsIntegral returns true if Value is an integral.
func (v Value) IsIntegral() bool {
	return IsIntegral(v.typ)
}

// ToInt64 returns the value as an int64. Only integral values convert.
func (v Value) ToInt64() (int64, error) {
	if !v.IsIntegral() {
		return 0, vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "%v is not an integral value", v)
	}
	return strconv.ParseInt(string(v.val), 10, 64)
}

// ToBool returns the value of a Boolean.
func (v Value) ToBool() (bool, error) {
	if !IsBool(v.typ) {
		return false, vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "%v is not a boolean value", v)
	}
	return string(v.val) == "t", nil
}

// RawEqual reports whether v and o are the same datum: both NULL, or both
// non-NULL with identical bytes. Types are not compared.
func (v Value) RawEqual(o Value) bool {
	if v.IsNull() || o.IsNull() {
		return v.IsNull() && o.IsNull()
	}
	return string(v.val) == string(o.val)
}

// Key returns a string usable as a map key with the same equality as
// RawEqual.
func (v Value) Key() string {
	if v.IsNull() {
		return "\x00null"
	}
	return "\x01" + string(v.val)
}

// HashBytes returns the bytes fed to a segment hash function. All integer
// widths of the same number hash alike, so that a key column's value hashes
// identically whichever integer type the constant arrived in.
func (v Value) HashBytes() []byte {
	if v.IsIntegral() {
		i, err := v.ToInt64()
		if err == nil {
			return binary.BigEndian.AppendUint64(nil, uint64(i))
		}
	}
	return v.val
}

// String returns a printable version of the value.
func (v Value) String() string {
	if v.IsNull() {
		return "NULL"
	}
	if IsQuoted(v.typ) {
		return v.typ.String() + "(" + strconv.Quote(string(v.val)) + ")"
	}
	return v.typ.String() + "(" + string(v.val) + ")"
}

// SQL returns the value as a SQL literal.
func (v Value) SQL() string {
	switch {
	case v.IsNull():
		return "null"
	case IsQuoted(v.typ):
		return "'" + strings.ReplaceAll(string(v.val), "'", "''") + "'"
	case IsBool(v.typ):
		if string(v.val) == "t" {
			return "true"
		}
		return "false"
	}
	return string(v.val)
}
