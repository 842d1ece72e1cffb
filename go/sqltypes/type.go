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

// Package sqltypes implements the typed constant values the planner reasons
// about: literals in predicates, distribution-key values and the results of
// value-set evaluation.
package sqltypes

import (
	"fmt"
	"strings"
)

// Type is the SQL type of a Value. The low byte numbers the type, the higher
// bits carry classification flags.
type Type int32

const (
	flagIsIntegral = 256
	flagIsFloat    = 512
	flagIsQuoted   = 1024
	flagIsBool     = 2048
)

// Types the planner understands.
const (
	Null      Type = 0
	Int16     Type = 1 | flagIsIntegral
	Int32     Type = 2 | flagIsIntegral
	Int64     Type = 3 | flagIsIntegral
	Float64   Type = 4 | flagIsFloat
	Decimal   Type = 5
	Text      Type = 6 | flagIsQuoted
	VarChar   Type = 7 | flagIsQuoted
	Date      Type = 8 | flagIsQuoted
	Timestamp Type = 9 | flagIsQuoted
	Boolean   Type = 10 | flagIsBool
)

var typeNames = map[Type]string{
	Null:      "NULL",
	Int16:     "INT16",
	Int32:     "INT32",
	Int64:     "INT64",
	Float64:   "FLOAT64",
	Decimal:   "DECIMAL",
	Text:      "TEXT",
	VarChar:   "VARCHAR",
	Date:      "DATE",
	Timestamp: "TIMESTAMP",
	Boolean:   "BOOLEAN",
}

// String returns the upper case name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// ParseType returns the Type named s, case-insensitively. Common SQL
// aliases such as "int", "bigint" and "smallint" are accepted.
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(s) {
	case "null":
		return Null, true
	case "int16", "int2", "smallint":
		return Int16, true
	case "int32", "int4", "int", "integer":
		return Int32, true
	case "int64", "int8", "bigint":
		return Int64, true
	case "float64", "float8", "double":
		return Float64, true
	case "decimal", "numeric":
		return Decimal, true
	case "text":
		return Text, true
	case "varchar":
		return VarChar, true
	case "date":
		return Date, true
	case "timestamp":
		return Timestamp, true
	case "bool", "boolean":
		return Boolean, true
	}
	return Null, false
}

// IsIntegral returns true if Type is an integral type.
func IsIntegral(t Type) bool {
	return int(t)&flagIsIntegral == flagIsIntegral
}

// IsFloat returns true is Type is a floating point.
func IsFloat(t Type) bool {
	return int(t)&flagIsFloat == flagIsFloat
}

// IsQuoted returns true if Type is a quoted text or binary.
func IsQuoted(t Type) bool {
	return int(t)&flagIsQuoted == flagIsQuoted
}

// IsBool returns true if Type is the boolean type.
func IsBool(t Type) bool {
	return int(t)&flagIsBool == flagIsBool
}

// IsNumber returns true if the type is any type of number.
func IsNumber(t Type) bool {
	return IsIntegral(t) || IsFloat(t) || t == Decimal
}
