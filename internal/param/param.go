// Package param builds SQL parameters with derived column data types.
//
// Parameters carry a name, a value, and a database column type derived from
// the Go value when not given explicitly. A serialized, deterministic form
// of a parameter list doubles as the parameter half of a result cache key.
package param

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DataType identifies the database column type a parameter binds to.
type DataType int

const (
	// NVarChar is the default textual column type.
	NVarChar DataType = iota
	// Int is an integer column type.
	Int
	// Decimal is an exact numeric column type.
	Decimal
	// Bit is a boolean column type.
	Bit
	// Date is a calendar date column type.
	Date
	// DateTime is a date plus time-of-day column type.
	DateTime
)

// String returns the string representation of the data type.
func (d DataType) String() string {
	switch d {
	case NVarChar:
		return "nvarchar"
	case Int:
		return "int"
	case Decimal:
		return "decimal"
	case Bit:
		return "bit"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Param is a named SQL parameter.
type Param struct {
	Name  string
	Value any
	Type  DataType
}

// New creates a parameter, deriving the column type from the value.
func New(name string, value any) Param {
	return Param{Name: name, Value: value, Type: Derive(value)}
}

// NewTyped creates a parameter with an explicit column type.
func NewTyped(name string, value any, dt DataType) Param {
	return Param{Name: name, Value: value, Type: dt}
}

// Valid reports whether the parameter can be bound. A parameter needs a
// non-empty name.
func (p Param) Valid() bool {
	return p.Name != ""
}

// Arg converts the parameter to a database/sql named argument.
func (p Param) Arg() sql.NamedArg {
	return sql.Named(p.Name, p.DriverValue())
}

// DriverValue returns the value in a form every supported driver accepts.
// Decimals and UUIDs bind as their string form.
func (p Param) DriverValue() any {
	switch v := p.Value.(type) {
	case decimal.Decimal:
		return v.String()
	case uuid.UUID:
		return v.String()
	default:
		return p.Value
	}
}

// Derive maps a Go value to a column data type. Midnight timestamps map to
// Date, any other time to DateTime. Unknown types fall back to NVarChar.
func Derive(value any) DataType {
	switch v := value.(type) {
	case string:
		return NVarChar
	case bool:
		return Bit
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Int
	case float32, float64, decimal.Decimal:
		return Decimal
	case time.Time:
		h, m, s := v.Clock()
		if h == 0 && m == 0 && s == 0 && v.Nanosecond() == 0 {
			return Date
		}
		return DateTime
	case uuid.UUID:
		return NVarChar
	default:
		return NVarChar
	}
}

// FromMap builds a parameter list from name/value pairs, ordered by name so
// the result is deterministic.
func FromMap(values map[string]any) []Param {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]Param, 0, len(names))
	for _, name := range names {
		params = append(params, New(name, values[name]))
	}
	return params
}

// AnyInvalid reports whether any parameter in the list cannot be bound.
func AnyInvalid(params ...Param) bool {
	for _, p := range params {
		if !p.Valid() {
			return true
		}
	}
	return false
}

// Serialize renders a parameter list as a stable JSON object keyed by
// parameter name. The output is used for cache keys and trace records, so
// equal parameter sets must serialize identically.
func Serialize(params ...Param) string {
	if len(params) == 0 {
		return ""
	}
	values := make(map[string]any, len(params))
	for _, p := range params {
		values[p.Name] = p.Value
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Sprintf("%v", values)
	}
	return string(data)
}

// Args converts a parameter list to named driver arguments.
func Args(params ...Param) []any {
	args := make([]any, 0, len(params))
	for _, p := range params {
		args = append(args, p.Arg())
	}
	return args
}

// Values converts a parameter list to positional driver arguments, in list
// order. Drivers without named-argument support (pgx) bind these against
// $1..$n placeholders.
func Values(params ...Param) []any {
	values := make([]any, 0, len(params))
	for _, p := range params {
		values = append(values, p.DriverValue())
	}
	return values
}
