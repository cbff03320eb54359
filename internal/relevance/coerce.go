package relevance

import (
	"encoding/json"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// leadingNumber matches the numeric prefix of a string such as "12", "-0.5",
// ".25" or "1e3". Anything after the prefix is ignored.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)([eE][+-]?\d+)?`)

// ToInt converts a loosely typed value to an int. It never fails: nil and
// non-numeric values convert to 0, floats and decimal strings are truncated
// toward zero. Numeric strings beyond the int range saturate to the nearest
// bound; other out of range values convert to 0.
func ToInt(v any) int {
	d, ok := toDecimal(v)
	if !ok {
		return 0
	}
	i := d.Truncate(0)
	switch {
	case i.GreaterThan(decimal.NewFromInt(math.MaxInt)):
		if isString(v) {
			return math.MaxInt
		}
		return 0
	case i.LessThan(decimal.NewFromInt(math.MinInt)):
		if isString(v) {
			return math.MinInt
		}
		return 0
	}
	return int(i.IntPart())
}

// ToFloat converts a loosely typed value to a float64. It never fails: nil
// and non-numeric values convert to 0.
func ToFloat(v any) float64 {
	if f, ok := rawFloat(v); ok {
		return f
	}
	d, ok := toDecimal(v)
	if !ok {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// rawFloat returns float inputs unchanged so that no precision is lost by a
// round trip through decimal.
func rawFloat(v any) (float64, bool) {
	rv, ok := deref(v)
	if !ok {
		return 0, false
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, true
		}
		return f, true
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case *decimal.Decimal:
		if t == nil {
			return decimal.Zero, false
		}
		return *t, true
	case decimal.NullDecimal:
		return t.Decimal, t.Valid
	case json.Number:
		return parseDecimal(string(t))
	}

	rv, ok := deref(v)
	if !ok {
		return decimal.Zero, false
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return decimal.Zero, false
		}
		return decimal.NewFromInt(int64(u)), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(f), true
	case reflect.Bool:
		if rv.Bool() {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	case reflect.String:
		return parseDecimal(rv.String())
	}

	return decimal.Zero, false
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	prefix := leadingNumber.FindString(strings.TrimSpace(s))
	if prefix == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(prefix, "+"))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// snapshot copies the value behind a pointer so that later writes through the
// caller's pointer are not observed. A nil pointer snapshots to nil.
func snapshot(v any) any {
	if v == nil || reflect.TypeOf(v).Kind() != reflect.Ptr {
		return v
	}
	rv, ok := deref(v)
	if !ok {
		return nil
	}
	return rv.Interface()
}

func isString(v any) bool {
	rv, ok := deref(v)
	return ok && rv.Kind() == reflect.String
}

// deref follows pointers and reports false for nil or invalid values
func deref(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.IsValid()
}
