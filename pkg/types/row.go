package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row is one server record: a mapping from column key to value. Every row
// the server returns carries an integer id.
type Row map[string]any

// ID returns the row's server-assigned id.
func (r Row) ID() (int64, bool) {
	return ToInt64(r[ColumnID])
}

// String returns the string form of a column value ("" for missing or null).
func (r Row) String(key string) string {
	return Stringify(r[key])
}

// Has reports whether the column is present and non-null.
func (r Row) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Stringify renders a decoded JSON value the way it is compared and searched:
// integral numbers without a fraction, booleans as true/false, null as "".
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e18 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return Stringify(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// ToInt64 converts a decoded id-like value to int64.
func ToInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// FormatID renders an id as an option value.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
