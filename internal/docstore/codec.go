package docstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is fixed width so stored timestamps order lexically the same
// way they order in time. All stored times are UTC.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		// Hand-written documents may carry plain RFC 3339.
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

// EncodeValue converts a field value to its stored JSON form: times become
// TimeLayout strings, decimals become strings, nil pointers become null.
func EncodeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int, int32, int64, float64, json.Number:
		return x, nil
	case []string:
		return x, nil
	case time.Time:
		return FormatTime(x), nil
	case decimal.Decimal:
		return x.String(), nil
	case *string:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case *int:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return FormatTime(*x), nil
	case *decimal.Decimal:
		if x == nil {
			return nil, nil
		}
		return x.String(), nil
	}
	return nil, fmt.Errorf("unsupported field type %T", v)
}

// EncodeFields encodes every value of f; see EncodeValue.
func EncodeFields(f Fields) (map[string]any, error) {
	out := make(map[string]any, len(f))
	for k, v := range f {
		if !ValidField(k) {
			return nil, fmt.Errorf("invalid field name %q", k)
		}
		ev, err := EncodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = ev
	}
	return out, nil
}

// --- Typed accessors. Missing or mistyped fields read as zero values. ---

func (d Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

func (d Document) OptString(field string) *string {
	s, ok := d.Fields[field].(string)
	if !ok {
		return nil
	}
	return &s
}

func (d Document) Bool(field string) bool {
	switch x := d.Fields[field].(type) {
	case bool:
		return x
	case json.Number:
		return x.String() == "1"
	}
	return false
}

func (d Document) Int(field string) int {
	n, _ := d.optInt(field)
	return n
}

func (d Document) OptInt(field string) *int {
	n, ok := d.optInt(field)
	if !ok {
		return nil
	}
	return &n
}

func (d Document) optInt(field string) (int, bool) {
	switch x := d.Fields[field].(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case json.Number:
		n, err := strconv.ParseInt(x.String(), 10, 64)
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(n), true
	case *int:
		if x == nil {
			return 0, false
		}
		return *x, true
	}
	return 0, false
}

func (d Document) Time(field string) time.Time {
	t := d.OptTime(field)
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (d Document) OptTime(field string) *time.Time {
	switch x := d.Fields[field].(type) {
	case string:
		t, err := ParseTime(x)
		if err != nil {
			return nil
		}
		return &t
	case time.Time:
		t := x.UTC()
		return &t
	case *time.Time:
		return x
	}
	return nil
}

func (d Document) Decimal(field string) decimal.Decimal {
	v := d.OptDecimal(field)
	if v == nil {
		return decimal.Zero
	}
	return *v
}

func (d Document) OptDecimal(field string) *decimal.Decimal {
	var (
		v   decimal.Decimal
		err error
	)
	switch x := d.Fields[field].(type) {
	case string:
		v, err = decimal.NewFromString(x)
	case json.Number:
		v, err = decimal.NewFromString(x.String())
	case float64:
		v = decimal.NewFromFloat(x)
	case int:
		v = decimal.NewFromInt(int64(x))
	case decimal.Decimal:
		v = x
	case *decimal.Decimal:
		return x
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &v
}

func (d Document) Strings(field string) []string {
	switch x := d.Fields[field].(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, v := range x {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
