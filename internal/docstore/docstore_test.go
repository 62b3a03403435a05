package docstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPathRoundTrip(t *testing.T) {
	p := Path("g1", KindTransactions)
	if p != "groups/g1/transactions" {
		t.Fatalf("Path = %q", p)
	}
	g, k, ok := SplitPath(p)
	if !ok || g != "g1" || k != KindTransactions {
		t.Errorf("SplitPath = (%q, %q, %v)", g, k, ok)
	}

	for _, bad := range []string{"system/backups", "groups//x", "groups/g1", ""} {
		if _, _, ok := SplitPath(bad); ok {
			t.Errorf("SplitPath(%q) should not be ok", bad)
		}
	}
}

func TestBatchStagingOrder(t *testing.T) {
	b := NewBatch().
		Update("c", "1", Fields{"a": 1}).
		Create("c", "2", Fields{"b": 2}).
		Delete("c", "3")

	ops := b.Ops()
	if len(ops) != 3 || b.Len() != 3 {
		t.Fatalf("expected 3 ops, got %d", len(ops))
	}
	want := []OpKind{OpUpdate, OpCreate, OpDelete}
	for i, op := range ops {
		if op.Kind != want[i] {
			t.Errorf("ops[%d].Kind = %v, want %v", i, op.Kind, want[i])
		}
	}

	// Ops returns a copy.
	ops[0].ID = "changed"
	if b.Ops()[0].ID != "1" {
		t.Error("Ops should not expose internal storage")
	}
}

func TestQueryValidate(t *testing.T) {
	good := Query{
		Collection: "groups/g/transactions",
		Filters:    []Filter{Where("type", Eq, "expense"), Where("date", Gte, time.Now())},
		OrderBy:    "date",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bad := []Query{
		{},
		{Collection: "c", Filters: []Filter{Where("a'); DROP", Eq, 1)}},
		{Collection: "c", Filters: []Filter{Where("a", "!=", 1)}},
		{Collection: "c", OrderBy: "$.x"},
	}
	for i, q := range bad {
		if err := q.Validate(); err == nil {
			t.Errorf("bad[%d] should fail validation", i)
		}
	}
}

func TestTimeLayoutOrdersLexically(t *testing.T) {
	a := time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC)
	b := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	c := time.Date(2024, 2, 1, 0, 0, 0, 5, time.UTC)

	if !(FormatTime(a) < FormatTime(b) && FormatTime(b) < FormatTime(c)) {
		t.Errorf("formatted times not ordered: %s %s %s", FormatTime(a), FormatTime(b), FormatTime(c))
	}

	got, err := ParseTime(FormatTime(c))
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if !got.Equal(c) {
		t.Errorf("round trip = %v, want %v", got, c)
	}
}

func TestFormatTimeConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	local := time.Date(2024, 1, 15, 22, 0, 0, 0, loc)
	if got := FormatTime(local); got != "2024-01-16T01:00:00.000000000Z" {
		t.Errorf("FormatTime = %q", got)
	}
}

func TestEncodeValue(t *testing.T) {
	ts := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	v := decimal.RequireFromString("12.50")
	var nilStr *string
	var nilDec *decimal.Decimal

	tests := []struct {
		in   any
		want any
	}{
		{"x", "x"},
		{true, true},
		{3, 3},
		{ts, "2024-01-05T00:00:00.000000000Z"},
		{&ts, "2024-01-05T00:00:00.000000000Z"},
		{v, "12.5"},
		{&v, "12.5"},
		{nilStr, nil},
		{nilDec, nil},
		{nil, nil},
	}
	for _, tt := range tests {
		got, err := EncodeValue(tt.in)
		if err != nil {
			t.Errorf("EncodeValue(%v): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("EncodeValue(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := EncodeValue(struct{}{}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestEncodeFieldsRejectsBadNames(t *testing.T) {
	if _, err := EncodeFields(Fields{"ok": 1, "not ok": 2}); err == nil {
		t.Error("expected error for invalid field name")
	}
}

func TestDocumentAccessors(t *testing.T) {
	d := Document{Fields: Fields{
		"name":       "Milk",
		"quantity":   json.Number("3"),
		"isBought":   true,
		"value":      "12.5",
		"date":       "2024-01-05T00:00:00.000000000Z",
		"categories": []any{"Food", "Home"},
		"nothing":    nil,
	}}

	if d.String("name") != "Milk" {
		t.Errorf("String = %q", d.String("name"))
	}
	if d.Int("quantity") != 3 {
		t.Errorf("Int = %d", d.Int("quantity"))
	}
	if !d.Bool("isBought") {
		t.Error("Bool = false")
	}
	if !d.Decimal("value").Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Decimal = %s", d.Decimal("value"))
	}
	if got := d.Time("date"); !got.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Time = %v", got)
	}
	if got := d.Strings("categories"); len(got) != 2 || got[1] != "Home" {
		t.Errorf("Strings = %v", got)
	}
	if d.OptString("nothing") != nil || d.OptDecimal("nothing") != nil || d.OptTime("nothing") != nil || d.OptInt("nothing") != nil {
		t.Error("null fields should read as nil")
	}
	if d.OptString("missing") != nil {
		t.Error("missing field should read as nil")
	}
}
