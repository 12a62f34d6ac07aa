package models

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestReport_Fields(t *testing.T) {
	typ := reflect.TypeOf(Report{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "IncidentID", "uniqueIndex")
	assertGormTag(t, typ, "AccidentDamage", "type:text")
	assertGormTag(t, typ, "Total", "decimal(20,4)")
	assertGormTag(t, typ, "Status", "default:pending")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "Parts", "constraint:OnDelete:CASCADE")

	assertFieldType(t, typ, "IncidentID", "*string")
	assertFieldType(t, typ, "Total", "decimal.Decimal")
	assertFieldType(t, typ, "Parts", "[]models.Part")
}

func TestPart_Fields(t *testing.T) {
	typ := reflect.TypeOf(Part{})

	assertGormTag(t, typ, "ReportID", "not null")
	assertGormTag(t, typ, "ReportID", "index")
	assertGormTag(t, typ, "Description", "column:part")
	assertGormTag(t, typ, "Likelihood", "default:Possible")
	assertGormTag(t, typ, "Qty", "default:1")
	assertGormTag(t, typ, "Price", "decimal(20,4)")

	assertFieldType(t, typ, "Qty", "int")
	assertFieldType(t, typ, "Price", "decimal.Decimal")
}

func TestValidStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"pending", true},
		{"active", true},
		{"reviewed", true},
		{"closed", false},
		{"", false},
		{"Pending", false},
	}
	for _, tt := range tests {
		if got := ValidStatus(tt.status); got != tt.want {
			t.Errorf("ValidStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestLineTotal(t *testing.T) {
	tests := []struct {
		price string
		qty   int
		want  string
	}{
		{"100", 2, "200"},
		{"50", 1, "50"},
		{"19.99", 3, "59.97"},
		{"0", 5, "0"},
	}
	for _, tt := range tests {
		got := LineTotal(decimal.RequireFromString(tt.price), tt.qty)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("LineTotal(%s, %d) = %s, want %s", tt.price, tt.qty, got, tt.want)
		}
	}
}
