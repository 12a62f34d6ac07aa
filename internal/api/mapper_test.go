package api

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/crashcalc/internal/models"
	"github.com/zulandar/crashcalc/internal/report"
)

func TestNormalizeBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"object untouched", `{"a":1}`, `{"a":1}`},
		{"trims", "  {\"a\":1}\n", `{"a":1}`},
		{"unwraps string", `"{\"a\":1}"`, `{"a":1}`},
		{"empty", ``, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeBody([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err := normalizeBody([]byte(`"unterminated`))
	assert.True(t, errors.Is(err, report.ErrValidation))
}

func TestObjectText(t *testing.T) {
	o, err := decodeObject([]byte(`{"s": "x", "n": null, "num": 12.50, "b": true, "arr": [1]}`))
	require.NoError(t, err)

	s, ok, err := o.text("s")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	s, ok, _ = o.text("n")
	assert.True(t, ok)
	assert.Equal(t, "", s)

	s, _, _ = o.text("num")
	assert.Equal(t, "12.50", s)

	s, _, _ = o.text("b")
	assert.Equal(t, "true", s)

	_, ok, _ = o.text("missing")
	assert.False(t, ok)

	_, _, err = o.text("arr")
	assert.True(t, errors.Is(err, report.ErrValidation))
}

func TestObjectPriceAndQty(t *testing.T) {
	o, err := decodeObject([]byte(`{
		"p1": 19.99, "p2": " 7.5 ", "p3": null, "p4": "", "p5": "abc", "p6": true,
		"q1": 3, "q2": "4", "q3": 2.9, "q4": null, "q5": "2.5"
	}`))
	require.NoError(t, err)

	price := func(key string) decimal.Decimal {
		d, _, err := o.price(key)
		require.NoError(t, err, key)
		return d
	}
	assert.True(t, price("p1").Equal(decimal.RequireFromString("19.99")))
	assert.True(t, price("p2").Equal(decimal.RequireFromString("7.5")))
	assert.True(t, price("p3").IsZero())
	assert.True(t, price("p4").IsZero())
	_, _, err = o.price("p5")
	assert.True(t, errors.Is(err, report.ErrValidation))
	_, _, err = o.price("p6")
	assert.True(t, errors.Is(err, report.ErrValidation))

	qty := func(key string) int {
		n, _, err := o.qty(key)
		require.NoError(t, err, key)
		return n
	}
	assert.Equal(t, 3, qty("q1"))
	assert.Equal(t, 4, qty("q2"))
	assert.Equal(t, 2, qty("q3"))
	assert.Equal(t, 0, qty("q4"))
	_, _, err = o.qty("q5")
	assert.True(t, errors.Is(err, report.ErrValidation))
}

func TestObjectQty_OutOfRange(t *testing.T) {
	o, err := decodeObject([]byte(`{
		"huge": 1e30, "tiny": -1e30, "big_string": "99999999999",
		"overflow_string": "99999999999999999999", "max": 2147483647
	}`))
	require.NoError(t, err)

	for _, key := range []string{"huge", "tiny", "big_string", "overflow_string"} {
		_, _, err := o.qty(key)
		assert.True(t, errors.Is(err, report.ErrValidation), "%s: err = %v", key, err)
	}

	n, _, err := o.qty("max")
	require.NoError(t, err)
	assert.Equal(t, 2147483647, n)
}

func TestObjectParts(t *testing.T) {
	o, err := decodeObject([]byte(`{
		"list": [{"part_number": "A", "part": "Wing", "price": 1, "qty": 2, "extra": 1}],
		"encoded": "[{\"part_number\": \"B\"}]",
		"none": null,
		"bad": [1]
	}`))
	require.NoError(t, err)

	parts, ok, err := o.parts("list", false)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, parts, 1)
	assert.Equal(t, "Wing", parts[0].Description)
	assert.Equal(t, 2, parts[0].Qty)

	_, _, err = o.parts("encoded", false)
	assert.True(t, errors.Is(err, report.ErrValidation))

	parts, _, err = o.parts("encoded", true)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "B", parts[0].PartNumber)

	parts, ok, err = o.parts("none", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, parts)

	_, _, err = o.parts("bad", false)
	assert.True(t, errors.Is(err, report.ErrValidation))
}

func TestObjectChanges(t *testing.T) {
	o, err := decodeObject([]byte(`{"driver": "D", "event": null}`))
	require.NoError(t, err)

	ch, err := o.changes(false)
	require.NoError(t, err)
	require.NotNil(t, ch.Driver)
	assert.Equal(t, "D", *ch.Driver)
	require.NotNil(t, ch.Event)
	assert.Equal(t, "", *ch.Event)
	assert.Nil(t, ch.Chassis)
	assert.False(t, ch.ReplaceParts)
}

func TestNewReportView_Defaults(t *testing.T) {
	r := &models.Report{ID: 3, Parts: []models.Part{{ID: 9, ReportID: 3}}}
	v := newReportView(r)

	assert.Equal(t, models.StatusPending, v.Status)
	assert.Nil(t, v.IncidentID)
	assert.Equal(t, 0.0, v.Total)
	require.Len(t, v.Parts, 1)
	assert.Equal(t, models.DefaultLikelihood, v.Parts[0].Likelihood)
	assert.Equal(t, 1, v.Parts[0].Qty)

	empty := newReportView(&models.Report{})
	assert.NotNil(t, empty.Parts)
}
