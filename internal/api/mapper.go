package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zulandar/crashcalc/internal/models"
	"github.com/zulandar/crashcalc/internal/report"
)

// ReportView is the wire shape of a report.
type ReportView struct {
	ID             uint       `json:"id"`
	IncidentID     *string    `json:"incident_id"`
	Driver         string     `json:"driver"`
	Date           string     `json:"date"`
	Chassis        string     `json:"chassis"`
	Event          string     `json:"event"`
	AccidentDamage string     `json:"accident_damage"`
	Total          float64    `json:"total"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Parts          []PartView `json:"parts"`
}

// PartView is the wire shape of a part.
type PartView struct {
	ID         uint    `json:"id"`
	ReportID   uint    `json:"report_id"`
	PartNumber string  `json:"part_number"`
	Part       string  `json:"part"`
	Likelihood string  `json:"likelihood"`
	Price      float64 `json:"price"`
	Qty        int     `json:"qty"`
	Total      float64 `json:"total"`
}

func newReportView(r *models.Report) ReportView {
	status := r.Status
	if status == "" {
		status = models.StatusPending
	}
	v := ReportView{
		ID:             r.ID,
		IncidentID:     r.IncidentID,
		Driver:         r.Driver,
		Date:           r.Date,
		Chassis:        r.Chassis,
		Event:          r.Event,
		AccidentDamage: r.AccidentDamage,
		Total:          r.Total.InexactFloat64(),
		Status:         status,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Parts:          make([]PartView, 0, len(r.Parts)),
	}
	for i := range r.Parts {
		v.Parts = append(v.Parts, newPartView(&r.Parts[i]))
	}
	return v
}

func newReportViews(reports []models.Report) []ReportView {
	views := make([]ReportView, 0, len(reports))
	for i := range reports {
		views = append(views, newReportView(&reports[i]))
	}
	return views
}

func newPartView(p *models.Part) PartView {
	likelihood := p.Likelihood
	if likelihood == "" {
		likelihood = models.DefaultLikelihood
	}
	qty := p.Qty
	if qty == 0 {
		qty = 1
	}
	return PartView{
		ID:         p.ID,
		ReportID:   p.ReportID,
		PartNumber: p.PartNumber,
		Part:       p.Description,
		Likelihood: likelihood,
		Price:      p.Price.InexactFloat64(),
		Qty:        qty,
		Total:      p.Total.InexactFloat64(),
	}
}

// normalizeBody unwraps a body that arrived as a JSON string holding the
// real document.
func normalizeBody(body []byte) ([]byte, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '"' {
		return body, nil
	}
	var inner string
	if err := json.Unmarshal(body, &inner); err != nil {
		return nil, invalid("malformed JSON body: %v", err)
	}
	return bytes.TrimSpace([]byte(inner)), nil
}

var (
	maxQty = decimal.NewFromInt(math.MaxInt32)
	minQty = decimal.NewFromInt(math.MinInt32)
)

// object is a decoded JSON object whose values are parsed on demand.
type object map[string]json.RawMessage

func decodeObject(body []byte) (object, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, invalid("request body must be a JSON object")
	}
	var o object
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, invalid("malformed JSON body: %v", err)
	}
	return o, nil
}

// text returns the string value of key. Null is "", and numbers and booleans
// keep their literal form.
func (o object) text(key string) (string, bool, error) {
	raw, ok := o[key]
	if !ok {
		return "", false, nil
	}
	switch kind(raw) {
	case 'n':
		return "", true, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", true, invalid("%s: %v", key, err)
		}
		return s, true, nil
	case '{', '[':
		return "", true, invalid("%s must be text", key)
	default:
		return string(bytes.TrimSpace(raw)), true, nil
	}
}

func (o object) textPtr(key string) (*string, error) {
	s, ok, err := o.text(key)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// price returns the decimal value of key. Null and empty strings are zero.
func (o object) price(key string) (decimal.Decimal, bool, error) {
	raw, ok := o[key]
	if !ok {
		return decimal.Zero, false, nil
	}
	s, err := numericLiteral(key, raw)
	if err != nil || s == "" {
		return decimal.Zero, true, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, true, invalid("%s must be a number", key)
	}
	return d, true, nil
}

// qty returns the integer value of key. Null and empty strings are zero,
// which the store turns into 1. Fractional JSON numbers are truncated and
// values outside the int32 range are rejected.
func (o object) qty(key string) (int, bool, error) {
	raw, ok := o[key]
	if !ok {
		return 0, false, nil
	}
	s, err := numericLiteral(key, raw)
	if err != nil || s == "" {
		return 0, true, err
	}
	var d decimal.Decimal
	if kind(raw) == '"' {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, true, invalid("%s must be an integer", key)
		}
		d = decimal.NewFromInt(n)
	} else if d, err = decimal.NewFromString(s); err != nil {
		return 0, true, invalid("%s must be a number", key)
	}
	d = d.Truncate(0)
	if d.GreaterThan(maxQty) || d.LessThan(minQty) {
		return 0, true, invalid("%s %s out of range", key, d.String())
	}
	return int(d.IntPart()), true, nil
}

// parts returns the parts list under key. With allowString, the list may
// itself arrive as a JSON-encoded string.
func (o object) parts(key string, allowString bool) ([]report.PartInput, bool, error) {
	raw, ok := o[key]
	if !ok {
		return nil, false, nil
	}
	if allowString && kind(raw) == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, true, invalid("%s: %v", key, err)
		}
		raw = json.RawMessage(strings.TrimSpace(inner))
	}
	switch kind(raw) {
	case 'n':
		return nil, true, nil
	case '[':
	default:
		return nil, true, invalid("%s must be a list", key)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, true, invalid("%s: %v", key, err)
	}
	inputs := make([]report.PartInput, 0, len(items))
	for i, item := range items {
		po, err := decodeObject(item)
		if err != nil {
			return nil, true, invalid("%s[%d] must be an object", key, i)
		}
		in, err := po.partInput()
		if err != nil {
			return nil, true, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, true, nil
}

func (o object) partInput() (report.PartInput, error) {
	var in report.PartInput
	var err error
	if in.PartNumber, _, err = o.text("part_number"); err != nil {
		return in, err
	}
	if in.Description, _, err = o.text("part"); err != nil {
		return in, err
	}
	if in.Likelihood, _, err = o.text("likelihood"); err != nil {
		return in, err
	}
	if in.Price, _, err = o.price("price"); err != nil {
		return in, err
	}
	if in.Qty, _, err = o.qty("qty"); err != nil {
		return in, err
	}
	return in, nil
}

func (o object) partChanges() (report.PartChanges, error) {
	var ch report.PartChanges
	var err error
	if ch.PartNumber, err = o.textPtr("part_number"); err != nil {
		return ch, err
	}
	if ch.Description, err = o.textPtr("part"); err != nil {
		return ch, err
	}
	if ch.Likelihood, err = o.textPtr("likelihood"); err != nil {
		return ch, err
	}
	price, ok, err := o.price("price")
	if err != nil {
		return ch, err
	}
	if ok {
		ch.Price = &price
	}
	qty, ok, err := o.qty("qty")
	if err != nil {
		return ch, err
	}
	if ok {
		ch.Qty = &qty
	}
	return ch, nil
}

func (o object) createOpts(source report.Source) (report.CreateOpts, error) {
	opts := report.CreateOpts{Source: source}
	fields := []struct {
		key string
		dst *string
	}{
		{"driver", &opts.Driver},
		{"date", &opts.Date},
		{"chassis", &opts.Chassis},
		{"event", &opts.Event},
		{"accident_damage", &opts.AccidentDamage},
	}
	for _, f := range fields {
		s, _, err := o.text(f.key)
		if err != nil {
			return opts, err
		}
		*f.dst = s
	}
	parts, _, err := o.parts("parts", false)
	if err != nil {
		return opts, err
	}
	opts.Parts = parts
	return opts, nil
}

func (o object) changes(partsAsString bool) (report.Changes, error) {
	var ch report.Changes
	fields := []struct {
		key string
		dst **string
	}{
		{"driver", &ch.Driver},
		{"date", &ch.Date},
		{"chassis", &ch.Chassis},
		{"event", &ch.Event},
		{"accident_damage", &ch.AccidentDamage},
	}
	for _, f := range fields {
		p, err := o.textPtr(f.key)
		if err != nil {
			return ch, err
		}
		*f.dst = p
	}
	parts, ok, err := o.parts("parts", partsAsString)
	if err != nil {
		return ch, err
	}
	ch.Parts = parts
	ch.ReplaceParts = ok
	return ch, nil
}

// numericLiteral returns the trimmed literal for a number or numeric string.
// Null yields "".
func numericLiteral(key string, raw json.RawMessage) (string, error) {
	switch kind(raw) {
	case 'n':
		return "", nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", invalid("%s: %v", key, err)
		}
		return strings.TrimSpace(s), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(bytes.TrimSpace(raw)), nil
	default:
		return "", invalid("%s must be a number", key)
	}
}

// kind returns the first significant byte of raw: 'n' for null, '"', '{',
// '[' or the first byte of a number or boolean.
func kind(raw json.RawMessage) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, report.ErrValidation)...)
}
