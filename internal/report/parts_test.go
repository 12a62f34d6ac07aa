package report

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zulandar/crashcalc/internal/models"
)

func TestAddPart_AdjustsTotal(t *testing.T) {
	db := openTestDB(t)
	r := createOperatorReport(t, db, PartInput{Price: dec("10"), Qty: 3})

	p, err := AddPart(db, r.ID, PartInput{PartNumber: "SP-1", Price: dec("20"), Qty: 1})
	if err != nil {
		t.Fatalf("AddPart: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected part ID to be set")
	}
	if p.ReportID != r.ID {
		t.Errorf("ReportID = %d, want %d", p.ReportID, r.ID)
	}
	wantTotal(t, p.Total, "20")

	got, _ := Get(db, r.ID)
	wantTotal(t, got.Total, "50")

	if err := DeletePart(db, p.ID); err != nil {
		t.Fatalf("DeletePart: %v", err)
	}
	got, _ = Get(db, r.ID)
	wantTotal(t, got.Total, "30")
	if len(got.Parts) != 1 {
		t.Errorf("Parts = %d, want 1", len(got.Parts))
	}
}

func TestAddPart_MissingReport(t *testing.T) {
	db := openTestDB(t)
	_, err := AddPart(db, 42, PartInput{Price: dec("1")})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	var count int64
	db.Model(&models.Part{}).Count(&count)
	if count != 0 {
		t.Errorf("parts stored = %d, want 0", count)
	}
}

func TestUpdatePart_RecomputesTotals(t *testing.T) {
	db := openTestDB(t)
	r := createOperatorReport(t, db,
		PartInput{Price: dec("10"), Qty: 3},
		PartInput{Price: dec("5"), Qty: 2},
	)
	partID := r.Parts[0].ID

	qty := 5
	got, err := UpdatePart(db, partID, PartChanges{Qty: &qty})
	if err != nil {
		t.Fatalf("UpdatePart qty: %v", err)
	}
	wantTotal(t, got.Total, "50")
	rep, _ := Get(db, r.ID)
	wantTotal(t, rep.Total, "60")

	price := decimal.RequireFromString("2.5")
	desc := "Bargeboard"
	got, err = UpdatePart(db, partID, PartChanges{Price: &price, Description: &desc})
	if err != nil {
		t.Fatalf("UpdatePart price: %v", err)
	}
	wantTotal(t, got.Total, "12.5")
	if got.Qty != 5 {
		t.Errorf("Qty = %d, want merged 5", got.Qty)
	}
	if got.Description != desc {
		t.Errorf("Description = %q, want %q", got.Description, desc)
	}
	rep, _ = Get(db, r.ID)
	wantTotal(t, rep.Total, "22.5")
}

func TestUpdatePart_ZeroQtyMeansOne(t *testing.T) {
	db := openTestDB(t)
	r := createOperatorReport(t, db, PartInput{Price: dec("8"), Qty: 4})

	zero := 0
	got, err := UpdatePart(db, r.Parts[0].ID, PartChanges{Qty: &zero})
	if err != nil {
		t.Fatalf("UpdatePart: %v", err)
	}
	if got.Qty != 1 {
		t.Errorf("Qty = %d, want 1", got.Qty)
	}
	rep, _ := Get(db, r.ID)
	wantTotal(t, rep.Total, "8")
}

func TestUpdatePart_Errors(t *testing.T) {
	db := openTestDB(t)
	r := createOperatorReport(t, db, PartInput{Price: dec("8"), Qty: 1})

	neg := decimal.RequireFromString("-3")
	if _, err := UpdatePart(db, r.Parts[0].ID, PartChanges{Price: &neg}); !errors.Is(err, ErrValidation) {
		t.Errorf("negative price error = %v, want ErrValidation", err)
	}
	if _, err := UpdatePart(db, 999, PartChanges{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing part error = %v, want ErrNotFound", err)
	}
}

func TestDeletePart_NotFound(t *testing.T) {
	db := openTestDB(t)
	if err := DeletePart(db, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if _, err := GetPart(db, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPart error = %v, want ErrNotFound", err)
	}
}

func TestNewPart_RoundsPrice(t *testing.T) {
	p, err := newPart(1, PartInput{Price: dec("1.23456"), Qty: 2})
	if err != nil {
		t.Fatalf("newPart: %v", err)
	}
	wantTotal(t, p.Price, "1.2346")
	wantTotal(t, p.Total, "2.4692")
}

func TestBuildParts_IndexInError(t *testing.T) {
	_, err := buildParts(0, []PartInput{{Qty: 1}, {Qty: -1}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if got := err.Error(); got[:8] != "parts[1]" {
		t.Errorf("error = %q, want parts[1] prefix", got)
	}
}
