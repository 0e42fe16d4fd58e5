package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnitID(t *testing.T) {
	variant, rowID, err := domain.ParseUnitID("vaccine:17")
	require.NoError(t, err)
	assert.Equal(t, domain.VariantVaccine, variant)
	assert.Equal(t, int64(17), rowID)

	for _, bad := range []string{"", "vaccine", "vaccine:", "vaccine:x", "vaccine:0", "blood:3"} {
		_, _, err := domain.ParseUnitID(bad)
		assert.True(t, errors.Is(err, domain.ErrInvalidUnitID), bad)
	}
}

func TestUnitID_RoundTripsEveryVariant(t *testing.T) {
	for _, v := range domain.Variants {
		id := domain.UnitID(v, 9)
		variant, rowID, err := domain.ParseUnitID(id)
		require.NoError(t, err)
		assert.Equal(t, v, variant)
		assert.Equal(t, int64(9), rowID)
	}
}

func TestVariantAdapters(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		item    domain.Item
		id      string
		unit    domain.Unit
		qty     int
		expires bool
	}{
		{"medicine boxes", domain.Medicine{ID: 1, Name: "Amoxicillin", Quantity: 3, Unit: domain.UnitBoxes, PiecesPerBox: 10, ExpiryDate: &expiry}, "medicine:1", domain.UnitBoxes, 3, true},
		{"first aid unknown unit", domain.FirstAidSupply{ID: 2, Name: "Gauze", Quantity: 40, Unit: "rolls"}, "first_aid:2", domain.UnitPieces, 40, false},
		{"commodity negative qty", domain.Commodity{ID: 3, Name: "Gloves", Quantity: -4, Unit: domain.UnitContainers}, "commodity:3", domain.UnitContainers, 0, false},
		{"vaccine", domain.Vaccine{ID: 4, Name: "BCG", Doses: 12, DoseML: 0.05, ExpiryDate: &expiry}, "vaccine:4", domain.UnitDosesWithVialCount, 12, true},
		{"immunization vials", domain.ImmunizationSupply{ID: 5, Name: "Diluent", Quantity: 6, Unit: domain.UnitVials}, "immunization_supply:5", domain.UnitVials, 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.item.StockUnit()
			assert.Equal(t, tt.id, u.ID)
			assert.Equal(t, tt.unit, u.Unit)
			assert.Equal(t, tt.qty, u.AvailableQuantity)
			assert.Equal(t, tt.expires, u.HasExpiry())
			assert.Equal(t, domain.VariantOf(tt.item), u.Variant)
		})
	}
}

func TestVariantAdapters_NormalizeUnitLabels(t *testing.T) {
	for _, label := range []domain.Unit{"Boxes", "box", "BOXES", " boxes "} {
		u := domain.Medicine{ID: 1, Name: "Paracetamol", Quantity: 5, Unit: label, PiecesPerBox: 10}.StockUnit()
		assert.Equal(t, domain.UnitBoxes, u.Unit, string(label))
		assert.Equal(t, "5 boxes (50 pcs)", u.DisplayQuantity(), string(label))
	}

	assert.Equal(t, domain.UnitBoxes, domain.FirstAidSupply{ID: 2, Unit: "Box"}.StockUnit().Unit)
	assert.Equal(t, domain.UnitContainers, domain.Commodity{ID: 3, Unit: "Container"}.StockUnit().Unit)
	assert.Equal(t, domain.UnitVials, domain.ImmunizationSupply{ID: 4, Unit: "VIAL"}.StockUnit().Unit)

	// a known label outside the variant's units still falls back
	assert.Equal(t, domain.UnitPieces, domain.Medicine{ID: 5, Unit: "vials"}.StockUnit().Unit)
}

func TestDisplayQuantity(t *testing.T) {
	assert.Equal(t, "3 boxes (30 pcs)", domain.StockUnit{AvailableQuantity: 3, Unit: domain.UnitBoxes, PiecesPerBox: 10}.DisplayQuantity())
	assert.Equal(t, "1 box", domain.StockUnit{AvailableQuantity: 1, Unit: domain.UnitBoxes}.DisplayQuantity())
	assert.Equal(t, "40 doses (20 ml)", domain.StockUnit{AvailableQuantity: 40, Unit: domain.UnitDosesWithVialCount, DoseML: 0.5}.DisplayQuantity())
	assert.Equal(t, "15 pcs", domain.StockUnit{AvailableQuantity: 15, Unit: domain.UnitPieces}.DisplayQuantity())
	assert.Equal(t, "2 vials", domain.StockUnit{AvailableQuantity: 2, Unit: domain.UnitVials}.DisplayQuantity())
}

func TestDaysBetween(t *testing.T) {
	today := time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 15, domain.DaysBetween(today, time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, domain.DaysBetween(today, time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, domain.DaysBetween(today, today))
}

func TestClassification_AlertKinds(t *testing.T) {
	c := domain.Classification{Expiry: domain.ExpiryExpired, Stock: domain.StockOutOfStock}
	assert.Equal(t, []domain.AlertKind{domain.AlertExpired, domain.AlertOutOfStock}, c.AlertKinds())

	c = domain.Classification{Expiry: domain.ExpiryNone, Stock: domain.StockNormal}
	assert.Empty(t, c.AlertKinds())
}

func TestParseUnit(t *testing.T) {
	u, ok := domain.ParseUnit(" Boxes ")
	assert.True(t, ok)
	assert.Equal(t, domain.UnitBoxes, u)

	_, ok = domain.ParseUnit("crates")
	assert.False(t, ok)
}
