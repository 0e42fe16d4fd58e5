// internal/domain/models.go
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StaffID identifies a notification recipient in the staff directory
type StaffID string

// StockUnit is one inventory row normalized across all inventory variants
type StockUnit struct {
	ID                string     `json:"id"`
	Variant           Variant    `json:"variant"`
	DisplayName       string     `json:"display_name"`
	AvailableQuantity int        `json:"available_quantity"`
	Unit              Unit       `json:"unit"`
	PiecesPerBox      int        `json:"pieces_per_box,omitempty"`
	DoseML            float64    `json:"dose_ml,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Archived          bool       `json:"archived"`
}

// HasExpiry reports whether the unit carries an expiry date.
func (u StockUnit) HasExpiry() bool {
	return u.ExpiryDate != nil && !u.ExpiryDate.IsZero()
}

// RowID returns the variant-local row id encoded in the unit id.
func (u StockUnit) RowID() (int64, error) {
	_, rowID, err := ParseUnitID(u.ID)
	return rowID, err
}

// StockChange describes a quantity mutation reported by the inventory write path
type StockChange struct {
	UnitID           string `json:"unit_id"`
	PreviousQuantity int    `json:"previous_quantity"`
	NewQuantity      int    `json:"new_quantity"`
	Created          bool   `json:"created"`
	Deleted          bool   `json:"deleted"`
}

// QuantityChanged reports whether the change can affect the unit's classification.
func (c StockChange) QuantityChanged() bool {
	return c.Created || c.Deleted || c.PreviousQuantity != c.NewQuantity
}

// UnitID builds the namespaced id of a row, e.g. "medicine:42".
func UnitID(variant Variant, rowID int64) string {
	return string(variant) + ":" + strconv.FormatInt(rowID, 10)
}

// ParseUnitID splits a namespaced unit id into its variant and row id.
func ParseUnitID(id string) (Variant, int64, error) {
	prefix, raw, ok := strings.Cut(id, ":")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidUnitID, id)
	}

	variant, ok := ParseVariant(prefix)
	if !ok {
		return "", 0, fmt.Errorf("%w: unknown variant %q", ErrInvalidUnitID, prefix)
	}

	rowID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || rowID <= 0 {
		return "", 0, fmt.Errorf("%w: bad row id in %q", ErrInvalidUnitID, id)
	}

	return variant, rowID, nil
}

// DateOf truncates t to midnight UTC of its calendar day in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from `from` to `to`.
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}
