package domain

import "time"

// Item is one concrete inventory row. The set of implementations is closed:
// only the variant types in this package satisfy it.
type Item interface {
	StockUnit() StockUnit
	variant() Variant
}

// Medicine is a medicine batch counted in pieces or boxes
type Medicine struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Quantity     int        `json:"quantity" db:"quantity"`
	Unit         Unit       `json:"unit" db:"unit"`
	PiecesPerBox int        `json:"pieces_per_box" db:"pieces_per_box"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	Archived     bool       `json:"archived" db:"archived"`
}

// FirstAidSupply is a first-aid item batch
type FirstAidSupply struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Quantity     int        `json:"quantity" db:"quantity"`
	Unit         Unit       `json:"unit" db:"unit"`
	PiecesPerBox int        `json:"pieces_per_box" db:"pieces_per_box"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	Archived     bool       `json:"archived" db:"archived"`
}

// Commodity is a general supply, usually without expiry
type Commodity struct {
	ID         int64      `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Quantity   int        `json:"quantity" db:"quantity"`
	Unit       Unit       `json:"unit" db:"unit"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	Archived   bool       `json:"archived" db:"archived"`
}

// Vaccine is a vaccine lot; Doses is the available quantity
type Vaccine struct {
	ID         int64      `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Doses      int        `json:"doses" db:"doses"`
	DoseML     float64    `json:"dose_ml" db:"dose_ml"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	Archived   bool       `json:"archived" db:"archived"`
}

// ImmunizationSupply is a syringe / diluent / cold-chain supply batch
type ImmunizationSupply struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Quantity     int        `json:"quantity" db:"quantity"`
	Unit         Unit       `json:"unit" db:"unit"`
	PiecesPerBox int        `json:"pieces_per_box" db:"pieces_per_box"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	Archived     bool       `json:"archived" db:"archived"`
}

func (m Medicine) variant() Variant { return VariantMedicine }

func (m Medicine) StockUnit() StockUnit {
	return StockUnit{
		ID:                UnitID(VariantMedicine, m.ID),
		Variant:           VariantMedicine,
		DisplayName:       m.Name,
		AvailableQuantity: nonNegative(m.Quantity),
		Unit:              unitOr(m.Unit, UnitPieces, UnitPieces, UnitBoxes),
		PiecesPerBox:      m.PiecesPerBox,
		ExpiryDate:        m.ExpiryDate,
		Archived:          m.Archived,
	}
}

func (f FirstAidSupply) variant() Variant { return VariantFirstAid }

func (f FirstAidSupply) StockUnit() StockUnit {
	return StockUnit{
		ID:                UnitID(VariantFirstAid, f.ID),
		Variant:           VariantFirstAid,
		DisplayName:       f.Name,
		AvailableQuantity: nonNegative(f.Quantity),
		Unit:              unitOr(f.Unit, UnitPieces, UnitPieces, UnitBoxes),
		PiecesPerBox:      f.PiecesPerBox,
		ExpiryDate:        f.ExpiryDate,
		Archived:          f.Archived,
	}
}

func (c Commodity) variant() Variant { return VariantCommodity }

func (c Commodity) StockUnit() StockUnit {
	return StockUnit{
		ID:                UnitID(VariantCommodity, c.ID),
		Variant:           VariantCommodity,
		DisplayName:       c.Name,
		AvailableQuantity: nonNegative(c.Quantity),
		Unit:              unitOr(c.Unit, UnitPieces, UnitPieces, UnitContainers),
		ExpiryDate:        c.ExpiryDate,
		Archived:          c.Archived,
	}
}

func (v Vaccine) variant() Variant { return VariantVaccine }

func (v Vaccine) StockUnit() StockUnit {
	return StockUnit{
		ID:                UnitID(VariantVaccine, v.ID),
		Variant:           VariantVaccine,
		DisplayName:       v.Name,
		AvailableQuantity: nonNegative(v.Doses),
		Unit:              UnitDosesWithVialCount,
		DoseML:            v.DoseML,
		ExpiryDate:        v.ExpiryDate,
		Archived:          v.Archived,
	}
}

func (s ImmunizationSupply) variant() Variant { return VariantImmunizationSupply }

func (s ImmunizationSupply) StockUnit() StockUnit {
	return StockUnit{
		ID:                UnitID(VariantImmunizationSupply, s.ID),
		Variant:           VariantImmunizationSupply,
		DisplayName:       s.Name,
		AvailableQuantity: nonNegative(s.Quantity),
		Unit:              unitOr(s.Unit, UnitPieces, UnitPieces, UnitBoxes, UnitVials, UnitContainers),
		PiecesPerBox:      s.PiecesPerBox,
		ExpiryDate:        s.ExpiryDate,
		Archived:          s.Archived,
	}
}

// VariantOf returns the variant of an item.
func VariantOf(item Item) Variant {
	return item.variant()
}

func nonNegative(q int) int {
	if q < 0 {
		return 0
	}
	return q
}

// unitOr normalizes a stored label ("Boxes", "box") and returns it when it
// is one of allowed, fallback otherwise.
func unitOr(u, fallback Unit, allowed ...Unit) Unit {
	parsed, ok := ParseUnit(string(u))
	if !ok {
		return fallback
	}
	for _, a := range allowed {
		if parsed == a {
			return parsed
		}
	}
	return fallback
}
