package domain

import "strings"

// Variant names one of the inventory tables a stock unit comes from
type Variant string

const (
	VariantMedicine           Variant = "medicine"
	VariantFirstAid           Variant = "first_aid"
	VariantCommodity          Variant = "commodity"
	VariantVaccine            Variant = "vaccine"
	VariantImmunizationSupply Variant = "immunization_supply"
)

// Variants lists every inventory variant in sweep order.
var Variants = []Variant{
	VariantMedicine,
	VariantFirstAid,
	VariantCommodity,
	VariantVaccine,
	VariantImmunizationSupply,
}

// Unit is the counting unit of a stock unit's available quantity
type Unit string

const (
	UnitPieces             Unit = "pieces"
	UnitBoxes              Unit = "boxes"
	UnitVials              Unit = "vials"
	UnitDosesWithVialCount Unit = "doses_with_vial_count"
	UnitContainers         Unit = "containers"
)

var unitCodes = map[string]Unit{
	"pieces":                UnitPieces,
	"piece":                 UnitPieces,
	"pcs":                   UnitPieces,
	"boxes":                 UnitBoxes,
	"box":                   UnitBoxes,
	"vials":                 UnitVials,
	"vial":                  UnitVials,
	"doses_with_vial_count": UnitDosesWithVialCount,
	"doses":                 UnitDosesWithVialCount,
	"containers":            UnitContainers,
	"container":             UnitContainers,
}

// ParseUnit returns the unit for a stored label (case-insensitive).
func ParseUnit(label string) (Unit, bool) {
	unit, ok := unitCodes[strings.ToLower(strings.TrimSpace(label))]

	return unit, ok
}

// ParseVariant returns the variant for an id prefix.
func ParseVariant(label string) (Variant, bool) {
	for _, v := range Variants {
		if string(v) == label {
			return v, true
		}
	}

	return "", false
}

// AlertKind is the dedup dimension of a stock alert
type AlertKind string

const (
	AlertExpired    AlertKind = "expired"
	AlertNearExpiry AlertKind = "near_expiry"
	AlertOutOfStock AlertKind = "out_of_stock"
	AlertLowStock   AlertKind = "low_stock"

	// AlertAutoArchived is informational and never recorded in the ledger.
	AlertAutoArchived AlertKind = "auto_archived"
)

var alertTitles = map[AlertKind]string{
	AlertExpired:    "Expired Stock",
	AlertNearExpiry: "Stock Near Expiry",
	AlertOutOfStock: "Out of Stock",
	AlertLowStock:   "Low Stock",

	AlertAutoArchived: "Stock Auto-Archived",
}

// Title returns a human-readable label for an alert kind.
func (k AlertKind) Title() string {
	if title, ok := alertTitles[k]; ok {
		return title
	}

	return "Stock Alert"
}

// Valid reports whether k is one of the four ledgered alert kinds.
func (k AlertKind) Valid() bool {
	switch k {
	case AlertExpired, AlertNearExpiry, AlertOutOfStock, AlertLowStock:
		return true
	}

	return false
}

// ExpiryState is the expiry axis of a classification
type ExpiryState string

const (
	ExpiryNone       ExpiryState = ""
	ExpiryExpired    ExpiryState = "expired"
	ExpiryNearExpiry ExpiryState = "near_expiry"
)

// StockState is the stock-level axis of a classification
type StockState string

const (
	StockNone       StockState = ""
	StockOutOfStock StockState = "out_of_stock"
	StockLow        StockState = "low_stock"
	StockNormal     StockState = "normal"
)

// Classification is the result of evaluating one stock unit on both axes
type Classification struct {
	Expiry   ExpiryState `json:"expiry,omitempty"`
	DaysLeft int         `json:"days_left,omitempty"`
	Stock    StockState  `json:"stock,omitempty"`
}

// AlertKinds returns the alert kinds the classification asks to fire,
// expiry axis first.
func (c Classification) AlertKinds() []AlertKind {
	kinds := make([]AlertKind, 0, 2)

	switch c.Expiry {
	case ExpiryExpired:
		kinds = append(kinds, AlertExpired)
	case ExpiryNearExpiry:
		kinds = append(kinds, AlertNearExpiry)
	}

	switch c.Stock {
	case StockOutOfStock:
		kinds = append(kinds, AlertOutOfStock)
	case StockLow:
		kinds = append(kinds, AlertLowStock)
	}

	return kinds
}
