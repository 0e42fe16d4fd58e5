package domain

import (
	"fmt"
	"strconv"
)

// DisplayQuantity renders the available quantity for humans. It is cosmetic
// and never consulted when classifying.
func (u StockUnit) DisplayQuantity() string {
	q := u.AvailableQuantity

	switch u.Unit {
	case UnitBoxes:
		if u.PiecesPerBox > 0 {
			return fmt.Sprintf("%s (%d pcs)", plural(q, "box", "boxes"), q*u.PiecesPerBox)
		}
		return plural(q, "box", "boxes")
	case UnitDosesWithVialCount:
		doses := plural(q, "dose", "doses")
		if u.DoseML > 0 {
			return fmt.Sprintf("%s (%s ml)", doses, strconv.FormatFloat(float64(q)*u.DoseML, 'f', -1, 64))
		}
		return doses
	case UnitVials:
		return plural(q, "vial", "vials")
	case UnitContainers:
		return plural(q, "container", "containers")
	default:
		return plural(q, "pc", "pcs")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
