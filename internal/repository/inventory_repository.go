// internal/repository/inventory_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/stockalert/internal/domain"
)

// InventoryRepository is the inventory store as seen by the alerting engine.
// It is read-only apart from the archived flag.
type InventoryRepository interface {
	// ListAllStockUnits returns every unit of every variant, archived ones included.
	ListAllStockUnits(ctx context.Context) ([]domain.StockUnit, error)

	// GetStockUnit returns domain.ErrUnitNotFound when the row no longer exists.
	GetStockUnit(ctx context.Context, id string) (domain.StockUnit, error)

	SetArchived(ctx context.Context, id string, archived bool) error
}

// StaffPredicate selects notification recipients: staff belonging to any of
// Groups or holding any of Titles.
type StaffPredicate struct {
	Groups []string
	Titles []string
}

// Empty reports whether the predicate can match nobody.
func (p StaffPredicate) Empty() bool {
	return len(p.Groups) == 0 && len(p.Titles) == 0
}

type StaffDirectory interface {
	ListStaffByRole(ctx context.Context, predicate StaffPredicate) ([]domain.StaffID, error)
}
