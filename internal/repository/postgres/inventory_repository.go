// internal/repository/postgres/inventory_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/andresuchdata/stockalert/internal/repository"
	"github.com/jmoiron/sqlx"
)

// inventoryTable maps a variant onto its table and the columns its struct scans.
type inventoryTable struct {
	name    string
	columns string
}

var inventoryTables = map[domain.Variant]inventoryTable{
	domain.VariantMedicine: {
		name:    "medicines",
		columns: "id, name, quantity, unit, COALESCE(pieces_per_box, 0) AS pieces_per_box, expiry_date, archived",
	},
	domain.VariantFirstAid: {
		name:    "first_aid_supplies",
		columns: "id, name, quantity, unit, COALESCE(pieces_per_box, 0) AS pieces_per_box, expiry_date, archived",
	},
	domain.VariantCommodity: {
		name:    "commodities",
		columns: "id, name, quantity, unit, expiry_date, archived",
	},
	domain.VariantVaccine: {
		name:    "vaccines",
		columns: "id, name, doses, COALESCE(dose_ml, 0) AS dose_ml, expiry_date, archived",
	},
	domain.VariantImmunizationSupply: {
		name:    "immunization_supplies",
		columns: "id, name, quantity, unit, COALESCE(pieces_per_box, 0) AS pieces_per_box, expiry_date, archived",
	},
}

type inventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) repository.InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) ListAllStockUnits(ctx context.Context) ([]domain.StockUnit, error) {
	var units []domain.StockUnit
	for _, variant := range domain.Variants {
		table := inventoryTables[variant]
		query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", table.columns, table.name)

		batch, err := r.selectUnits(ctx, variant, query)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", domain.ErrStoreUnavailable, table.name, err)
		}
		units = append(units, batch...)
	}

	return units, nil
}

func (r *inventoryRepository) GetStockUnit(ctx context.Context, id string) (domain.StockUnit, error) {
	variant, rowID, err := domain.ParseUnitID(id)
	if err != nil {
		return domain.StockUnit{}, err
	}

	table := inventoryTables[variant]
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", table.columns, table.name)

	units, err := r.selectUnits(ctx, variant, query, rowID)
	if err != nil {
		return domain.StockUnit{}, fmt.Errorf("%w: get %s: %w", domain.ErrStoreUnavailable, id, err)
	}
	if len(units) == 0 {
		return domain.StockUnit{}, fmt.Errorf("%w: %s", domain.ErrUnitNotFound, id)
	}

	return units[0], nil
}

func (r *inventoryRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	variant, rowID, err := domain.ParseUnitID(id)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE %s SET archived = $1 WHERE id = $2", inventoryTables[variant].name)

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, archived, rowID)
		if err != nil {
			return fmt.Errorf("failed to update archived flag for %s: %w", id, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", domain.ErrUnitNotFound, id)
		}

		return nil
	})
}

func (r *inventoryRepository) selectUnits(ctx context.Context, variant domain.Variant, query string, args ...interface{}) ([]domain.StockUnit, error) {
	switch variant {
	case domain.VariantMedicine:
		return selectItems[domain.Medicine](ctx, r.db, query, args...)
	case domain.VariantFirstAid:
		return selectItems[domain.FirstAidSupply](ctx, r.db, query, args...)
	case domain.VariantCommodity:
		return selectItems[domain.Commodity](ctx, r.db, query, args...)
	case domain.VariantVaccine:
		return selectItems[domain.Vaccine](ctx, r.db, query, args...)
	case domain.VariantImmunizationSupply:
		return selectItems[domain.ImmunizationSupply](ctx, r.db, query, args...)
	default:
		return nil, errors.New("unknown variant " + string(variant))
	}
}

func selectItems[T domain.Item](ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]domain.StockUnit, error) {
	var items []T
	if err := sqlx.SelectContext(ctx, q, &items, query, args...); err != nil {
		return nil, err
	}

	units := make([]domain.StockUnit, 0, len(items))
	for _, item := range items {
		units = append(units, item.StockUnit())
	}

	return units, nil
}
