package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/andresuchdata/stockalert/internal/repository"
	"github.com/lib/pq"
)

type staffDirectory struct {
	db *DB
}

func NewStaffDirectory(db *DB) repository.StaffDirectory {
	return &staffDirectory{db: db}
}

// ListStaffByRole returns active staff in any of the predicate's groups or
// holding any of its titles. Title matching ignores case.
func (d *staffDirectory) ListStaffByRole(ctx context.Context, predicate repository.StaffPredicate) ([]domain.StaffID, error) {
	if predicate.Empty() {
		return nil, nil
	}

	query := `
		SELECT DISTINCT s.id
		FROM staff s
		LEFT JOIN staff_groups g ON g.staff_id = s.id
		WHERE s.active
		  AND (g.group_name = ANY($1::text[]) OR LOWER(s.title) = ANY($2::text[]))
		ORDER BY s.id
	`

	titles := make([]string, 0, len(predicate.Titles))
	for _, title := range predicate.Titles {
		titles = append(titles, strings.ToLower(strings.TrimSpace(title)))
	}

	var ids []domain.StaffID
	if err := d.db.SelectContext(ctx, &ids, query, pq.Array(predicate.Groups), pq.Array(titles)); err != nil {
		return nil, fmt.Errorf("%w: list staff by role: %w", domain.ErrStoreUnavailable, err)
	}

	return ids, nil
}
