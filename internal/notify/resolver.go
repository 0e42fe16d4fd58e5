package notify

import (
	"context"
	"fmt"

	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/andresuchdata/stockalert/internal/repository"
	"github.com/rs/zerolog"
)

// Resolver looks up the staff who receive stock alerts
type Resolver struct {
	directory repository.StaffDirectory
	predicate repository.StaffPredicate
	log       zerolog.Logger
}

func NewResolver(directory repository.StaffDirectory, predicate repository.StaffPredicate, log zerolog.Logger) *Resolver {
	return &Resolver{directory: directory, predicate: predicate, log: log}
}

// Resolve returns the distinct recipients matching the configured predicate.
// Directory failures are logged and yield zero recipients.
func (r *Resolver) Resolve(ctx context.Context) []domain.StaffID {
	if r == nil || r.directory == nil {
		return nil
	}

	ids, err := r.directory.ListStaffByRole(ctx, r.predicate)
	if err != nil {
		r.log.Warn().
			Err(fmt.Errorf("%w: %w", domain.ErrRecipientResolution, err)).
			Strs("groups", r.predicate.Groups).
			Strs("titles", r.predicate.Titles).
			Msg("recipient lookup failed, continuing with no recipients")
		return nil
	}

	seen := make(map[domain.StaffID]struct{}, len(ids))
	recipients := make([]domain.StaffID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}

	return recipients
}
