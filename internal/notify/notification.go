// Package notify resolves alert recipients and hands notifications to the
// configured delivery channels.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockalert/internal/domain"
)

// Notification is the payload handed to every delivery channel
type Notification struct {
	ID         string           `json:"id"`
	Kind       domain.AlertKind `json:"kind"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Recipients []domain.StaffID `json:"recipients"`
	ItemID     string           `json:"item_id"`
	ItemName   string           `json:"item_name"`
	Quantity   string           `json:"quantity,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Channel delivers notifications to an external system.
type Channel interface {
	Name() string

	// Send delivers n. Implementations must be safe for concurrent use.
	Send(ctx context.Context, n Notification) error
}

// Compose builds the notification for kind about unit. daysLeft is only used
// for near-expiry alerts.
func Compose(kind domain.AlertKind, unit domain.StockUnit, daysLeft int, recipients []domain.StaffID) Notification {
	quantity := unit.DisplayQuantity()

	var message string
	switch kind {
	case domain.AlertExpired:
		message = fmt.Sprintf("%s has expired (%s on hand)", unit.DisplayName, quantity)
	case domain.AlertNearExpiry:
		message = fmt.Sprintf("%s expires in %d %s (%s on hand)", unit.DisplayName, daysLeft, pluralDays(daysLeft), quantity)
	case domain.AlertOutOfStock:
		message = fmt.Sprintf("%s is out of stock", unit.DisplayName)
	case domain.AlertLowStock:
		message = fmt.Sprintf("%s is running low: %s left", unit.DisplayName, quantity)
	case domain.AlertAutoArchived:
		message = fmt.Sprintf("%s was archived after passing its expiry date", unit.DisplayName)
	default:
		message = unit.DisplayName
	}

	return Notification{
		Kind:       kind,
		Title:      kind.Title(),
		Message:    message,
		Recipients: recipients,
		ItemID:     unit.ID,
		ItemName:   unit.DisplayName,
		Quantity:   quantity,
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
