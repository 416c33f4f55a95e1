package registration

import (
	"context"
	"fmt"
	"gatherd/src-server/fault"
	"gatherd/src-server/model"

	"github.com/uptrace/bun"
)

// ReserveSeat takes one seat on the event, or returns fault.ErrFull. The
// check and the decrement are a single conditional update so two concurrent
// registrations can never both pass on the last seat. Must run inside the
// same transaction as the attendee insert it backs.
func ReserveSeat(ctx context.Context, db bun.IDB, eventID int64) error {
	res, err := db.NewUpdate().
		Model((*model.Event)(nil)).
		Set("capacity = capacity - 1").
		Where("id = ?", eventID).
		Where("capacity > 0").
		Where("is_archived = ?", false).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ReserveSeat: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ReserveSeat: %w", err)
	}
	if rowsAffected == 0 {
		return fault.ErrFull
	}
	return nil
}

// ReleaseSeat gives one seat back. Every call must be paired with an earlier
// ReserveSeat for the same attendee; capacity is a live counter, not
// re-derived.
func ReleaseSeat(ctx context.Context, db bun.IDB, eventID int64) error {
	if _, err := db.NewUpdate().
		Model((*model.Event)(nil)).
		Set("capacity = capacity + 1").
		Where("id = ?", eventID).
		Exec(ctx); err != nil {
		return fmt.Errorf("ReleaseSeat: %w", err)
	}
	return nil
}
