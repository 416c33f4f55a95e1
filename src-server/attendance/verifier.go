package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"gatherd/src-server/fault"
	"gatherd/src-server/model"

	"github.com/uptrace/bun"
)

// Scan is the decoded credential proof handed over by the organizer's
// scanner.
type Scan struct {
	AttendeeID int64
	EventID    int64
	UserID     int64
	Token      string
}

type Confirmation struct {
	// true when the credential had already been scanned; the flag never
	// reverts either way
	Already bool

	Username   string
	EventTitle string
}

// MarkAttended validates a scanned credential and flips the one-way attended
// flag. All four proof fields must match the stored attendee row exactly;
// the token is the secret that makes a forged scan fail. Only the event's
// organizer may confirm attendance.
func MarkAttended(
	ctx context.Context,
	db *bun.DB,
	scan Scan,
	callerID int64,
) (*Confirmation, error) {
	var confirmation *Confirmation
	if err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		attendeeModel := new(model.Attendee)
		switch err := tx.NewSelect().
			Model(attendeeModel).
			Relation("User").
			Relation("Event").
			Where("attendee.id = ?", scan.AttendeeID).
			Where("attendee.event_id = ?", scan.EventID).
			Where("attendee.user_id = ?", scan.UserID).
			Where("attendee.token = ?", scan.Token).
			Scan(ctx); {
		case errors.Is(err, sql.ErrNoRows):
			return fault.ErrNotFound
		case err != nil:
			return fmt.Errorf("can't get attendee: %w", err)
		}
		if attendeeModel.Event == nil || attendeeModel.User == nil {
			return fault.ErrNotFound
		}
		if attendeeModel.Event.OrganizerID != callerID {
			return fault.ErrUnauthorized
		}

		confirmation = &Confirmation{
			Username:   attendeeModel.User.Username,
			EventTitle: attendeeModel.Event.Title,
		}
		if attendeeModel.Attended {
			confirmation.Already = true
			return nil
		}

		if _, err := tx.NewUpdate().
			Model((*model.Attendee)(nil)).
			Set("attended = ?", true).
			Where("id = ?", attendeeModel.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("can't mark attended: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return confirmation, nil
}
