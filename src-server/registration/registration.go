package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"gatherd/src-server/credential"
	"gatherd/src-server/fault"
	"gatherd/src-server/model"
	"time"

	"github.com/uptrace/bun"
)

type Status string

const (
	StatusRegistered     = Status("registered")
	StatusPending        = Status("pending_approval")
	StatusApproved       = Status("approved")
	StatusAlreadyDecided = Status("already_decided")
)

type Result struct {
	Status     Status
	AttendeeID int64
	ProofPath  string
	RequestID  int64
}

// Register runs the registration state machine for one (user, event) pair.
// Public events grab a seat and issue a credential in one transaction;
// private events leave a pending JoinRequest and touch no capacity.
func Register(
	ctx context.Context,
	db *bun.DB,
	issuer *credential.Issuer,
	userID int64,
	eventID int64,
) (*Result, error) {
	var result *Result
	var issuedPath string
	if err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		eventModel := new(model.Event)
		switch err := tx.NewSelect().
			Model(eventModel).
			Where("id = ?", eventID).
			Scan(ctx); {
		case errors.Is(err, sql.ErrNoRows):
			return fault.ErrNotFound
		case err != nil:
			return fmt.Errorf("can't get event: %w", err)
		}
		if eventModel.IsArchived {
			return fault.ErrNotFound
		}
		if eventModel.OrganizerID == userID {
			return fault.ErrNotAllowed
		}

		attendeeExists, err := tx.NewSelect().
			Model((*model.Attendee)(nil)).
			Where("user_id = ?", userID).
			Where("event_id = ?", eventID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("can't check if attendee exists: %w", err)
		}
		if attendeeExists {
			return fault.ErrConflict
		}

		if eventModel.Visibility == model.EVENT_VISIBILITY_PRIVATE {
			joinRequestModel := new(model.JoinRequest)
			switch err := tx.NewSelect().
				Model(joinRequestModel).
				Where("user_id = ?", userID).
				Where("event_id = ?", eventID).
				Scan(ctx); {
			case errors.Is(err, sql.ErrNoRows):
				joinRequestModel = &model.JoinRequest{
					UserID:    userID,
					EventID:   eventID,
					Status:    model.JOIN_REQUEST_STATUS_PENDING,
					CreatedAt: time.Now().UTC().Unix(),
				}
				if _, err := tx.NewInsert().
					Model(joinRequestModel).
					Exec(ctx); err != nil {
					return fmt.Errorf("can't create join request: %w", err)
				}
			case err != nil:
				return fmt.Errorf("can't get join request: %w", err)
			}
			result = &Result{
				Status:    StatusPending,
				RequestID: joinRequestModel.ID,
			}
			return nil
		}

		if err := ReserveSeat(ctx, tx, eventID); err != nil {
			return err
		}
		attendeeID, proofPath, err := createAttendee(ctx, tx, issuer, userID, eventModel)
		issuedPath = proofPath
		if err != nil {
			return err
		}
		result = &Result{
			Status:     StatusRegistered,
			AttendeeID: attendeeID,
			ProofPath:  proofPath,
		}
		return nil
	}); err != nil {
		// a rolled-back registration must not leave its credential image
		// behind
		if issuedPath != "" {
			_ = issuer.Remove(issuedPath)
		}
		return nil, err
	}

	return result, nil
}

// Unregister deletes the attendee row and gives the seat back. JoinRequest
// history is untouched.
func Unregister(
	ctx context.Context,
	db *bun.DB,
	issuer *credential.Issuer,
	userID int64,
	eventID int64,
) error {
	var qrCodePath string
	if err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		attendeeModel := new(model.Attendee)
		switch err := tx.NewSelect().
			Model(attendeeModel).
			Where("user_id = ?", userID).
			Where("event_id = ?", eventID).
			Scan(ctx); {
		case errors.Is(err, sql.ErrNoRows):
			return fault.ErrNotRegistered
		case err != nil:
			return fmt.Errorf("can't get attendee: %w", err)
		}
		qrCodePath = attendeeModel.QRCodePath

		if _, err := tx.NewDelete().
			Model((*model.Attendee)(nil)).
			Where("id = ?", attendeeModel.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("can't delete attendee: %w", err)
		}

		return ReleaseSeat(ctx, tx, eventID)
	}); err != nil {
		return err
	}

	// after commit; a missing file is skipped
	if err := issuer.Remove(qrCodePath); err != nil {
		return fmt.Errorf("Unregister: %w", err)
	}
	return nil
}

// createAttendee reserves nothing itself; the caller holds the seat. It
// mints the token, persists the attendee row and binds the issued credential
// image to it.
func createAttendee(
	ctx context.Context,
	tx bun.IDB,
	issuer *credential.Issuer,
	userID int64,
	eventModel *model.Event,
) (int64, string, error) {
	userModel := new(model.User)
	switch err := tx.NewSelect().
		Model(userModel).
		Where("id = ?", userID).
		Scan(ctx); {
	case errors.Is(err, sql.ErrNoRows):
		return 0, "", fault.ErrNotFound
	case err != nil:
		return 0, "", fmt.Errorf("can't get user: %w", err)
	}

	token, err := credential.NewToken()
	if err != nil {
		return 0, "", err
	}

	attendeeModel := &model.Attendee{
		UserID:  userID,
		EventID: eventModel.ID,
		Token:   token,
	}
	if _, err := tx.NewInsert().
		Model(attendeeModel).
		Exec(ctx); err != nil {
		return 0, "", fmt.Errorf("can't insert attendee: %w", err)
	}

	proofPath, err := issuer.Issue(credential.Proof{
		AttendeeID: attendeeModel.ID,
		UserID:     userID,
		EventID:    eventModel.ID,
		Token:      token,
		Username:   userModel.Username,
		EventName:  eventModel.Title,
	})
	if err != nil {
		return 0, "", err
	}

	if _, err := tx.NewUpdate().
		Model((*model.Attendee)(nil)).
		Set("qr_code_path = ?", proofPath).
		Where("id = ?", attendeeModel.ID).
		Exec(ctx); err != nil {
		return 0, proofPath, fmt.Errorf("can't bind credential to attendee: %w", err)
	}

	return attendeeModel.ID, proofPath, nil
}
