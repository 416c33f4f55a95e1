package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"gatherd/src-server/credential"
	"gatherd/src-server/fault"
	"gatherd/src-server/model"

	"github.com/uptrace/bun"
)

// Approve moves a pending join request to approved and seats the user. If
// the event filled up while the request waited, the whole transaction rolls
// back with fault.ErrFull and the request stays pending so the organizer can
// retry after a seat frees up. Already-decided requests are a no-op.
func Approve(
	ctx context.Context,
	db *bun.DB,
	issuer *credential.Issuer,
	callerID int64,
	requestID int64,
) (*Result, error) {
	var result *Result
	var issuedPath string
	if err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		joinRequestModel, eventModel, err := getRequestForOrganizer(ctx, tx, callerID, requestID)
		if err != nil {
			return err
		}

		if joinRequestModel.Status != model.JOIN_REQUEST_STATUS_PENDING {
			result = &Result{
				Status:    StatusAlreadyDecided,
				RequestID: joinRequestModel.ID,
			}
			return nil
		}

		if _, err := tx.NewUpdate().
			Model((*model.JoinRequest)(nil)).
			Set("status = ?", model.JOIN_REQUEST_STATUS_APPROVED).
			Where("id = ?", joinRequestModel.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("can't update join request: %w", err)
		}

		attendeeExists, err := tx.NewSelect().
			Model((*model.Attendee)(nil)).
			Where("user_id = ?", joinRequestModel.UserID).
			Where("event_id = ?", joinRequestModel.EventID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("can't check if attendee exists: %w", err)
		}
		if attendeeExists {
			result = &Result{
				Status:    StatusApproved,
				RequestID: joinRequestModel.ID,
			}
			return nil
		}

		if err := ReserveSeat(ctx, tx, joinRequestModel.EventID); err != nil {
			return err
		}
		attendeeID, proofPath, err := createAttendee(ctx, tx, issuer, joinRequestModel.UserID, eventModel)
		issuedPath = proofPath
		if err != nil {
			return err
		}
		result = &Result{
			Status:     StatusApproved,
			AttendeeID: attendeeID,
			ProofPath:  proofPath,
			RequestID:  joinRequestModel.ID,
		}
		return nil
	}); err != nil {
		if issuedPath != "" {
			_ = issuer.Remove(issuedPath)
		}
		return nil, err
	}

	return result, nil
}

// Reject moves a pending join request to rejected. No capacity or attendee
// effect. Rejecting twice is a no-op; an approved request never reverses.
func Reject(
	ctx context.Context,
	db *bun.DB,
	callerID int64,
	requestID int64,
) error {
	return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		joinRequestModel, _, err := getRequestForOrganizer(ctx, tx, callerID, requestID)
		if err != nil {
			return err
		}

		switch joinRequestModel.Status {
		case model.JOIN_REQUEST_STATUS_REJECTED:
			return nil
		case model.JOIN_REQUEST_STATUS_APPROVED:
			return fault.ErrConflict
		}

		if _, err := tx.NewUpdate().
			Model((*model.JoinRequest)(nil)).
			Set("status = ?", model.JOIN_REQUEST_STATUS_REJECTED).
			Where("id = ?", joinRequestModel.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("can't update join request: %w", err)
		}
		return nil
	})
}

func getRequestForOrganizer(
	ctx context.Context,
	tx bun.IDB,
	callerID int64,
	requestID int64,
) (*model.JoinRequest, *model.Event, error) {
	joinRequestModel := new(model.JoinRequest)
	switch err := tx.NewSelect().
		Model(joinRequestModel).
		Where("id = ?", requestID).
		Scan(ctx); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil, fault.ErrNotFound
	case err != nil:
		return nil, nil, fmt.Errorf("can't get join request: %w", err)
	}

	eventModel := new(model.Event)
	switch err := tx.NewSelect().
		Model(eventModel).
		Where("id = ?", joinRequestModel.EventID).
		Scan(ctx); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil, fault.ErrNotFound
	case err != nil:
		return nil, nil, fmt.Errorf("can't get event: %w", err)
	}

	if eventModel.OrganizerID != callerID {
		return nil, nil, fault.ErrUnauthorized
	}

	return joinRequestModel, eventModel, nil
}
