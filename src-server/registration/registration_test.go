package registration_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"gatherd/src-server/credential"
	"gatherd/src-server/fault"
	"gatherd/src-server/model"
	"gatherd/src-server/registration"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// concurrent writers serialize on a single connection
	db.SetMaxOpenConns(1)
	bundb := bun.NewDB(db, sqlitedialect.New())
	if err := model.CreateSchema(context.Background(), bundb); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bundb.Close() })
	return bundb
}

func newTestIssuer(t *testing.T) *credential.Issuer {
	t.Helper()
	return &credential.Issuer{Dir: t.TempDir()}
}

func seedUser(t *testing.T, db *bun.DB) *model.User {
	t.Helper()
	userModel := &model.User{
		Username: uuid.NewString(),
		Email:    uuid.NewString() + "@test",
	}
	if err := userModel.Upsert(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	return userModel
}

func seedEvent(t *testing.T, db *bun.DB, organizerID int64, visibility model.EventVisibility, capacity int) *model.Event {
	t.Helper()
	eventModel := &model.Event{
		Title:       "test event",
		Date:        "2026-10-01",
		Mode:        model.EVENT_MODE_OFFLINE,
		Visibility:  visibility,
		Capacity:    capacity,
		OrganizerID: organizerID,
	}
	if err := eventModel.Upsert(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	return eventModel
}

func remainingCapacity(t *testing.T, db *bun.DB, eventID int64) int {
	t.Helper()
	eventModel := new(model.Event)
	if err := db.NewSelect().
		Model(eventModel).
		Where("id = ?", eventID).
		Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	return eventModel.Capacity
}

func TestRegisterSelf(t *testing.T) {
	bundb := newTestDB(t)
	issuer := newTestIssuer(t)
	organizer := seedUser(t, bundb)
	event := seedEvent(t, bundb, organizer.ID, model.EVENT_VISIBILITY_PUBLIC, 5)

	if _, err := registration.Register(context.Background(), bundb, issuer, organizer.ID, event.ID); !errors.Is(err, fault.ErrNotAllowed) {
		t.Errorf("organizer self-registration: got %v, want ErrNotAllowed", err)
	}
	if got := remainingCapacity(t, bundb, event.ID); got != 5 {
		t.Errorf("capacity changed: got %d, want 5", got)
	}
}

func TestRegisterMissingEvent(t *testing.T) {
	bundb := newTestDB(t)
	issuer := newTestIssuer(t)
	user := seedUser(t, bundb)

	if _, err := registration.Register(context.Background(), bundb, issuer, user.ID, 999); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("missing event: got %v, want ErrNotFound", err)
	}
}

func TestRegisterTwice(t *testing.T) {
	bundb := newTestDB(t)
	issuer := newTestIssuer(t)
	organizer := seedUser(t, bundb)
	user := seedUser(t, bundb)
	event := seedEvent(t, bundb, organizer.ID, model.EVENT_VISIBILITY_PUBLIC, 5)

	result, err := registration.Register(context.Background(), bundb, issuer, user.ID, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != registration.StatusRegistered {
		t.Errorf("got status %s, want registered", result.Status)
	}
	if result.AttendeeID == 0 || result.ProofPath == "" {
		t.Errorf("registered result missing attendee id or proof: %+v", result)
	}

	if _, err := registration.Register(context.Background(), bundb, issuer, user.ID, event.ID); !errors.Is(err, fault.ErrConflict) {
		t.Errorf("second registration: got %v, want ErrConflict", err)
	}

	count, err := bundb.NewSelect().
		Model((*model.Attendee)(nil)).
		Where("user_id = ?", user.ID).
		Where("event_id = ?", event.ID).
		Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("attendee rows: got %d, want 1", count)
	}
	if got := remainingCapacity(t, bundb, event.ID); got != 4 {
		t.Errorf("capacity: got %d, want 4", got)
	}
}

func TestRegisterFull(t *testing.T) {
	bundb := newTestDB(t)
	issuer := newTestIssuer(t)
	organizer := seedUser(t, bundb)
	first := seedUser(t, bundb)
	second := seedUser(t, bundb)
	event := seedEvent(t, bundb, organizer.ID, model.EVENT_VISIBILITY_PUBLIC, 1)

	if _, err := registration.Register(context.Background(), bundb, issuer, first.ID, event.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := registration.Register(context.Background(), bundb, issuer, second.ID, event.ID); !errors.Is(err, fault.ErrFull) {
		t.Errorf("registration beyond capacity: got %v, want ErrFull", err)
	}
	if got := remainingCapacity(t, bundb, event.ID); got != 0 {
		t.Errorf("capacity: got %d, want 0", got)
	}
}

func TestConcurrentRegistration(t *testing.T) {
	bundb := newTestDB(t)
	issuer := newTestIssuer(t)
	organizer := seedUser(t, bundb)
	event := seedEvent(t, bundb, organizer.ID, model.EVENT_VISIBILITY_PUBLIC, 1)

	userIDs := make([]int64, 10)
	for i := range userIDs {
		userIDs[i] = seedUser(t, bundb).ID
	}

	var registered, full, failed atomic.Int32
	var wg sync.WaitGroup
	for _, userID := range userIDs {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := registration.Register(context.Background(), bundb, issuer, userID, event.ID)
			switch {
			case err == nil:
				registered.Add(1)
			case errors.Is(err, fault.ErrFull):
				full.Add(1)
			default:
				failed.Add(1)
				t.Errorf("unexpected error: %v", err)
			}
		}(userID)
	}
	wg.Wait()

	if registered.Load() != 1 {
		t.Errorf("registered: got %d, want exactly 1", registered.Load())
	}
	if full.Load() != int32(len(userIDs))-1 {
		t.Errorf("full: got %d, want %d", full.Load(), len(userIDs)-1)
	}
	if got := remainingCapacity(t, bundb, event.ID); got != 0 {
		t.Errorf("capacity: got %d, want 0", got)
	}
}

func TestPrivateFlow(t *testing.T) {
	bundb := newTestDB(t)
	issuer := newTestIssuer(t)
	ctx := context.Background()
	organizer := seedUser(t, bundb)
	user := seedUser(t, bundb)
	stranger := seedUser(t, bundb)
	event := seedEvent(t, bundb, organizer.ID, model.EVENT_VISIBILITY_PRIVATE, 5)

	// registering leaves a pending request and no attendee
	result, err := registration.Register(ctx, bundb, issuer, user.ID, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != registration.StatusPending || result.RequestID == 0 {
		t.Fatalf("got %+v, want pending with request id", result)
	}
	if got := remainingCapacity(t, bundb, event.ID); got != 5 {
		t.Errorf("capacity changed before approval: got %d, want 5", got)
	}
	attendeeCount, err := bundb.NewSelect().
		Model((*model.Attendee)(nil)).
		Where("event_id = ?", event.ID).
		Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if attendeeCount != 0 {
		t.Errorf("attendee rows before approval: got %d, want 0", attendeeCount)
	}

	// registering again reuses the pending request
	resultAgain, err := registration.Register(ctx, bundb, issuer, user.ID, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resultAgain.RequestID != result.RequestID {
		t.Errorf("second register created a new request: %d vs %d", resultAgain.RequestID, result.RequestID)
	}

	// only the organizer may decide
	if _, err := registration.Approve(ctx, bundb, issuer, stranger.ID, result.RequestID); !errors.Is(err, fault.ErrUnauthorized) {
		t.Errorf("stranger approval: got %v, want ErrUnauthorized", err)
	}

	// approval seats the user and takes a seat
	approveResult, err := registration.Approve(ctx, bundb, issuer, organizer.ID, result.RequestID)
	if err != nil {
		t.Fatal(err)
	}
	if approveResult.Status != registration.StatusApproved || approveResult.AttendeeID == 0 {
		t.Fatalf("got %+v, want approved with attendee id", approveResult)
	}
	if got := remainingCapacity(t, bundb, event.ID); got != 4 {
		t.Errorf("capacity after approval: got %d, want 4", got)
	}

	// approving twice is a no-op
	secondApprove, err := registration.Approve(ctx, bundb, issuer, organizer.ID, result.RequestID)
	if err != nil {
		t.Fatal(err)
	}
	if secondApprove.Status != registration.StatusAlreadyDecided {
		t.Errorf("second approval status: got %s, want already_decided", secondApprove.Status)
	}
	if got := remainingCapacity(t, bundb, event.ID); got != 4 {
		t.Errorf("capacity after double approval: got %d, want 4", got)
	}
}

func TestReject(t *testing.T) {
	bundb := newTestDB(t)
	issuer := newTestIssuer(t)
	ctx := context.Background()
	organizer := seedUser(t, bundb)
	user := seedUser(t, bundb)
	event := seedEvent(t, bundb, organizer.ID, model.EVENT_VISIBILITY_PRIVATE, 5)

	result, err := registration.Register(ctx, bundb, issuer, user.ID, event.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := registration.Reject(ctx, bundb, user.ID, result.RequestID); !errors.Is(err, fault.ErrUnauthorized) {
		t.Errorf("non-organizer rejection: got %v, want ErrUnauthorized", err)
	}
	if err := registration.Reject(ctx, bundb, organizer.ID, result.RequestID); err != nil {
		t.Error(err)
	}
	// idempotent
	if err := registration.Reject(ctx, bundb, organizer.ID, result.RequestID); err != nil {
		t.Error(err)
	}

	joinRequestModel := new(model.JoinRequest)
	if err := bundb.NewSelect().
		Model(joinRequestModel).
		Where("id = ?", result.RequestID).
		Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if joinRequestModel.Status != model.JOIN_REQUEST_STATUS_REJECTED {
		t.Errorf("status: got %s, want rejected", joinRequestModel.Status)
	}
	if got := remainingCapacity(t, bundb, event.ID); got != 5 {
		t.Errorf("capacity changed on rejection: got %d, want 5", got)
	}
}

func TestApproveWhenFull(t *testing.T) {
	bundb := newTestDB(t)
	issuer := newTestIssuer(t)
	ctx := context.Background()
	organizer := seedUser(t, bundb)
	requester := seedUser(t, bundb)
	event := seedEvent(t, bundb, organizer.ID, model.EVENT_VISIBILITY_PRIVATE, 0)

	result, err := registration.Register(ctx, bundb, issuer, requester.ID, event.ID)
	if err != nil {
		t.Fatal(err)
	}

	// the event filled up (capacity 0) before the organizer decided
	if _, err := registration.Approve(ctx, bundb, issuer, organizer.ID, result.RequestID); !errors.Is(err, fault.ErrFull) {
		t.Errorf("approval of full event: got %v, want ErrFull", err)
	}

	// the request stays pending for a later retry
	joinRequestModel := new(model.JoinRequest)
	if err := bundb.NewSelect().
		Model(joinRequestModel).
		Where("id = ?", result.RequestID).
		Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if joinRequestModel.Status != model.JOIN_REQUEST_STATUS_PENDING {
		t.Errorf("status: got %s, want pending", joinRequestModel.Status)
	}

	// a seat frees up, retry succeeds
	if err := registration.ReleaseSeat(ctx, bundb, event.ID); err != nil {
		t.Fatal(err)
	}
	approveResult, err := registration.Approve(ctx, bundb, issuer, organizer.ID, result.RequestID)
	if err != nil {
		t.Fatal(err)
	}
	if approveResult.Status != registration.StatusApproved {
		t.Errorf("retry status: got %s, want approved", approveResult.Status)
	}
}

func TestUnregisterAndReregister(t *testing.T) {
	bundb := newTestDB(t)
	issuer := newTestIssuer(t)
	ctx := context.Background()
	organizer := seedUser(t, bundb)
	user := seedUser(t, bundb)
	event := seedEvent(t, bundb, organizer.ID, model.EVENT_VISIBILITY_PUBLIC, 1)

	if err := registration.Unregister(ctx, bundb, issuer, user.ID, event.ID); !errors.Is(err, fault.ErrNotRegistered) {
		t.Errorf("unregister without registration: got %v, want ErrNotRegistered", err)
	}

	firstResult, err := registration.Register(ctx, bundb, issuer, user.ID, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	firstToken := attendeeToken(t, bundb, firstResult.AttendeeID)

	if err := registration.Unregister(ctx, bundb, issuer, user.ID, event.ID); err != nil {
		t.Fatal(err)
	}
	if got := remainingCapacity(t, bundb, event.ID); got != 1 {
		t.Errorf("capacity after unregister: got %d, want 1", got)
	}

	secondResult, err := registration.Register(ctx, bundb, issuer, user.ID, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	secondToken := attendeeToken(t, bundb, secondResult.AttendeeID)
	if firstToken == secondToken {
		t.Error("re-registration should issue a fresh token")
	}
	if got := remainingCapacity(t, bundb, event.ID); got != 0 {
		t.Errorf("capacity after re-register: got %d, want 0", got)
	}
}

func attendeeToken(t *testing.T, db *bun.DB, attendeeID int64) string {
	t.Helper()
	attendeeModel := new(model.Attendee)
	if err := db.NewSelect().
		Model(attendeeModel).
		Where("id = ?", attendeeID).
		Scan(context.Background()); err != nil {
		t.Fatal(fmt.Errorf("can't get attendee %d: %w", attendeeID, err))
	}
	return attendeeModel.Token
}
