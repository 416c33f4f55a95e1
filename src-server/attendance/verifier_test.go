package attendance_test

import (
	"context"
	"database/sql"
	"errors"
	"gatherd/src-server/attendance"
	"gatherd/src-server/fault"
	"gatherd/src-server/model"
	"testing"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type fixture struct {
	db        *bun.DB
	organizer *model.User
	user      *model.User
	event     *model.Event
	attendee  *model.Attendee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	bundb := bun.NewDB(db, sqlitedialect.New())
	ctx := context.Background()
	if err := model.CreateSchema(ctx, bundb); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bundb.Close() })

	organizerModel := &model.User{Username: uuid.NewString(), Email: uuid.NewString() + "@test"}
	if err := organizerModel.Upsert(ctx, bundb); err != nil {
		t.Fatal(err)
	}
	userModel := &model.User{Username: uuid.NewString(), Email: uuid.NewString() + "@test"}
	if err := userModel.Upsert(ctx, bundb); err != nil {
		t.Fatal(err)
	}
	eventModel := &model.Event{
		Title:       "scan test",
		Date:        "2026-10-01",
		Mode:        model.EVENT_MODE_OFFLINE,
		Visibility:  model.EVENT_VISIBILITY_PUBLIC,
		Capacity:    10,
		OrganizerID: organizerModel.ID,
	}
	if err := eventModel.Upsert(ctx, bundb); err != nil {
		t.Fatal(err)
	}
	attendeeModel := &model.Attendee{
		UserID:  userModel.ID,
		EventID: eventModel.ID,
		Token:   uuid.NewString(),
	}
	if _, err := bundb.NewInsert().
		Model(attendeeModel).
		Exec(ctx); err != nil {
		t.Fatal(err)
	}

	return &fixture{
		db:        bundb,
		organizer: organizerModel,
		user:      userModel,
		event:     eventModel,
		attendee:  attendeeModel,
	}
}

func (f *fixture) scan() attendance.Scan {
	return attendance.Scan{
		AttendeeID: f.attendee.ID,
		EventID:    f.event.ID,
		UserID:     f.user.ID,
		Token:      f.attendee.Token,
	}
}

func (f *fixture) attended(t *testing.T) bool {
	t.Helper()
	attendeeModel := new(model.Attendee)
	if err := f.db.NewSelect().
		Model(attendeeModel).
		Where("id = ?", f.attendee.ID).
		Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	return attendeeModel.Attended
}

func TestMarkAttendedIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	confirmation, err := attendance.MarkAttended(ctx, f.db, f.scan(), f.organizer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if confirmation.Already {
		t.Error("first scan should not be already confirmed")
	}
	if confirmation.Username != f.user.Username || confirmation.EventTitle != f.event.Title {
		t.Errorf("confirmation details wrong: %+v", confirmation)
	}
	if !f.attended(t) {
		t.Error("attended flag should be set after first scan")
	}

	again, err := attendance.MarkAttended(ctx, f.db, f.scan(), f.organizer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Already {
		t.Error("second scan should report already confirmed")
	}
	if !f.attended(t) {
		t.Error("attended flag must never revert")
	}
}

func TestMarkAttendedForgedToken(t *testing.T) {
	f := newFixture(t)

	scan := f.scan()
	scan.Token = uuid.NewString()
	if _, err := attendance.MarkAttended(context.Background(), f.db, scan, f.organizer.ID); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("forged token: got %v, want ErrNotFound", err)
	}
	if f.attended(t) {
		t.Error("attended flag must stay unset after a failed scan")
	}
}

func TestMarkAttendedWrongCaller(t *testing.T) {
	f := newFixture(t)

	if _, err := attendance.MarkAttended(context.Background(), f.db, f.scan(), f.user.ID); !errors.Is(err, fault.ErrUnauthorized) {
		t.Errorf("non-organizer scan: got %v, want ErrUnauthorized", err)
	}
	if f.attended(t) {
		t.Error("attended flag must stay unset after an unauthorized scan")
	}
}

func TestMarkAttendedMismatchedFields(t *testing.T) {
	f := newFixture(t)

	scan := f.scan()
	scan.UserID = f.organizer.ID
	if _, err := attendance.MarkAttended(context.Background(), f.db, scan, f.organizer.ID); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("mismatched user: got %v, want ErrNotFound", err)
	}
}
