package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

const (
	// wire format for Event.Date
	DateLayout = "2006-01-02"
	// wire format for Event.StartTime / Event.EndTime
	TimeLayout = "15:04"
)

type EventMode string

const (
	EVENT_MODE_ONLINE  = EventMode("online")
	EVENT_MODE_OFFLINE = EventMode("offline")
)

// Validate a mode string once at the boundary
func ParseEventMode(s string) (EventMode, error) {
	switch EventMode(s) {
	case EVENT_MODE_ONLINE, EVENT_MODE_OFFLINE:
		return EventMode(s), nil
	default:
		return "", fmt.Errorf("ParseEventMode: invalid mode %q", s)
	}
}

type EventVisibility string

const (
	EVENT_VISIBILITY_PUBLIC  = EventVisibility("public")
	EVENT_VISIBILITY_PRIVATE = EventVisibility("private")
)

// Validate a visibility string once at the boundary
func ParseEventVisibility(s string) (EventVisibility, error) {
	switch EventVisibility(s) {
	case EVENT_VISIBILITY_PUBLIC, EVENT_VISIBILITY_PRIVATE:
		return EventVisibility(s), nil
	default:
		return "", fmt.Errorf("ParseEventVisibility: invalid visibility %q", s)
	}
}

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Title       string `bun:"title,notnull"` // required
	Description string `bun:"description"`
	Date        string `bun:"date,notnull"` // required, DateLayout
	StartTime   string `bun:"start_time"`   // TimeLayout, blank when unset
	EndTime     string `bun:"end_time"`     // TimeLayout, blank when unset

	Mode       EventMode       `bun:"mode,notnull,type:varchar"`       // required
	Visibility EventVisibility `bun:"visibility,notnull,type:varchar"` // required
	Venue      string          `bun:"venue"`
	Tag        string          `bun:"tag"`

	// remaining seats, never negative; decremented on each successful
	// registration, incremented back on unregister
	Capacity int `bun:"capacity,notnull"`

	// one-way, flipped by the archive sweep only
	IsArchived bool `bun:"is_archived"`

	OrganizerID int64 `bun:"organizer_id,notnull"` // required
	CreatedAt   int64 `bun:"created_at,notnull"`
	UpdatedAt   int64 `bun:"updated_at"`

	Organizer *User       `bun:"rel:belongs-to,join:organizer_id=id"`
	Attendees []*Attendee `bun:"rel:has-many,join:id=event_id"`
}

func (e *Event) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case e.Title == "":
		return fmt.Errorf("(*Event).Upsert: title is blank")
	case e.Date == "":
		return fmt.Errorf("(*Event).Upsert: date is blank")
	case e.Capacity < 0:
		return fmt.Errorf("(*Event).Upsert: capacity must not be negative")
	case e.OrganizerID == 0:
		return fmt.Errorf("(*Event).Upsert: organizer id is blank")
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return fmt.Errorf("(*Event).Upsert: date is invalid: %w", err)
	}
	for _, hhmm := range []string{e.StartTime, e.EndTime} {
		if hhmm == "" {
			continue
		}
		if _, err := time.Parse(TimeLayout, hhmm); err != nil {
			return fmt.Errorf("(*Event).Upsert: time is invalid: %w", err)
		}
	}
	if _, err := ParseEventMode(string(e.Mode)); err != nil {
		return fmt.Errorf("(*Event).Upsert: %w", err)
	}
	if _, err := ParseEventVisibility(string(e.Visibility)); err != nil {
		return fmt.Errorf("(*Event).Upsert: %w", err)
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UTC().Unix()
	}

	switch e.ID {
	case 0:
		if _, err := db.NewInsert().
			Model(e).
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Event).Upsert: %w", err)
		}
	default:
		e.UpdatedAt = time.Now().UTC().Unix()
		// archived events are read-only
		res, err := db.NewUpdate().
			Model(e).
			WherePK().
			Where("is_archived = ?", false).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("(*Event).Upsert: %w", err)
		}
		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("(*Event).Upsert: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("(*Event).Upsert: event is archived or does not exist")
		}
	}

	return nil
}
