package model

import (
	"github.com/uptrace/bun"
)

// ReminderLog is the durable at-most-once ledger for dispatched reminders. A
// row exists once a reminder for (event, user) was attempted, whether or not
// delivery succeeded, so a restart never re-sends.
type ReminderLog struct {
	bun.BaseModel `bun:"table:reminder_logs"`

	EventID int64 `bun:"event_id,pk"` // required
	UserID  int64 `bun:"user_id,pk"`  // required

	SentAtUnixUTC int64 `bun:"sent_at,notnull"` // required
}
