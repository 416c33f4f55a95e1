package model

import (
	"github.com/uptrace/bun"
)

// EventNotification is a user's reminder subscription for one event, created
// and removed by an explicit toggle.
type EventNotification struct {
	bun.BaseModel `bun:"table:event_notifications"`

	UserID  int64 `bun:"user_id,pk"`  // required
	EventID int64 `bun:"event_id,pk"` // required

	User  *User  `bun:"rel:belongs-to,join:user_id=id"`
	Event *Event `bun:"rel:belongs-to,join:event_id=id"`
}
