package model

import (
	"github.com/uptrace/bun"
)

// Attendee is the durable proof that one user holds a seat at one event. The
// token is the sole secret binding a scanned credential to this row.
type Attendee struct {
	bun.BaseModel `bun:"table:attendees"`

	ID      int64 `bun:"id,pk,autoincrement"`
	UserID  int64 `bun:"user_id,notnull,unique:attendees_user_event"`  // required
	EventID int64 `bun:"event_id,notnull,unique:attendees_user_event"` // required

	Token      string `bun:"token,notnull,unique"` // required
	QRCodePath string `bun:"qr_code_path"`

	// one-way, flipped by the attendance scan only
	Attended bool `bun:"attended"`

	User  *User  `bun:"rel:belongs-to,join:user_id=id"`
	Event *Event `bun:"rel:belongs-to,join:event_id=id"`
}
