package model

import (
	"fmt"

	"github.com/uptrace/bun"
)

type JoinRequestStatus string

const (
	JOIN_REQUEST_STATUS_PENDING  = JoinRequestStatus("pending")
	JOIN_REQUEST_STATUS_APPROVED = JoinRequestStatus("approved")
	JOIN_REQUEST_STATUS_REJECTED = JoinRequestStatus("rejected")
)

// Validate a status string once at the boundary
func ParseJoinRequestStatus(s string) (JoinRequestStatus, error) {
	switch JoinRequestStatus(s) {
	case JOIN_REQUEST_STATUS_PENDING,
		JOIN_REQUEST_STATUS_APPROVED,
		JOIN_REQUEST_STATUS_REJECTED:
		return JoinRequestStatus(s), nil
	default:
		return "", fmt.Errorf("ParseJoinRequestStatus: invalid status %q", s)
	}
}

// JoinRequest is a private event's registration awaiting the organizer's
// decision. Status only ever moves pending->approved or pending->rejected.
// Rows are kept as an audit record, even after the event is archived.
type JoinRequest struct {
	bun.BaseModel `bun:"table:join_requests"`

	ID      int64 `bun:"id,pk,autoincrement"`
	UserID  int64 `bun:"user_id,notnull,unique:join_requests_user_event"`  // required
	EventID int64 `bun:"event_id,notnull,unique:join_requests_user_event"` // required

	Status    JoinRequestStatus `bun:"status,notnull,type:varchar"` // required
	CreatedAt int64             `bun:"created_at,notnull"`

	User  *User  `bun:"rel:belongs-to,join:user_id=id"`
	Event *Event `bun:"rel:belongs-to,join:event_id=id"`
}
