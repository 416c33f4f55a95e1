package model

import (
	"github.com/uptrace/bun"
)

// Session maps an opaque secret to a user for the auth middleware. Issuing
// sessions (the login flow) lives outside this server.
type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	Secret           string `bun:"secret,pk"`           // required
	UserID           int64  `bun:"user_id,notnull"`     // required
	CreatedAtUnixUTC int64  `bun:"created_at,notnull"`  // required
}
