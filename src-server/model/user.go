package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Username string `bun:"username,notnull,unique"` // required
	Email    string `bun:"email,notnull,unique"`    // required
}

func (u *User) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case u.Username == "":
		return fmt.Errorf("(*User).Upsert: username is blank")
	case u.Email == "":
		return fmt.Errorf("(*User).Upsert: email is blank")
	}

	if _, err := db.
		NewInsert().
		Model(u).
		On("CONFLICT (username) DO UPDATE").
		Set("email = EXCLUDED.email").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*User).Upsert: %w", err)
	}

	return nil
}
