package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Email string `bun:"email,notnull,unique"` // required

	// both are needed for the Moodle feed
	MoodleUserID    int64  `bun:"moodle_user_id,nullzero"`
	MoodleAuthToken string `bun:"moodle_auth_token,nullzero"`
}

func (u *User) HasMoodle() bool {
	return u.MoodleUserID != 0 && u.MoodleAuthToken != ""
}

func (u *User) Upsert(ctx context.Context, db bun.IDB) error {
	if u.Email == "" {
		return fmt.Errorf("(*User).Upsert: email is blank")
	}

	if _, err := db.NewInsert().
		Model(u).
		On("CONFLICT (email) DO UPDATE").
		Set("moodle_user_id = EXCLUDED.moodle_user_id").
		Set("moodle_auth_token = EXCLUDED.moodle_auth_token").
		Returning("id").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*User).Upsert: can't upsert user: %w", err)
	}
	return nil
}
