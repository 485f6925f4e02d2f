package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// External calendar a user wants to re-subscribe to through us.
type LinkedCalendar struct {
	bun.BaseModel `bun:"table:linked_calendars,alias:lc"`

	ID     int64  `bun:"id,pk,autoincrement"`
	UserID int64  `bun:"user_id,notnull,unique:user_alias"` // required
	Alias  string `bun:"alias,notnull,unique:user_alias"`   // required
	URL    string `bun:"url,notnull"`                       // required
	Name   string `bun:"name"`
	Color  string `bun:"color"`
}

func (c *LinkedCalendar) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case c.UserID == 0:
		return fmt.Errorf("(*LinkedCalendar).Upsert: user id is blank")
	case c.Alias == "":
		return fmt.Errorf("(*LinkedCalendar).Upsert: alias is blank")
	case c.URL == "":
		return fmt.Errorf("(*LinkedCalendar).Upsert: url is blank")
	}

	if _, err := db.NewInsert().
		Model(c).
		On("CONFLICT (user_id, alias) DO UPDATE").
		Set("url = EXCLUDED.url").
		Set("name = EXCLUDED.name").
		Set("color = EXCLUDED.color").
		Returning("id").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*LinkedCalendar).Upsert: can't upsert linked calendar: %w", err)
	}
	return nil
}
