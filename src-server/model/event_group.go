package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Schedule of a study group, a sports section, a club... Its calendar lives
// as a static file at Path under the feed cache root.
type EventGroup struct {
	bun.BaseModel `bun:"table:event_groups,alias:eg"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Alias       string `bun:"alias,notnull,unique"` // required
	Name        string `bun:"name,notnull"`         // required
	Description string `bun:"description"`

	// relative to the feed cache root, empty when the group has no static file
	Path string `bun:"path"`
	// upstream calendar the scheduler re-publishes from, optional
	SourceURL string `bun:"source_url"`

	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}

func (g *EventGroup) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case g.Alias == "":
		return fmt.Errorf("(*EventGroup).Upsert: alias is blank")
	case g.Name == "":
		return fmt.Errorf("(*EventGroup).Upsert: name is blank")
	}

	if _, err := db.NewInsert().
		Model(g).
		On("CONFLICT (alias) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("path = EXCLUDED.path").
		Set("source_url = EXCLUDED.source_url").
		Returning("id").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*EventGroup).Upsert: can't upsert group: %w", err)
	}
	return nil
}

type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Alias string `bun:"alias,notnull,unique"` // required
	Name  string `bun:"name"`
}

type GroupTag struct {
	bun.BaseModel `bun:"table:group_tags,alias:gt"`

	GroupID int64 `bun:"group_id,pk"`
	TagID   int64 `bun:"tag_id,pk"`
}
