package model

import (
	"github.com/uptrace/bun"
)

// Group the user starred. Hidden favorites stay in the list but are left out
// of the aggregated feed.
type UserFavorite struct {
	bun.BaseModel `bun:"table:user_favorites,alias:uf"`

	ID      int64 `bun:"id,pk,autoincrement"`
	UserID  int64 `bun:"user_id,notnull,unique:user_favorite"`
	GroupID int64 `bun:"group_id,notnull,unique:user_favorite"`
	Hidden  bool  `bun:"hidden,notnull,default:false"`
}

// Group the user belongs to without choosing it, e.g. their academic group.
type PredefinedMembership struct {
	bun.BaseModel `bun:"table:predefined_memberships,alias:pm"`

	ID      int64 `bun:"id,pk,autoincrement"`
	UserID  int64 `bun:"user_id,notnull,unique:user_predefined"`
	GroupID int64 `bun:"group_id,notnull,unique:user_predefined"`
}
