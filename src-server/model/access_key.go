package model

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Secret that unlocks exactly one feed path of one user, so a subscription
// URL can be shared with a calendar app without the user's session.
type AccessKey struct {
	bun.BaseModel `bun:"table:access_keys,alias:ak"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull,unique:user_key_path"`
	Key          string    `bun:"key,notnull,unique:user_key_path"`
	ResourcePath string    `bun:"resource_path,notnull,unique:user_key_path"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Create a random key for userID scoped to resourcePath.
func NewAccessKey(ctx context.Context, db bun.IDB, userID int64, resourcePath string) (*AccessKey, error) {
	k := &AccessKey{
		UserID:       userID,
		Key:          uuid.NewString(),
		ResourcePath: resourcePath,
	}
	if _, err := db.NewInsert().Model(k).Exec(ctx); err != nil {
		return nil, fmt.Errorf("NewAccessKey: can't insert key: %w", err)
	}
	return k, nil
}
