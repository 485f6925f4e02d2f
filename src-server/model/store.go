package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("not found")

// Read side used by the feeds, plus the few writes publishing needs.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *bun.DB {
	return s.db
}

func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	user := new(User)
	if err := s.db.NewSelect().
		Model(user).
		Where("id = ?", id).
		Scan(ctx); err != nil {
		return nil, notFound(fmt.Sprintf("(*Store).UserByID: user %d", id), err)
	}
	return user, nil
}

func (s *Store) GroupByID(ctx context.Context, id int64) (*EventGroup, error) {
	group := new(EventGroup)
	if err := s.db.NewSelect().
		Model(group).
		Where("eg.id = ?", id).
		Scan(ctx); err != nil {
		return nil, notFound(fmt.Sprintf("(*Store).GroupByID: group %d", id), err)
	}
	return group, nil
}

func (s *Store) GroupByAlias(ctx context.Context, alias string) (*EventGroup, error) {
	group := new(EventGroup)
	if err := s.db.NewSelect().
		Model(group).
		Where("eg.alias = ?", alias).
		Scan(ctx); err != nil {
		return nil, notFound(fmt.Sprintf("(*Store).GroupByAlias: group %q", alias), err)
	}
	return group, nil
}

// Visible favorites in the order they were added.
func (s *Store) FavoriteGroups(ctx context.Context, userID int64) ([]EventGroup, error) {
	groups := make([]EventGroup, 0)
	if err := s.db.NewSelect().
		Model(&groups).
		Join("JOIN user_favorites AS uf ON uf.group_id = eg.id").
		Where("uf.user_id = ?", userID).
		Where("uf.hidden = ?", false).
		OrderExpr("uf.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*Store).FavoriteGroups: %w", err)
	}
	return groups, nil
}

func (s *Store) PredefinedGroups(ctx context.Context, userID int64) ([]EventGroup, error) {
	groups := make([]EventGroup, 0)
	if err := s.db.NewSelect().
		Model(&groups).
		Join("JOIN predefined_memberships AS pm ON pm.group_id = eg.id").
		Where("pm.user_id = ?", userID).
		OrderExpr("pm.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*Store).PredefinedGroups: %w", err)
	}
	return groups, nil
}

// Groups the scheduler refreshes from an upstream calendar.
func (s *Store) GroupsWithSource(ctx context.Context) ([]EventGroup, error) {
	groups := make([]EventGroup, 0)
	if err := s.db.NewSelect().
		Model(&groups).
		Where("eg.source_url <> ''").
		Where("eg.path <> ''").
		OrderExpr("eg.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*Store).GroupsWithSource: %w", err)
	}
	return groups, nil
}

// Tags of a group in the order they were attached.
func (s *Store) GroupTags(ctx context.Context, groupID int64) ([]Tag, error) {
	tags := make([]Tag, 0)
	if err := s.db.NewSelect().
		Model(&tags).
		Join("JOIN group_tags AS gt ON gt.tag_id = t.id").
		Where("gt.group_id = ?", groupID).
		OrderExpr("gt.rowid ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*Store).GroupTags: %w", err)
	}
	return tags, nil
}

func (s *Store) LinkedCalendar(ctx context.Context, userID int64, alias string) (*LinkedCalendar, error) {
	linked := new(LinkedCalendar)
	if err := s.db.NewSelect().
		Model(linked).
		Where("lc.user_id = ?", userID).
		Where("lc.alias = ?", alias).
		Scan(ctx); err != nil {
		return nil, notFound(fmt.Sprintf("(*Store).LinkedCalendar: %q of user %d", alias, userID), err)
	}
	return linked, nil
}

// Whether key was issued to userID for exactly resourcePath.
func (s *Store) CheckAccessKey(ctx context.Context, userID int64, key, resourcePath string) (bool, error) {
	if key == "" {
		return false, nil
	}
	exists, err := s.db.NewSelect().
		Model((*AccessKey)(nil)).
		Where("ak.user_id = ?", userID).
		Where("ak.key = ?", key).
		Where("ak.resource_path = ?", resourcePath).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("(*Store).CheckAccessKey: %w", err)
	}
	return exists, nil
}

// Record that the group's static file changed.
func (s *Store) TouchGroup(ctx context.Context, groupID int64, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*EventGroup)(nil)).
		Set("updated_at = ?", at).
		Where("id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("(*Store).TouchGroup: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("(*Store).TouchGroup: group %d: %w", groupID, ErrNotFound)
	}
	return nil
}

// Cheapest query that still reaches the database, timed by the database latency gauge.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := s.db.NewSelect().
		Model((*User)(nil)).
		Where("id = ?", 0).
		Exists(ctx); err != nil {
		return 0, fmt.Errorf("(*Store).Ping: %w", err)
	}
	return time.Since(start), nil
}
