package model_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"calfeed/src-server/model"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newStore(t *testing.T) *model.Store {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// every connection would get its own empty in-memory database
	sqldb.SetMaxOpenConns(1)
	bundb := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bundb.Close() })

	if err := model.CreateSchema(context.Background(), bundb); err != nil {
		t.Fatal(err)
	}
	return model.NewStore(bundb)
}

func seedGroups(t *testing.T, db bun.IDB, aliases ...string) []model.EventGroup {
	t.Helper()
	groups := make([]model.EventGroup, 0, len(aliases))
	for _, alias := range aliases {
		g := model.EventGroup{Alias: alias, Name: "Group " + alias, Path: "groups/" + alias + ".ics"}
		if err := g.Upsert(context.Background(), db); err != nil {
			t.Fatal(err)
		}
		groups = append(groups, g)
	}
	return groups
}

func TestUserUpsert(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	user := model.User{Email: "student@example.com"}
	if err := user.Upsert(ctx, store.DB()); err != nil {
		t.Fatal(err)
	}
	if user.ID == 0 {
		t.Fatal("id wasn't returned")
	}

	again := model.User{Email: "student@example.com", MoodleUserID: 42, MoodleAuthToken: "token"}
	if err := again.Upsert(ctx, store.DB()); err != nil {
		t.Fatal(err)
	}

	got, err := store.UserByID(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.HasMoodle() || got.MoodleUserID != 42 {
		t.Errorf("moodle credentials weren't updated: %+v", got)
	}

	if _, err := store.UserByID(ctx, 999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := (&model.User{}).Upsert(ctx, store.DB()); err == nil {
		t.Error("expected an error for a blank email")
	}
}

func TestGroupLookups(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	groups := seedGroups(t, store.DB(), "b23-01", "chess")

	byAlias, err := store.GroupByAlias(ctx, "chess")
	if err != nil {
		t.Fatal(err)
	}
	if byAlias.ID != groups[1].ID || byAlias.Path != "groups/chess.ics" {
		t.Errorf("unexpected group %+v", byAlias)
	}
	byID, err := store.GroupByID(ctx, groups[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if byID.Alias != "b23-01" {
		t.Errorf("unexpected group %+v", byID)
	}
	if _, err := store.GroupByAlias(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFavoritesAndPredefined(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	db := store.DB()
	groups := seedGroups(t, db, "a", "b", "c")

	user := model.User{Email: "student@example.com"}
	if err := user.Upsert(ctx, db); err != nil {
		t.Fatal(err)
	}
	favorites := []model.UserFavorite{
		{UserID: user.ID, GroupID: groups[2].ID},
		{UserID: user.ID, GroupID: groups[0].ID},
		{UserID: user.ID, GroupID: groups[1].ID, Hidden: true},
	}
	if _, err := db.NewInsert().Model(&favorites).Exec(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := db.NewInsert().Model(&model.PredefinedMembership{UserID: user.ID, GroupID: groups[1].ID}).Exec(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := store.FavoriteGroups(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Alias != "c" || got[1].Alias != "a" {
		t.Errorf("expected visible favorites [c a], got %+v", got)
	}

	predefined, err := store.PredefinedGroups(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(predefined) != 1 || predefined[0].Alias != "b" {
		t.Errorf("expected predefined [b], got %+v", predefined)
	}
}

func TestGroupTags(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	db := store.DB()
	groups := seedGroups(t, db, "chess")

	tags := []model.Tag{{Alias: "clubs", Name: "Clubs"}, {Alias: "sport", Name: "Sport"}}
	if _, err := db.NewInsert().Model(&tags).Exec(ctx); err != nil {
		t.Fatal(err)
	}
	links := []model.GroupTag{
		{GroupID: groups[0].ID, TagID: tags[1].ID},
		{GroupID: groups[0].ID, TagID: tags[0].ID},
	}
	if _, err := db.NewInsert().Model(&links).Exec(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := store.GroupTags(ctx, groups[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Alias != "sport" {
		t.Errorf("expected [sport clubs], got %+v", got)
	}
}

func TestAccessKeyScope(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	key, err := model.NewAccessKey(ctx, store.DB(), 7, "/users/7/all.ics")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		userID int64
		key    string
		path   string
		ok     bool
	}{
		{7, key.Key, "/users/7/all.ics", true},
		{7, key.Key, "/users/7/sport.ics", false},
		{8, key.Key, "/users/7/all.ics", false},
		{7, "guess", "/users/7/all.ics", false},
		{7, "", "/users/7/all.ics", false},
	}
	for _, tt := range tests {
		ok, err := store.CheckAccessKey(ctx, tt.userID, tt.key, tt.path)
		if err != nil {
			t.Fatal(err)
		}
		if ok != tt.ok {
			t.Errorf("CheckAccessKey(%d, %q, %q) = %v, expected %v", tt.userID, tt.key, tt.path, ok, tt.ok)
		}
	}
}

func TestLinkedCalendar(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	linked := model.LinkedCalendar{UserID: 7, Alias: "personal", URL: "https://example.com/cal.ics"}
	if err := linked.Upsert(ctx, store.DB()); err != nil {
		t.Fatal(err)
	}
	got, err := store.LinkedCalendar(ctx, 7, "personal")
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != linked.URL {
		t.Errorf("unexpected url %q", got.URL)
	}
	if _, err := store.LinkedCalendar(ctx, 8, "personal"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}
}

func TestTouchGroupAndSources(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	groups := seedGroups(t, store.DB(), "a", "b")

	withSource := groups[1]
	withSource.SourceURL = "https://example.com/b.ics"
	if err := withSource.Upsert(ctx, store.DB()); err != nil {
		t.Fatal(err)
	}

	sources, err := store.GroupsWithSource(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 || sources[0].Alias != "b" {
		t.Errorf("expected [b], got %+v", sources)
	}

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.TouchGroup(ctx, groups[0].ID, at); err != nil {
		t.Fatal(err)
	}
	got, err := store.GroupByID(ctx, groups[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.UpdatedAt.Equal(at) {
		t.Errorf("expected updated_at %s, got %s", at, got.UpdatedAt)
	}
	if err := store.TouchGroup(ctx, 999, at); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Ping(ctx); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}
