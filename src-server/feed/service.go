package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"calfeed/src-server/aggregate"
	"calfeed/src-server/feedcache"
	"calfeed/src-server/fetch"
	"calfeed/src-server/ical"
	"calfeed/src-server/mapper"
	"calfeed/src-server/model"
	"calfeed/src-server/moodle"
)

// What the feeds need to know about users and groups.
type Lookup interface {
	UserByID(ctx context.Context, id int64) (*model.User, error)
	GroupByID(ctx context.Context, id int64) (*model.EventGroup, error)
	GroupByAlias(ctx context.Context, alias string) (*model.EventGroup, error)
	FavoriteGroups(ctx context.Context, userID int64) ([]model.EventGroup, error)
	PredefinedGroups(ctx context.Context, userID int64) ([]model.EventGroup, error)
	GroupTags(ctx context.Context, groupID int64) ([]model.Tag, error)
	LinkedCalendar(ctx context.Context, userID int64, alias string) (*model.LinkedCalendar, error)
	CheckAccessKey(ctx context.Context, userID int64, key, resourcePath string) (bool, error)
	TouchGroup(ctx context.Context, groupID int64, at time.Time) error
}

var _ Lookup = (*model.Store)(nil)

// Resolves a feed request to its sources and writes the calendar. Every
// lookup happens before the first byte is written, so a failed resolution
// never leaves a half-written response.
type Service struct {
	lookup     Lookup
	cache      *feedcache.Cache
	fetcher    *fetch.Fetcher
	aggregator *aggregate.Aggregator
	tz         ical.Timezone
	now        func() time.Time

	// nil when not configured
	moodle    *moodle.Client
	sport     mapper.Provider
	musicRoom mapper.Provider
	workshops mapper.Provider
}

type Option func(*Service)

func WithAggregator(a *aggregate.Aggregator) Option {
	return func(s *Service) {
		s.aggregator = a
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithMoodle(c *moodle.Client) Option {
	return func(s *Service) {
		s.moodle = c
	}
}

func WithSport(p mapper.Provider) Option {
	return func(s *Service) {
		s.sport = p
	}
}

func WithMusicRoom(p mapper.Provider) Option {
	return func(s *Service) {
		s.musicRoom = p
	}
}

func WithWorkshops(p mapper.Provider) Option {
	return func(s *Service) {
		s.workshops = p
	}
}

func New(lookup Lookup, cache *feedcache.Cache, fetcher *fetch.Fetcher, tz ical.Timezone, opts ...Option) *Service {
	s := &Service{
		lookup:  lookup,
		cache:   cache,
		fetcher: fetcher,
		tz:      tz,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.aggregator == nil {
		s.aggregator = aggregate.New(tz)
	}
	return s
}

// Map a lookup miss onto ErrNotFound, leave other failures alone.
func resolved(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// Check a presented access key against the key table. Keys are scoped to
// the exact resource path they were issued for.
func (s *Service) Authorize(ctx context.Context, userID int64, key, resourcePath string) error {
	ok, err := s.lookup.CheckAccessKey(ctx, userID, key, resourcePath)
	if err != nil {
		return fmt.Errorf("(*Service).Authorize: %w", err)
	}
	if !ok {
		return fmt.Errorf("(*Service).Authorize: user %d, %s: %w", userID, resourcePath, ErrAccessDenied)
	}
	return nil
}

func (s *Service) user(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.lookup.UserByID(ctx, userID)
	if err != nil {
		return nil, resolved(err)
	}
	return user, nil
}

// #region group feeds

func (s *Service) GroupByAlias(ctx context.Context, w io.Writer, alias string) error {
	group, err := s.lookup.GroupByAlias(ctx, alias)
	if err != nil {
		return resolved(err)
	}
	return s.writeGroup(w, group)
}

func (s *Service) GroupByID(ctx context.Context, w io.Writer, id int64) error {
	group, err := s.lookup.GroupByID(ctx, id)
	if err != nil {
		return resolved(err)
	}
	return s.writeGroup(w, group)
}

// Serve the group's published file as is.
func (s *Service) writeGroup(w io.Writer, group *model.EventGroup) error {
	if group.Path == "" {
		return fmt.Errorf("group %q: %w", group.Alias, ErrNoStaticSource)
	}
	data, err := s.cache.Read(group.Path)
	if err != nil {
		return fmt.Errorf("group %q: %w", group.Alias, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("group %q: %w", group.Alias, err)
	}
	return nil
}

// #endregion

// #region user feeds

// Favorites and predefined groups merged into one stream. A group listed
// twice contributes once, at its first position.
func (s *Service) UserAll(ctx context.Context, w io.Writer, userID int64) error {
	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	favorites, err := s.lookup.FavoriteGroups(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("(*Service).UserAll: %w", err)
	}
	predefined, err := s.lookup.PredefinedGroups(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("(*Service).UserAll: %w", err)
	}

	seen := make(map[int64]struct{})
	sources := make([]aggregate.Source, 0, len(favorites)+len(predefined))
	for _, group := range append(favorites, predefined...) {
		if _, ok := seen[group.ID]; ok {
			continue
		}
		seen[group.ID] = struct{}{}
		if group.Path == "" {
			slog.Debug("group without static file left out", "group", group.Alias)
			continue
		}
		src, err := s.groupSource(ctx, group)
		if err != nil {
			return fmt.Errorf("(*Service).UserAll: %w", err)
		}
		sources = append(sources, src)
	}

	if _, err := s.aggregator.Aggregate(ctx, w, "Schedule: "+user.Email, sources); err != nil {
		return fmt.Errorf("(*Service).UserAll: %w", err)
	}
	return nil
}

// Aggregation source reading a group's cached file. A group that was never
// published counts as empty.
func (s *Service) groupSource(ctx context.Context, group model.EventGroup) (aggregate.Source, error) {
	tags, err := s.lookup.GroupTags(ctx, group.ID)
	if err != nil {
		return aggregate.Source{}, err
	}
	seed := group.Alias
	if len(tags) > 0 {
		seed = tags[0].Alias
	}

	return aggregate.Source{
		Name:  group.Name,
		Color: ical.AssignColor(seed),
		Load: func(ctx context.Context) (*ical.Document, error) {
			data, err := s.cache.Read(group.Path)
			if errors.Is(err, feedcache.ErrNotFound) {
				slog.Warn("group calendar is not published yet", "group", group.Alias, "path", group.Path)
				return ical.NewDocument(group.Name, s.tz), nil
			}
			if err != nil {
				return nil, err
			}
			return ical.Parse(bytes.NewReader(data), s.tz)
		},
	}, nil
}

func (s *Service) UserMoodle(ctx context.Context, w io.Writer, userID int64) error {
	if s.moodle == nil {
		return fmt.Errorf("moodle: %w", ErrNotConfigured)
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasMoodle() {
		return fmt.Errorf("user %d: %w", user.ID, ErrMoodleNotConfigured)
	}
	doc, err := s.moodle.Calendar(ctx, user.MoodleUserID, user.MoodleAuthToken)
	if err != nil {
		return fmt.Errorf("(*Service).UserMoodle: %w", err)
	}
	return doc.Serialize(w)
}

func (s *Service) UserSport(ctx context.Context, w io.Writer, userID int64) error {
	return s.providerFeed(ctx, w, "sport", s.sport, userID)
}

func (s *Service) UserMusicRoom(ctx context.Context, w io.Writer, userID int64) error {
	return s.providerFeed(ctx, w, "music room", s.musicRoom, userID)
}

func (s *Service) UserWorkshops(ctx context.Context, w io.Writer, userID int64) error {
	return s.providerFeed(ctx, w, "workshops", s.workshops, userID)
}

func (s *Service) providerFeed(ctx context.Context, w io.Writer, name string, p mapper.Provider, userID int64) error {
	if p == nil {
		return fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	doc, err := mapper.Calendar(ctx, p, user.Email, s.tz)
	if err != nil {
		return err
	}
	return doc.Serialize(w)
}

// Pass a linked calendar through without parsing it. Size and time limits
// of the fetcher still apply.
func (s *Service) Linked(ctx context.Context, w io.Writer, userID int64, alias string) error {
	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	linked, err := s.lookup.LinkedCalendar(ctx, user.ID, alias)
	if err != nil {
		return resolved(err)
	}

	body, err := s.fetcher.FetchBytes(ctx, linked.URL, nil)
	if err != nil {
		return fmt.Errorf("(*Service).Linked: %w", err)
	}
	defer body.Close()

	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("(*Service).Linked: %w", err)
	}
	return nil
}

// #endregion
