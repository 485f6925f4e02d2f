package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"calfeed/src-server/feedcache"
	"calfeed/src-server/ical"
	"calfeed/src-server/model"
)

// Validate an uploaded calendar and store it as the group's static file.
func (s *Service) PublishGroup(ctx context.Context, groupID int64, r io.Reader) (feedcache.WriteResult, error) {
	group, err := s.lookup.GroupByID(ctx, groupID)
	if err != nil {
		return feedcache.Unchanged, resolved(err)
	}
	if group.Path == "" {
		return feedcache.Unchanged, fmt.Errorf("group %q: %w", group.Alias, ErrNoStaticSource)
	}

	doc, err := ical.Parse(r, s.tz)
	if err != nil {
		return feedcache.Unchanged, fmt.Errorf("(*Service).PublishGroup: %w", err)
	}
	return s.publish(ctx, group, doc)
}

// Re-publish a group from its upstream calendar.
func (s *Service) RefreshGroup(ctx context.Context, group model.EventGroup) (feedcache.WriteResult, error) {
	if group.SourceURL == "" || group.Path == "" {
		return feedcache.Unchanged, fmt.Errorf("group %q: %w", group.Alias, ErrNoStaticSource)
	}
	doc, err := s.fetcher.FetchCalendar(ctx, group.SourceURL, nil, s.tz)
	if err != nil {
		return feedcache.Unchanged, fmt.Errorf("(*Service).RefreshGroup: %w", err)
	}
	return s.publish(ctx, &group, doc)
}

// The stored file is rebuilt under the group's own name, so identical input
// always produces identical bytes and updated_at only moves on real changes.
func (s *Service) publish(ctx context.Context, group *model.EventGroup, doc *ical.Document) (feedcache.WriteResult, error) {
	if err := ical.Validate(doc); err != nil {
		return feedcache.Unchanged, fmt.Errorf("group %q: %w", group.Alias, err)
	}

	description := group.Description
	if description == "" {
		description = group.Name
	}
	canonical := ical.NewDocument(group.Name, s.tz, ical.WithDescription(description))
	canonical.AddEvents(doc.Events()...)
	content, err := canonical.Bytes()
	if err != nil {
		return feedcache.Unchanged, fmt.Errorf("group %q: %w", group.Alias, err)
	}

	result, err := s.cache.WriteIfChanged(group.Path, content)
	if err != nil {
		return feedcache.Unchanged, fmt.Errorf("group %q: %w", group.Alias, err)
	}
	if result == feedcache.Written {
		if err := s.lookup.TouchGroup(ctx, group.ID, s.now()); err != nil {
			return result, fmt.Errorf("group %q: %w", group.Alias, err)
		}
	}
	slog.Info("group published", "group", group.Alias, "events", canonical.Len(), "result", result.String())
	return result, nil
}
