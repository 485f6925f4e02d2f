package aggregate

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"calfeed/src-server/ical"
)

const (
	DefaultParallelism = 4
	OriginProperty     = "X-WR-ORIGIN"
)

// One input of an aggregated feed. Load is called at most once, from its own
// goroutine, and must honour ctx.
type Source struct {
	Name  string // written to X-WR-ORIGIN, defaults to the document name
	Color string // applied to events that carry no COLOR of their own
	Load  func(ctx context.Context) (*ical.Document, error)
}

// Source around an already parsed document.
func FromDocument(doc *ical.Document) Source {
	return Source{
		Name: doc.Name(),
		Load: func(context.Context) (*ical.Document, error) {
			return doc, nil
		},
	}
}

type Aggregator struct {
	tz          ical.Timezone
	parallelism int
	onEvents    func(n int)
}

type Option func(*Aggregator)

// Upper bound on sources that are loading or loaded but not yet written.
func WithParallelism(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.parallelism = n
		}
	}
}

// Called once per aggregation with the number of events written.
func WithEventHook(hook func(n int)) Option {
	return func(a *Aggregator) {
		a.onEvents = hook
	}
}

func New(tz ical.Timezone, opts ...Option) *Aggregator {
	a := &Aggregator{
		tz:          tz,
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type loaded struct {
	doc *ical.Document
	err error
}

// Stream sources into w as a single calendar named name.
//
// Sources load concurrently, but output follows input order: events of
// source i, in their original order, all come before those of source i+1.
// Nothing is written until the first source has loaded, so a failure there
// leaves w untouched. A failure of a later source stops the stream without
// the closing END:VCALENDAR.
func (a *Aggregator) Aggregate(ctx context.Context, w io.Writer, name string, sources []Source) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// a slot is taken before a load starts and given back once its events
	// are written, which caps how many documents are held at once
	slots := make(chan struct{}, a.parallelism)
	results := make([]chan loaded, len(sources))
	for i := range results {
		results[i] = make(chan loaded, 1)
	}

	go func() {
		for i, src := range sources {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				return
			}
			go func(i int, src Source) {
				doc, err := src.Load(ctx)
				results[i] <- loaded{doc: doc, err: err}
			}(i, src)
		}
	}()

	count := 0
	defer func() {
		if a.onEvents != nil {
			a.onEvents(count)
		}
	}()

	header := ical.NewDocument(name, a.tz)
	if len(sources) == 0 {
		if err := header.Serialize(w); err != nil {
			return 0, fmt.Errorf("(*Aggregator).Aggregate: %w", err)
		}
		return 0, nil
	}

	for i, src := range sources {
		var res loaded
		select {
		case res = <-results[i]:
		case <-ctx.Done():
			return count, ctx.Err()
		}
		if res.err != nil {
			return count, fmt.Errorf("(*Aggregator).Aggregate: source %q: %w", src.Name, res.err)
		}

		if i == 0 {
			if err := header.SerializeWithoutTrailer(w); err != nil {
				return count, fmt.Errorf("(*Aggregator).Aggregate: %w", err)
			}
		}

		n, err := a.emit(ctx, w, src, res.doc)
		count += n
		if err != nil {
			return count, err
		}
		<-slots
	}

	if _, err := io.WriteString(w, ical.Trailer); err != nil {
		return count, fmt.Errorf("(*Aggregator).Aggregate: %w", err)
	}
	slog.Debug("aggregated feed", "name", name, "sources", len(sources), "events", count)
	return count, nil
}

func (a *Aggregator) emit(ctx context.Context, w io.Writer, src Source, doc *ical.Document) (int, error) {
	if doc == nil {
		return 0, nil
	}
	origin := src.Name
	if origin == "" {
		origin = doc.Name()
	}

	n := 0
	for _, e := range doc.Events() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		e.SetExtra(OriginProperty, origin)
		if e.Color == "" {
			e.Color = src.Color
		}
		if err := ical.SerializeEvent(w, e, a.tz); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
