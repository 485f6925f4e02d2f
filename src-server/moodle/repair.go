package moodle

import (
	"fmt"
	"html"
	"strings"
	"time"

	"calfeed/src-server/ical"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	CourseColor = "steelblue"
	QuizColor   = "darkorange"

	DefaultName = "Moodle"
)

type markerKind int

const (
	deadline markerKind = iota
	opens
	closes
)

// Last word of a marker summary that Moodle appends to quiz (and assignment)
// open/close events.
var suffixes = []struct {
	word string
	lang language.Tag
	kind markerKind
}{
	{"opens", language.English, opens},
	{"closes", language.English, closes},
	{"открывается", language.Russian, opens},
	{"закрывается", language.Russian, closes},
}

type quiz struct {
	name   string
	course string
	open   time.Time
	close  time.Time
}

// Rewrite a raw Moodle export into something calendar clients show well.
//
// Zero-duration "opens"/"closes" halves are paired by course and name into a
// single quiz event: timed when both ends are on the same day, otherwise an
// all-day event on the closing date. Other markers, including a "closes"
// without its "opens", become all-day deadlines. Attendance sessions are
// dropped. Every event is tagged with its course.
func Repair(doc *ical.Document, tz ical.Timezone) *ical.Document {
	name := doc.Name()
	if name == "" {
		name = DefaultName
	}
	loc := tz.Location()

	var (
		normal    []ical.Event
		deadlines []ical.Event
		quizzes   []*quiz
		byKey     = make(map[string]*quiz)
		orphans   []ical.Event // closes seen before any matching opens
	)

	for _, e := range doc.Events() {
		course := courseOf(e)

		if !e.IsMarker() {
			if strings.Contains(e.Summary, "Attendance") {
				continue
			}
			normal = append(normal, normalize(e, course, loc))
			continue
		}

		quizName, kind := classify(e.Summary)
		if kind == deadline {
			deadlines = append(deadlines, toDeadline(e, course, loc))
			continue
		}

		key := course + "\x1f" + quizName
		q, ok := byKey[key]
		switch {
		case kind == opens && !ok:
			q = &quiz{name: quizName, course: course}
			byKey[key] = q
			quizzes = append(quizzes, q)
			q.open = e.Start.In(loc)
		case kind == opens:
			q.open = e.Start.In(loc)
		case ok:
			q.close = e.Start.In(loc)
		default:
			orphans = append(orphans, e)
		}
	}

	// a close whose open arrived later in the export
	for _, e := range orphans {
		quizName, _ := classify(e.Summary)
		course := courseOf(e)
		if q, ok := byKey[course+"\x1f"+quizName]; ok && q.close.IsZero() {
			q.close = e.Start.In(loc)
			continue
		}
		deadlines = append(deadlines, toDeadline(e, course, loc))
	}

	out := ical.NewDocument(name, tz, ical.WithDescription(doc.Description()))
	out.AddEvents(normal...)
	out.AddEvents(deadlines...)
	for _, q := range quizzes {
		out.AddEvent(q.event(loc))
	}
	return out
}

// Quiz name with the opens/closes word removed, and which of the two it was.
func classify(summary string) (string, markerKind) {
	words := strings.Fields(summary)
	if len(words) < 2 {
		return summary, deadline
	}
	last := words[len(words)-1]
	for _, s := range suffixes {
		if cases.Lower(s.lang).String(last) == s.word {
			return strings.Join(words[:len(words)-1], " "), s.kind
		}
	}
	return summary, deadline
}

// Moodle puts the course name into CATEGORIES, HTML-escaped.
func courseOf(e ical.Event) string {
	return strings.TrimSpace(html.UnescapeString(e.Categories))
}

func withCourse(summary, course string) string {
	if course == "" || strings.Contains(summary, course) {
		return summary
	}
	return fmt.Sprintf("%s (%s)", summary, course)
}

func describe(description string, lines ...string) string {
	var b strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if description = strings.TrimSpace(description); description != "" {
		b.WriteByte('\n')
		b.WriteString(description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func courseLine(course string) string {
	if course == "" {
		return ""
	}
	return "Course: " + course
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func normalize(e ical.Event, course string, loc *time.Location) ical.Event {
	e.Summary = withCourse(e.Summary, course)
	e.Description = describe(e.Description, courseLine(course))
	e.Categories = course
	if e.AllDay {
		e.Start = midnight(e.Start, loc)
		if !e.End.IsZero() {
			e.End = midnight(e.End, loc)
		}
	} else {
		e.Start = e.Start.In(loc)
		if !e.End.IsZero() {
			e.End = e.End.In(loc)
		}
	}
	e.Color = CourseColor
	return e
}

func toDeadline(e ical.Event, course string, loc *time.Location) ical.Event {
	due := e.Start.In(loc)
	return ical.Event{
		UID:         e.UID,
		Summary:     withCourse(e.Summary, course),
		Description: describe(e.Description, courseLine(course), "Due: "+due.Format("15:04")),
		Location:    e.Location,
		Start:       midnight(due, loc),
		AllDay:      true,
		Categories:  course,
		Color:       CourseColor,
		Extra:       e.Extra,
	}
}

func (q *quiz) event(loc *time.Location) ical.Event {
	e := ical.Event{
		UID:        ical.StableUID("moodle-quiz-", q.course, q.name),
		Summary:    withCourse(q.name, q.course),
		Categories: q.course,
		Color:      QuizColor,
	}

	switch {
	case q.close.IsZero() || q.close.Before(q.open):
		e.Start = q.open
		e.End = q.open
		e.Description = describe("", courseLine(q.course), "Opens: "+q.open.Format("02.01 15:04"))
	case midnight(q.open, loc).Equal(midnight(q.close, loc)):
		e.Start = q.open
		e.End = q.close
		e.Description = describe("", courseLine(q.course), "Opens: "+q.open.Format("15:04"), "Closes: "+q.close.Format("15:04"))
	default:
		e.Start = midnight(q.close, loc)
		e.AllDay = true
		e.Description = describe("", courseLine(q.course), "Opens: "+q.open.Format("02.01 15:04"), "Closes: "+q.close.Format("02.01 15:04"))
	}
	return e
}
