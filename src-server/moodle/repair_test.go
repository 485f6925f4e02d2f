package moodle_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"calfeed/src-server/fetch"
	"calfeed/src-server/ical"
	"calfeed/src-server/moodle"
)

type marker struct {
	uid, summary, course, at string // at is a UTC DATE-TIME
}

type session struct {
	uid, summary, course, start, end string
}

func export(markers []marker, sessions []session) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Moodle Pty Ltd//NONSGML Moodle Version 2023100900//EN",
	}
	for _, m := range markers {
		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+m.uid,
			"SUMMARY:"+m.summary,
			"DTSTAMP:20240220T120000Z",
			"DTSTART:"+m.at,
			"DTEND:"+m.at,
			"CATEGORIES:"+m.course,
			"END:VEVENT",
		)
	}
	for _, s := range sessions {
		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+s.uid,
			"SUMMARY:"+s.summary,
			"DTSTAMP:20240220T120000Z",
			"DTSTART:"+s.start,
			"DTEND:"+s.end,
			"CATEGORIES:"+s.course,
			"END:VEVENT",
		)
	}
	lines = append(lines, "END:VCALENDAR", "")
	return strings.Join(lines, "\r\n")
}

func repair(t *testing.T, raw string) []ical.Event {
	t.Helper()
	doc, err := ical.Parse(strings.NewReader(raw), ical.DefaultTimezone)
	if err != nil {
		t.Fatal(err)
	}
	out := moodle.Repair(doc, ical.DefaultTimezone)
	if err := ical.Validate(out); err != nil {
		t.Fatalf("repaired calendar is invalid: %v", err)
	}
	return out.Events()
}

func TestQuizAcrossDays(t *testing.T) {
	// 10:00 MSK on both days
	events := repair(t, export([]marker{
		{"1@moodle", "Quiz A opens", "Physics", "20240301T070000Z"},
		{"2@moodle", "Quiz A closes", "Physics", "20240303T070000Z"},
	}, nil))

	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(events))
	}
	e := events[0]
	if !e.AllDay {
		t.Error("expected an all-day event")
	}
	if got := e.Start.Format("2006-01-02"); got != "2024-03-03" {
		t.Errorf("expected the closing date 2024-03-03, got %s", got)
	}
	if !strings.Contains(e.Summary, "Quiz A") || !strings.Contains(e.Summary, "Physics") {
		t.Errorf("summary should carry the quiz and the course, got %q", e.Summary)
	}
	if strings.Contains(e.Summary, "opens") || strings.Contains(e.Summary, "closes") {
		t.Errorf("marker word left in summary %q", e.Summary)
	}
	if e.Color != moodle.QuizColor {
		t.Errorf("expected quiz color, got %q", e.Color)
	}
}

func TestQuizSameDay(t *testing.T) {
	events := repair(t, export([]marker{
		{"1@moodle", "Quiz B opens", "Physics", "20240301T070000Z"},
		{"2@moodle", "Quiz B closes", "Physics", "20240301T090000Z"},
	}, nil))

	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(events))
	}
	e := events[0]
	loc := ical.DefaultTimezone.Location()
	if e.AllDay {
		t.Error("same-day quiz should stay timed")
	}
	if !e.Start.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, loc)) || !e.End.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, loc)) {
		t.Errorf("unexpected range %s - %s", e.Start, e.End)
	}
}

func TestQuizOpenOnly(t *testing.T) {
	events := repair(t, export([]marker{
		{"1@moodle", "Quiz C opens", "Physics", "20240301T070000Z"},
	}, nil))

	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(events))
	}
	if e := events[0]; !e.IsMarker() || e.AllDay {
		t.Errorf("expected a timed marker at the opening, got %+v", e)
	}
}

func TestRussianSuffixes(t *testing.T) {
	events := repair(t, export([]marker{
		{"1@moodle", "Тест 3 Открывается", "Матанализ", "20240301T070000Z"},
		{"2@moodle", "Тест 3 закрывается", "Матанализ", "20240305T070000Z"},
	}, nil))

	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(events))
	}
	if events[0].Summary != "Тест 3 (Матанализ)" {
		t.Errorf("unexpected summary %q", events[0].Summary)
	}
}

func TestCloseBeforeOpenInExport(t *testing.T) {
	events := repair(t, export([]marker{
		{"2@moodle", "Quiz D closes", "Physics", "20240303T070000Z"},
		{"1@moodle", "Quiz D opens", "Physics", "20240301T070000Z"},
	}, nil))

	if len(events) != 1 || !events[0].AllDay {
		t.Fatalf("expected the halves to be paired, got %+v", events)
	}
}

func TestDeadlines(t *testing.T) {
	events := repair(t, export([]marker{
		{"1@moodle", "Lab report is due", "Chemistry &amp; Lab", "20240310T205900Z"},
		{"2@moodle", "Quiz E closes", "Physics", "20240311T070000Z"},
	}, nil))

	if len(events) != 2 {
		t.Fatalf("expected 2 deadlines, got %d", len(events))
	}
	due := events[0]
	if !due.AllDay || due.Start.Format("2006-01-02") != "2024-03-10" {
		t.Errorf("expected an all-day deadline on 2024-03-10, got %+v", due)
	}
	if due.Summary != "Lab report is due (Chemistry & Lab)" {
		t.Errorf("unexpected summary %q", due.Summary)
	}
	if !strings.Contains(due.Description, "Due: 23:59") {
		t.Errorf("due time missing from %q", due.Description)
	}
	if events[1].UID != "2@moodle" || events[1].Color != moodle.CourseColor {
		t.Errorf("unmatched close should become a deadline, got %+v", events[1])
	}
}

func TestSessions(t *testing.T) {
	events := repair(t, export(
		[]marker{{"q1@moodle", "Quiz F opens", "Physics", "20240301T070000Z"}},
		[]session{
			{"s1@moodle", "Attendance", "Physics", "20240301T060000Z", "20240301T073000Z"},
			{"s2@moodle", "Lecture 4", "Physics &quot;Advanced&quot;", "20240302T060000Z", "20240302T073000Z"},
			{"d1@moodle", "Essay", "History", "20240304T100000Z", "20240304T100000Z"},
		},
	))

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	// normal events first, then deadlines, then quizzes
	if events[0].UID != "s2@moodle" || events[1].UID != "d1@moodle" || events[2].Color != moodle.QuizColor {
		t.Errorf("unexpected order: %s, %s, %s", events[0].UID, events[1].UID, events[2].UID)
	}
	lecture := events[0]
	if lecture.Summary != `Lecture 4 (Physics "Advanced")` {
		t.Errorf("unexpected summary %q", lecture.Summary)
	}
	if _, offset := lecture.Start.Zone(); offset != 3*60*60 || lecture.Start.Hour() != 9 {
		t.Errorf("start not moved to the display timezone: %s", lecture.Start)
	}
	if lecture.Color != moodle.CourseColor {
		t.Errorf("expected course color, got %q", lecture.Color)
	}
}

func TestClient(t *testing.T) {
	raw := export([]marker{
		{"1@moodle", "Quiz A opens", "Physics", "20240301T070000Z"},
		{"2@moodle", "Quiz A closes", "Physics", "20240303T070000Z"},
	}, nil)

	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendar/export_execute.php" {
			http.NotFound(w, r)
			return
		}
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(raw))
	}))
	defer srv.Close()

	client := moodle.NewClient(srv.URL+"/", fetch.New(), ical.DefaultTimezone)
	doc, err := client.Calendar(context.Background(), 42, "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 1 {
		t.Errorf("expected the repaired calendar, got %d events", doc.Len())
	}
	for _, part := range []string{"userid=42", "authtoken=s3cret", "preset_what=all", "preset_time=recentupcoming"} {
		if !strings.Contains(query, part) {
			t.Errorf("query %q lacks %q", query, part)
		}
	}

	if _, err := client.Calendar(context.Background(), 42, ""); !errors.Is(err, moodle.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
