package telemetry

import (
	"testing"
	"time"

	"github.com/rollcallhq/rollcall/internal/identity"
)

var testIdentity = identity.PlatformIdentity{ID: "Q123", Username: "quinn"}

func presence(id identity.PlatformIdentity, from, to string, at time.Time) PresenceChange {
	return PresenceChange{
		Identity:        id,
		FromChannelID:   from,
		FromChannelName: from,
		ToChannelID:     to,
		ToChannelName:   to,
		At:              at,
	}
}

func TestTrackerJoinLeave(t *testing.T) {
	tr := NewTracker()
	t0 := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	if closed := tr.Apply(presence(testIdentity, "", "general", t0)); len(closed) != 0 {
		t.Fatalf("join closed %d records, want 0", len(closed))
	}
	if tr.OpenSessions() != 1 {
		t.Fatalf("expected 1 open session, got %d", tr.OpenSessions())
	}

	closed := tr.Apply(presence(testIdentity, "general", "", t0.Add(90*time.Second)))
	if len(closed) != 1 {
		t.Fatalf("leave closed %d records, want 1", len(closed))
	}
	rec := closed[0]
	if rec.DurationSeconds != 90 {
		t.Fatalf("duration = %d, want 90", rec.DurationSeconds)
	}
	if rec.ChannelID != "general" {
		t.Fatalf("channel = %q, want general", rec.ChannelID)
	}
	if !rec.LeftAt.After(rec.JoinedAt) {
		t.Fatalf("left_at %v not after joined_at %v", rec.LeftAt, rec.JoinedAt)
	}
	if rec.Date != "2026-03-14" {
		t.Fatalf("date = %q, want 2026-03-14", rec.Date)
	}
	if tr.OpenSessions() != 0 {
		t.Fatalf("expected 0 open sessions, got %d", tr.OpenSessions())
	}
}

func TestTrackerMoveClosesAndReopens(t *testing.T) {
	tr := NewTracker()
	t0 := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	tr.Apply(presence(testIdentity, "", "General", t0))
	closed := tr.Apply(presence(testIdentity, "General", "Lounge", t0.Add(300*time.Second)))

	if len(closed) != 1 {
		t.Fatalf("move closed %d records, want 1", len(closed))
	}
	if closed[0].ChannelID != "General" || closed[0].DurationSeconds != 300 {
		t.Fatalf("unexpected record %+v", closed[0])
	}

	session, ok := tr.Session("Q123")
	if !ok {
		t.Fatal("expected an open session after move")
	}
	if session.ChannelID != "Lounge" {
		t.Fatalf("open session channel = %q, want Lounge", session.ChannelID)
	}
	if !session.JoinedAt.Equal(closed[0].LeftAt) {
		t.Fatalf("new session joined_at %v should equal closed left_at %v", session.JoinedAt, closed[0].LeftAt)
	}

	closed = tr.Apply(presence(testIdentity, "Lounge", "", t0.Add(500*time.Second)))
	if len(closed) != 1 || closed[0].ChannelID != "Lounge" || closed[0].DurationSeconds != 200 {
		t.Fatalf("unexpected final record %+v", closed)
	}
}

func TestTrackerDurationsSumAndNeverOverlap(t *testing.T) {
	tr := NewTracker()
	t0 := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	steps := []struct {
		to    string
		after time.Duration
	}{
		{"a", 0},
		{"b", 40 * time.Second},
		{"c", 100 * time.Second},
		{"", 160 * time.Second},
		{"a", 200 * time.Second},
		{"", 260 * time.Second},
	}

	var records []VoiceRecord
	from := ""
	for _, step := range steps {
		records = append(records, tr.Apply(presence(testIdentity, from, step.to, t0.Add(step.after)))...)
		from = step.to
	}

	var total int64
	for _, rec := range records {
		total += rec.DurationSeconds
	}
	// 160s connected in the first stretch, 60s in the second.
	if total != 220 {
		t.Fatalf("total duration = %d, want 220", total)
	}

	for i := 1; i < len(records); i++ {
		if records[i].JoinedAt.Before(records[i-1].LeftAt) {
			t.Fatalf("records overlap: %v joined before %v left", records[i].JoinedAt, records[i-1].LeftAt)
		}
	}
}

func TestTrackerLeaveWithoutSession(t *testing.T) {
	tr := NewTracker()
	at := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	if closed := tr.Apply(presence(testIdentity, "general", "", at)); len(closed) != 0 {
		t.Fatalf("leave without session produced %d records", len(closed))
	}
}

func TestTrackerSameChannelUpdateIsNoop(t *testing.T) {
	tr := NewTracker()
	t0 := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	tr.Apply(presence(testIdentity, "", "general", t0))
	if closed := tr.Apply(presence(testIdentity, "general", "general", t0.Add(10*time.Second))); len(closed) != 0 {
		t.Fatal("same-channel update closed a session")
	}

	session, _ := tr.Session("Q123")
	if !session.JoinedAt.Equal(t0) {
		t.Fatalf("joined_at moved to %v, want %v", session.JoinedAt, t0)
	}
}

func TestTrackerDropsNonPositiveInterval(t *testing.T) {
	tr := NewTracker()
	t0 := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	tr.Apply(presence(testIdentity, "", "general", t0))
	if closed := tr.Apply(presence(testIdentity, "general", "", t0)); len(closed) != 0 {
		t.Fatalf("zero-length interval produced a record: %+v", closed)
	}
	if tr.OpenSessions() != 0 {
		t.Fatal("session should be discarded even when no record is written")
	}
}
