package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker owns the in-memory map of open voice sessions. It is created at
// startup and torn down with the process; an open session that never sees a
// leave produces no record. That durability gap is intentional: no partial
// record is ever written for a session that did not close.
//
// Transitions for a single identity must be applied in arrival order. The
// dispatcher enforces that; the tracker's own lock only protects the shared
// map across identities.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*VoiceSession
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]*VoiceSession)}
}

// Apply consumes one presence change and returns the records it closed.
// A join opens a session, a leave closes it, and a move from channel A to B
// closes the A session and opens the B session at the same instant, with no
// window in which another event for the identity can observe half the move.
func (t *Tracker) Apply(ev PresenceChange) []VoiceRecord {
	id := ev.Identity.ID
	if id == "" {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.sessions[id]
	var closed []VoiceRecord

	switch {
	case current == nil && ev.ToChannelID == "":
		// Leave without a tracked session: the join predates this process.

	case current == nil:
		t.sessions[id] = &VoiceSession{
			IdentityID:  id,
			ChannelID:   ev.ToChannelID,
			ChannelName: ev.ToChannelName,
			JoinedAt:    ev.At,
		}

	case ev.ToChannelID == "":
		if rec, ok := closeSession(current, ev.At); ok {
			closed = append(closed, rec)
		}
		delete(t.sessions, id)

	case ev.ToChannelID == current.ChannelID:
		// Same channel: mute/deafen style updates, nothing to do.

	default:
		if rec, ok := closeSession(current, ev.At); ok {
			closed = append(closed, rec)
		}
		t.sessions[id] = &VoiceSession{
			IdentityID:  id,
			ChannelID:   ev.ToChannelID,
			ChannelName: ev.ToChannelName,
			JoinedAt:    ev.At,
		}
	}

	return closed
}

// OpenSessions returns the number of identities currently in a voice channel.
func (t *Tracker) OpenSessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Session returns a copy of the open session for an identity, if any.
func (t *Tracker) Session(identityID string) (VoiceSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[identityID]
	if !ok {
		return VoiceSession{}, false
	}
	return *s, true
}

func closeSession(s *VoiceSession, leftAt time.Time) (VoiceRecord, bool) {
	if !leftAt.After(s.JoinedAt) {
		// A record must always satisfy left_at > joined_at.
		return VoiceRecord{}, false
	}
	return VoiceRecord{
		ID:              uuid.NewString(),
		IdentityID:      s.IdentityID,
		ChannelID:       s.ChannelID,
		ChannelName:     s.ChannelName,
		JoinedAt:        s.JoinedAt,
		LeftAt:          leftAt,
		DurationSeconds: int64(leftAt.Sub(s.JoinedAt) / time.Second),
		Date:            DateOf(leftAt),
	}, true
}
