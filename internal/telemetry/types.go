package telemetry

import (
	"time"

	"github.com/rollcallhq/rollcall/internal/identity"
)

// PresenceChange is a voice channel presence transition for one identity.
// Empty From/To channel IDs mean "not connected" on that side.
type PresenceChange struct {
	Identity        identity.PlatformIdentity
	FromChannelID   string
	FromChannelName string
	ToChannelID     string
	ToChannelName   string
	At              time.Time
}

// Message is a single text message sent by an identity in a channel.
type Message struct {
	Identity    identity.PlatformIdentity
	ChannelID   string
	ChannelName string
	At          time.Time
}

// VoiceSession is the in-memory state of an identity currently connected to a
// voice channel. It is never persisted; only closed sessions become records.
type VoiceSession struct {
	IdentityID  string
	ChannelID   string
	ChannelName string
	JoinedAt    time.Time
}

// VoiceRecord is one closed voice session. Immutable once written.
type VoiceRecord struct {
	ID              string    `json:"id"`
	IdentityID      string    `json:"identity_id"`
	ChannelID       string    `json:"channel_id"`
	ChannelName     string    `json:"channel_name,omitempty"`
	JoinedAt        time.Time `json:"joined_at"`
	LeftAt          time.Time `json:"left_at"`
	DurationSeconds int64     `json:"duration_seconds"`
	Date            string    `json:"date"`
}

// MessageCount is the per-day, per-channel message counter for one identity.
type MessageCount struct {
	IdentityID    string    `json:"identity_id"`
	ChannelID     string    `json:"channel_id"`
	ChannelName   string    `json:"channel_name,omitempty"`
	Date          string    `json:"date"`
	MessageCount  int64     `json:"message_count"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// DateOf formats t as the UTC calendar date used to bucket activity.
func DateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
