package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/rollcallhq/rollcall/internal/db"
)

// Store persists closed voice records and daily message counters. The counter
// increment must be a single conditional write at the storage layer; callers
// never read-modify-write it.
type Store interface {
	InsertVoiceRecord(ctx context.Context, rec VoiceRecord) error
	IncrementMessageCount(ctx context.Context, msg Message) error
	ListVoiceByIdentity(ctx context.Context, identityID string, limit int) ([]VoiceRecord, error)
	ListMessageCounts(ctx context.Context, identityID string, limit int) ([]MessageCount, error)
}

const writeTimeout = 10 * time.Second

// Service is the continuously running telemetry core: it turns presence
// changes into closed voice records and message events into daily counters.
// Events for one identity are handled strictly in arrival order; events for
// different identities run concurrently.
type Service struct {
	store      Store
	tracker    *Tracker
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewService creates the telemetry service.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:      store,
		tracker:    NewTracker(),
		dispatcher: NewDispatcher(),
		logger:     log.With(slog.String("service", "telemetry")),
	}
}

// HandlePresence accepts a voice presence transition. Non-human identities
// never reach the tracker and never produce records.
func (s *Service) HandlePresence(ev PresenceChange) {
	if ev.Identity.IsBot || ev.Identity.ID == "" {
		return
	}
	if !s.dispatcher.Enqueue(ev.Identity.ID, func() { s.processPresence(ev) }) {
		s.logger.Warn("presence event dropped after shutdown", slog.String("identity_id", ev.Identity.ID))
	}
}

// HandleMessage accepts a text message event. Non-human senders are ignored.
func (s *Service) HandleMessage(ev Message) {
	if ev.Identity.IsBot || ev.Identity.ID == "" {
		return
	}
	if !s.dispatcher.Enqueue(ev.Identity.ID, func() { s.processMessage(ev) }) {
		s.logger.Warn("message event dropped after shutdown", slog.String("identity_id", ev.Identity.ID))
	}
}

// Tracker exposes the session tracker for observability.
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// Close drains all queued events and stops accepting new ones. Open voice
// sessions are discarded without writing records.
func (s *Service) Close() {
	s.dispatcher.Close()
	if n := s.tracker.OpenSessions(); n > 0 {
		s.logger.Info("discarding open voice sessions on shutdown", slog.Int("sessions", n))
	}
}

func (s *Service) processPresence(ev PresenceChange) {
	for _, rec := range s.tracker.Apply(ev) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := db.Retry(ctx, func(ctx context.Context) error {
			return s.store.InsertVoiceRecord(ctx, rec)
		})
		cancel()
		if err != nil {
			// The record is dropped, not requeued: blocking here would stall
			// every later event for this identity.
			s.logger.Error("persist voice record failed",
				slog.String("identity_id", rec.IdentityID),
				slog.String("channel_id", rec.ChannelID),
				slog.Any("error", err),
			)
			continue
		}
		s.logger.Debug("voice session closed",
			slog.String("identity_id", rec.IdentityID),
			slog.String("channel", rec.ChannelName),
			slog.Int64("duration_seconds", rec.DurationSeconds),
		)
	}
}

func (s *Service) processMessage(ev Message) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	err := db.Retry(ctx, func(ctx context.Context) error {
		return s.store.IncrementMessageCount(ctx, ev)
	})
	if err != nil {
		s.logger.Error("increment message count failed",
			slog.String("identity_id", ev.Identity.ID),
			slog.String("channel_id", ev.ChannelID),
			slog.Any("error", err),
		)
	}
}
