package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rollcallhq/rollcall/internal/logger"
	"github.com/rollcallhq/rollcall/internal/telemetry"
)

type stubStore struct {
	voice  []telemetry.VoiceRecord
	counts []telemetry.MessageCount
}

func (s *stubStore) InsertVoiceRecord(context.Context, telemetry.VoiceRecord) error { return nil }
func (s *stubStore) IncrementMessageCount(context.Context, telemetry.Message) error { return nil }

func (s *stubStore) ListVoiceByIdentity(_ context.Context, identityID string, _ int) ([]telemetry.VoiceRecord, error) {
	return s.voice, nil
}

func (s *stubStore) ListMessageCounts(_ context.Context, identityID string, _ int) ([]telemetry.MessageCount, error) {
	return s.counts, nil
}

func TestActivityHandlerListVoice(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	store := &stubStore{voice: []telemetry.VoiceRecord{{
		ID:              "rec-1",
		IdentityID:      "u1",
		ChannelID:       "c1",
		ChannelName:     "General",
		JoinedAt:        now,
		LeftAt:          now.Add(90 * time.Second),
		DurationSeconds: 90,
		Date:            "2026-03-14",
	}}}

	e := echo.New()
	NewActivityHandler(logger.L, store).Register(e)

	req := httptest.NewRequest(http.MethodGet, "/api/activity/voice/u1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var items []telemetry.VoiceRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].DurationSeconds != 90 {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestActivityHandlerListMessagesEmpty(t *testing.T) {
	e := echo.New()
	NewActivityHandler(logger.L, &stubStore{}).Register(e)

	req := httptest.NewRequest(http.MethodGet, "/api/activity/messages/u1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("body = %q, want empty JSON array", body)
	}
}
