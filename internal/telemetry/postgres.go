package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcallhq/rollcall/internal/db"
)

const defaultListLimit = 100

// PGStore is the PostgreSQL-backed telemetry store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a store on top of the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// InsertVoiceRecord appends one closed voice session. Records are immutable;
// there is no update path.
func (s *PGStore) InsertVoiceRecord(ctx context.Context, rec VoiceRecord) error {
	pgID, err := db.ParseUUID(rec.ID)
	if err != nil {
		return err
	}
	date, err := time.Parse("2006-01-02", rec.Date)
	if err != nil {
		return fmt.Errorf("invalid activity date %q: %w", rec.Date, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO voice_activity
			(id, identity_id, channel_id, channel_name, joined_at, left_at, duration_seconds, activity_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pgID,
		rec.IdentityID,
		rec.ChannelID,
		rec.ChannelName,
		db.Timestamptz(rec.JoinedAt),
		db.Timestamptz(rec.LeftAt),
		rec.DurationSeconds,
		pgtype.Date{Time: date, Valid: true},
	)
	return err
}

// IncrementMessageCount bumps the (identity, channel, date) counter by one in
// a single conditional write, creating the row on first message of the day.
func (s *PGStore) IncrementMessageCount(ctx context.Context, msg Message) error {
	date, err := time.Parse("2006-01-02", DateOf(msg.At))
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO text_activity
			(identity_id, channel_id, channel_name, activity_date, message_count, last_message_at)
		VALUES ($1, $2, $3, $4, 1, $5)
		ON CONFLICT (identity_id, channel_id, activity_date) DO UPDATE SET
			message_count   = text_activity.message_count + 1,
			last_message_at = EXCLUDED.last_message_at,
			channel_name    = EXCLUDED.channel_name`,
		msg.Identity.ID,
		msg.ChannelID,
		msg.ChannelName,
		pgtype.Date{Time: date, Valid: true},
		db.Timestamptz(msg.At),
	)
	return err
}

// ListVoiceByIdentity returns the most recent closed voice records for an identity.
func (s *PGStore) ListVoiceByIdentity(ctx context.Context, identityID string, limit int) ([]VoiceRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, identity_id, channel_id, channel_name, joined_at, left_at, duration_seconds, activity_date
		FROM voice_activity
		WHERE identity_id = $1
		ORDER BY joined_at DESC
		LIMIT $2`,
		identityID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []VoiceRecord
	for rows.Next() {
		var (
			rec      VoiceRecord
			pgID     pgtype.UUID
			joined   pgtype.Timestamptz
			left     pgtype.Timestamptz
			actDate  pgtype.Date
		)
		if err := rows.Scan(&pgID, &rec.IdentityID, &rec.ChannelID, &rec.ChannelName, &joined, &left, &rec.DurationSeconds, &actDate); err != nil {
			return nil, err
		}
		rec.ID = uuidString(pgID)
		rec.JoinedAt = db.TimeFromPg(joined)
		rec.LeftAt = db.TimeFromPg(left)
		if actDate.Valid {
			rec.Date = actDate.Time.Format("2006-01-02")
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// ListMessageCounts returns the most recent daily message counters for an identity.
func (s *PGStore) ListMessageCounts(ctx context.Context, identityID string, limit int) ([]MessageCount, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT identity_id, channel_id, channel_name, activity_date, message_count, last_message_at
		FROM text_activity
		WHERE identity_id = $1
		ORDER BY activity_date DESC, channel_id
		LIMIT $2`,
		identityID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MessageCount
	for rows.Next() {
		var (
			mc      MessageCount
			actDate pgtype.Date
			lastAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&mc.IdentityID, &mc.ChannelID, &mc.ChannelName, &actDate, &mc.MessageCount, &lastAt); err != nil {
			return nil, err
		}
		if actDate.Valid {
			mc.Date = actDate.Time.Format("2006-01-02")
		}
		mc.LastMessageAt = db.TimeFromPg(lastAt)
		items = append(items, mc)
	}
	return items, rows.Err()
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	value, err := id.Value()
	if err != nil {
		return ""
	}
	str, _ := value.(string)
	return str
}
