//go:build ignore
// +build ignore

package telemetry_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcallhq/rollcall/internal/identity"
	"github.com/rollcallhq/rollcall/internal/telemetry"
)

func setupIntegrationTest(t *testing.T) (*telemetry.PGStore, func()) {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}

	return telemetry.NewPGStore(pool), pool.Close
}

func TestIncrementMessageCountIsAtomic(t *testing.T) {
	store, teardown := setupIntegrationTest(t)
	defer teardown()

	ctx := context.Background()
	identityID := "itest-" + uuid.NewString()
	at := time.Now().UTC()
	msg := telemetry.Message{
		Identity:  identity.PlatformIdentity{ID: identityID},
		ChannelID: "itest-channel",
		At:        at,
	}

	const burst = 20
	var wg sync.WaitGroup
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.IncrementMessageCount(ctx, msg); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	counts, err := store.ListMessageCounts(ctx, identityID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 1 {
		t.Fatalf("got %d counter rows, want 1", len(counts))
	}
	if counts[0].MessageCount != burst {
		t.Fatalf("count = %d, want %d", counts[0].MessageCount, burst)
	}
}

func TestInsertVoiceRecordRoundTrip(t *testing.T) {
	store, teardown := setupIntegrationTest(t)
	defer teardown()

	ctx := context.Background()
	identityID := "itest-" + uuid.NewString()
	joined := time.Now().UTC().Add(-time.Minute).Truncate(time.Millisecond)
	rec := telemetry.VoiceRecord{
		ID:              uuid.NewString(),
		IdentityID:      identityID,
		ChannelID:       "c1",
		ChannelName:     "General",
		JoinedAt:        joined,
		LeftAt:          joined.Add(45 * time.Second),
		DurationSeconds: 45,
		Date:            telemetry.DateOf(joined.Add(45 * time.Second)),
	}
	if err := store.InsertVoiceRecord(ctx, rec); err != nil {
		t.Fatal(err)
	}

	items, err := store.ListVoiceByIdentity(ctx, identityID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d records, want 1", len(items))
	}
	if items[0].DurationSeconds != 45 || items[0].ChannelName != "General" {
		t.Fatalf("record = %+v", items[0])
	}
}
