//go:build ignore
// +build ignore

package directory_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcallhq/rollcall/internal/directory"
)

func setupIntegrationTest(t *testing.T) (*directory.Service, func()) {
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

	return directory.NewService(nil, pool), pool.Close
}

func TestLinkIdentityCompareAndSet(t *testing.T) {
	svc, teardown := setupIntegrationTest(t)
	defer teardown()

	ctx := context.Background()
	member, err := svc.Create(ctx, directory.CreateRequest{Handle: "itest-" + uuid.NewString()})
	if err != nil {
		t.Fatal(err)
	}
	identityID := "itest-" + uuid.NewString()

	// Concurrent runs race for the same member; exactly one write wins.
	const runs = 10
	var wg sync.WaitGroup
	applied := make(chan directory.LinkStatus, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := svc.LinkIdentity(ctx, member.ID, identityID)
			if err != nil {
				t.Error(err)
				return
			}
			applied <- status
		}()
	}
	wg.Wait()
	close(applied)

	wins := 0
	for status := range applied {
		if status == directory.LinkApplied {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("%d writes won the compare-and-set, want exactly 1", wins)
	}

	got, err := svc.Get(ctx, member.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PlatformIdentityID != identityID {
		t.Fatalf("linked identity = %q, want %q", got.PlatformIdentityID, identityID)
	}
}

func TestLinkIdentityNotFound(t *testing.T) {
	svc, teardown := setupIntegrationTest(t)
	defer teardown()

	status, err := svc.LinkIdentity(context.Background(), uuid.NewString(), "itest-identity")
	if err != nil {
		t.Fatal(err)
	}
	if status != directory.LinkNotFound {
		t.Fatalf("status = %q, want not_found", status)
	}
}
