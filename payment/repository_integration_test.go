package payment

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// TestClaimRepository_Integration connects to a real PostgreSQL via
// DATABASE_URL and verifies the insert-if-absent semantics the whole claim
// design rests on.
func TestClaimRepository_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	var exists bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'payment_claims')`).Scan(&exists); err != nil || !exists {
		t.Skip("payment_claims table missing; apply migrations first")
	}

	repo := NewClaimRepository(pool)
	txID := fmt.Sprintf("0x%064x", time.Now().UnixNano())

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		_ = repo.DeleteByTxID(ctx2, txID)
	})

	base := Claim{
		ID:        uuid.NewString(),
		TxID:      txID,
		Payer:     testPayer,
		Recipient: testRecipient,
		Asset:     AssetUSDC,
		Amount:    100_000,
		Purpose:   "purchase",
		Context:   map[string]any{"piece_id": "genesis-001"},
	}

	created, inserted, err := repo.Insert(ctx, base)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatalf("first insert reported conflict")
	}
	if created.CreatedAt.IsZero() {
		t.Errorf("created_at not returned")
	}

	dup := base
	dup.ID = uuid.NewString()
	if _, inserted, err := repo.Insert(ctx, dup); err != nil || inserted {
		t.Fatalf("duplicate insert: inserted=%v err=%v", inserted, err)
	}

	got, err := repo.GetByTxID(ctx, txID)
	if err != nil {
		t.Fatalf("get by tx id: %v", err)
	}
	if got.ID != base.ID {
		t.Errorf("winning claim id = %s, want %s", got.ID, base.ID)
	}
	if got.Context["piece_id"] != "genesis-001" {
		t.Errorf("context round-trip: %v", got.Context)
	}

	// Uniqueness under concurrency: many racing inserts on a fresh tx id,
	// exactly one winner.
	raceTx := fmt.Sprintf("0x%064x", time.Now().UnixNano()+1)
	t.Cleanup(func() {
		_ = repo.DeleteByTxID(context.Background(), raceTx)
	})

	const racers = 12
	var winners int32
	g, gctx := errgroup.WithContext(ctx)
	results := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		g.Go(func() error {
			c := base
			c.ID = uuid.NewString()
			c.TxID = raceTx
			_, ok, err := repo.Insert(gctx, c)
			if err != nil {
				return err
			}
			results <- ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("racing inserts: %v", err)
	}
	close(results)
	for ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winning insert, got %d", winners)
	}
}
