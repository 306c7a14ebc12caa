package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Claimer races to consume payment proofs drawn from a small shared pool of
// transaction ids. The tx_id uniqueness constraint must let exactly one
// insert through per id, no matter how many claimers collide.
func Claimer(ctx context.Context, pool *pgxpool.Pool, txIDs []string, recipient string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		txID := txIDs[rand.Intn(len(txIDs))]
		_, err := pool.Exec(ctx, `
INSERT INTO payment_claims (id, tx_id, payer, recipient, asset, amount, purpose)
VALUES ($1, $2, $3, $4, 'USDC', 100000, 'stress')
ON CONFLICT (tx_id) DO NOTHING`,
			uuid.NewString(), txID, randomAddress(), recipient)
		if err != nil && !transient(err) {
			return fmt.Errorf("claimer insert: %w", err)
		}
		time.Sleep(time.Duration(5+rand.Intn(15)) * time.Millisecond)
	}
}

// Buyer races the purchase path against other buyers: reserve an available
// artwork, claim a payment proof, then either complete the sale or abandon
// the reservation. Only the buyer whose claim insert lands may complete.
func Buyer(ctx context.Context, pool *pgxpool.Pool, artworkIDs, txIDs []string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		artworkID := artworkIDs[rand.Intn(len(artworkIDs))]
		txID := txIDs[rand.Intn(len(txIDs))]
		if err := attemptBuy(ctx, pool, artworkID, txID); err != nil && !transient(err) {
			return fmt.Errorf("buyer: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

func attemptBuy(ctx context.Context, pool *pgxpool.Pool, artworkID, txID string) error {
	buyer := randomAddress()

	tag, err := pool.Exec(ctx, `
UPDATE artworks SET status = 'pending', updated_at = now()
WHERE id = $1 AND status = 'available'`, artworkID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil // lost the reservation race
	}

	release := func() {
		_, _ = pool.Exec(ctx, `
UPDATE artworks SET status = 'available', updated_at = now()
WHERE id = $1 AND status = 'pending'`, artworkID)
	}

	claimID := uuid.NewString()
	var gotID string
	err = pool.QueryRow(ctx, `
INSERT INTO payment_claims (id, tx_id, payer, recipient, asset, amount, purpose)
VALUES ($1, $2, $3, $4, 'USDC', 100000, 'artwork-purchase')
ON CONFLICT (tx_id) DO NOTHING
RETURNING id`, claimID, txID, buyer, randomAddress()).Scan(&gotID)
	if errors.Is(err, pgx.ErrNoRows) {
		// proof already consumed: abandon the purchase
		release()
		return nil
	}
	if err != nil {
		release()
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		release()
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `
INSERT INTO purchases (artwork_id, buyer_address, claim_id, payment_tx_id, amount_units)
VALUES ($1, $2, $3, $4, 100000)`, artworkID, buyer, gotID, txID); err != nil {
		release()
		return err
	}
	if _, err := tx.Exec(ctx, `
UPDATE artworks SET status = 'sold', updated_at = now()
WHERE id = $1 AND status = 'pending'`, artworkID); err != nil {
		release()
		return err
	}
	return tx.Commit(ctx)
}

// Submitter inserts artworks under a shared agent, occasionally retrying an
// already-taken piece id to exercise the uniqueness path.
func Submitter(ctx context.Context, pool *pgxpool.Pool, agentID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		pieceID := fmt.Sprintf("stress-%03d", rand.Intn(200))
		_, err := pool.Exec(ctx, `
INSERT INTO artworks (piece_id, agent_id, title, price_units, sale_address, page_path)
VALUES ($1, $2, $3, 100000, $4, $5)`,
			pieceID, agentID, "Stress Piece", randomAddress(), "art/"+pieceID+".html")
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				// expected under contention
			} else if !transient(err) {
				return fmt.Errorf("submitter insert: %w", err)
			}
		}
		time.Sleep(time.Duration(30+rand.Intn(60)) * time.Millisecond)
	}
}

// Auditor continuously reads the claim and purchase projections the gallery
// index is rendered from, keeping read traffic in the mix.
func Auditor(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, _ = pool.Exec(ctx, `SELECT a.piece_id, a.status, p.payment_tx_id
FROM artworks a LEFT JOIN purchases p ON p.artwork_id = a.id`)
		_, _ = pool.Exec(ctx, `SELECT tx_id, amount FROM payment_claims ORDER BY created_at DESC LIMIT 50`)
		time.Sleep(time.Duration(40+rand.Intn(80)) * time.Millisecond)
	}
}

func randomAddress() string {
	const hex = "0123456789abcdef"
	b := make([]byte, 40)
	for i := range b {
		b[i] = hex[rand.Intn(len(hex))]
	}
	return "0x" + string(b)
}

// transient reports whether the error is expected noise from the chaos
// actor terminating backends mid-statement.
func transient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "57P01", "08006", "08003": // admin shutdown, connection failure
			return true
		}
	}
	return errors.Is(err, context.Canceled)
}
