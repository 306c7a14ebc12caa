package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotAvailable signals the artwork is reserved by another purchase
	// or already sold. Terminal; retrying cannot help.
	ErrNotAvailable = errors.New("purchase: artwork not available")
	// ErrPurchaseNotFound is returned when no purchase row matches.
	ErrPurchaseNotFound = errors.New("purchase: not found")
)

// PGRepository persists purchases and drives the artwork status transitions.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Reserve transitions the artwork available → pending. The conditional
// update is the guard against two purchases of the same piece: only one
// request can flip the row.
func (r *PGRepository) Reserve(ctx context.Context, artworkID string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE artworks SET status = 'pending', updated_at = now()
WHERE id = $1 AND status = 'available'
`, artworkID)
	if err != nil {
		return fmt.Errorf("purchase: reserve artwork %s: %w", artworkID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotAvailable
	}
	return nil
}

// Release reverts pending → available. Used as the reserve step's
// compensation.
func (r *PGRepository) Release(ctx context.Context, artworkID string) error {
	if _, err := r.pool.Exec(ctx, `
UPDATE artworks SET status = 'available', updated_at = now()
WHERE id = $1 AND status = 'pending'
`, artworkID); err != nil {
		return fmt.Errorf("purchase: release artwork %s: %w", artworkID, err)
	}
	return nil
}

// CreateSold inserts the purchase row and marks the artwork sold in one
// transaction, so a half-recorded sale cannot exist.
func (r *PGRepository) CreateSold(ctx context.Context, params CreatePurchaseParams) (Purchase, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Purchase{}, fmt.Errorf("purchase: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
INSERT INTO purchases (artwork_id, buyer_address, claim_id, payment_tx_id, delivery_tx_id, amount_units)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, artwork_id, buyer_address, claim_id, payment_tx_id, delivery_tx_id, amount_units, created_at
`
	var p Purchase
	if err := tx.QueryRow(ctx, insertSQL,
		params.ArtworkID, params.BuyerAddress, params.ClaimID,
		params.PaymentTxID, params.DeliveryTxID, params.AmountUnits,
	).Scan(
		&p.ID, &p.ArtworkID, &p.BuyerAddress, &p.ClaimID,
		&p.PaymentTxID, &p.DeliveryTxID, &p.AmountUnits, &p.CreatedAt,
	); err != nil {
		return Purchase{}, fmt.Errorf("purchase: insert: %w", err)
	}

	tag, err := tx.Exec(ctx, `
UPDATE artworks SET status = 'sold', updated_at = now()
WHERE id = $1 AND status = 'pending'
`, params.ArtworkID)
	if err != nil {
		return Purchase{}, fmt.Errorf("purchase: mark sold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Purchase{}, fmt.Errorf("purchase: artwork %s not pending at sale time", params.ArtworkID)
	}

	if err := tx.Commit(ctx); err != nil {
		return Purchase{}, fmt.Errorf("purchase: commit: %w", err)
	}
	return p, nil
}

// DeleteByID removes a purchase row and reverts its artwork to pending.
// Used as the persist step's compensation; the reserve compensation then
// finishes the pending → available transition.
func (r *PGRepository) DeleteByID(ctx context.Context, purchaseID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("purchase: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var artworkID string
	if err := tx.QueryRow(ctx, `DELETE FROM purchases WHERE id = $1 RETURNING artwork_id`, purchaseID).Scan(&artworkID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPurchaseNotFound
		}
		return fmt.Errorf("purchase: delete %s: %w", purchaseID, err)
	}
	if _, err := tx.Exec(ctx, `
UPDATE artworks SET status = 'pending', updated_at = now()
WHERE id = $1 AND status = 'sold'
`, artworkID); err != nil {
		return fmt.Errorf("purchase: revert artwork %s: %w", artworkID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("purchase: commit delete: %w", err)
	}
	return nil
}
