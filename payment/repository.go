package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClaimStore is the persistence surface VerifyAndClaim needs. Insert must be
// atomic under the tx_id uniqueness constraint: for any tx_id, at most one
// call across all processes may report inserted=true.
type ClaimStore interface {
	GetByTxID(ctx context.Context, txID string) (Claim, error)
	Insert(ctx context.Context, claim Claim) (Claim, bool, error)
}

// PGClaimRepository implements ClaimStore on PostgreSQL.
type PGClaimRepository struct {
	pool *pgxpool.Pool
}

func NewClaimRepository(pool *pgxpool.Pool) *PGClaimRepository {
	return &PGClaimRepository{pool: pool}
}

const claimColumns = `id, tx_id, payer, recipient, asset, amount, purpose, context, created_at`

// GetByTxID loads the claim for a (case-normalized) transaction id, or
// ErrClaimNotFound.
func (r *PGClaimRepository) GetByTxID(ctx context.Context, txID string) (Claim, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+claimColumns+` FROM payment_claims WHERE tx_id = $1`, txID)
	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Claim{}, ErrClaimNotFound
		}
		return Claim{}, fmt.Errorf("payment: load claim %s: %w", txID, err)
	}
	return claim, nil
}

// Insert writes the claim with insert-if-absent semantics. The second return
// value is false when the uniqueness constraint rejected the row, whether
// that surfaced as an empty result set (ON CONFLICT DO NOTHING) or as a
// 23505; both mean some claim for this tx_id already exists.
func (r *PGClaimRepository) Insert(ctx context.Context, claim Claim) (Claim, bool, error) {
	payload, err := json.Marshal(claim.Context)
	if err != nil {
		return Claim{}, false, fmt.Errorf("payment: marshal claim context: %w", err)
	}

	const insertSQL = `
INSERT INTO payment_claims (id, tx_id, payer, recipient, asset, amount, purpose, context)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
ON CONFLICT (tx_id) DO NOTHING
RETURNING ` + claimColumns

	row := r.pool.QueryRow(ctx, insertSQL,
		claim.ID, claim.TxID, claim.Payer, claim.Recipient,
		claim.Asset, claim.Amount, claim.Purpose, payload,
	)
	created, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Claim{}, false, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Claim{}, false, nil
		}
		return Claim{}, false, fmt.Errorf("payment: insert claim %s: %w", claim.TxID, err)
	}
	return created, true, nil
}

// DeleteByTxID removes a claim. The normal purchase path never deletes
// claims; this exists for test and administrative tooling only.
func (r *PGClaimRepository) DeleteByTxID(ctx context.Context, txID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM payment_claims WHERE tx_id = $1`, txID); err != nil {
		return fmt.Errorf("payment: delete claim %s: %w", txID, err)
	}
	return nil
}

func scanClaim(row pgx.Row) (Claim, error) {
	var (
		claim   Claim
		payload []byte
	)
	if err := row.Scan(
		&claim.ID, &claim.TxID, &claim.Payer, &claim.Recipient,
		&claim.Asset, &claim.Amount, &claim.Purpose, &payload, &claim.CreatedAt,
	); err != nil {
		return Claim{}, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &claim.Context); err != nil {
			return Claim{}, fmt.Errorf("unmarshal claim context: %w", err)
		}
	}
	return claim, nil
}
