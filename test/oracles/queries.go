package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the invariant checks run against the live database while the
// actors hammer it. A row returned by any oracle is a violated invariant.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_single_claim_per_tx",
			SQL: `SELECT tx_id, COUNT(*) FROM payment_claims
                  GROUP BY tx_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_claim_uniqueness_constraint_present",
			SQL: `SELECT 'missing_tx_id_unique_constraint' AS detail
                  WHERE NOT EXISTS (
                      SELECT 1 FROM pg_indexes
                      WHERE tablename = 'payment_claims' AND indexdef LIKE '%UNIQUE%tx_id%')`,
		},
		{
			Name: "O3_single_purchase_per_artwork",
			SQL: `SELECT artwork_id, COUNT(*) FROM purchases
                  GROUP BY artwork_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O4_claim_never_reused",
			SQL: `SELECT claim_id, COUNT(*) FROM purchases
                  GROUP BY claim_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O5_purchase_implies_sold",
			SQL: `SELECT p.id, a.status FROM purchases p
                  JOIN artworks a ON a.id = p.artwork_id
                  WHERE a.status <> 'sold'`,
		},
		{
			Name: "O6_purchase_amount_matches_claim",
			SQL: `SELECT p.id FROM purchases p
                  JOIN payment_claims c ON c.id = p.claim_id
                  WHERE ABS(p.amount_units - c.amount) > 100`,
		},
		{
			Name: "O7_purchase_tx_matches_claim",
			SQL: `SELECT p.id FROM purchases p
                  JOIN payment_claims c ON c.id = p.claim_id
                  WHERE p.payment_tx_id <> c.tx_id`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
