// Package payment verifies caller-supplied proofs of payment against the
// chain and consumes each proof exactly once. The single correctness
// mechanism is the unique constraint on payment_claims.tx_id: whatever races
// happen above it, at most one claim per transaction can ever exist.
package payment

import (
	"regexp"
	"time"
)

const (
	// AssetUSDC is the only sale asset; amounts are micro-USDC (6 decimals).
	AssetUSDC = "USDC"

	// AmountTolerance absorbs rounding introduced when decimal prices are
	// converted to base units. Expressed in the asset's smallest unit:
	// 100 micro-USDC = 0.0001 USDC. A transfer within ±AmountTolerance of
	// the expected amount is accepted; one unit beyond is rejected.
	AmountTolerance int64 = 100
)

var (
	txIDPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// ValidTxID reports whether s has the chain's transaction-identifier shape.
func ValidTxID(s string) bool { return txIDPattern.MatchString(s) }

// ValidAddress reports whether s is a well-formed account address.
func ValidAddress(s string) bool { return addressPattern.MatchString(s) }

// Claim marks a payment proof as consumed. Rows are keyed uniquely by the
// case-normalized transaction id, created once, and never updated or deleted
// on the normal path.
type Claim struct {
	ID        string
	TxID      string
	Payer     string
	Recipient string
	Asset     string
	// Amount is the transferred amount actually observed on chain, which
	// may differ from the expected amount by up to AmountTolerance.
	Amount    int64
	Purpose   string
	Context   map[string]any
	CreatedAt time.Time
}

// ClaimParams is the input to VerifyAndClaim. TxID comes from the caller and
// is untrusted until resolved on chain; the expectations come from the
// request context and the resource being purchased.
type ClaimParams struct {
	TxID              string
	ExpectedPayer     string
	ExpectedRecipient string
	Asset             string
	ExpectedAmount    int64
	// Purpose and Context describe what the claim authorizes (e.g. the
	// artwork purchase) and are stored on the claim row for reconciliation.
	Purpose string
	Context map[string]any
}
