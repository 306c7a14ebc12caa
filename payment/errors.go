package payment

import "errors"

// The closed failure set VerifyAndClaim can surface. The HTTP layer maps
// these to status codes via Code.
var (
	// ErrInvalidInput: malformed tx id or address; nothing was looked up.
	ErrInvalidInput = errors.New("payment: invalid input")
	// ErrAlreadyClaimed: the transaction already authorized a purchase.
	ErrAlreadyClaimed = errors.New("payment: transaction already claimed")
	// ErrNotFoundOnChain: unknown, unconfirmed, or failed transaction.
	ErrNotFoundOnChain = errors.New("payment: transaction not usable on chain")
	// ErrAmountMismatch: no transfer matching the expected payer,
	// recipient, and asset within AmountTolerance of the expected amount.
	ErrAmountMismatch = errors.New("payment: no matching transfer within tolerance")
	// ErrStore: the claim store failed in a way that could not be resolved
	// by re-checking for an existing claim. Never retry the claim insert
	// blindly; re-issue the whole VerifyAndClaim instead.
	ErrStore = errors.New("payment: claim store error")

	// ErrClaimNotFound is the store-level miss used internally and by
	// administrative tooling.
	ErrClaimNotFound = errors.New("payment: claim not found")
)

// Code collapses a VerifyAndClaim error to its wire-level failure code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrAlreadyClaimed):
		return "ALREADY_CLAIMED"
	case errors.Is(err, ErrNotFoundOnChain):
		return "NOT_FOUND_ON_CHAIN"
	case errors.Is(err, ErrAmountMismatch):
		return "AMOUNT_MISMATCH"
	default:
		return "STORE_ERROR"
	}
}
