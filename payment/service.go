package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"galleryflow/chain"
	"galleryflow/idempotency"
)

// ChainReader resolves a transaction id to its confirmed effects.
type ChainReader interface {
	TransactionEffects(ctx context.Context, txID string) (chain.Effects, error)
}

// Service implements verify-and-claim: resolve a caller-supplied payment
// proof on chain, check it against expectations, then consume it atomically.
type Service struct {
	store  ClaimStore
	reader ChainReader
	log    *slog.Logger
}

func NewService(store ClaimStore, reader ChainReader, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, reader: reader, log: log}
}

// VerifyAndClaim authorizes a payment proof at most once.
//
// The sequence is: format check (no I/O), advisory prior-claim lookup, chain
// resolution, then the authoritative insert under the tx_id uniqueness
// constraint. Two concurrent calls with the same tx id can both pass the
// advisory lookup; the insert decides the winner. The loser gets
// ErrAlreadyClaimed, never a generic error.
func (s *Service) VerifyAndClaim(ctx context.Context, params ClaimParams) (Claim, error) {
	if !ValidTxID(params.TxID) {
		return Claim{}, idempotency.Terminal(fmt.Errorf("%w: malformed transaction id %q", ErrInvalidInput, params.TxID))
	}
	if !ValidAddress(params.ExpectedPayer) {
		return Claim{}, idempotency.Terminal(fmt.Errorf("%w: malformed payer address %q", ErrInvalidInput, params.ExpectedPayer))
	}
	if !ValidAddress(params.ExpectedRecipient) {
		return Claim{}, idempotency.Terminal(fmt.Errorf("%w: malformed recipient address %q", ErrInvalidInput, params.ExpectedRecipient))
	}
	if params.ExpectedAmount <= 0 {
		return Claim{}, idempotency.Terminal(fmt.Errorf("%w: non-positive expected amount %d", ErrInvalidInput, params.ExpectedAmount))
	}

	txID := idempotency.NormalizeTxID(params.TxID)

	// Advisory short-circuit: cheaper than the chain lookup, but never the
	// authority. The insert below remains the only concurrency guard.
	switch _, err := s.store.GetByTxID(ctx, txID); {
	case err == nil:
		claimsTotal.WithLabelValues("already_claimed").Inc()
		return Claim{}, idempotency.Terminal(ErrAlreadyClaimed)
	case errors.Is(err, ErrClaimNotFound):
		// proceed
	default:
		return Claim{}, idempotency.MarkRetryable(fmt.Errorf("%w: prior-claim check: %v", ErrStore, err))
	}

	effects, err := s.reader.TransactionEffects(ctx, txID)
	if err != nil {
		if errors.Is(err, chain.ErrTxNotFound) {
			claimsTotal.WithLabelValues("not_found").Inc()
			return Claim{}, idempotency.Terminal(fmt.Errorf("%w: %v", ErrNotFoundOnChain, err))
		}
		return Claim{}, err
	}
	if !effects.Confirmed {
		claimsTotal.WithLabelValues("not_found").Inc()
		return Claim{}, idempotency.Terminal(fmt.Errorf("%w: not yet confirmed", ErrNotFoundOnChain))
	}
	if !effects.Success {
		claimsTotal.WithLabelValues("not_found").Inc()
		return Claim{}, idempotency.Terminal(fmt.Errorf("%w: transaction reverted", ErrNotFoundOnChain))
	}

	observed, ok := matchTransfer(effects, params)
	if !ok {
		claimsTotal.WithLabelValues("amount_mismatch").Inc()
		return Claim{}, idempotency.Terminal(fmt.Errorf("%w: expected %s %d±%d from %s to %s",
			ErrAmountMismatch, params.Asset, params.ExpectedAmount, AmountTolerance,
			params.ExpectedPayer, params.ExpectedRecipient))
	}

	claim := Claim{
		ID:        uuid.NewString(),
		TxID:      txID,
		Payer:     params.ExpectedPayer,
		Recipient: params.ExpectedRecipient,
		Asset:     params.Asset,
		Amount:    observed,
		Purpose:   params.Purpose,
		Context:   params.Context,
	}

	created, inserted, err := s.store.Insert(ctx, claim)
	if err != nil {
		// An ambiguous error (e.g. a timeout) does not imply the insert
		// failed to land. Re-check before reporting: if our row is there
		// the claim succeeded; if someone else's is, it was lost fairly.
		if existing, checkErr := s.store.GetByTxID(ctx, txID); checkErr == nil {
			if existing.ID == claim.ID {
				claimsTotal.WithLabelValues("claimed").Inc()
				return existing, nil
			}
			claimsTotal.WithLabelValues("already_claimed").Inc()
			return Claim{}, idempotency.Terminal(ErrAlreadyClaimed)
		}
		claimsTotal.WithLabelValues("store_error").Inc()
		return Claim{}, fmt.Errorf("%w: insert: %v", ErrStore, err)
	}
	if !inserted {
		claimsTotal.WithLabelValues("already_claimed").Inc()
		return Claim{}, idempotency.Terminal(ErrAlreadyClaimed)
	}

	s.log.Info("payment claimed",
		"tx_id", txID, "payer", claim.Payer, "amount", claim.Amount, "purpose", claim.Purpose)
	claimsTotal.WithLabelValues("claimed").Inc()
	return created, nil
}

// matchTransfer finds a transfer of the expected asset between the expected
// parties within ±AmountTolerance of the expected amount and returns the
// observed amount. Exact matches are never required.
func matchTransfer(effects chain.Effects, params ClaimParams) (int64, bool) {
	payer := strings.ToLower(params.ExpectedPayer)
	recipient := strings.ToLower(params.ExpectedRecipient)
	for _, t := range effects.Transfers {
		if !strings.EqualFold(t.From, payer) || !strings.EqualFold(t.To, recipient) {
			continue
		}
		if t.Asset != params.Asset {
			continue
		}
		delta := t.Amount - params.ExpectedAmount
		if delta < 0 {
			delta = -delta
		}
		if delta <= AmountTolerance {
			return t.Amount, true
		}
	}
	return 0, false
}
