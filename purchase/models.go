package purchase

import "time"

// Purchase records a completed sale: which claim authorized it and which
// transaction delivered the piece.
type Purchase struct {
	ID           string
	ArtworkID    string
	BuyerAddress string
	ClaimID      string
	PaymentTxID  string
	DeliveryTxID string
	AmountUnits  int64
	CreatedAt    time.Time
}

// BuyRequest is the inbound purchase payload: the piece, the buyer's wallet,
// and the caller-supplied proof of payment.
type BuyRequest struct {
	PieceID      string
	BuyerAddress string
	TxID         string
}

// BuyResult aggregates the step results of a successful purchase.
type BuyResult struct {
	Purchase     Purchase
	DeliveryTxID string
}

// CreatePurchaseParams enumerates the writes of the persist step: the
// purchase row plus the artwork's transition to sold.
type CreatePurchaseParams struct {
	ArtworkID    string
	BuyerAddress string
	ClaimID      string
	PaymentTxID  string
	DeliveryTxID string
	AmountUnits  int64
}
