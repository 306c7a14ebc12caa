package artworks

import "time"

// Artwork statuses. Transitions: available → pending (reserved by an
// in-flight purchase) → sold, with pending → available on purchase failure.
const (
	StatusAvailable = "available"
	StatusPending   = "pending"
	StatusSold      = "sold"
)

// DefaultPriceUnits is the list price applied when a submission does not
// specify one: 0.10 USDC in base units.
const DefaultPriceUnits int64 = 100_000

// Artwork is a published, purchasable piece.
type Artwork struct {
	ID          string
	PieceID     string
	AgentID     string
	Title       string
	Description string
	PriceUnits  int64
	// SaleAddress is the wallet that must receive the payment.
	SaleAddress string
	PagePath    string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubmitRequest is the inbound artwork submission payload.
type SubmitRequest struct {
	AgentID     string
	PieceID     string
	Title       string
	Description string
	// PriceUnits in micro-USDC; zero means DefaultPriceUnits.
	PriceUnits int64
}

// CreateArtworkParams enumerates the fields persisted for a new artwork.
type CreateArtworkParams struct {
	PieceID     string
	AgentID     string
	Title       string
	Description string
	PriceUnits  int64
	SaleAddress string
	PagePath    string
}

// IndexRow is the projection the gallery index is rendered from.
type IndexRow struct {
	PieceID    string
	Title      string
	AgentName  string
	PriceUnits int64
	Sold       bool
}
