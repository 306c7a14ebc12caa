package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"galleryflow/artworks"
	"galleryflow/custody"
	"galleryflow/idempotency"
	"galleryflow/payment"
	"galleryflow/workflow"
)

// ErrUnknownPiece signals the requested piece id has no artwork record.
var ErrUnknownPiece = errors.New("purchase: unknown piece")

// Catalog resolves the artwork being bought.
type Catalog interface {
	GetByPieceID(ctx context.Context, pieceID string) (artworks.Artwork, error)
}

// Claimer consumes the payment proof exactly once.
type Claimer interface {
	VerifyAndClaim(ctx context.Context, params payment.ClaimParams) (payment.Claim, error)
}

// Deliverer executes the on-chain handover of the piece to the buyer.
type Deliverer interface {
	Invoke(ctx context.Context, handle, contractRef, method string, args []any) (custody.Receipt, error)
}

// Repository is the persistence surface of the purchase workflow.
type Repository interface {
	Reserve(ctx context.Context, artworkID string) error
	Release(ctx context.Context, artworkID string) error
	CreateSold(ctx context.Context, params CreatePurchaseParams) (Purchase, error)
	DeleteByID(ctx context.Context, purchaseID string) error
}

// Pages republishes the artwork page and gallery index after a sale.
// Implemented by the artworks service.
type Pages interface {
	RepublishSold(ctx context.Context, pieceID string) (string, error)
	RefreshIndex(ctx context.Context) (string, error)
}

// Config carries the purchase workflow's environment.
type Config struct {
	// GalleryHandle is the custody handle of the wallet holding the
	// pieces; ContractRef and Method describe the transfer call.
	GalleryHandle string
	ContractRef   string
	Method        string
}

// Service assembles and runs the buy-artwork workflow.
type Service struct {
	repo      Repository
	catalog   Catalog
	claimer   Claimer
	deliverer Deliverer
	pages     Pages
	engine    *workflow.Engine
	cfg       Config
	log       *slog.Logger
}

func NewService(repo Repository, catalog Catalog, claimer Claimer, deliverer Deliverer, pages Pages, engine *workflow.Engine, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo: repo, catalog: catalog, claimer: claimer, deliverer: deliverer,
		pages: pages, engine: engine, cfg: cfg, log: log,
	}
}

// Buy authorizes a purchase from the caller-supplied payment proof and
// delivers the piece.
//
// The piece is reserved before the claim so a claim is never consumed for an
// unavailable artwork. If delivery or persistence fails after the claim, the
// claim stays consumed (claims are never deleted) and its transaction id is
// surfaced in the failure for out-of-band reconciliation, together with the
// delivery transaction id if one exists.
func (s *Service) Buy(ctx context.Context, req BuyRequest) (BuyResult, error) {
	art, err := s.catalog.GetByPieceID(ctx, req.PieceID)
	if err != nil {
		if errors.Is(err, artworks.ErrArtworkNotFound) {
			return BuyResult{}, idempotency.Terminal(fmt.Errorf("%w: %s", ErrUnknownPiece, req.PieceID))
		}
		return BuyResult{}, fmt.Errorf("purchase: resolve piece %s: %w", req.PieceID, err)
	}

	steps := []workflow.Step{
		{
			Name: "reserve-artwork",
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				if err := s.repo.Reserve(ctx, art.ID); err != nil {
					return nil, err
				}
				return art.ID, nil
			},
			Compensate: func(ctx context.Context, result any) error {
				return s.repo.Release(ctx, result.(string))
			},
		},
		{
			Name: "claim-payment",
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				return s.claimer.VerifyAndClaim(ctx, payment.ClaimParams{
					TxID:              req.TxID,
					ExpectedPayer:     req.BuyerAddress,
					ExpectedRecipient: art.SaleAddress,
					Asset:             payment.AssetUSDC,
					ExpectedAmount:    art.PriceUnits,
					Purpose:           "artwork-purchase",
					Context: map[string]any{
						"piece_id":   art.PieceID,
						"artwork_id": art.ID,
						"buyer":      req.BuyerAddress,
					},
				})
			},
			// No compensation: a consumed proof of payment stays consumed.
			// Releasing it would let the same transaction buy twice.
		},
		{
			Name: "deliver-artwork",
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				return s.deliverer.Invoke(ctx, s.cfg.GalleryHandle, s.cfg.ContractRef, s.cfg.Method,
					[]any{art.PieceID, req.BuyerAddress})
			},
			// No compensation: the on-chain transfer is irreversible.
		},
		{
			Name: "persist-purchase-record",
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				claim := ex.Result("claim-payment").(payment.Claim)
				receipt := ex.Result("deliver-artwork").(custody.Receipt)
				return s.repo.CreateSold(ctx, CreatePurchaseParams{
					ArtworkID:    art.ID,
					BuyerAddress: req.BuyerAddress,
					ClaimID:      claim.ID,
					PaymentTxID:  claim.TxID,
					DeliveryTxID: receipt.TxID,
					AmountUnits:  claim.Amount,
				})
			},
			Compensate: func(ctx context.Context, result any) error {
				return s.repo.DeleteByID(ctx, result.(Purchase).ID)
			},
		},
		{
			Name:     "publish-sold-page",
			NonFatal: true,
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				path, err := s.pages.RepublishSold(ctx, art.PieceID)
				if err != nil {
					return nil, err
				}
				if _, err := s.pages.RefreshIndex(ctx); err != nil {
					return path, err
				}
				return path, nil
			},
		},
	}

	results, err := s.engine.Execute(ctx, "buy-artwork", steps)
	if err != nil {
		return BuyResult{}, fmt.Errorf("purchase: buy %s: %w", req.PieceID, err)
	}

	p := results["persist-purchase-record"].(Purchase)
	s.log.Info("artwork sold",
		"piece_id", art.PieceID, "buyer", req.BuyerAddress,
		"payment_tx", p.PaymentTxID, "delivery_tx", p.DeliveryTxID)
	return BuyResult{Purchase: p, DeliveryTxID: p.DeliveryTxID}, nil
}

