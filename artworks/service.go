package artworks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"galleryflow/agents"
	"galleryflow/content"
	"galleryflow/idempotency"
	"galleryflow/workflow"
)

var (
	// ErrInvalidPieceID signals a piece id outside the slug shape pages
	// are keyed by (e.g. "genesis-001").
	ErrInvalidPieceID = errors.New("artworks: piece id must be 2-63 chars of [a-z0-9-], starting alphanumeric")
	// ErrMissingTitle signals an empty title.
	ErrMissingTitle = errors.New("artworks: title is required")
)

var pieceIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// AgentDirectory resolves the submitting agent.
type AgentDirectory interface {
	GetByID(ctx context.Context, id string) (agents.Agent, error)
}

// Repository is the persistence surface of the submission workflow and the
// page republishing paths.
type Repository interface {
	Create(ctx context.Context, params CreateArtworkParams) (Artwork, error)
	DeleteByID(ctx context.Context, id string) error
	GetByPieceID(ctx context.Context, pieceID string) (Artwork, error)
	ListForIndex(ctx context.Context) ([]IndexRow, error)
}

// Keys guards against duplicate in-flight submissions of the same piece.
type Keys interface {
	Register(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Service assembles and runs the submit-artwork workflow.
type Service struct {
	repo      Repository
	directory AgentDirectory
	keys      Keys
	publisher content.Publisher
	engine    *workflow.Engine
	log       *slog.Logger
}

func NewService(repo Repository, directory AgentDirectory, keys Keys, publisher content.Publisher, engine *workflow.Engine, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, directory: directory, keys: keys, publisher: publisher, engine: engine, log: log}
}

// Submit publishes the artwork page and persists the record, removing the
// page again if persistence fails. The gallery index refresh is best-effort.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Artwork, error) {
	if !pieceIDPattern.MatchString(req.PieceID) {
		return Artwork{}, idempotency.Terminal(ErrInvalidPieceID)
	}
	if req.Title == "" {
		return Artwork{}, idempotency.Terminal(ErrMissingTitle)
	}
	price := req.PriceUnits
	if price == 0 {
		price = DefaultPriceUnits
	}
	if price < 0 {
		return Artwork{}, idempotency.Terminal(fmt.Errorf("artworks: negative price %d", price))
	}

	// Read-only pre-step: the page needs the agent's name and sale wallet.
	agent, err := s.directory.GetByID(ctx, req.AgentID)
	if err != nil {
		return Artwork{}, fmt.Errorf("artworks: resolve agent %s: %w", req.AgentID, err)
	}

	steps := []workflow.Step{
		{
			Name: "register-idempotency-key",
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				key := idempotency.DeriveKey(idempotency.PrefixSubmit, req.PieceID)
				ok, err := s.keys.Register(ctx, key)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, idempotency.Terminal(fmt.Errorf("%w: submission of %q in flight or done", idempotency.ErrDuplicate, req.PieceID))
				}
				return key, nil
			},
			Compensate: func(ctx context.Context, result any) error {
				return s.keys.Release(ctx, result.(string))
			},
		},
		{
			Name: "publish-art-page",
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				html, err := content.RenderArtwork(content.ArtworkData{
					PieceID:     req.PieceID,
					Title:       req.Title,
					Description: req.Description,
					AgentName:   agent.Name,
					PriceUSDC:   content.FormatUSDC(price),
					SaleAddress: agent.WalletAddress,
				})
				if err != nil {
					return nil, err
				}
				return s.publisher.Publish(ctx, content.ArtworkPath(req.PieceID), html)
			},
			Compensate: func(ctx context.Context, result any) error {
				return s.publisher.Remove(ctx, result.(string))
			},
		},
		{
			Name: "persist-artwork-record",
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				return s.repo.Create(ctx, CreateArtworkParams{
					PieceID:     req.PieceID,
					AgentID:     agent.ID,
					Title:       req.Title,
					Description: req.Description,
					PriceUnits:  price,
					SaleAddress: agent.WalletAddress,
					PagePath:    ex.Result("publish-art-page").(string),
				})
			},
			Compensate: func(ctx context.Context, result any) error {
				return s.repo.DeleteByID(ctx, result.(Artwork).ID)
			},
		},
		{
			Name:     "update-gallery-index",
			NonFatal: true,
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				return s.RefreshIndex(ctx)
			},
		},
	}

	results, err := s.engine.Execute(ctx, "submit-artwork", steps)
	if err != nil {
		return Artwork{}, fmt.Errorf("artworks: submit %s: %w", req.PieceID, err)
	}

	art := results["persist-artwork-record"].(Artwork)
	s.log.Info("artwork submitted", "piece_id", art.PieceID, "agent", agent.Name, "price_units", art.PriceUnits)
	return art, nil
}

// RepublishSold re-renders an artwork page in its sold state.
func (s *Service) RepublishSold(ctx context.Context, pieceID string) (string, error) {
	art, err := s.repo.GetByPieceID(ctx, pieceID)
	if err != nil {
		return "", err
	}
	agent, err := s.directory.GetByID(ctx, art.AgentID)
	if err != nil {
		return "", err
	}
	html, err := content.RenderArtwork(content.ArtworkData{
		PieceID:     art.PieceID,
		Title:       art.Title,
		Description: art.Description,
		AgentName:   agent.Name,
		Sold:        true,
	})
	if err != nil {
		return "", err
	}
	return s.publisher.Publish(ctx, art.PagePath, html)
}

// RefreshIndex re-renders and republishes the gallery index from the current
// records.
func (s *Service) RefreshIndex(ctx context.Context) (string, error) {
	rows, err := s.repo.ListForIndex(ctx)
	if err != nil {
		return "", err
	}
	entries := make([]content.IndexEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, content.IndexEntry{
			PieceID:   r.PieceID,
			Title:     r.Title,
			AgentName: r.AgentName,
			PriceUSDC: content.FormatUSDC(r.PriceUnits),
			Sold:      r.Sold,
		})
	}
	html, err := content.RenderIndex(entries)
	if err != nil {
		return "", err
	}
	return s.publisher.Publish(ctx, content.IndexPath, html)
}
