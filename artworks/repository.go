package artworks

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrPieceExists signals the unique piece id constraint rejected the insert.
	ErrPieceExists = errors.New("artworks: piece id already submitted")
	// ErrArtworkNotFound is returned when no artwork row matches.
	ErrArtworkNotFound = errors.New("artworks: not found")
)

// PGRepository persists artworks in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const artworkColumns = `id, piece_id, agent_id, title, description, price_units, sale_address, page_path, status, created_at, updated_at`

// Create inserts the artwork record. A duplicate piece id maps to
// ErrPieceExists.
func (r *PGRepository) Create(ctx context.Context, params CreateArtworkParams) (Artwork, error) {
	const query = `
INSERT INTO artworks (piece_id, agent_id, title, description, price_units, sale_address, page_path)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + artworkColumns

	row := r.pool.QueryRow(ctx, query,
		params.PieceID, params.AgentID, params.Title, params.Description,
		params.PriceUnits, params.SaleAddress, params.PagePath,
	)
	art, err := scanArtwork(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Artwork{}, ErrPieceExists
		}
		return Artwork{}, fmt.Errorf("artworks: insert %s: %w", params.PieceID, err)
	}
	return art, nil
}

// DeleteByID removes an artwork row. Used as the persist step's compensation.
func (r *PGRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM artworks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("artworks: delete %s: %w", id, err)
	}
	return nil
}

func (r *PGRepository) GetByPieceID(ctx context.Context, pieceID string) (Artwork, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+artworkColumns+` FROM artworks WHERE piece_id = $1`, pieceID)
	art, err := scanArtwork(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Artwork{}, ErrArtworkNotFound
		}
		return Artwork{}, fmt.Errorf("artworks: load %s: %w", pieceID, err)
	}
	return art, nil
}

// ListForIndex returns the rows the gallery index page is rendered from,
// newest first.
func (r *PGRepository) ListForIndex(ctx context.Context) ([]IndexRow, error) {
	const query = `
SELECT a.piece_id, a.title, ag.name, a.price_units, a.status = 'sold'
FROM artworks a
JOIN agents ag ON ag.id = a.agent_id
ORDER BY a.created_at DESC
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("artworks: list for index: %w", err)
	}
	defer rows.Close()

	entries := make([]IndexRow, 0, 16)
	for rows.Next() {
		var e IndexRow
		if err := rows.Scan(&e.PieceID, &e.Title, &e.AgentName, &e.PriceUnits, &e.Sold); err != nil {
			return nil, fmt.Errorf("artworks: scan index row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("artworks: iterate index rows: %w", err)
	}
	return entries, nil
}

func scanArtwork(row pgx.Row) (Artwork, error) {
	var a Artwork
	if err := row.Scan(
		&a.ID, &a.PieceID, &a.AgentID, &a.Title, &a.Description,
		&a.PriceUnits, &a.SaleAddress, &a.PagePath, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return Artwork{}, err
	}
	return a, nil
}
