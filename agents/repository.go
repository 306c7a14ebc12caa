package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAgentExists signals the unique name constraint rejected the insert.
	ErrAgentExists = errors.New("agents: name already registered")
	// ErrAgentNotFound is returned when no agent row matches.
	ErrAgentNotFound = errors.New("agents: not found")
)

// PGRepository persists agents in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const agentColumns = `id, name, display_name, bio, wallet_address, wallet_ref, profile_path, created_at`

// Create inserts the agent record. A duplicate name maps to ErrAgentExists.
func (r *PGRepository) Create(ctx context.Context, params CreateAgentParams) (Agent, error) {
	const query = `
INSERT INTO agents (name, display_name, bio, wallet_address, wallet_ref, profile_path)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + agentColumns

	row := r.pool.QueryRow(ctx, query,
		params.Name, params.DisplayName, params.Bio,
		params.WalletAddress, params.WalletRef, params.ProfilePath,
	)
	agent, err := scanAgent(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Agent{}, ErrAgentExists
		}
		return Agent{}, fmt.Errorf("agents: insert: %w", err)
	}
	return agent, nil
}

// DeleteByID removes an agent row. Used as the persist step's compensation.
func (r *PGRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("agents: delete %s: %w", id, err)
	}
	return nil
}

func (r *PGRepository) GetByName(ctx context.Context, name string) (Agent, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE name = $1`, name)
	agent, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrAgentNotFound
		}
		return Agent{}, fmt.Errorf("agents: load %s: %w", name, err)
	}
	return agent, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Agent, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	agent, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrAgentNotFound
		}
		return Agent{}, fmt.Errorf("agents: load %s: %w", id, err)
	}
	return agent, nil
}

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	if err := row.Scan(
		&a.ID, &a.Name, &a.DisplayName, &a.Bio,
		&a.WalletAddress, &a.WalletRef, &a.ProfilePath, &a.CreatedAt,
	); err != nil {
		return Agent{}, err
	}
	return a, nil
}
