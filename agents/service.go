package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"galleryflow/content"
	"galleryflow/custody"
	"galleryflow/idempotency"
	"galleryflow/payment"
	"galleryflow/workflow"
)

var (
	// ErrInvalidName signals an agent name outside the slug shape pages
	// and wallets are keyed by.
	ErrInvalidName = errors.New("agents: name must be 2-63 chars of [a-z0-9-], starting alphanumeric")
	// ErrMissingDisplayName signals an empty display name.
	ErrMissingDisplayName = errors.New("agents: display name is required")
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// Wallets abstracts the custody operations registration needs.
type Wallets interface {
	CreateAccount(ctx context.Context, network string) (custody.Account, error)
	Transfer(ctx context.Context, handle, asset string, amount int64, destination string) (custody.Receipt, error)
}

// Keys guards the workflow against duplicate in-flight registrations; the
// custody account step is irreversible, so the guard must run before it.
type Keys interface {
	Register(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Repository is the persistence surface of the registration workflow.
type Repository interface {
	Create(ctx context.Context, params CreateAgentParams) (Agent, error)
	DeleteByID(ctx context.Context, id string) error
}

// Config carries the registration workflow's environment.
type Config struct {
	// Network the custody service provisions wallets on.
	Network string
	// TreasuryHandle is the custody handle funding new wallets. Empty
	// disables the funding step.
	TreasuryHandle string
	// FundAmount is the starter funding in base units.
	FundAmount int64
}

// Service assembles and runs the register-agent workflow.
type Service struct {
	repo      Repository
	wallets   Wallets
	keys      Keys
	publisher content.Publisher
	engine    *workflow.Engine
	cfg       Config
	log       *slog.Logger
}

func NewService(repo Repository, wallets Wallets, keys Keys, publisher content.Publisher, engine *workflow.Engine, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, wallets: wallets, keys: keys, publisher: publisher, engine: engine, cfg: cfg, log: log}
}

// Register provisions a custody wallet, publishes the profile page, and
// persists the agent record, compensating published state if persistence
// fails. The custody account itself cannot be undone; on failure its address
// survives in the returned workflow failure so it is never silently lost.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if !namePattern.MatchString(req.Name) {
		return RegisterResult{}, idempotency.Terminal(ErrInvalidName)
	}
	if req.DisplayName == "" {
		return RegisterResult{}, idempotency.Terminal(ErrMissingDisplayName)
	}

	steps := []workflow.Step{
		{
			Name: "register-idempotency-key",
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				key := idempotency.DeriveKey(idempotency.PrefixRegister, req.Name)
				ok, err := s.keys.Register(ctx, key)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, idempotency.Terminal(fmt.Errorf("%w: registration of %q in flight or done", idempotency.ErrDuplicate, req.Name))
				}
				return key, nil
			},
			Compensate: func(ctx context.Context, result any) error {
				return s.keys.Release(ctx, result.(string))
			},
		},
		{
			Name: "create-custody-account",
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				return s.wallets.CreateAccount(ctx, s.cfg.Network)
			},
			// No compensation: on-chain accounts cannot be deleted. An
			// account orphaned by a later failure is reconciled out-of-band
			// using the address surfaced in the failure.
		},
		{
			Name: "publish-profile-page",
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				account := ex.Result("create-custody-account").(custody.Account)
				html, err := content.RenderProfile(content.ProfileData{
					Name:          req.Name,
					DisplayName:   req.DisplayName,
					Bio:           req.Bio,
					WalletAddress: account.Address,
				})
				if err != nil {
					return nil, err
				}
				return s.publisher.Publish(ctx, content.ProfilePath(req.Name), html)
			},
			Compensate: func(ctx context.Context, result any) error {
				return s.publisher.Remove(ctx, result.(string))
			},
		},
		{
			Name: "persist-agent-record",
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				account := ex.Result("create-custody-account").(custody.Account)
				path := ex.Result("publish-profile-page").(string)
				return s.repo.Create(ctx, CreateAgentParams{
					Name:          req.Name,
					DisplayName:   req.DisplayName,
					Bio:           req.Bio,
					WalletAddress: account.Address,
					WalletRef:     account.Ref,
					ProfilePath:   path,
				})
			},
			Compensate: func(ctx context.Context, result any) error {
				return s.repo.DeleteByID(ctx, result.(Agent).ID)
			},
		},
	}

	if s.cfg.TreasuryHandle != "" && s.cfg.FundAmount > 0 {
		steps = append(steps, workflow.Step{
			Name:     "fund-wallet",
			NonFatal: true,
			Run: func(ctx context.Context, ex *workflow.Execution) (any, error) {
				account := ex.Result("create-custody-account").(custody.Account)
				return s.wallets.Transfer(ctx, s.cfg.TreasuryHandle, payment.AssetUSDC, s.cfg.FundAmount, account.Address)
			},
		})
	}

	results, err := s.engine.Execute(ctx, "register-agent", steps)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("agents: register %s: %w", req.Name, err)
	}

	agent := results["persist-agent-record"].(Agent)
	_, funded := results["fund-wallet"]
	s.log.Info("agent registered", "name", agent.Name, "wallet", agent.WalletAddress, "funded", funded)
	return RegisterResult{Agent: agent, Funded: funded}, nil
}
