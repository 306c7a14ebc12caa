package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestService_RegisterAndLogin(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	req := RegisterRequest{
		Email:       "vermeer@example.com",
		Password:    "supersafe",
		DisplayName: "Vermeer",
		Role:        RoleAgent,
	}

	ctx := context.Background()
	account, err := svc.Register(ctx, req)
	if err != nil {
		t.Fatalf("register: unexpected error: %v", err)
	}

	if account.Email != req.Email {
		t.Fatalf("expected email %q got %q", req.Email, account.Email)
	}
	if account.Role != RoleAgent {
		t.Fatalf("register: expected role %s got %s", RoleAgent, account.Role)
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		t.Fatalf("login: unexpected error: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login: expected token, got empty string")
	}
	if resp.Account.ID != account.ID {
		t.Fatalf("login: expected account id %q got %q", account.ID, resp.Account.ID)
	}

	tokenAccountID, tokenRole, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if tokenAccountID != account.ID {
		t.Fatalf("verify token: expected %q got %q", account.ID, tokenAccountID)
	}
	if tokenRole != RoleAgent {
		t.Fatalf("verify token: expected role %s got %s", RoleAgent, tokenRole)
	}
}

func TestService_DefaultRoleIsCollector(t *testing.T) {
	svc := NewService(newFakeRepository(), "test-secret")

	account, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "buyer@example.com",
		Password:    "strongpassword",
		DisplayName: "Buyer",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.Role != RoleCollector {
		t.Fatalf("expected default role %s got %s", RoleCollector, account.Role)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "vermeer@example.com",
		Password:    "short",
		DisplayName: "Vermeer",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "",
		Password:    "strongpassword",
		DisplayName: "",
	}); err == nil {
		t.Fatal("expected validation error for missing fields")
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "vermeer@example.com",
		Password:    "strongpassword",
		DisplayName: "Vermeer",
		Role:        "superuser",
	}); err == nil {
		t.Fatal("expected validation error for unknown role")
	}
}

func TestService_DuplicateEmail(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	req := RegisterRequest{
		Email:       "vermeer@example.com",
		Password:    "strongpassword",
		DisplayName: "Vermeer",
	}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "unknown@example.com",
		Password: "irrelevant",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

type fakeRepository struct {
	accountsByEmail map[string]Account
	accountsByID    map[string]Account
	nextID          int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		accountsByEmail: make(map[string]Account),
		accountsByID:    make(map[string]Account),
		nextID:          1,
	}
}

func (f *fakeRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	if _, exists := f.accountsByEmail[strings.ToLower(params.Email)]; exists {
		return Account{}, ErrDuplicateEmail
	}

	id := fmt.Sprintf("account-%d", f.nextID)
	f.nextID++

	account := Account{
		ID:           id,
		Email:        params.Email,
		DisplayName:  params.DisplayName,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	f.accountsByEmail[strings.ToLower(account.Email)] = account
	f.accountsByID[account.ID] = account

	return account, nil
}

func (f *fakeRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	account, ok := f.accountsByEmail[strings.ToLower(email)]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (f *fakeRepository) GetAccountByID(ctx context.Context, accountID string) (Account, error) {
	account, ok := f.accountsByID[accountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}
