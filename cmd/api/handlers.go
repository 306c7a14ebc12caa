package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"galleryflow/agents"
	"galleryflow/artworks"
	"galleryflow/auth"
	"galleryflow/custody"
	"galleryflow/idempotency"
	"galleryflow/payment"
	"galleryflow/purchase"
	"galleryflow/workflow"
)

// server holds the services the HTTP layer dispatches to.
type server struct {
	auth      *auth.Service
	agents    *agents.Service
	artworks  *artworks.Service
	purchases *purchase.Service
	log       *slog.Logger
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/accounts/register", s.handleAccountRegister)
	mux.HandleFunc("POST /v1/accounts/login", s.handleLogin)
	mux.HandleFunc("POST /v1/agents", s.requireRole(s.handleAgentRegister, auth.RoleAgent, auth.RoleOperator))
	mux.HandleFunc("POST /v1/artworks", s.requireRole(s.handleArtworkSubmit, auth.RoleAgent, auth.RoleOperator))
	mux.HandleFunc("POST /v1/purchases", s.handleBuy)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleAccountRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	account, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           account.ID,
		"email":        account.Email,
		"display_name": account.DisplayName,
		"role":         account.Role,
	})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"account": map[string]any{
			"id":   result.Account.ID,
			"role": result.Account.Role,
		},
	})
}

func (s *server) handleAgentRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Bio         string `json:"bio"`
	}
	if !decode(w, r, &req) {
		return
	}
	result, err := s.agents.Register(r.Context(), agents.RegisterRequest{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":             result.Agent.ID,
		"name":           result.Agent.Name,
		"wallet_address": result.Agent.WalletAddress,
		"profile_path":   result.Agent.ProfilePath,
		"funded":         result.Funded,
	})
}

func (s *server) handleArtworkSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID     string `json:"agent_id"`
		PieceID     string `json:"piece_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		PriceUnits  int64  `json:"price_units"`
	}
	if !decode(w, r, &req) {
		return
	}
	art, err := s.artworks.Submit(r.Context(), artworks.SubmitRequest{
		AgentID:     req.AgentID,
		PieceID:     req.PieceID,
		Title:       req.Title,
		Description: req.Description,
		PriceUnits:  req.PriceUnits,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          art.ID,
		"piece_id":    art.PieceID,
		"price_units": art.PriceUnits,
		"page_path":   art.PagePath,
		"status":      art.Status,
	})
}

func (s *server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PieceID      string `json:"piece_id"`
		BuyerAddress string `json:"buyer_address"`
		TxID         string `json:"tx_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	result, err := s.purchases.Buy(r.Context(), purchase.BuyRequest{
		PieceID:      req.PieceID,
		BuyerAddress: req.BuyerAddress,
		TxID:         req.TxID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"purchase_id":    result.Purchase.ID,
		"payment_tx_id":  result.Purchase.PaymentTxID,
		"delivery_tx_id": result.DeliveryTxID,
	})
}

// requireRole wraps a handler with bearer-token authentication.
func (s *server) requireRole(next http.HandlerFunc, roles ...auth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody("UNAUTHORIZED", "missing bearer token"))
			return
		}
		_, role, err := s.auth.VerifyToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody("UNAUTHORIZED", "invalid token"))
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				next(w, r)
				return
			}
		}
		writeJSON(w, http.StatusForbidden, errorBody("FORBIDDEN", "insufficient role"))
	}
}

// writeError maps domain errors to HTTP status codes. Workflow failures are
// unwrapped so the caller sees the cause plus any identifiers produced before
// the failure.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if f, ok := workflow.AsFailure(err); ok {
		if ids := producedIdentifiers(f); len(ids) > 0 {
			body["produced"] = ids
		}
	}
	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, map[string]any) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody("INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusConflict, errorBody("DUPLICATE_EMAIL", err.Error())
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, agents.ErrInvalidName),
		errors.Is(err, agents.ErrMissingDisplayName),
		errors.Is(err, artworks.ErrInvalidPieceID),
		errors.Is(err, artworks.ErrMissingTitle):
		return http.StatusBadRequest, errorBody("INVALID_INPUT", err.Error())
	case errors.Is(err, agents.ErrAgentExists):
		return http.StatusConflict, errorBody("AGENT_EXISTS", err.Error())
	case errors.Is(err, artworks.ErrPieceExists):
		return http.StatusConflict, errorBody("PIECE_EXISTS", err.Error())
	case errors.Is(err, purchase.ErrUnknownPiece):
		return http.StatusNotFound, errorBody("UNKNOWN_PIECE", err.Error())
	case errors.Is(err, purchase.ErrNotAvailable):
		return http.StatusConflict, errorBody("NOT_AVAILABLE", err.Error())
	case errors.Is(err, idempotency.ErrDuplicate):
		return http.StatusConflict, errorBody("DUPLICATE_REQUEST", err.Error())
	}

	if code := paymentCode(err); code != "" {
		switch code {
		case "INVALID_INPUT":
			return http.StatusBadRequest, errorBody(code, err.Error())
		case "ALREADY_CLAIMED":
			return http.StatusConflict, errorBody(code, err.Error())
		case "NOT_FOUND_ON_CHAIN", "AMOUNT_MISMATCH":
			return http.StatusUnprocessableEntity, errorBody(code, err.Error())
		default:
			return http.StatusServiceUnavailable, errorBody(code, err.Error())
		}
	}

	if idempotency.Retryable(err) {
		return http.StatusServiceUnavailable, errorBody("UNAVAILABLE", err.Error())
	}
	return http.StatusInternalServerError, errorBody("INTERNAL", err.Error())
}

// paymentCode returns the payment failure code only when the error actually
// stems from the payment package; its Code falls through to STORE_ERROR for
// anything else.
func paymentCode(err error) string {
	for _, sentinel := range []error{
		payment.ErrInvalidInput, payment.ErrAlreadyClaimed,
		payment.ErrNotFoundOnChain, payment.ErrAmountMismatch, payment.ErrStore,
	} {
		if errors.Is(err, sentinel) {
			return payment.Code(err)
		}
	}
	return ""
}

// producedIdentifiers extracts the externally visible identifiers from a
// failed workflow, keyed by what they are rather than by step name.
func producedIdentifiers(f *workflow.Failure) map[string]any {
	ids := make(map[string]any)
	for _, result := range f.Produced {
		switch v := result.(type) {
		case payment.Claim:
			ids["claimed_tx_id"] = v.TxID
		case custody.Account:
			ids["wallet_address"] = v.Address
		case custody.Receipt:
			ids["delivery_tx_id"] = v.TxID
		}
	}
	return ids
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_JSON", "malformed request body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorBody(code, message string) map[string]any {
	return map[string]any{"error": code, "message": message}
}
