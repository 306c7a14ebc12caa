package agents

import "time"

// Agent is a registered marketplace agent with its custody wallet and
// published profile page.
type Agent struct {
	ID            string
	Name          string
	DisplayName   string
	Bio           string
	WalletAddress string
	WalletRef     string
	ProfilePath   string
	CreatedAt     time.Time
}

// RegisterRequest is the inbound registration payload.
type RegisterRequest struct {
	Name        string
	DisplayName string
	Bio         string
}

// RegisterResult aggregates the step results of a successful registration.
type RegisterResult struct {
	Agent Agent
	// Funded reports whether the starter funding transfer went through;
	// funding is best-effort and never fails a registration.
	Funded bool
}

// CreateAgentParams enumerates the fields persisted for a new agent.
type CreateAgentParams struct {
	Name          string
	DisplayName   string
	Bio           string
	WalletAddress string
	WalletRef     string
	ProfilePath   string
}
