package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryProvider is an in-process Provider used by tests and the development
// store driver. Reset dispatches are recorded, not delivered.
type MemoryProvider struct {
	mu       sync.Mutex
	accounts map[string]string // email -> account id
	resets   map[string]int    // email -> dispatch count
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		accounts: make(map[string]string),
		resets:   make(map[string]int),
	}
}

// CreateAccount creates an account and returns its identifier.
func (p *MemoryProvider) CreateAccount(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := p.accounts[email]; ok {
		return "", ErrAccountExists
	}
	id := uuid.New().String()
	p.accounts[email] = id
	return id, nil
}

// FindAccountByEmail returns the account identifier for an email.
func (p *MemoryProvider) FindAccountByEmail(ctx context.Context, email string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return "", ErrAccountNotFound
	}
	return id, nil
}

// SendPasswordReset records a reset dispatch for an existing account.
func (p *MemoryProvider) SendPasswordReset(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := p.accounts[email]; !ok {
		return ErrAccountNotFound
	}
	p.resets[email]++
	return nil
}

// ResetCount reports how many reset dispatches were recorded for an email.
// Test helper.
func (p *MemoryProvider) ResetCount(email string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets[strings.ToLower(strings.TrimSpace(email))]
}

// AccountCount reports how many accounts exist. Test helper.
func (p *MemoryProvider) AccountCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.accounts)
}
