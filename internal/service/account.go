package service

import (
	"context"

	"github.com/persistorai/podrestore/internal/domain"
	"github.com/persistorai/podrestore/internal/models"
)

// AccountQueryStore is the data-access interface AccountService depends on.
type AccountQueryStore interface {
	AccountSummary(ctx context.Context, username string) (*models.AccountSummary, error)
}

// Compile-time check: *AccountService must satisfy domain.AccountService.
var _ domain.AccountService = (*AccountService)(nil)

// AccountService exposes read-only views of restored accounts.
type AccountService struct {
	store AccountQueryStore
}

// NewAccountService creates an AccountService.
func NewAccountService(store AccountQueryStore) *AccountService {
	return &AccountService{store: store}
}

// GetAccountSummary returns an account with its social graph (pass-through).
func (s *AccountService) GetAccountSummary(ctx context.Context, username string) (*models.AccountSummary, error) {
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}

	return s.store.AccountSummary(ctx, username)
}
