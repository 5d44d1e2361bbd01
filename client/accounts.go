package client

import (
	"context"
	"net/url"
)

// AccountService handles account inspection.
type AccountService struct {
	c *Client
}

// Get returns the account named username with its social graph.
func (s *AccountService) Get(ctx context.Context, username string) (*AccountSummary, error) {
	var summary AccountSummary
	if err := s.c.get(ctx, "/api/v1/accounts/"+url.PathEscape(username), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
