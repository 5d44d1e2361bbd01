package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// ImportService handles archive imports.
type ImportService struct {
	c *Client
}

func (o ImportOptions) query() string {
	params := url.Values{}
	params.Set("import_profile", strconv.FormatBool(o.ImportProfile))
	params.Set("import_settings", strconv.FormatBool(o.ImportSettings))
	params.Set("dry_run", strconv.FormatBool(o.DryRun))
	return "?" + params.Encode()
}

// Import finds or creates the account named in req and imports the archive into it.
func (s *ImportService) Import(ctx context.Context, req ImportRequest, opts ImportOptions) (*ImportResult, error) {
	var result ImportResult
	if err := s.c.post(ctx, "/api/v1/accounts/import"+opts.query(), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Restore imports archive into the existing account username.
func (s *ImportService) Restore(ctx context.Context, username string, archive json.RawMessage, opts ImportOptions) (*ImportResult, error) {
	var result ImportResult
	path := "/api/v1/accounts/" + url.PathEscape(username) + "/import" + opts.query()
	if err := s.c.post(ctx, path, archive, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Validate checks archive without importing it.
func (s *ImportService) Validate(ctx context.Context, archive json.RawMessage) (*ValidationReport, error) {
	var report ValidationReport
	if err := s.c.post(ctx, "/api/v1/archives/validate", archive, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
