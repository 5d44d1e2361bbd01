package federation

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/persistorai/podrestore/internal/models"
)

// Link relations read from a WebFinger document.
const (
	relSeedLocation = "http://joindiaspora.com/seed_location"
	relProfilePage  = "http://webfinger.net/rel/profile-page"
	relGUID         = "http://joindiaspora.com/guid"
)

type jrdLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href"`
}

type jrd struct {
	Subject string    `json:"subject"`
	Aliases []string  `json:"aliases,omitempty"`
	Links   []jrdLink `json:"links"`
}

// Discover looks up handle on its home host via WebFinger.
func (c *Client) Discover(ctx context.Context, handle models.Handle) (*Identity, error) {
	reqURL := fmt.Sprintf("%s://%s/.well-known/webfinger?resource=%s",
		c.opts.Scheme, handle.Host, url.QueryEscape("acct:"+handle.String()))

	var doc jrd
	if err := c.getJSON(ctx, "webfinger", handle.Host, reqURL, "application/jrd+json, application/json", &doc); err != nil {
		return nil, fmt.Errorf("discovering %s: %w", handle, err)
	}

	id := &Identity{
		Handle: handle.String(),
		PodURL: fmt.Sprintf("%s://%s", c.opts.Scheme, handle.Host),
	}

	for _, l := range doc.Links {
		switch l.Rel {
		case relSeedLocation:
			if l.Href != "" {
				id.PodURL = strings.TrimRight(l.Href, "/")
			}
		case relProfilePage:
			id.ProfileURL = l.Href
		case relGUID:
			id.GUID = l.Href
		}
	}

	return id, nil
}
