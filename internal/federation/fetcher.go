package federation

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/persistorai/podrestore/internal/models"
)

// RemoteContent is a post as served by its home pod.
type RemoteContent struct {
	GUID      string    `json:"guid"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

// FetchContent retrieves one post by GUID from the pod that hosts author.
func (c *Client) FetchContent(ctx context.Context, author *Identity, guid string) (*RemoteContent, error) {
	if err := models.ValidateGUID(guid); err != nil {
		return nil, err
	}

	pod, err := url.Parse(author.PodURL)
	if err != nil || pod.Host == "" {
		return nil, fmt.Errorf("%w: bad pod url %q for %s", ErrUnreachable, author.PodURL, author.Handle)
	}

	reqURL := pod.JoinPath("fetch", "post", guid).String()

	var rc RemoteContent
	if err := c.getJSON(ctx, "fetch", pod.Host, reqURL, "application/json", &rc); err != nil {
		return nil, fmt.Errorf("fetching post %s: %w", guid, err)
	}

	if rc.GUID != guid {
		return nil, fmt.Errorf("%w: pod returned post %q for %q", ErrNotFound, rc.GUID, guid)
	}

	if rc.Author == "" {
		rc.Author = author.Handle
	}

	return &rc, nil
}
