package supabase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"livey-backend/internal/errs"
)

// Client verifies seller access tokens against Supabase Auth.
type Client struct {
	Supabase *supabase.Client
}

func NewClient(url, publishableKey string) (*Client, error) {
	client, err := supabase.NewClient(url, publishableKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{Supabase: client}, nil
}

// VerifyToken asks Supabase Auth who owns token. Any rejection is ErrUnauthorized.
func (c *Client) VerifyToken(ctx context.Context, token string) (uuid.UUID, error) {
	type result struct {
		id  uuid.UUID
		err error
	}
	done := make(chan result, 1)

	go func() {
		user, err := c.Supabase.Auth.WithToken(token).GetUser()
		if err != nil {
			done <- result{err: fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)}
			return
		}
		if user.ID == uuid.Nil {
			done <- result{err: fmt.Errorf("%w: token has no subject", errs.ErrUnauthorized)}
			return
		}
		done <- result{id: user.ID}
	}()

	select {
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	case r := <-done:
		return r.id, r.err
	}
}
