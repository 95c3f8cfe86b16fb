// Package auth obtains OAuth2 client-credentials tokens for price feeds.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type ClientCred struct {
	conf clientcredentials.Config

	mu    sync.Mutex
	token *oauth2.Token
}

func NewClientCred(conf Conf) *ClientCred {
	return &ClientCred{
		conf: conf.oauth2Config(),
	}
}

// GetToken returns the cached access token while it is valid and requests a
// new one otherwise.
func (c *ClientCred) GetToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.token.Valid() {
		return c.token.AccessToken, nil
	}
	if err := c.fetch(ctx); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

// ForceRefresh requests a new token regardless of the cached one.
func (c *ClientCred) ForceRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fetch(ctx); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

func (c *ClientCred) fetch(ctx context.Context) error {
	tok, err := c.conf.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	c.token = tok
	return nil
}

// SetAuthHeader sets the Authorization header of r, fetching a token with
// the request context when needed.
func (c *ClientCred) SetAuthHeader(r *http.Request) error {
	if _, err := c.GetToken(r.Context()); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token.SetAuthHeader(r)
	return nil
}
