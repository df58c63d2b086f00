// ABOUTME: Session endpoints used while resolving the session
// ABOUTME: A 401 clears the store here but never triggers re-resolution

package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/codersneeded/miniapp/cli/internal/models"
)

const (
	mePath            = "auth/me"
	platformLoginPath = "auth/telegram"
	fallbackLoginPath = "auth/dev-login"
	logoutPath        = "auth/logout"
)

// resolve issues a resolution-phase call and returns an error for any non-2xx.
func (c *Client) resolve(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	resp, err := c.do(ctx, method, path, body, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidate(resp.sentWith, false)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

// Me validates the stored credential and returns the refreshed identity.
func (c *Client) Me(ctx context.Context) (*models.Identity, error) {
	resp, err := c.resolve(ctx, http.MethodGet, mePath, nil)
	if err != nil {
		return nil, err
	}
	var id models.Identity
	if err := resp.Decode(&id); err != nil {
		return nil, err
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return &id, nil
}

// LoginPlatform exchanges the host's signed assertion for a credential.
func (c *Client) LoginPlatform(ctx context.Context, assertion string) (*models.AuthResult, error) {
	return c.login(ctx, platformLoginPath, map[string]string{"init_data": assertion})
}

// LoginFallback asks for a credential without external proof.
func (c *Client) LoginFallback(ctx context.Context) (*models.AuthResult, error) {
	return c.login(ctx, fallbackLoginPath, nil)
}

func (c *Client) login(ctx context.Context, path string, body interface{}) (*models.AuthResult, error) {
	resp, err := c.resolve(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var result models.AuthResult
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &result, nil
}

// Logout ends the server-side session and always clears the local one.
// The server error, if any, is returned after the local clear.
func (c *Client) Logout(ctx context.Context) error {
	_, callErr := c.resolve(ctx, http.MethodPost, logoutPath, nil)
	if err := c.store.Clear(); err != nil {
		return err
	}
	return callErr
}
