package api

import (
	"context"
	"fmt"
)

// Login opens a new session, by certificate when one is loaded and
// interactively otherwise.
func (c *Client) Login(ctx context.Context) error {
	var (
		token  string
		status string
	)

	if c.creds.CertLogin() {
		var resp CertLoginResponse
		if err := c.postForm(ctx, c.endpoints.CertLogin, c.creds.LoginForm(), c.identityHeaders(false), &resp); err != nil {
			return fmt.Errorf("cert login: %w", err)
		}
		token, status = resp.SessionToken, resp.LoginStatus
	} else {
		var resp LoginResponse
		if err := c.postForm(ctx, c.endpoints.Login, c.creds.LoginForm(), c.identityHeaders(false), &resp); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		token, status = resp.Token, resp.Status
		if status != StatusSuccess && resp.Error != "" {
			status = resp.Error
		}
	}

	if status != StatusSuccess || token == "" {
		return &VenueError{Operation: "login", Code: status}
	}

	c.setSession(token)
	c.logger.Info("session opened", "cert_login", c.creds.CertLogin())
	return nil
}

// KeepAlive extends the current session. A well-formed response is
// returned even when its status is not SUCCESS; the caller decides.
func (c *Client) KeepAlive(ctx context.Context) (*KeepAliveResponse, error) {
	var resp KeepAliveResponse
	if err := c.postForm(ctx, c.endpoints.KeepAlive, nil, c.identityHeaders(true), &resp); err != nil {
		return nil, fmt.Errorf("keep alive: %w", err)
	}

	if resp.Status == StatusSuccess {
		token := resp.Token
		if token == "" {
			token = c.SessionToken()
		}
		c.setSession(token)
	}

	return &resp, nil
}

// SessionToken returns the current token, empty before the first login.
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken
}

// SessionExpired reports whether the session needs refreshing: either the
// exchange rejected the token or the refresh window has been reached.
func (c *Client) SessionExpired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.sessionToken == "" {
		return false
	}
	if c.sessionInvalid {
		return true
	}

	window := c.sessionTimeout - sessionRefreshMargin
	if window <= 0 {
		window = c.sessionTimeout / 2
	}
	return c.now().Sub(c.sessionStarted) >= window
}

func (c *Client) setSession(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = token
	c.sessionStarted = c.now()
	c.sessionInvalid = false
}

func (c *Client) markSessionInvalid() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionInvalid = true
}
