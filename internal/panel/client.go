// Package panel is the client for the remote hosting-panel API that
// actually owns the game server accounts. The bot treats it as the
// source of truth for the remote inventory; local Server records only
// track ownership, plan and expiry.
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Server is one remote account as the panel reports it.
type Server struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Plan     string `json:"plan"`
}

type apiError struct {
	Error string `json:"error"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		// Bounded so a hung panel cannot stall a user's flow forever.
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateAccount provisions a new panel account under the given plan.
// The panel's error text is returned verbatim so the user sees the
// real reason (duplicate email, quota, etc).
func (c *Client) CreateAccount(ctx context.Context, username, email, password, plan string) error {
	body := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
		"plan":     plan,
	}
	return c.do(ctx, http.MethodPost, "/api/accounts", body, nil)
}

// ListServers returns the panel's full remote inventory.
func (c *Client) ListServers(ctx context.Context) ([]Server, error) {
	var resp struct {
		Servers []Server `json:"servers"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/servers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Servers, nil
}

func (c *Client) StopServer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/servers/"+id+"/stop", nil, nil)
}

func (c *Client) SuspendServer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/servers/"+id+"/suspend", nil, nil)
}

func (c *Client) RestartServer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/servers/"+id+"/restart", nil, nil)
}

// Ping checks panel reachability for the health job.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("panel request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("panel: %s", apiErr.Error)
		}
		return fmt.Errorf("panel returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("panel response decode: %w", err)
		}
	}
	return nil
}
