// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the admin API of a running daemon.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient creates a client for base (e.g. "http://127.0.0.1:8089").
func NewClient(base, token string) *Client {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Execute runs name with args. A command that ran but failed returns a
// Result with OK false and a nil error.
func (c *Client) Execute(ctx context.Context, name string, args any) (Result, error) {
	if args == nil {
		args = NoArgs{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return Result{}, fmt.Errorf("encode arguments: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/commands/"+name, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("admin request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	switch res.StatusCode {
	case http.StatusOK, http.StatusUnprocessableEntity:
		var out Result
		if err := json.Unmarshal(raw, &out); err != nil {
			return Result{}, fmt.Errorf("decode response: %w", err)
		}
		return out, nil
	default:
		var e errorBody
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return Result{}, fmt.Errorf("admin API: %s (HTTP %d): %s", e.Error, res.StatusCode, e.Detail)
		}
		return Result{}, fmt.Errorf("admin API: HTTP %d", res.StatusCode)
	}
}
