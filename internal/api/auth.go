package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"finvault/internal/core"
)

type (
	// LoginResponse is what the auth service returns for valid credentials.
	LoginResponse struct {
		Token string    `json:"token"`
		User  core.User `json:"user"`
	}

	// RegisterResponse confirms a new account.
	RegisterResponse struct {
		Message string `json:"message"`
	}
)

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) (RegisterResponse, error) {
	req, err := jsonRequest(http.MethodPost, c.authURL+"/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return RegisterResponse{}, err
	}
	body, err := c.send(ctx, req)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("register: %w", err)
	}

	// Some deployments answer with a bare text confirmation.
	var resp RegisterResponse
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '"') {
		if trimmed[0] == '"' {
			err = json.Unmarshal(trimmed, &resp.Message)
		} else {
			err = json.Unmarshal(trimmed, &resp)
		}
		if err != nil {
			return RegisterResponse{}, fmt.Errorf("decode register response: %w", err)
		}
		return resp, nil
	}
	resp.Message = string(trimmed)
	return resp, nil
}

// Login exchanges credentials for a bearer token. Persisting the token is
// up to the caller.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	req, err := jsonRequest(http.MethodPost, c.authURL+"/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return LoginResponse{}, err
	}
	body, err := c.send(ctx, req)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("login: %w", err)
	}

	var resp LoginResponse
	if err := decode(body, &resp, "login"); err != nil {
		return LoginResponse{}, err
	}
	if resp.Token == "" {
		return LoginResponse{}, fmt.Errorf("login: response carries no token")
	}
	return resp, nil
}

// GetProfile fetches the current user. It fails with ErrNoToken without
// sending anything when token is empty.
func (c *Client) GetProfile(ctx context.Context, token string) (core.Profile, error) {
	if token == "" {
		return core.Profile{}, ErrNoToken
	}
	body, err := c.send(ctx, request{
		method: http.MethodGet,
		url:    c.authURL + "/api/users/me",
		token:  token,
	})
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	var profile core.Profile
	if err := decode(body, &profile, "profile"); err != nil {
		return core.Profile{}, err
	}
	return profile, nil
}
