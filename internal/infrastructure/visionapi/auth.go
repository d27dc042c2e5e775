package visionapi

import (
	"context"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.call(ctx, endpointLogin, nil, jsonBody(req), &out); err != nil {
		return domain.AuthResponse{}, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.call(ctx, endpointRegister, nil, jsonBody(req), &out); err != nil {
		return domain.AuthResponse{}, err
	}
	return out, nil
}

// Refresh exchanges the current bearer token for a new one.
func (c *Client) Refresh(ctx context.Context) (domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.call(ctx, endpointRefresh, nil, nil, &out); err != nil {
		return domain.AuthResponse{}, err
	}
	return out, nil
}

func (c *Client) CurrentUser(ctx context.Context) (domain.UserProfile, error) {
	var out domain.UserProfile
	if err := c.call(ctx, endpointMe, nil, nil, &out); err != nil {
		return domain.UserProfile{}, err
	}
	return out, nil
}

// userUpdate is the full editable record; the backend overwrites every
// field, so Merge must have been applied by the caller.
type userUpdate struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	IsActive  bool        `json:"isActive"`
}

// UpdateProfile writes user's editable fields and returns the stored record.
func (c *Client) UpdateProfile(ctx context.Context, user domain.UserProfile) (domain.UserProfile, error) {
	body := userUpdate{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
		IsActive:  true,
	}
	var out domain.UserProfile
	if err := c.call(ctx, endpointUpdateUser.at(user.ID), nil, jsonBody(body), &out); err != nil {
		return domain.UserProfile{}, err
	}
	return out, nil
}
