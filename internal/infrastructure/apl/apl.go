// Package apl stores the credentials the app receives from each shop it is
// installed in. The store is keyed by the shop API URL.
package apl

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("apl: no credentials for api url")
	ErrMissingAPIURL = errors.New("apl: api url is required")
	ErrMissingToken  = errors.New("apl: token is required")
)

// AuthData is the credential set handed over when the app is installed
type AuthData struct {
	Token  string `json:"token"`
	APIURL string `json:"saleor_api_url"`
	AppID  string `json:"app_id"`
	Domain string `json:"domain,omitempty"`
	JWKS   string `json:"jwks,omitempty"`
}

// Validate checks the fields every store requires
func (a AuthData) Validate() error {
	if strings.TrimSpace(a.APIURL) == "" {
		return ErrMissingAPIURL
	}
	if strings.TrimSpace(a.Token) == "" {
		return ErrMissingToken
	}
	return nil
}

// CredentialStore persists AuthData per shop API URL
type CredentialStore interface {
	Get(ctx context.Context, apiURL string) (*AuthData, error)
	Set(ctx context.Context, data AuthData) error
	Delete(ctx context.Context, apiURL string) error
	All(ctx context.Context) ([]AuthData, error)
}

// Token returns the bearer token stored for apiURL
func Token(ctx context.Context, store CredentialStore, apiURL string) (string, error) {
	data, err := store.Get(ctx, apiURL)
	if err != nil {
		return "", err
	}
	return data.Token, nil
}
