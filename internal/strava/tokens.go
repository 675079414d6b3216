package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"example.com/clubsync/internal/domain"
)

// DefaultTokenURL is the provider's OAuth token endpoint.
const DefaultTokenURL = "https://www.strava.com/oauth/token"

// Tokens is one access/refresh pair. The refresh token rotates on use: the
// caller must persist it before spending the access token, or a crash mid-sync
// permanently locks the account out until the member re-authorizes.
type Tokens struct {
	Access  string
	Refresh string
	Expiry  time.Time
}

// TokenExchanger exchanges refresh tokens and authorization codes against the
// provider's token endpoint. Strava wants client credentials in the request
// body, not basic auth.
type TokenExchanger struct {
	conf *oauth2.Config
}

// NewTokenExchanger constructs a TokenExchanger. tokenURL may be empty to use
// the real endpoint.
func NewTokenExchanger(clientID, clientSecret, tokenURL string) *TokenExchanger {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &TokenExchanger{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// Refresh exchanges a refresh token for a fresh pair. A provider rejection
// maps to domain.ErrAuthRevoked (the member revoked access); connectivity
// failures map to domain.ErrTransient and may succeed on a later run.
func (t *TokenExchanger) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	if refreshToken == "" {
		return Tokens{}, fmt.Errorf("%w: empty refresh token", domain.ErrAuthRevoked)
	}

	src := t.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Tokens{}, classifyTokenError(err)
	}

	out := Tokens{Access: tok.AccessToken, Refresh: tok.RefreshToken, Expiry: tok.Expiry}
	if out.Refresh == "" {
		// Provider did not rotate; keep the one that worked.
		out.Refresh = refreshToken
	}
	return out, nil
}

// ExchangeCode performs the authorization_code grant. The provider attaches
// the athlete summary to the token response; it is returned so first-time
// authorization can create the profile row.
func (t *TokenExchanger) ExchangeCode(ctx context.Context, code string) (Tokens, *Athlete, error) {
	if code == "" {
		return Tokens{}, nil, fmt.Errorf("%w: empty authorization code", domain.ErrAuthRevoked)
	}

	tok, err := t.conf.Exchange(ctx, code)
	if err != nil {
		return Tokens{}, nil, classifyTokenError(err)
	}

	tokens := Tokens{Access: tok.AccessToken, Refresh: tok.RefreshToken, Expiry: tok.Expiry}

	athlete, err := athleteFromToken(tok)
	if err != nil {
		return Tokens{}, nil, err
	}
	return tokens, athlete, nil
}

func athleteFromToken(tok *oauth2.Token) (*Athlete, error) {
	raw := tok.Extra("athlete")
	if raw == nil {
		return nil, nil
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode athlete summary: %w", err)
	}
	var athlete Athlete
	if err := json.Unmarshal(buf, &athlete); err != nil {
		return nil, fmt.Errorf("decode athlete summary: %w", err)
	}
	return &athlete, nil
}

func classifyTokenError(err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		switch {
		case retrieve.Response != nil && retrieve.Response.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		case retrieve.Response != nil && retrieve.Response.StatusCode >= 500:
			return fmt.Errorf("%w: %v", domain.ErrTransient, err)
		default:
			return fmt.Errorf("%w: %v", domain.ErrAuthRevoked, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrTransient, err)
}
