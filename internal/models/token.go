package models

import "time"

// AuthToken is a gateway bearer credential. It lives in process memory only.
type AuthToken struct {
	AccessToken string    `json:"-"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Scope       string    `json:"scope"`
}

// Valid reports whether the token can still be used at now.
func (t *AuthToken) Valid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && t.ExpiresAt.After(now)
}

// TokenResponse is the gateway's client-credentials grant response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}
