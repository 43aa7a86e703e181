package model

import "time"

// OAuthToken stores platform OAuth credentials per user. The dispatcher never
// reads tokens itself; publisher adapters resolve them through the credential
// provider when they build the platform request.
type OAuthToken struct {
	ID           int64      `json:"id"`
	UserID       string     `json:"user_id"`
	Platform     string     `json:"platform"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scopes       string     `json:"scopes"`
	PageID       *string    `json:"page_id,omitempty"`
	PageName     *string    `json:"page_name,omitempty"`
	TokenType    *string    `json:"token_type,omitempty"` // user | page
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
