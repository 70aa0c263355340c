package model

import "time"

// Account holds the login details for one social-media account. Password and
// TwoFactorSecret are plaintext at the domain boundary; the storage adapter
// encrypts them at rest.
type Account struct {
	ID              string
	Platform        string // e.g., "tiktok", "instagram"
	Handle          string
	Username        string
	Password        string
	TwoFactorSecret string
	Notes           string // Free text; often names the phone the account is logged in on.
	UpdatedAt       time.Time
}

// HasSecrets reports whether the account carries a password or 2FA secret.
func (a Account) HasSecrets() bool {
	return a.Password != "" || a.TwoFactorSecret != ""
}
