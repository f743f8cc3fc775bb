package models

import "time"

// Claims is what an access token asserts about its bearer.
type Claims struct {
	UserID    int64
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// TokenDetails is the result of a successful login.
type TokenDetails struct {
	AccessToken string
	ExpiresAt   time.Time
}
