package handler

import "time"

// loginRequest accepts the OAuth2 password form (username carries the
// email) as well as JSON with either field.
type loginRequest struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password" binding:"required"`
}

func (r loginRequest) identity() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type initialSetupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type updateMeRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

type createUserRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Name        string `json:"name"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

type updateUserRequest struct {
	Email       *string `json:"email"`
	Username    *string `json:"username"`
	Name        *string `json:"name"`
	Password    *string `json:"password"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

type listUsersQuery struct {
	Skip  int `form:"skip"`
	Limit int `form:"limit"`
}
