package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username"            validate:"required"`
	Password string `json:"password"            validate:"required"`
	TenantID string `json:"tenant_id,omitempty"`
}

type registerRequest struct {
	Username string `json:"username"            validate:"required,username"`
	Password string `json:"password"            validate:"required,min=8,max=72"`
	Role     string `json:"role"                validate:"required,role"`
	TenantID string `json:"tenant_id,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// tokenResponse is returned by login, register and refresh. ExpiresIn is the
// remaining lifetime of the access token in milliseconds.
type tokenResponse struct {
	AccessToken        string    `json:"access_token"`
	RefreshToken       string    `json:"refresh_token"`
	TokenType          string    `json:"token_type"`
	ExpiresIn          int64     `json:"expires_in"`
	ExpiresAt          time.Time `json:"expires_at"`
	Username           string    `json:"username"`
	Role               string    `json:"role"`
	TenantID           string    `json:"tenant_id"`
	MustChangePassword bool      `json:"must_change_password"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// --- Accounts ---

type createAccountRequest struct {
	Username           string `json:"username"             validate:"required,username"`
	Password           string `json:"password"             validate:"required,min=8,max=72"`
	Role               string `json:"role"                 validate:"required,role"`
	TenantID           string `json:"tenant_id,omitempty"`
	MustChangePassword bool   `json:"must_change_password"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72"`
}

type accountResponse struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Role                string     `json:"role"`
	RoleName            string     `json:"role_name"`
	TenantID            string     `json:"tenant_id,omitempty"`
	IsLocked            bool       `json:"is_locked"`
	IsActive            bool       `json:"is_active"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	PasswordChangedAt   *time.Time `json:"password_changed_at,omitempty"`
	MustChangePassword  bool       `json:"must_change_password"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type accountListResponse struct {
	Accounts []accountResponse `json:"accounts"`
	Total    int               `json:"total"`
}
