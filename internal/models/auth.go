package models

// RegisterRequest holds the credentials for creating an account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=64"`
}

// LoginRequest holds credentials for authenticating a user. The token
// endpoint accepts the OAuth2 password form, hence the username field.
type LoginRequest struct {
	Username string `form:"username" json:"username" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required"`
}

// TokenResponse returns the issued token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshResponse returns the replacement access token. The refresh token
// itself is not rotated on use.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
