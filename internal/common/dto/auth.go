package dto

// GoogleLoginResponse carries the consent URL the frontend redirects to.
type GoogleLoginResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
	State            string `json:"state"`
}

// GoogleCallbackRequest carries the code returned by the provider.
type GoogleCallbackRequest struct {
	Code            string `json:"code" binding:"required"`
	State           string `json:"state"`
	InvitationToken string `json:"invitationToken"`
}

// TokenPairResponse is returned on login and refresh.
type TokenPairResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	TokenType    string        `json:"tokenType"`
	ExpiresIn    int64         `json:"expiresIn"` // seconds
	User         *UserResponse `json:"user,omitempty"`
}

// RefreshRequest carries the refresh token being redeemed.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// VerifyResponse reports whether the presented access token is valid.
type VerifyResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}
