package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID      string
	DisplayName string
	JTI         string
}

// AccessTokenClaims is the JWT accepted by the API. Tokens from the identity
// provider may carry only sub and name, so those back-fill user_id and
// display_name.
type AccessTokenClaims struct {
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Name        string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the caller's user id and the display name used as
// buyerName on orders and notifications.
func (c *AccessTokenClaims) Identity() (userID, displayName string) {
	userID = strings.TrimSpace(c.UserID)
	if userID == "" {
		userID = strings.TrimSpace(c.Subject)
	}
	displayName = strings.TrimSpace(c.DisplayName)
	if displayName == "" {
		displayName = strings.TrimSpace(c.Name)
	}
	return userID, displayName
}
