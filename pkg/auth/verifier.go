package auth

import (
	"context"
	"fmt"

	"github.com/cropchain/cropchain-backend/pkg/config"
)

// Identity is the authenticated caller behind a bearer token.
type Identity struct {
	UserID      string
	DisplayName string
}

// Verifier turns a bearer token into an Identity. Expired tokens yield an
// error wrapping ErrTokenExpired.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// JWTVerifier accepts HS256 tokens minted with the shared secret.
type JWTVerifier struct {
	cfg config.JWTConfig
}

func NewJWTVerifier(cfg config.JWTConfig) (*JWTVerifier, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &JWTVerifier{cfg: cfg}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	claims, err := ParseAccessToken(v.cfg, token)
	if err != nil {
		return Identity{}, err
	}
	userID, displayName := claims.Identity()
	return Identity{UserID: userID, DisplayName: displayName}, nil
}

// NewVerifier builds the verifier selected by CROPCHAIN_AUTH_PROVIDER.
func NewVerifier(ctx context.Context, cfg *config.Config) (Verifier, error) {
	if cfg.Auth.UsesFirebase() {
		return NewFirebaseVerifier(ctx, cfg.Firestore)
	}
	return NewJWTVerifier(cfg.JWT)
}

var (
	_ Verifier = (*JWTVerifier)(nil)
	_ Verifier = (*FirebaseVerifier)(nil)
)
