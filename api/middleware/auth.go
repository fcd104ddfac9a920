package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cropchain/cropchain-backend/api/responses"
	pkgAuth "github.com/cropchain/cropchain-backend/pkg/auth"
	pkgerrors "github.com/cropchain/cropchain-backend/pkg/errors"
	"github.com/cropchain/cropchain-backend/pkg/logger"
)

const messageKeyAuthRequired = "marketplace.authErrorDescription"

// Auth validates a bearer token and seeds the request context with the
// caller's user id and display name.
func Auth(verifier pkgAuth.Verifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, unauthorized(nil, "missing credentials"))
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, pkgAuth.ErrTokenExpired) {
					msg = "token expired"
				}
				responses.WriteError(r.Context(), logg, w, unauthorized(err, msg))
				return
			}

			ctx := WithUserID(r.Context(), id.UserID)
			ctx = WithDisplayName(ctx, id.DisplayName)
			if logg != nil {
				ctx = logg.WithUserID(ctx, id.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(err error, msg string) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg).
		WithDetails(map[string]any{"message_key": messageKeyAuthRequired})
}
