package middleware

import (
	"net/http"
	"strings"

	"github.com/cropchain/cropchain-backend/pkg/logger"
)

type languageNegotiator interface {
	Negotiate(acceptLanguage string) string
}

// Language resolves the response language from ?lang= or Accept-Language.
func Language(negotiator languageNegotiator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if negotiator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.URL.Query().Get("lang"))
			if header == "" {
				header = r.Header.Get("Accept-Language")
			}
			lang := negotiator.Negotiate(header)

			w.Header().Set("Content-Language", lang)
			ctx := WithLanguage(r.Context(), lang)
			if logg != nil {
				ctx = logg.WithLanguage(ctx, lang)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
