package cart

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cropchain/cropchain-backend/api/middleware"
	"github.com/cropchain/cropchain-backend/api/responses"
	"github.com/cropchain/cropchain-backend/api/validators"
	cartsvc "github.com/cropchain/cropchain-backend/internal/cart"
	"github.com/cropchain/cropchain-backend/internal/i18n"
	pkgerrors "github.com/cropchain/cropchain-backend/pkg/errors"
	"github.com/cropchain/cropchain-backend/pkg/logger"
)

// Fetch returns the caller's session cart.
func Fetch(svc cartsvc.Service, catalog *i18n.Catalog, logg *logger.Logger) http.HandlerFunc {
	return withSession(svc, logg, func(w http.ResponseWriter, r *http.Request, session *cartsvc.Session) {
		responses.WriteSuccess(w, newResponse(catalog, language(r, catalog), session.Items()))
	})
}

// AddItem adds a line, or increments the quantity of an existing one.
func AddItem(svc cartsvc.Service, catalog *i18n.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withSession(svc, logg, func(w http.ResponseWriter, r *http.Request, session *cartsvc.Session) {
			if err := session.AddItem(r.Context(), payload.toItem(), payload.Quantity); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, newResponse(catalog, language(r, catalog), session.Items()))
		})(w, r)
	}
}

// UpdateItem sets the quantity of a line; zero or less removes it.
func UpdateItem(svc cartsvc.Service, catalog *i18n.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := itemIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload UpdateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withSession(svc, logg, func(w http.ResponseWriter, r *http.Request, session *cartsvc.Session) {
			session.UpdateItemQuantity(r.Context(), itemID, *payload.Quantity)
			responses.WriteSuccess(w, newResponse(catalog, language(r, catalog), session.Items()))
		})(w, r)
	}
}

// RemoveItem drops a line from the cart.
func RemoveItem(svc cartsvc.Service, catalog *i18n.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := itemIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withSession(svc, logg, func(w http.ResponseWriter, r *http.Request, session *cartsvc.Session) {
			session.RemoveItem(r.Context(), itemID)
			responses.WriteSuccess(w, newResponse(catalog, language(r, catalog), session.Items()))
		})(w, r)
	}
}

// Clear empties the cart.
func Clear(svc cartsvc.Service, catalog *i18n.Catalog, logg *logger.Logger) http.HandlerFunc {
	return withSession(svc, logg, func(w http.ResponseWriter, r *http.Request, session *cartsvc.Session) {
		session.Clear(r.Context())
		responses.WriteSuccess(w, newResponse(catalog, language(r, catalog), session.Items()))
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, session *cartsvc.Session)

func withSession(svc cartsvc.Service, logg *logger.Logger, next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		session, err := svc.Open(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer session.Close()
		next(w, r, session)
	}
}

func itemIDParam(r *http.Request) (string, error) {
	itemID := strings.TrimSpace(chi.URLParam(r, "itemId"))
	if itemID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return itemID, nil
}

func language(r *http.Request, catalog *i18n.Catalog) string {
	if lang := middleware.LanguageFromContext(r.Context()); lang != "" {
		return lang
	}
	if catalog != nil {
		return catalog.Default()
	}
	return ""
}
