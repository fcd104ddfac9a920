package controllers

import (
	"net/http"
	"strings"

	"github.com/cropchain/cropchain-backend/api/middleware"
	"github.com/cropchain/cropchain-backend/api/responses"
	cartsvc "github.com/cropchain/cropchain-backend/internal/cart"
	checkoutsvc "github.com/cropchain/cropchain-backend/internal/checkout"
	"github.com/cropchain/cropchain-backend/internal/i18n"
	pkgerrors "github.com/cropchain/cropchain-backend/pkg/errors"
	"github.com/cropchain/cropchain-backend/pkg/logger"
)

const (
	checkoutSuccessTitle = "cart.checkoutSuccessTitle"
	checkoutFailedTitle  = "cart.checkoutFailedTitle"
)

// Checkout places one order per seller for the caller's session cart.
// An Idempotency-Key header doubles as the checkout id so retries overwrite
// the same documents.
func Checkout(svc checkoutsvc.Service, carts cartsvc.Service, catalog *i18n.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		lang := requestLanguage(r, catalog)

		buyerID := middleware.UserIDFromContext(r.Context())
		if buyerID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, translate(catalog, lang, checkoutsvc.MessageAuthError)))
			return
		}

		session, err := carts.Open(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer session.Close()

		result, err := svc.Execute(r.Context(), checkoutsvc.Request{
			Buyer: checkoutsvc.Identity{
				ID:          buyerID,
				DisplayName: middleware.DisplayNameFromContext(r.Context()),
			},
			Cart:       session,
			CheckoutID: strings.TrimSpace(r.Header.Get(middleware.IdempotencyKeyHeader)),
		})
		if err != nil {
			if !pkgerrors.IsCode(err, pkgerrors.CodeCheckout) || result == nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			resp := newCheckoutResponse(catalog, lang, result, checkoutFailedTitle)
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeCheckout, err, resp.Message).WithDetails(resp))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(catalog, lang, result, checkoutSuccessTitle))
	}
}

type checkoutResponse struct {
	CheckoutID    string                     `json:"checkout_id,omitempty"`
	Sellers       []checkoutsvc.SellerResult `json:"sellers"`
	ShopItemCount int                        `json:"shop_item_count"`
	Committed     int                        `json:"committed"`
	MessageKey    string                     `json:"message_key,omitempty"`
	Title         string                     `json:"title,omitempty"`
	Message       string                     `json:"message,omitempty"`
}

func newCheckoutResponse(catalog *i18n.Catalog, lang string, result *checkoutsvc.Result, titleKey string) checkoutResponse {
	resp := checkoutResponse{
		CheckoutID:    result.CheckoutID,
		Sellers:       result.Sellers,
		ShopItemCount: result.ShopItemCount,
		Committed:     result.Committed(),
		MessageKey:    result.MessageKey,
	}
	if resp.Sellers == nil {
		resp.Sellers = []checkoutsvc.SellerResult{}
	}
	if result.MessageKey != "" {
		resp.Title = translate(catalog, lang, titleKey)
		resp.Message = translate(catalog, lang, result.MessageKey)
	}
	return resp
}

func requestLanguage(r *http.Request, catalog *i18n.Catalog) string {
	if lang := middleware.LanguageFromContext(r.Context()); lang != "" {
		return lang
	}
	if catalog != nil {
		return catalog.Default()
	}
	return ""
}

func translate(catalog *i18n.Catalog, lang, key string) string {
	if catalog == nil {
		return key
	}
	return catalog.T(lang, key, nil)
}
