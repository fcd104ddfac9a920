package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cropchain/cropchain-backend/api/middleware"
	"github.com/cropchain/cropchain-backend/api/responses"
	"github.com/cropchain/cropchain-backend/api/validators"
	"github.com/cropchain/cropchain-backend/internal/i18n"
	"github.com/cropchain/cropchain-backend/internal/notifications"
	pkgerrors "github.com/cropchain/cropchain-backend/pkg/errors"
	"github.com/cropchain/cropchain-backend/pkg/logger"
	"github.com/cropchain/cropchain-backend/pkg/pagination"
)

type notificationList struct {
	Notifications []notifications.Rendered `json:"notifications"`
	NextCursor    string                   `json:"next_cursor,omitempty"`
}

// ListNotifications returns the caller's notifications, newest first, rendered
// in the negotiated language.
func ListNotifications(svc notifications.Service, catalog *i18n.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := validators.QueryCursor(r, "cursor")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{Limit: limit, Cursor: cursor}

		list, err := svc.List(r.Context(), userID, unreadOnly, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lang := requestLanguage(r, catalog)
		resp := notificationList{
			Notifications: make([]notifications.Rendered, 0, len(list.Notifications)),
			NextCursor:    list.NextCursor,
		}
		for _, n := range list.Notifications {
			resp.Notifications = append(resp.Notifications, svc.Render(lang, n))
		}
		responses.WriteSuccess(w, resp)
	}
}

// MarkNotificationRead flags one notification as read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		notificationID := strings.TrimSpace(chi.URLParam(r, "notificationId"))
		if notificationID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "notification id is required"))
			return
		}

		if err := svc.MarkRead(r.Context(), userID, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

// MarkAllNotificationsRead flags every unread notification of the caller.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"updated": updated})
	}
}

func requireUser(r *http.Request) (string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}
