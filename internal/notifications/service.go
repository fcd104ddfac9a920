package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cropchain/cropchain-backend/pkg/docstore"
	pkgerrors "github.com/cropchain/cropchain-backend/pkg/errors"
	"github.com/cropchain/cropchain-backend/pkg/logger"
	"github.com/cropchain/cropchain-backend/pkg/pagination"
)

// Service manages a user's notification inbox.
type Service interface {
	List(ctx context.Context, userID string, unreadOnly bool, params pagination.Params) (*List, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Render(lang string, n Notification) Rendered
}

// List is one page of notifications, newest first.
type List struct {
	Notifications []Notification `json:"notifications"`
	NextCursor    string         `json:"next_cursor,omitempty"`
}

type service struct {
	store    docstore.Store
	renderer *Renderer
	logg     *logger.Logger
}

// NewService builds the notification service.
func NewService(store docstore.Store, renderer *Renderer, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer required")
	}
	return &service{store: store, renderer: renderer, logg: logg}, nil
}

func (s *service) List(ctx context.Context, userID string, unreadOnly bool, params pagination.Params) (*List, error) {
	col, err := collectionFor(userID)
	if err != nil {
		return nil, err
	}
	after, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	query := docstore.Query{
		TimeField: "createdAt",
		Desc:      true,
		Limit:     pagination.LimitWithBuffer(limit),
		After:     after,
	}
	if unreadOnly {
		query.Where = []docstore.Filter{{Field: "read", Value: false}}
	}

	snaps, err := s.store.List(ctx, col, query)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cursor no longer valid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	list := &List{Notifications: make([]Notification, 0, len(snaps))}
	if len(snaps) > limit {
		snaps = snaps[:limit]
		list.NextCursor = pagination.EncodeCursor(snaps[len(snaps)-1].Ref.ID())
	}
	for _, snap := range snaps {
		var n Notification
		if err := snap.DataTo(&n); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode notification")
		}
		n.ID = snap.Ref.ID()
		list.Notifications = append(list.Notifications, n)
	}
	return list, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) error {
	col, err := collectionFor(userID)
	if err != nil {
		return err
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" || strings.Contains(notificationID, "/") {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification id")
	}

	if err := s.store.Update(ctx, col.Doc(notificationID), map[string]any{"read": true}); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}

// MarkAllRead flags every unread notification in one batch and returns how
// many changed. A failed commit leaves all of them unread.
func (s *service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	col, err := collectionFor(userID)
	if err != nil {
		return 0, err
	}
	snaps, err := s.store.List(ctx, col, docstore.Query{
		Where: []docstore.Filter{{Field: "read", Value: false}},
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unread notifications")
	}

	if len(snaps) == 0 {
		return 0, nil
	}

	batch := s.store.Batch()
	for _, snap := range snaps {
		batch.Update(snap.Ref, map[string]any{"read": true})
	}
	if err := batch.Commit(ctx); err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "count", len(snaps)), "notifications.mark_all_read_failed", err)
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return len(snaps), nil
}

func (s *service) Render(lang string, n Notification) Rendered {
	return s.renderer.Render(lang, n)
}

func collectionFor(userID string) (docstore.CollectionRef, error) {
	col, err := Collection(strings.TrimSpace(userID))
	if err != nil {
		return docstore.CollectionRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return col, nil
}
