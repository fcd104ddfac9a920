package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cropchain/cropchain-backend/pkg/docstore"
	pkgerrors "github.com/cropchain/cropchain-backend/pkg/errors"
	"github.com/cropchain/cropchain-backend/pkg/pagination"
)

// Service exposes the seller dashboard reads.
type Service interface {
	ListForSeller(ctx context.Context, sellerID string, params pagination.Params) (*List, error)
	Get(ctx context.Context, sellerID, orderID string) (*Order, error)
}

// List is one page of orders, newest first.
type List struct {
	Orders     []Order `json:"orders"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

type service struct {
	store docstore.Store
}

// NewService builds the orders read service.
func NewService(store docstore.Store) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	return &service{store: store}, nil
}

func (s *service) ListForSeller(ctx context.Context, sellerID string, params pagination.Params) (*List, error) {
	col, err := collectionFor(sellerID)
	if err != nil {
		return nil, err
	}
	after, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	snaps, err := s.store.List(ctx, col, docstore.Query{
		TimeField: "orderDate",
		Desc:      true,
		Limit:     pagination.LimitWithBuffer(limit),
		After:     after,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cursor no longer valid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	list := &List{Orders: make([]Order, 0, len(snaps))}
	if len(snaps) > limit {
		snaps = snaps[:limit]
		list.NextCursor = pagination.EncodeCursor(snaps[len(snaps)-1].Ref.ID())
	}
	for _, snap := range snaps {
		order, err := decode(snap)
		if err != nil {
			return nil, err
		}
		list.Orders = append(list.Orders, *order)
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, sellerID, orderID string) (*Order, error) {
	col, err := collectionFor(sellerID)
	if err != nil {
		return nil, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" || strings.Contains(orderID, "/") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id")
	}

	snap, err := s.store.Get(ctx, col.Doc(orderID))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return decode(*snap)
}

func collectionFor(sellerID string) (docstore.CollectionRef, error) {
	col, err := Collection(strings.TrimSpace(sellerID))
	if err != nil {
		return docstore.CollectionRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id")
	}
	return col, nil
}

func decode(snap docstore.Snapshot) (*Order, error) {
	var order Order
	if err := snap.DataTo(&order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode order")
	}
	order.ID = snap.Ref.ID()
	return &order, nil
}
