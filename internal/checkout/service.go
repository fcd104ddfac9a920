package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cropchain/cropchain-backend/internal/cart"
	"github.com/cropchain/cropchain-backend/internal/checkout/helpers"
	"github.com/cropchain/cropchain-backend/internal/notifications"
	"github.com/cropchain/cropchain-backend/internal/orders"
	"github.com/cropchain/cropchain-backend/pkg/docstore"
	pkgerrors "github.com/cropchain/cropchain-backend/pkg/errors"
	"github.com/cropchain/cropchain-backend/pkg/logger"
	"github.com/cropchain/cropchain-backend/pkg/metrics"
)

const (
	MessageCheckoutSuccess     = "cart.checkoutSuccessDescription"
	MessageShopCheckoutSuccess = "cart.shopCheckoutSuccessDescription"
	MessageCheckoutFailed      = "cart.checkoutFailedDescription"
	MessageAuthError           = "marketplace.authErrorDescription"

	outcomeSuccess = "success"
	outcomeFailed  = "failed"
)

// Identity is the authenticated buyer.
type Identity struct {
	ID          string
	DisplayName string
}

// Cart is the session cart being checked out.
type Cart interface {
	Items() []cart.CartItem
	Clear(ctx context.Context)
}

// Request carries one checkout attempt. CheckoutID is optional; when set,
// order and notification ids are derived from it so a retry overwrites the
// same documents.
type Request struct {
	Buyer      Identity
	Cart       Cart
	CheckoutID string
}

// SellerResult reports what happened to one seller group.
type SellerResult struct {
	SellerID       string          `json:"seller_id"`
	OrderID        string          `json:"order_id"`
	NotificationID string          `json:"notification_id"`
	Total          decimal.Decimal `json:"total"`
	ItemCount      int             `json:"item_count"`
	Committed      bool            `json:"committed"`
}

// Result summarizes a checkout. On failure it lists the groups attempted so
// far; committed groups are not rolled back.
type Result struct {
	CheckoutID    string         `json:"checkout_id,omitempty"`
	Sellers       []SellerResult `json:"sellers"`
	ShopItemCount int            `json:"shop_item_count"`
	MessageKey    string         `json:"message_key,omitempty"`
}

// Committed counts the seller groups whose batch committed.
func (r *Result) Committed() int {
	n := 0
	for _, s := range r.Sellers {
		if s.Committed {
			n++
		}
	}
	return n
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	store   docstore.Store
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

// NewService builds the checkout service. metrics and logg may be nil.
func NewService(store docstore.Store, m *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	return &service{store: store, metrics: m, logg: logg}, nil
}

// Execute writes one order and one notification per seller, each pair in its
// own atomic batch, sellers in cart order. The first failing batch stops the
// run; earlier batches stay committed and the cart is kept for a retry. When
// every batch commits the whole cart, shop lines included, is cleared.
func (s *service) Execute(ctx context.Context, req Request) (*Result, error) {
	buyerID := strings.TrimSpace(req.Buyer.ID)
	if buyerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required").
			WithDetails(map[string]any{"message_key": MessageAuthError})
	}
	if req.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart required")
	}

	started := time.Now()
	checkoutID := strings.TrimSpace(req.CheckoutID)
	if s.logg != nil {
		ctx = s.logg.WithUserID(ctx, buyerID)
		if checkoutID != "" {
			ctx = s.logg.WithCheckoutID(ctx, checkoutID)
		}
	}

	items := req.Cart.Items()
	marketplace, shop := helpers.PartitionItems(items)
	groups := helpers.GroupBySeller(marketplace)

	result := &Result{
		CheckoutID:    checkoutID,
		Sellers:       make([]SellerResult, 0, len(groups)),
		ShopItemCount: len(shop),
	}
	buyerName := orders.BuyerNameOrAnonymous(strings.TrimSpace(req.Buyer.DisplayName))

	for _, group := range groups {
		seller, err := s.commitGroup(ctx, buyerID, buyerName, result.CheckoutID, group)
		result.Sellers = append(result.Sellers, seller)
		if err != nil {
			s.metrics.IncBatch(metrics.ResultFailed)
			s.metrics.ObserveDuration(outcomeFailed, time.Since(started))
			s.logFailure(ctx, group.SellerID, result.Committed(), err)
			result.MessageKey = MessageCheckoutFailed
			return result, pkgerrors.Wrap(pkgerrors.CodeCheckout, err, "checkout failed").
				WithDetails(result)
		}
		s.metrics.IncBatch(metrics.ResultCommitted)
	}

	switch {
	case len(groups) > 0:
		result.MessageKey = MessageCheckoutSuccess
	case len(shop) > 0:
		result.MessageKey = MessageShopCheckoutSuccess
	}
	if len(items) > 0 {
		req.Cart.Clear(ctx)
	}

	s.metrics.ObserveDuration(outcomeSuccess, time.Since(started))
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"sellers":    len(groups),
			"shop_items": len(shop),
		}), "checkout.completed")
	}
	return result, nil
}

func (s *service) commitGroup(ctx context.Context, buyerID, buyerName, checkoutID string, group helpers.SellerGroup) (SellerResult, error) {
	res := SellerResult{
		SellerID:  group.SellerID,
		Total:     helpers.ComputeSellerTotal(group.Items),
		ItemCount: len(group.Items),
	}

	orderCol, err := orders.Collection(group.SellerID)
	if err != nil {
		return res, err
	}
	notifCol, err := notifications.Collection(group.SellerID)
	if err != nil {
		return res, err
	}

	orderRef, notifRef := orderCol.NewDoc(), notifCol.NewDoc()
	if checkoutID != "" {
		orderRef = orderCol.Doc(helpers.DocumentID(buyerID, checkoutID, group.SellerID, "order"))
		notifRef = notifCol.Doc(helpers.DocumentID(buyerID, checkoutID, group.SellerID, "notification"))
	}
	res.OrderID = orderRef.ID()
	res.NotificationID = notifRef.ID()

	orderItems := make([]orders.Item, 0, len(group.Items))
	notifItems := make([]notifications.OrderItem, 0, len(group.Items))
	for _, item := range group.Items {
		orderItems = append(orderItems, orders.Item{
			ID:       item.ID,
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price.InexactFloat64(),
			Unit:     item.Unit,
			IsSample: item.IsSample,
			ImageID:  item.ImageID,
			ImageURL: item.ImageURL,
		})
		notifItems = append(notifItems, notifications.OrderItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			IsSample: item.IsSample,
		})
	}

	order := orders.NewOrder{
		SellerID:  group.SellerID,
		BuyerID:   buyerID,
		BuyerName: buyerName,
		Total:     res.Total,
		Items:     orderItems,
	}

	batch := s.store.Batch()
	batch.Set(orderRef, order.Fields())
	batch.Set(notifRef, notifications.NewOrderFields(group.SellerID, buyerName, notifItems))
	if err := batch.Commit(ctx); err != nil {
		return res, err
	}
	res.Committed = true
	return res, nil
}

func (s *service) logFailure(ctx context.Context, sellerID string, committed int, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithSellerID(ctx, sellerID)
	ctx = s.logg.WithField(ctx, "committed_sellers", committed)
	s.logg.Error(ctx, "checkout.seller_batch_failed", err)
}
