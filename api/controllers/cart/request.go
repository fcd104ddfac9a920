package cart

import (
	"github.com/shopspring/decimal"

	"github.com/cropchain/cropchain-backend/api/validators"
	cartsvc "github.com/cropchain/cropchain-backend/internal/cart"
)

const maxNameLength = 128

// AddItemRequest is the body of POST /api/v1/cart/items.
type AddItemRequest struct {
	ID       string          `json:"id" validate:"required,notblank,max=128"`
	Name     string          `json:"name" validate:"required,notblank"`
	Quantity int             `json:"quantity" validate:"gt=0,max=10000"`
	Price    decimal.Decimal `json:"price" validate:"money"`
	Unit     *string         `json:"unit"`
	UserID   *string         `json:"userId" validate:"omitempty,notblank,max=128,excludes=/"`
	IsSample bool            `json:"isSample"`
	ImageID  *string         `json:"imageId"`
	ImageURL *string         `json:"imageUrl" validate:"omitempty,url"`
}

// UpdateQuantityRequest is the body of PATCH /api/v1/cart/items/{itemId}.
// A quantity of zero or less removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func (r AddItemRequest) toItem() cartsvc.CartItem {
	return cartsvc.CartItem{
		ID:       validators.SanitizeString(r.ID, maxNameLength),
		Name:     validators.SanitizeString(r.Name, maxNameLength),
		Price:    r.Price,
		Unit:     trimmed(r.Unit),
		UserID:   trimmed(r.UserID),
		IsSample: r.IsSample,
		ImageID:  trimmed(r.ImageID),
		ImageURL: trimmed(r.ImageURL),
	}
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := validators.SanitizeString(*v, 0)
	if s == "" {
		return nil
	}
	return &s
}
