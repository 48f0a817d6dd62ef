// Package cart owns the shopping cart line-item rules: merge by
// variant, quantity updates, removal, and the one-cart-per-user
// persistence model.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/swiftkart/storefront/internal/docstore"
	"github.com/swiftkart/storefront/internal/models"
)

const Collection = "carts"

var ErrValidation = errors.New("validation")

type Service struct {
	Store docstore.Store
}

func NewService(store docstore.Store) *Service {
	return &Service{Store: store}
}

// GetCart returns the owner's cart, creating an empty one on first
// access. Carts are keyed directly by owner id, so two concurrent
// first reads converge on the same document instead of racing a
// query-then-insert.
func (s *Service) GetCart(ctx context.Context, ownerID string) (*models.Cart, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id required", ErrValidation)
	}

	doc, err := s.Store.Get(ctx, Collection, ownerID)
	if errors.Is(err, docstore.ErrNotFound) {
		c := &models.Cart{
			OwnerID:   ownerID,
			Items:     []models.CartLineItem{},
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := s.save(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var c models.Cart
	if err := docstore.Decode(doc, &c); err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return &c, nil
}

// AddItem merges the item into the cart. An existing line with the
// same (productId, color, size) has its quantity incremented; anything
// else is appended as a new line. Quantity below 1 is treated as 1.
func (s *Service) AddItem(ctx context.Context, ownerID string, item models.CartLineItem) (*models.Cart, error) {
	if item.ProductID == "" {
		return nil, fmt.Errorf("%w: product id required", ErrValidation)
	}
	if item.UnitPrice < 0 {
		return nil, fmt.Errorf("%w: unit price must be >= 0", ErrValidation)
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	c, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range c.Items {
		if c.Items[i].SameVariant(item.ProductID, item.Color, item.Size) {
			c.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, item)
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateQuantity sets the quantity of the matching line. A quantity of
// zero or less removes the line, so a sloppy caller cannot leave a
// zero-quantity item behind.
func (s *Service) UpdateQuantity(ctx context.Context, ownerID, productID string, quantity int, color, size string) (*models.Cart, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id required", ErrValidation)
	}
	if quantity < 1 {
		return s.RemoveItem(ctx, ownerID, productID, color, size)
	}

	c, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	changed := false
	for i := range c.Items {
		if c.Items[i].SameVariant(productID, color, size) {
			c.Items[i].Quantity = quantity
			changed = true
			break
		}
	}
	if !changed {
		return c, nil
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops the matching line. Removing a line that does not
// exist is not an error.
func (s *Service) RemoveItem(ctx context.Context, ownerID, productID string, color, size string) (*models.Cart, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id required", ErrValidation)
	}

	c, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	kept := c.Items[:0]
	for _, li := range c.Items {
		if !li.SameVariant(productID, color, size) {
			kept = append(kept, li)
		}
	}
	if len(kept) == len(c.Items) {
		return c, nil
	}
	c.Items = kept

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ClearCart empties the cart. The cart document itself stays.
func (s *Service) ClearCart(ctx context.Context, ownerID string) (*models.Cart, error) {
	c, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	c.Items = []models.CartLineItem{}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, c *models.Cart) error {
	c.UpdatedAt = time.Now().UTC()
	doc, err := docstore.Encode(c)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if err := s.Store.Set(ctx, Collection, c.OwnerID, doc); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
