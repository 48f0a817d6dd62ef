package models

import "time"

// CartLineItem is one product+variant entry inside a cart or an order
// snapshot. Prices are whole rupee amounts.
type CartLineItem struct {
	ProductID         string `json:"productId"`
	Name              string `json:"name"`
	UnitPrice         int64  `json:"unitPrice"`
	OriginalUnitPrice int64  `json:"originalUnitPrice,omitempty"`
	Image             string `json:"image,omitempty"`
	Quantity          int    `json:"quantity"`
	Color             string `json:"color,omitempty"`
	Size              string `json:"size,omitempty"`
}

// SameVariant reports whether the line matches the full
// (productID, color, size) discriminator tuple.
func (li CartLineItem) SameVariant(productID, color, size string) bool {
	return li.ProductID == productID && li.Color == color && li.Size == size
}

// Cart holds one user's line items. There is exactly one cart per user,
// stored under the owner's id; it is emptied, never deleted.
type Cart struct {
	OwnerID   string         `json:"ownerId"`
	Items     []CartLineItem `json:"items"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// TotalItemCount is recomputed from the items on every call so it can
// never drift from the actual lines.
func (c *Cart) TotalItemCount() int {
	total := 0
	for _, li := range c.Items {
		total += li.Quantity
	}
	return total
}

func (c *Cart) Subtotal() int64 {
	var total int64
	for _, li := range c.Items {
		total += li.UnitPrice * int64(li.Quantity)
	}
	return total
}

type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone,omitempty"`
}

func (a ShippingAddress) Empty() bool {
	return a.Line1 == "" && a.City == "" && a.PostalCode == ""
}

// Order is an immutable snapshot of a checkout. Items are copied from
// the cart at placement time, not referenced, so later cart changes
// cannot alter a placed order.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []CartLineItem  `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	Status          OrderStatus     `json:"status"`
	Subtotal        int64           `json:"subtotal"`
	ShippingCost    int64           `json:"shippingCost"`
	DiscountAmount  int64           `json:"discountAmount"`
	TotalAmount     int64           `json:"totalAmount"`
	IsTestOrder     bool            `json:"isTestOrder"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
