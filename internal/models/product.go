package models

import "gorm.io/gorm"

// Product represents a product in the store.
// Price is in the smallest currency unit (e.g., rupiah), never fractional.
type Product struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	Price       int    `json:"price" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	// Delivery is the digital payload (voucher code, download link) sent to
	// the buyer only after an admin accepts the payment.
	Delivery   string `json:"delivery,omitempty" validate:"omitempty,max=1000"`
	SellerID   string `json:"seller_id,omitempty" gorm:"type:varchar(36)"`
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// BuyerView returns a copy of the product safe to show to non-admin users:
// the delivery payload and seller identity are hidden until settlement.
func (p Product) BuyerView() Product {
	p.Delivery = ""
	p.SellerID = ""
	return p
}
