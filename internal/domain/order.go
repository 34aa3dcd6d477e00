package domain

import "time"

// Order status values with dedicated rendering; anything else is treated as rejected.
const (
	OrderStatusApproved = "approved"
	OrderStatusPending  = "pending"
)

// Order is a sales order owned by one sales officer.
type Order struct {
	ID             int64     `json:"id"`
	OrderNumber    string    `json:"orderNumber"`
	CustomerName   string    `json:"customerName"`
	TotalAmount    float64   `json:"totalAmount"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	ProductType    string    `json:"productType,omitempty"`
	Unit           string    `json:"unit,omitempty"`
	Quantity       float64   `json:"quantity"`
	Price          float64   `json:"price"`
	SalesOfficerID int64     `json:"salesOfficerId"`
}
