package models

import "encoding/json"

type CreateOrderRequest struct {
	ProductID       string  `json:"product_id" example:"2f9c1c2e-7d4b-4a55-9a34-1c1f0c9b6a11"`
	SessionID       *string `json:"session_id,omitempty"`
	CustomerName    string  `json:"customer_name" example:"Amine B."`
	CustomerPhone   string  `json:"customer_phone" example:"0551234567"`
	CustomerAddress string  `json:"customer_address" example:"12 Rue Didouche Mourad, Alger"`
	// Quantity defaults to 1. Kept as a raw number so fractional or
	// non-positive values reach validation instead of failing binding.
	Quantity *json.Number `json:"quantity,omitempty" example:"1"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" example:"confirmed"`
}

type ListOrdersQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
