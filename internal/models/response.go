package models

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

type OrderResponse struct {
	ID                    string     `json:"id"`
	OrderNumber           string     `json:"order_number"`
	SellerID              string     `json:"seller_id"`
	ProductID             string     `json:"product_id"`
	SessionID             *string    `json:"session_id"`
	ProductName           string     `json:"product_name"`
	ProductPrice          int64      `json:"product_price"`
	Quantity              int        `json:"quantity"`
	TotalPrice            int64      `json:"total_price"`
	CustomerName          string     `json:"customer_name"`
	CustomerPhone         string     `json:"customer_phone"`
	CustomerAddress       string     `json:"customer_address"`
	Status                string     `json:"status"`
	GoogleSheetsSynced    bool       `json:"google_sheets_synced"`
	GoogleSheetsRowNumber *int       `json:"google_sheets_row_number"`
	SyncRetryCount        int        `json:"sync_retry_count"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             *time.Time `json:"updated_at"`
}

func NewOrderResponse(o *Order) OrderResponse {
	resp := OrderResponse{
		ID:                    o.ID.String(),
		OrderNumber:           o.OrderNumber,
		SellerID:              o.SellerID.String(),
		ProductID:             o.ProductID.String(),
		ProductName:           o.ProductName,
		ProductPrice:          o.ProductPrice,
		Quantity:              o.Quantity,
		TotalPrice:            o.TotalPrice,
		CustomerName:          o.CustomerName,
		CustomerPhone:         o.CustomerPhone,
		CustomerAddress:       o.CustomerAddress,
		Status:                string(o.Status),
		GoogleSheetsSynced:    o.Synced,
		GoogleSheetsRowNumber: o.SheetRowNumber,
		SyncRetryCount:        o.SyncRetryCount,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
	if o.SessionID != nil {
		s := o.SessionID.String()
		resp.SessionID = &s
	}
	return resp
}

// OrderEnvelope wraps a single order in responses.
type OrderEnvelope struct {
	Order OrderResponse `json:"order"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	Pagination Pagination      `json:"pagination"`
}

type SheetsConnectResponse struct {
	AuthURL string `json:"authUrl"`
}

type SheetsStatusResponse struct {
	Connected        bool       `json:"connected"`
	Message          string     `json:"message,omitempty"`
	SpreadsheetID    string     `json:"spreadsheetId,omitempty"`
	SpreadsheetURL   string     `json:"spreadsheetUrl,omitempty"`
	ConnectedAt      *time.Time `json:"connectedAt,omitempty"`
	LastSyncAt       *time.Time `json:"lastSyncAt,omitempty"`
	PendingSyncCount int        `json:"pendingSyncCount"`
}

type SheetsTestResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	SpreadsheetID    string `json:"spreadsheetId"`
	SpreadsheetTitle string `json:"spreadsheetTitle"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SweepResult summarizes one retry sweep.
type SweepResult struct {
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Message   string `json:"message"`
}
