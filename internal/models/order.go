package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCancelled OrderStatus = "cancelled"
	StatusDelivered OrderStatus = "delivered"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusDelivered:
		return true
	}
	return false
}

// Capitalized renders the status the way it appears in the seller's sheet.
func (s OrderStatus) Capitalized() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Order is a customer order. ProductName and ProductPrice are snapshots taken
// at creation time; TotalPrice is always ProductPrice * Quantity.
type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	SellerID        uuid.UUID
	ProductID       uuid.UUID
	SessionID       *uuid.UUID
	ProductName     string
	ProductPrice    int64
	Quantity        int
	TotalPrice      int64
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Status          OrderStatus
	Synced          bool
	SheetRowNumber  *int
	SyncRetryCount  int
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// Product is the read-only snapshot the order flow needs. A nil Stock means
// the product is not stock tracked.
type Product struct {
	ID       uuid.UUID
	SellerID uuid.UUID
	Name     string
	Price    int64
	Stock    *int
}

// SheetsConnection links a seller to the spreadsheet their orders are mirrored to.
type SheetsConnection struct {
	ID                    uuid.UUID
	SellerID              uuid.UUID
	SpreadsheetID         string
	SpreadsheetURL        string
	RefreshTokenEncrypted string
	AccessToken           string
	TokenExpiresAt        time.Time
	ConnectedAt           time.Time
	LastSyncAt            *time.Time
}

// AccessTokenExpired reports whether the cached access token must be refreshed.
func (c *SheetsConnection) AccessTokenExpired(now time.Time) bool {
	return c.AccessToken == "" || !now.Before(c.TokenExpiresAt)
}
