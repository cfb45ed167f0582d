package handlers

import (
	"context"

	"github.com/google/uuid"

	"livey-backend/internal/models"
	"livey-backend/internal/services"
)

type OrderService interface {
	Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	List(ctx context.Context, sellerID uuid.UUID, limit, offset int) (*models.OrderListResponse, error)
	Get(ctx context.Context, sellerID, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, sellerID, id uuid.UUID, status string) (*models.Order, error)
}

type SheetsService interface {
	Connect(ctx context.Context, sellerID uuid.UUID) (string, error)
	CompleteAuthorization(ctx context.Context, p services.CallbackParams) string
	Status(ctx context.Context, sellerID uuid.UUID) (*models.SheetsStatusResponse, error)
	Test(ctx context.Context, sellerID uuid.UUID) (*models.SheetsTestResponse, error)
	Disconnect(ctx context.Context, sellerID uuid.UUID) (*models.SuccessResponse, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (*models.SweepResult, error)
}
