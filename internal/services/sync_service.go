package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"livey-backend/internal/errs"
	"livey-backend/internal/models"
	"livey-backend/internal/repository"
)

// SyncService appends orders to their seller's spreadsheet and records the outcome.
type SyncService struct {
	orders      repository.OrderRepository
	connections repository.ConnectionRepository
	tokens      *TokenManager
	sheets      SheetsProvider
	now         func() time.Time
	log         *zap.Logger
}

func NewSyncService(
	orders repository.OrderRepository,
	connections repository.ConnectionRepository,
	tokens *TokenManager,
	sheets SheetsProvider,
	log *zap.Logger,
) *SyncService {
	return &SyncService{
		orders:      orders,
		connections: connections,
		tokens:      tokens,
		sheets:      sheets,
		now:         time.Now,
		log:         log,
	}
}

// SyncOrder mirrors o into the seller's sheet. A seller without a connection is
// skipped and nil is returned. Any failure marks the order for retry and is
// returned; a revoked grant or missing spreadsheet also drops the connection.
//
// The append is not idempotent: if it succeeds but MarkSynced fails, a later
// retry appends the row again.
func (s *SyncService) SyncOrder(ctx context.Context, o *models.Order) error {
	conn, err := s.connections.GetBySeller(ctx, o.SellerID)
	if errors.Is(err, errs.ErrNotFound) {
		s.log.Debug("sheets sync skipped, no connection",
			zap.String("order_id", o.ID.String()), zap.String("seller_id", o.SellerID.String()))
		return nil
	}
	if err != nil {
		return s.fail(ctx, o, err)
	}

	token, err := s.tokens.AccessToken(ctx, conn)
	if err != nil {
		return s.fail(ctx, o, err)
	}

	row, err := s.sheets.AppendOrderRow(ctx, token, conn.SpreadsheetID, o)
	if err != nil {
		return s.fail(ctx, o, err)
	}

	// Bookkeeping must survive a request or job deadline that expired during the append.
	bg := context.WithoutCancel(ctx)
	if err := s.orders.MarkSynced(bg, o.ID, row); err != nil {
		s.log.Error("row appended but order not marked synced",
			zap.String("order_id", o.ID.String()), zap.Int("row", row), zap.Error(err))
		return fmt.Errorf("mark order synced: %w", err)
	}
	if err := s.connections.TouchLastSync(bg, o.SellerID, s.now()); err != nil {
		s.log.Warn("failed to update last sync time", zap.String("seller_id", o.SellerID.String()), zap.Error(err))
	}

	o.Synced = true
	if row > 0 {
		o.SheetRowNumber = &row
	}
	s.log.Info("sheets sync success",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.Int("row", row),
	)
	return nil
}

func (s *SyncService) fail(ctx context.Context, o *models.Order, cause error) error {
	bg := context.WithoutCancel(ctx)
	kind, _ := errs.KindOf(cause)

	if errs.IsPermanent(cause) {
		if err := s.connections.DeleteBySeller(bg, o.SellerID); err != nil {
			s.log.Error("failed to remove unusable sheets connection",
				zap.String("seller_id", o.SellerID.String()), zap.Error(err))
		} else {
			s.log.Warn("sheets connection removed",
				zap.String("seller_id", o.SellerID.String()), zap.Stringer("reason", kind))
		}
	}

	if err := s.orders.MarkSyncFailed(bg, o.ID); err != nil {
		s.log.Error("failed to record sync failure", zap.String("order_id", o.ID.String()), zap.Error(err))
	} else {
		o.Synced = false
		o.SyncRetryCount++
	}

	s.log.Warn("sheets sync failed",
		zap.String("order_id", o.ID.String()),
		zap.String("seller_id", o.SellerID.String()),
		zap.Stringer("kind", kind),
		zap.Error(cause),
	)
	return fmt.Errorf("sync order %s: %w", o.OrderNumber, cause)
}
