package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/ledger"
	"salesdesk/backend/internal/store"
)

func (s *Service) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.repo.ListItems(ctx, false)
}

func (s *Service) GetItem(ctx context.Context, id string) (domain.Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	return *item, nil
}

func (s *Service) LowStockItems(ctx context.Context) ([]domain.Item, error) {
	items, err := s.repo.ListItems(ctx, false)
	if err != nil {
		return nil, err
	}
	low := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item.LowStock() {
			low = append(low, item)
		}
	}
	return low, nil
}

func (s *Service) StockMovements(ctx context.Context, itemID string, limit int) ([]domain.StockMovement, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListStockMovements(ctx, itemID, limit)
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.Item, error) {
	var created domain.Item
	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		var err error
		created, err = ledger.CreateItem(ctx, tx, req)
		return err
	})
	if err != nil {
		return domain.Item{}, err
	}

	s.afterWrite(ctx)
	log.Info().Str("item_id", created.ID).Str("sku", created.SKU).Int("stock", created.Stock).Msg("item created")
	return created, nil
}

// UpdateItem applies descriptive changes and, when req.Stock is set, an
// administrative stock override. Both land in one unit of work.
func (s *Service) UpdateItem(ctx context.Context, id string, req domain.ItemUpdateRequest) (domain.Item, error) {
	var updated domain.Item
	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		var err error
		updated, err = ledger.UpdateItemDetails(ctx, tx, id, req)
		if err != nil {
			return err
		}
		if req.Stock != nil && *req.Stock != updated.Stock {
			updated, err = ledger.SetStock(ctx, tx, id, *req.Stock)
		}
		return err
	})
	if err != nil {
		return domain.Item{}, err
	}

	s.afterWrite(ctx)
	return updated, nil
}

// DeleteItem deactivates the item. Allocations keep resolving its id.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		item, err := tx.GetItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !item.Active {
			return fmt.Errorf("%w: item %s", store.ErrNotFound, id)
		}
		open, err := tx.CountOpenAllocations(ctx, domain.AllocationFilter{ItemID: id})
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: item %s has %d open allocations", store.ErrInvalidState, id, open)
		}
		item.Active = false
		item.UpdatedAt = s.now()
		return tx.UpdateItemDetails(ctx, *item)
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx)
	log.Info().Str("item_id", id).Msg("item deactivated")
	return nil
}
