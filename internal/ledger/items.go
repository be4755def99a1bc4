// Package ledger holds the guarded mutations of item stock and salesperson
// totals. Callers pass the store.Tx of the unit of work they are running in;
// nothing here commits on its own.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/store"
	"salesdesk/backend/internal/xid"
)

// CreateItem validates and inserts a new active item and records its opening
// stock as an initial movement.
func CreateItem(ctx context.Context, tx store.Tx, req domain.ItemCreateRequest) (domain.Item, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Category = strings.TrimSpace(req.Category)
	req.Description = strings.TrimSpace(req.Description)

	if req.Name == "" {
		return domain.Item{}, fmt.Errorf("%w: item name is required", store.ErrValidation)
	}
	if req.SKU == "" {
		return domain.Item{}, fmt.Errorf("%w: item sku is required", store.ErrValidation)
	}
	if err := CheckAmount("item price", req.Price); err != nil {
		return domain.Item{}, err
	}
	if err := CheckUnits("item stock", req.Stock); err != nil {
		return domain.Item{}, err
	}
	if err := CheckUnits("item minStock", req.MinStock); err != nil {
		return domain.Item{}, err
	}
	if err := ensureSKUFree(ctx, tx, req.SKU, ""); err != nil {
		return domain.Item{}, err
	}

	now := time.Now().UTC()
	item := domain.Item{
		ID:          xid.New("item"),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
		Category:    req.Category,
		SKU:         req.SKU,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.InsertItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	if err := recordMovement(ctx, tx, item.ID, item.Stock, item.Stock, domain.MovementReasonInitial, ""); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// UpdateItemDetails applies the descriptive fields of req. Stock is never
// touched here; see SetStock.
func UpdateItemDetails(ctx context.Context, tx store.Tx, id string, req domain.ItemUpdateRequest) (domain.Item, error) {
	item, err := tx.GetItemForUpdate(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	if !item.Active {
		return domain.Item{}, fmt.Errorf("%w: item %s is inactive", store.ErrNotFound, id)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Item{}, fmt.Errorf("%w: item name is required", store.ErrValidation)
		}
		item.Name = name
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		item.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		if err := CheckAmount("item price", *req.Price); err != nil {
			return domain.Item{}, err
		}
		item.Price = *req.Price
	}
	if req.MinStock != nil {
		if err := CheckUnits("item minStock", *req.MinStock); err != nil {
			return domain.Item{}, err
		}
		item.MinStock = *req.MinStock
	}
	if req.SKU != nil {
		sku := strings.ToUpper(strings.TrimSpace(*req.SKU))
		if sku == "" {
			return domain.Item{}, fmt.Errorf("%w: item sku is required", store.ErrValidation)
		}
		if sku != item.SKU {
			if err := ensureSKUFree(ctx, tx, sku, item.ID); err != nil {
				return domain.Item{}, err
			}
		}
		item.SKU = sku
	}

	item.UpdatedAt = time.Now().UTC()
	if err := tx.UpdateItemDetails(ctx, *item); err != nil {
		return domain.Item{}, err
	}
	return *item, nil
}

// AdjustStock adds delta to the item's stock. It is the only path through
// which allocations and returns move stock.
func AdjustStock(ctx context.Context, tx store.Tx, itemID string, delta int, reason string, allocationID string) (domain.Item, error) {
	item, err := tx.GetItemForUpdate(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	next := item.Stock + delta
	if next < 0 {
		return domain.Item{}, fmt.Errorf("%w: item %s has %d in stock, %d requested", store.ErrInsufficientStock, itemID, item.Stock, -delta)
	}
	if next > MaxUnits {
		return domain.Item{}, fmt.Errorf("%w: item %s stock would exceed %d", store.ErrValidation, itemID, MaxUnits)
	}
	if delta == 0 {
		return *item, nil
	}
	if err := tx.UpdateItemStock(ctx, itemID, next); err != nil {
		return domain.Item{}, err
	}
	if err := recordMovement(ctx, tx, itemID, delta, next, reason, allocationID); err != nil {
		return domain.Item{}, err
	}
	item.Stock = next
	item.UpdatedAt = time.Now().UTC()
	return *item, nil
}

// SetStock overwrites the item's stock with an administrative count.
func SetStock(ctx context.Context, tx store.Tx, itemID string, newStock int) (domain.Item, error) {
	if err := CheckUnits("item stock", newStock); err != nil {
		return domain.Item{}, err
	}
	item, err := tx.GetItemForUpdate(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	delta := newStock - item.Stock
	if delta == 0 {
		return *item, nil
	}
	if err := tx.UpdateItemStock(ctx, itemID, newStock); err != nil {
		return domain.Item{}, err
	}
	if err := recordMovement(ctx, tx, itemID, delta, newStock, domain.MovementReasonManualSet, ""); err != nil {
		return domain.Item{}, err
	}
	item.Stock = newStock
	item.UpdatedAt = time.Now().UTC()
	return *item, nil
}

func ensureSKUFree(ctx context.Context, tx store.Tx, sku string, selfID string) error {
	existing, err := tx.FindActiveItemBySKU(ctx, sku)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return fmt.Errorf("%w: sku %s is already used by item %s", store.ErrValidation, sku, existing.ID)
	}
	return nil
}

func recordMovement(ctx context.Context, tx store.Tx, itemID string, delta int, stockAfter int, reason string, allocationID string) error {
	return tx.InsertStockMovement(ctx, domain.StockMovement{
		ID:           xid.New("mov"),
		ItemID:       itemID,
		Delta:        delta,
		StockAfter:   stockAfter,
		Reason:       reason,
		AllocationID: allocationID,
		CreatedAt:    time.Now().UTC(),
	})
}
