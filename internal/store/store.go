package store

import (
	"context"
	"errors"

	"salesdesk/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state")
)

// Repository is the read side plus the unit-of-work entry point. Every write
// goes through InTx so that item, salesperson and allocation changes made by
// one operation commit together.
type Repository interface {
	ListItems(ctx context.Context, includeInactive bool) ([]domain.Item, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	ListStockMovements(ctx context.Context, itemID string, limit int) ([]domain.StockMovement, error)
	ListSalespeople(ctx context.Context, includeInactive bool) ([]domain.Salesperson, error)
	GetSalesperson(ctx context.Context, id string) (*domain.Salesperson, error)
	ListAllocations(ctx context.Context, filter domain.AllocationFilter) ([]domain.Allocation, error)
	GetAllocation(ctx context.Context, id string) (*domain.Allocation, error)

	// InTx runs fn inside one transaction. A non-nil error from fn rolls back
	// every write fn made through tx.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes row-level access inside a unit of work. The ForUpdate reads lock
// the row until the unit of work ends, so a check made on the returned value
// still holds when the write lands.
//
// Stock and salesperson totals are only written by the ledger package, which
// owns the invariants on those columns.
type Tx interface {
	GetItemForUpdate(ctx context.Context, id string) (*domain.Item, error)
	FindActiveItemBySKU(ctx context.Context, sku string) (*domain.Item, error)
	InsertItem(ctx context.Context, item domain.Item) error
	UpdateItemDetails(ctx context.Context, item domain.Item) error
	UpdateItemStock(ctx context.Context, id string, stock int) error
	InsertStockMovement(ctx context.Context, movement domain.StockMovement) error

	GetSalespersonForUpdate(ctx context.Context, id string) (*domain.Salesperson, error)
	InsertSalesperson(ctx context.Context, salesperson domain.Salesperson) error
	UpdateSalespersonDetails(ctx context.Context, salesperson domain.Salesperson) error
	UpdateSalespersonTotals(ctx context.Context, salesperson domain.Salesperson) error

	GetAllocationForUpdate(ctx context.Context, id string) (*domain.Allocation, error)
	InsertAllocation(ctx context.Context, allocation domain.Allocation) error
	UpdateAllocation(ctx context.Context, allocation domain.Allocation) error
	DeleteAllocation(ctx context.Context, id string) error
	CountOpenAllocations(ctx context.Context, filter domain.AllocationFilter) (int, error)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
