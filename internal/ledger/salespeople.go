package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/store"
	"salesdesk/backend/internal/xid"
)

func CreateSalesperson(ctx context.Context, tx store.Tx, req domain.SalespersonCreateRequest) (domain.Salesperson, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Salesperson{}, fmt.Errorf("%w: salesperson name is required", store.ErrValidation)
	}

	now := time.Now().UTC()
	sp := domain.Salesperson{
		ID:         xid.New("sp"),
		Name:       name,
		Phone:      strings.TrimSpace(req.Phone),
		TotalSales: decimal.Zero,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.InsertSalesperson(ctx, sp); err != nil {
		return domain.Salesperson{}, err
	}
	return sp, nil
}

// UpdateSalespersonDetails changes contact details only.
func UpdateSalespersonDetails(ctx context.Context, tx store.Tx, id string, req domain.SalespersonUpdateRequest) (domain.Salesperson, error) {
	sp, err := tx.GetSalespersonForUpdate(ctx, id)
	if err != nil {
		return domain.Salesperson{}, err
	}
	if !sp.Active {
		return domain.Salesperson{}, fmt.Errorf("%w: salesperson %s is inactive", store.ErrNotFound, id)
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Salesperson{}, fmt.Errorf("%w: salesperson name is required", store.ErrValidation)
		}
		sp.Name = name
	}
	if req.Phone != nil {
		sp.Phone = strings.TrimSpace(*req.Phone)
	}
	sp.UpdatedAt = time.Now().UTC()
	if err := tx.UpdateSalespersonDetails(ctx, *sp); err != nil {
		return domain.Salesperson{}, err
	}
	return *sp, nil
}

// RecordAllocation adds qty units to the salesperson's outstanding count.
func RecordAllocation(ctx context.Context, tx store.Tx, salespersonID string, qty int) (domain.Salesperson, error) {
	if qty < 0 {
		return domain.Salesperson{}, fmt.Errorf("%w: allocated quantity must not be negative", store.ErrValidation)
	}
	return applyTotals(ctx, tx, salespersonID, qty, decimal.Zero)
}

// ReleaseAllocation removes qty units from the outstanding count without any
// sale, as when an allocation is reduced or deleted.
func ReleaseAllocation(ctx context.Context, tx store.Tx, salespersonID string, qty int) (domain.Salesperson, error) {
	if qty < 0 {
		return domain.Salesperson{}, fmt.Errorf("%w: released quantity must not be negative", store.ErrValidation)
	}
	return applyTotals(ctx, tx, salespersonID, -qty, decimal.Zero)
}

// RecordSettlement closes qtyAllocated outstanding units and books payment
// into totalSales. Totals are incremented, never recomputed.
func RecordSettlement(ctx context.Context, tx store.Tx, salespersonID string, qtyAllocated int, payment decimal.Decimal) (domain.Salesperson, error) {
	if qtyAllocated < 0 {
		return domain.Salesperson{}, fmt.Errorf("%w: settled quantity must not be negative", store.ErrValidation)
	}
	if err := CheckAmount("payment", payment); err != nil {
		return domain.Salesperson{}, err
	}
	return applyTotals(ctx, tx, salespersonID, -qtyAllocated, payment)
}

// ReverseSettlement takes a previously booked payment back out of totalSales.
func ReverseSettlement(ctx context.Context, tx store.Tx, salespersonID string, payment decimal.Decimal) (domain.Salesperson, error) {
	if err := CheckAmount("payment", payment); err != nil {
		return domain.Salesperson{}, err
	}
	return applyTotals(ctx, tx, salespersonID, 0, payment.Neg())
}

func applyTotals(ctx context.Context, tx store.Tx, salespersonID string, qtyDelta int, salesDelta decimal.Decimal) (domain.Salesperson, error) {
	sp, err := tx.GetSalespersonForUpdate(ctx, salespersonID)
	if err != nil {
		return domain.Salesperson{}, err
	}

	allocated := sp.ItemsAllocated + qtyDelta
	if allocated < 0 {
		return domain.Salesperson{}, fmt.Errorf("%w: salesperson %s has %d units outstanding, cannot release %d", store.ErrInvalidState, salespersonID, sp.ItemsAllocated, -qtyDelta)
	}
	if allocated > MaxUnits {
		return domain.Salesperson{}, fmt.Errorf("%w: salesperson %s outstanding units would exceed %d", store.ErrValidation, salespersonID, MaxUnits)
	}
	total := sp.TotalSales.Add(salesDelta)
	if total.IsNegative() {
		return domain.Salesperson{}, fmt.Errorf("%w: salesperson %s totalSales %s cannot drop by %s", store.ErrInvalidState, salespersonID, sp.TotalSales, salesDelta.Neg())
	}
	if total.GreaterThanOrEqual(maxAmount) {
		return domain.Salesperson{}, fmt.Errorf("%w: salesperson %s totalSales would exceed the maximum amount", store.ErrValidation, salespersonID)
	}
	if qtyDelta == 0 && salesDelta.IsZero() {
		return *sp, nil
	}

	sp.ItemsAllocated = allocated
	sp.TotalSales = total
	sp.UpdatedAt = time.Now().UTC()
	if err := tx.UpdateSalespersonTotals(ctx, *sp); err != nil {
		return domain.Salesperson{}, err
	}
	return *sp, nil
}
