package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/ledger"
	"salesdesk/backend/internal/metrics"
	"salesdesk/backend/internal/store"
	"salesdesk/backend/internal/xid"
)

// Every unit of work below locks rows in the same order: allocation, item,
// salesperson.

func (s *Service) ListAllocations(ctx context.Context, filter domain.AllocationFilter) ([]domain.Allocation, error) {
	return s.repo.ListAllocations(ctx, filter)
}

// AllocationFilterForDay builds a filter covering one calendar day.
func (s *Service) AllocationFilterForDay(filter domain.AllocationFilter, date string) (domain.AllocationFilter, error) {
	day, err := s.parseDay(date)
	if err != nil {
		return domain.AllocationFilter{}, err
	}
	next := day.AddDate(0, 0, 1)
	filter.From = &day
	filter.To = &next
	return filter, nil
}

func (s *Service) GetAllocation(ctx context.Context, id string) (domain.Allocation, error) {
	a, err := s.repo.GetAllocation(ctx, id)
	if err != nil {
		return domain.Allocation{}, err
	}
	return *a, nil
}

// Allocate moves quantity units of an item out of stock and onto a
// salesperson. The item's current name and price are frozen on the record.
func (s *Service) Allocate(ctx context.Context, req domain.AllocationCreateRequest) (domain.Allocation, error) {
	allocation, err := s.allocate(ctx, req)
	metrics.ObserveOperation("allocate", ErrorKind(err))
	if err != nil {
		return domain.Allocation{}, err
	}

	s.afterWrite(ctx)
	log.Info().
		Str("allocation_id", allocation.ID).
		Str("salesperson_id", allocation.SalespersonID).
		Str("item_id", allocation.ItemID).
		Int("quantity", allocation.Quantity).
		Msg("allocation created")
	return allocation, nil
}

func (s *Service) allocate(ctx context.Context, req domain.AllocationCreateRequest) (domain.Allocation, error) {
	req.SalespersonID = strings.TrimSpace(req.SalespersonID)
	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.SalespersonID == "" || req.ItemID == "" {
		return domain.Allocation{}, fmt.Errorf("%w: salespersonId and itemId are required", store.ErrValidation)
	}
	if req.Quantity <= 0 {
		return domain.Allocation{}, fmt.Errorf("%w: quantity must be greater than zero", store.ErrValidation)
	}
	if err := ledger.CheckUnits("quantity", req.Quantity); err != nil {
		return domain.Allocation{}, err
	}
	allocatedAt, err := s.parseTimestamp(req.AllocationDate)
	if err != nil {
		return domain.Allocation{}, err
	}

	var created domain.Allocation
	err = s.repo.InTx(ctx, func(tx store.Tx) error {
		item, err := activeItem(ctx, tx, req.ItemID)
		if err != nil {
			return err
		}
		if err := requireActiveSalesperson(ctx, tx, req.SalespersonID); err != nil {
			return err
		}

		now := s.now()
		created = domain.Allocation{
			ID:             xid.New("alloc"),
			SalespersonID:  req.SalespersonID,
			ItemID:         item.ID,
			ItemName:       item.Name,
			ItemPrice:      item.Price,
			Quantity:       req.Quantity,
			AllocationDate: allocatedAt,
			Status:         domain.AllocationStatusAllocated,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if _, err := ledger.AdjustStock(ctx, tx, item.ID, -req.Quantity, domain.MovementReasonAllocation, created.ID); err != nil {
			return err
		}
		if _, err := ledger.RecordAllocation(ctx, tx, req.SalespersonID, req.Quantity); err != nil {
			return err
		}
		return tx.InsertAllocation(ctx, created)
	})
	return created, err
}

// EditAllocation changes the quantity of an open allocation and stores the
// staged sold quantity and payment. Staged values have no ledger effect until
// end-of-day settlement.
func (s *Service) EditAllocation(ctx context.Context, id string, req domain.AllocationUpdateRequest) (domain.Allocation, error) {
	var (
		updated domain.Allocation
		clamped bool
	)
	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		a, err := tx.GetAllocationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != domain.AllocationStatusAllocated {
			return fmt.Errorf("%w: allocation %s is %s and can no longer be edited", store.ErrInvalidState, id, a.Status)
		}
		if req.Status != nil && !strings.EqualFold(strings.TrimSpace(*req.Status), domain.AllocationStatusAllocated) {
			return fmt.Errorf("%w: allocation %s status only changes through end-of-day settlement", store.ErrInvalidState, id)
		}

		quantity := a.Quantity
		if req.Quantity != nil {
			if *req.Quantity <= 0 {
				return fmt.Errorf("%w: quantity must be greater than zero", store.ErrValidation)
			}
			if err := ledger.CheckUnits("quantity", *req.Quantity); err != nil {
				return err
			}
			quantity = *req.Quantity
		}
		sold := a.SoldQuantity
		if req.SoldQuantity != nil {
			if *req.SoldQuantity < 0 {
				return fmt.Errorf("%w: soldQuantity must not be negative", store.ErrValidation)
			}
			sold = *req.SoldQuantity
		}
		payment := a.PaymentReceived
		if req.PaymentReceived != nil {
			if err := ledger.CheckAmount("paymentReceived", *req.PaymentReceived); err != nil {
				return err
			}
			payment = *req.PaymentReceived
		}

		switch delta := quantity - a.Quantity; {
		case delta > 0:
			if _, err := activeItem(ctx, tx, a.ItemID); err != nil {
				return err
			}
			if err := requireActiveSalesperson(ctx, tx, a.SalespersonID); err != nil {
				return err
			}
			if _, err := ledger.AdjustStock(ctx, tx, a.ItemID, -delta, domain.MovementReasonAllocationEdit, a.ID); err != nil {
				return err
			}
			if _, err := ledger.RecordAllocation(ctx, tx, a.SalespersonID, delta); err != nil {
				return err
			}
		case delta < 0:
			if _, err := ledger.AdjustStock(ctx, tx, a.ItemID, -delta, domain.MovementReasonAllocationEdit, a.ID); err != nil {
				return err
			}
			if _, err := ledger.ReleaseAllocation(ctx, tx, a.SalespersonID, -delta); err != nil {
				return err
			}
		}

		if sold > quantity && quantity == a.Quantity {
			return fmt.Errorf("%w: allocation %s soldQuantity %d exceeds quantity %d", store.ErrValidation, id, sold, quantity)
		}
		if sold > quantity {
			sold = quantity
			payment = domain.ExpectedPayment(quantity, a.ItemPrice)
			clamped = true
		}

		a.Quantity = quantity
		a.SoldQuantity = sold
		a.PaymentReceived = payment
		a.UpdatedAt = s.now()
		if err := tx.UpdateAllocation(ctx, *a); err != nil {
			return err
		}
		updated = *a
		return nil
	})
	metrics.ObserveOperation("edit", ErrorKind(err))
	if err != nil {
		return domain.Allocation{}, err
	}

	s.afterWrite(ctx)
	event := log.Info()
	if clamped {
		event = log.Warn().Bool("staged_sold_clamped", true)
	}
	event.Str("allocation_id", id).Int("quantity", updated.Quantity).Int("staged_sold", updated.SoldQuantity).Msg("allocation edited")
	return updated, nil
}

// DeleteAllocation removes an allocation and reverses its ledger effects. A
// settled allocation is fully reversed: sold units go back to stock and its
// payment leaves totalSales. Returned units were restocked at settlement.
func (s *Service) DeleteAllocation(ctx context.Context, id string) error {
	var deleted domain.Allocation
	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		a, err := tx.GetAllocationForUpdate(ctx, id)
		if err != nil {
			return err
		}

		switch a.Status {
		case domain.AllocationStatusAllocated:
			if _, err := ledger.AdjustStock(ctx, tx, a.ItemID, a.Quantity, domain.MovementReasonAllocationDelete, a.ID); err != nil {
				return err
			}
			if _, err := ledger.ReleaseAllocation(ctx, tx, a.SalespersonID, a.Quantity); err != nil {
				return err
			}
		case domain.AllocationStatusSold, domain.AllocationStatusReturned:
			if _, err := ledger.AdjustStock(ctx, tx, a.ItemID, a.SoldQuantity, domain.MovementReasonAllocationDelete, a.ID); err != nil {
				return err
			}
			if _, err := ledger.ReverseSettlement(ctx, tx, a.SalespersonID, a.PaymentReceived); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: allocation %s has unknown status %q", store.ErrInvalidState, id, a.Status)
		}

		deleted = *a
		return tx.DeleteAllocation(ctx, id)
	})
	metrics.ObserveOperation("delete", ErrorKind(err))
	if err != nil {
		return err
	}

	s.afterWrite(ctx)
	log.Info().Str("allocation_id", id).Str("status", deleted.Status).Msg("allocation deleted")
	return nil
}

func activeItem(ctx context.Context, tx store.Tx, id string) (*domain.Item, error) {
	item, err := tx.GetItemForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.Active {
		return nil, fmt.Errorf("%w: item %s is no longer active", store.ErrNotFound, id)
	}
	return item, nil
}

func requireActiveSalesperson(ctx context.Context, tx store.Tx, id string) error {
	sp, err := tx.GetSalespersonForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if !sp.Active {
		return fmt.Errorf("%w: salesperson %s is no longer active", store.ErrNotFound, id)
	}
	return nil
}
