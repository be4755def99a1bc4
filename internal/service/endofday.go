package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/ledger"
	"salesdesk/backend/internal/metrics"
	"salesdesk/backend/internal/store"
)

// EndOfDay settles a batch of allocations for one salesperson. Each entry is
// its own unit of work: a failing entry is reported in its outcome and does not
// undo entries settled before it.
func (s *Service) EndOfDay(ctx context.Context, salespersonID string, entries []domain.SettlementEntry) (domain.EndOfDayResult, error) {
	if len(entries) == 0 {
		return domain.EndOfDayResult{}, fmt.Errorf("%w: at least one settlement entry is required", store.ErrValidation)
	}
	if _, err := s.repo.GetSalesperson(ctx, salespersonID); err != nil {
		return domain.EndOfDayResult{}, err
	}

	result := domain.EndOfDayResult{
		SalespersonID: salespersonID,
		Outcomes:      make([]domain.SettlementOutcome, 0, len(entries)),
	}
	for _, entry := range entries {
		outcome := s.settle(ctx, salespersonID, entry)
		if outcome.OK() {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if result.Succeeded > 0 {
		s.afterWrite(ctx)
	}

	sp, err := s.repo.GetSalesperson(ctx, salespersonID)
	if err != nil {
		return result, err
	}
	result.Salesperson = sp

	log.Info().
		Str("salesperson_id", salespersonID).
		Int("settled", result.Succeeded).
		Int("failed", result.Failed).
		Str("total_sales", sp.TotalSales.String()).
		Msg("end-of-day batch processed")
	return result, nil
}

func (s *Service) settle(ctx context.Context, salespersonID string, entry domain.SettlementEntry) domain.SettlementOutcome {
	outcome := domain.SettlementOutcome{AllocationID: entry.AllocationID}

	var settled domain.Allocation
	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		a, err := tx.GetAllocationForUpdate(ctx, entry.AllocationID)
		if err != nil {
			return err
		}
		if a.SalespersonID != salespersonID {
			return fmt.Errorf("%w: allocation %s belongs to salesperson %s", store.ErrValidation, a.ID, a.SalespersonID)
		}
		if a.Status != domain.AllocationStatusAllocated {
			return fmt.Errorf("%w: allocation %s is already %s", store.ErrInvalidState, a.ID, a.Status)
		}
		if entry.SoldQuantity < 0 || entry.SoldQuantity > a.Quantity {
			return fmt.Errorf("%w: allocation %s soldQuantity %d must be between 0 and %d", store.ErrValidation, a.ID, entry.SoldQuantity, a.Quantity)
		}
		if err := ledger.CheckAmount("paymentReceived", entry.PaymentReceived); err != nil {
			return fmt.Errorf("allocation %s: %w", a.ID, err)
		}

		returned := a.Quantity - entry.SoldQuantity
		if returned > 0 {
			if _, err := ledger.AdjustStock(ctx, tx, a.ItemID, returned, domain.MovementReasonSettlementReturn, a.ID); err != nil {
				return err
			}
		}

		now := s.now()
		a.SoldQuantity = entry.SoldQuantity
		a.PaymentReceived = entry.PaymentReceived
		a.Status = domain.AllocationStatusReturned
		if entry.SoldQuantity > 0 {
			a.Status = domain.AllocationStatusSold
		}
		a.SettledAt = &now
		a.UpdatedAt = now
		if err := tx.UpdateAllocation(ctx, *a); err != nil {
			return err
		}
		if _, err := ledger.RecordSettlement(ctx, tx, salespersonID, a.Quantity, entry.PaymentReceived); err != nil {
			return err
		}
		settled = *a
		return nil
	})
	if err != nil {
		metrics.ObserveSettlement(ErrorKind(err), 0, 0)
		log.Warn().Err(err).Str("allocation_id", entry.AllocationID).Str("salesperson_id", salespersonID).Msg("settlement rejected")
		outcome.Err = err
		return outcome
	}

	expected := settled.ExpectedPayment()
	difference := settled.PaymentReceived.Sub(expected)
	outcome.Allocation = &settled
	outcome.Expected = &expected
	outcome.Difference = &difference
	metrics.ObserveSettlement("ok", settled.SoldQuantity, settled.ReturnedQuantity())

	if !difference.IsZero() {
		log.Info().
			Str("allocation_id", settled.ID).
			Str("expected", expected.String()).
			Str("received", settled.PaymentReceived.String()).
			Msg("settlement payment differs from expected")
	}
	return outcome
}

// Outstanding lists the salesperson's open allocations with the staged values
// entered so far, ready to be turned into an end-of-day batch.
func (s *Service) Outstanding(ctx context.Context, salespersonID string) (domain.OutstandingResponse, error) {
	sp, err := s.repo.GetSalesperson(ctx, salespersonID)
	if err != nil {
		return domain.OutstandingResponse{}, err
	}
	open, err := s.repo.ListAllocations(ctx, domain.AllocationFilter{
		SalespersonID: salespersonID,
		Status:        domain.AllocationStatusAllocated,
	})
	if err != nil {
		return domain.OutstandingResponse{}, err
	}

	resp := domain.OutstandingResponse{
		Salesperson:          *sp,
		Allocations:          make([]domain.OutstandingAllocation, 0, len(open)),
		TotalExpectedPayment: decimal.Zero,
		TotalStagedPayment:   decimal.Zero,
	}
	for _, a := range open {
		expected := a.ExpectedPayment()
		resp.Allocations = append(resp.Allocations, domain.OutstandingAllocation{
			Allocation:            a,
			StagedExpectedPayment: expected,
			StagedReturnQuantity:  a.Quantity - a.SoldQuantity,
		})
		resp.TotalQuantity += a.Quantity
		resp.TotalExpectedPayment = resp.TotalExpectedPayment.Add(expected)
		resp.TotalStagedPayment = resp.TotalStagedPayment.Add(a.PaymentReceived)
	}
	resp.StagedPaymentVariance = resp.TotalStagedPayment.Sub(resp.TotalExpectedPayment)
	return resp, nil
}
