package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/ledger"
	"salesdesk/backend/internal/store"
)

func (s *Service) ListSalespeople(ctx context.Context) ([]domain.Salesperson, error) {
	return s.repo.ListSalespeople(ctx, false)
}

func (s *Service) GetSalesperson(ctx context.Context, id string) (domain.Salesperson, error) {
	sp, err := s.repo.GetSalesperson(ctx, id)
	if err != nil {
		return domain.Salesperson{}, err
	}
	return *sp, nil
}

func (s *Service) CreateSalesperson(ctx context.Context, req domain.SalespersonCreateRequest) (domain.Salesperson, error) {
	var created domain.Salesperson
	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		var err error
		created, err = ledger.CreateSalesperson(ctx, tx, req)
		return err
	})
	if err != nil {
		return domain.Salesperson{}, err
	}

	s.afterWrite(ctx)
	log.Info().Str("salesperson_id", created.ID).Msg("salesperson created")
	return created, nil
}

func (s *Service) UpdateSalesperson(ctx context.Context, id string, req domain.SalespersonUpdateRequest) (domain.Salesperson, error) {
	var updated domain.Salesperson
	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		var err error
		updated, err = ledger.UpdateSalespersonDetails(ctx, tx, id, req)
		return err
	})
	if err != nil {
		return domain.Salesperson{}, err
	}

	s.afterWrite(ctx)
	return updated, nil
}

func (s *Service) DeleteSalesperson(ctx context.Context, id string) error {
	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		sp, err := tx.GetSalespersonForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !sp.Active {
			return fmt.Errorf("%w: salesperson %s", store.ErrNotFound, id)
		}
		open, err := tx.CountOpenAllocations(ctx, domain.AllocationFilter{SalespersonID: id})
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: salesperson %s has %d open allocations", store.ErrInvalidState, id, open)
		}
		sp.Active = false
		sp.UpdatedAt = s.now()
		return tx.UpdateSalespersonDetails(ctx, *sp)
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx)
	log.Info().Str("salesperson_id", id).Msg("salesperson deactivated")
	return nil
}
