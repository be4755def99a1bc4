package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/store"
	"salesdesk/backend/internal/store/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// inTx runs fn in its own unit of work against repo.
func inTx(t *testing.T, repo *memory.Store, fn func(ctx context.Context, tx store.Tx) error) error {
	t.Helper()
	ctx := context.Background()
	return repo.InTx(ctx, func(tx store.Tx) error {
		return fn(ctx, tx)
	})
}

func seedItem(t *testing.T, repo *memory.Store, stock int) domain.Item {
	t.Helper()
	var item domain.Item
	err := inTx(t, repo, func(ctx context.Context, tx store.Tx) error {
		var err error
		item, err = CreateItem(ctx, tx, domain.ItemCreateRequest{Name: "Chocolate", SKU: "choc-1", Price: dec("2.50"), Stock: stock})
		return err
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func seedSalesperson(t *testing.T, repo *memory.Store) domain.Salesperson {
	t.Helper()
	var sp domain.Salesperson
	err := inTx(t, repo, func(ctx context.Context, tx store.Tx) error {
		var err error
		sp, err = CreateSalesperson(ctx, tx, domain.SalespersonCreateRequest{Name: "Amina"})
		return err
	})
	if err != nil {
		t.Fatalf("create salesperson: %v", err)
	}
	return sp
}

func TestCheckAmount(t *testing.T) {
	cases := []struct {
		amount string
		ok     bool
	}{
		{"0", true},
		{"12.5", true},
		{"12.50", true},
		{"12.500", true},
		{"999999999999.99", true},
		{"0.005", false},
		{"1.001", false},
		{"-0.01", false},
		{"1000000000000", false},
	}
	for _, tc := range cases {
		err := CheckAmount("price", dec(tc.amount))
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.amount, err)
		}
		if !tc.ok && !errors.Is(err, store.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", tc.amount, err)
		}
	}
}

func TestCheckUnits(t *testing.T) {
	if err := CheckUnits("stock", MaxUnits); err != nil {
		t.Fatalf("MaxUnits must be accepted: %v", err)
	}
	if err := CheckUnits("stock", MaxUnits+1); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error above MaxUnits, got %v", err)
	}
	if err := CheckUnits("stock", -1); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for negative count, got %v", err)
	}
}

func TestCreateItemRecordsInitialMovement(t *testing.T) {
	repo := memory.New()
	item := seedItem(t, repo, 7)

	if item.SKU != "CHOC-1" || item.Stock != 7 || !item.Active {
		t.Fatalf("unexpected item: %+v", item)
	}
	movements, err := repo.ListStockMovements(context.Background(), item.ID, 10)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(movements) != 1 || movements[0].Reason != domain.MovementReasonInitial || movements[0].StockAfter != 7 {
		t.Fatalf("unexpected movements: %+v", movements)
	}

	err = inTx(t, repo, func(ctx context.Context, tx store.Tx) error {
		_, err := CreateItem(ctx, tx, domain.ItemCreateRequest{Name: "Other", SKU: "Choc-1", Price: dec("1")})
		return err
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected duplicate sku to be rejected, got %v", err)
	}
}

func TestAdjustStockGuardsBothBounds(t *testing.T) {
	repo := memory.New()
	item := seedItem(t, repo, 3)

	err := inTx(t, repo, func(ctx context.Context, tx store.Tx) error {
		_, err := AdjustStock(ctx, tx, item.ID, -4, domain.MovementReasonAllocation, "alloc-1")
		return err
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	err = inTx(t, repo, func(ctx context.Context, tx store.Tx) error {
		_, err := AdjustStock(ctx, tx, item.ID, MaxUnits, domain.MovementReasonSettlementReturn, "alloc-1")
		return err
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error past MaxUnits, got %v", err)
	}

	err = inTx(t, repo, func(ctx context.Context, tx store.Tx) error {
		_, err := AdjustStock(ctx, tx, item.ID, -3, domain.MovementReasonAllocation, "alloc-1")
		return err
	})
	if err != nil {
		t.Fatalf("draining stock to zero: %v", err)
	}

	got, err := repo.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", got.Stock)
	}
	movements, err := repo.ListStockMovements(context.Background(), item.ID, 10)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(movements) != 2 || movements[0].Delta != -3 || movements[0].AllocationID != "alloc-1" {
		t.Fatalf("expected only committed adjustments to be recorded, got %+v", movements)
	}
}

func TestSetStockRecordsManualMovement(t *testing.T) {
	repo := memory.New()
	item := seedItem(t, repo, 3)

	var updated domain.Item
	err := inTx(t, repo, func(ctx context.Context, tx store.Tx) error {
		var err error
		updated, err = SetStock(ctx, tx, item.ID, 12)
		return err
	})
	if err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if updated.Stock != 12 {
		t.Fatalf("expected stock 12, got %d", updated.Stock)
	}
	movements, err := repo.ListStockMovements(context.Background(), item.ID, 1)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if movements[0].Reason != domain.MovementReasonManualSet || movements[0].Delta != 9 {
		t.Fatalf("unexpected movement: %+v", movements[0])
	}

	err = inTx(t, repo, func(ctx context.Context, tx store.Tx) error {
		_, err := SetStock(ctx, tx, item.ID, -1)
		return err
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for negative stock, got %v", err)
	}
}

func TestSalespersonTotalsNeverGoNegative(t *testing.T) {
	repo := memory.New()
	sp := seedSalesperson(t, repo)

	steps := []struct {
		name      string
		apply     func(ctx context.Context, tx store.Tx) (domain.Salesperson, error)
		wantErr   error
		allocated int
		sales     string
	}{
		{"allocate", func(ctx context.Context, tx store.Tx) (domain.Salesperson, error) {
			return RecordAllocation(ctx, tx, sp.ID, 5)
		}, nil, 5, "0"},
		{"release too many", func(ctx context.Context, tx store.Tx) (domain.Salesperson, error) {
			return ReleaseAllocation(ctx, tx, sp.ID, 6)
		}, store.ErrInvalidState, 5, "0"},
		{"release", func(ctx context.Context, tx store.Tx) (domain.Salesperson, error) {
			return ReleaseAllocation(ctx, tx, sp.ID, 1)
		}, nil, 4, "0"},
		{"settle", func(ctx context.Context, tx store.Tx) (domain.Salesperson, error) {
			return RecordSettlement(ctx, tx, sp.ID, 4, dec("7.50"))
		}, nil, 0, "7.50"},
		{"sub-cent payment", func(ctx context.Context, tx store.Tx) (domain.Salesperson, error) {
			return RecordSettlement(ctx, tx, sp.ID, 0, dec("0.005"))
		}, store.ErrValidation, 0, "7.50"},
		{"reverse too much", func(ctx context.Context, tx store.Tx) (domain.Salesperson, error) {
			return ReverseSettlement(ctx, tx, sp.ID, dec("8"))
		}, store.ErrInvalidState, 0, "7.50"},
		{"reverse", func(ctx context.Context, tx store.Tx) (domain.Salesperson, error) {
			return ReverseSettlement(ctx, tx, sp.ID, dec("7.50"))
		}, nil, 0, "0"},
		{"unknown salesperson", func(ctx context.Context, tx store.Tx) (domain.Salesperson, error) {
			return RecordAllocation(ctx, tx, "sp-missing", 1)
		}, store.ErrNotFound, 0, "0"},
	}

	for _, step := range steps {
		err := inTx(t, repo, func(ctx context.Context, tx store.Tx) error {
			_, err := step.apply(ctx, tx)
			return err
		})
		if step.wantErr == nil && err != nil {
			t.Fatalf("%s: unexpected error %v", step.name, err)
		}
		if step.wantErr != nil && !errors.Is(err, step.wantErr) {
			t.Fatalf("%s: expected %v, got %v", step.name, step.wantErr, err)
		}

		got, err := repo.GetSalesperson(context.Background(), sp.ID)
		if err != nil {
			t.Fatalf("%s: get salesperson: %v", step.name, err)
		}
		if got.ItemsAllocated != step.allocated || !got.TotalSales.Equal(dec(step.sales)) {
			t.Fatalf("%s: expected %d allocated and %s sales, got %d and %s", step.name, step.allocated, step.sales, got.ItemsAllocated, got.TotalSales)
		}
	}
}
