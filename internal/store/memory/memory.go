package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/store"
	"salesdesk/backend/internal/xid"
)

// Store keeps everything in process memory. A unit of work holds the write
// lock for its whole duration and stages its writes, so a failed unit of work
// leaves no trace.
type Store struct {
	mu          sync.RWMutex
	items       map[string]domain.Item
	movements   []domain.StockMovement
	salespeople map[string]domain.Salesperson
	allocations map[string]domain.Allocation
}

func New() *Store {
	return &Store{
		items:       map[string]domain.Item{},
		salespeople: map[string]domain.Salesperson{},
		allocations: map[string]domain.Allocation{},
	}
}

// NewSeeded returns a store preloaded with a small demo catalogue and team.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	items := []domain.Item{
		{Name: "Chocolate Bar", Category: "snacks", SKU: "SNK-CHOC-01", Price: decimal.RequireFromString("1.50"), Stock: 120, MinStock: 20},
		{Name: "Potato Chips", Category: "snacks", SKU: "SNK-CHIP-01", Price: decimal.RequireFromString("2.25"), Stock: 80, MinStock: 15},
		{Name: "Bottled Water", Category: "beverage", SKU: "BEV-WATR-01", Price: decimal.RequireFromString("0.90"), Stock: 200, MinStock: 40},
		{Name: "Iced Tea", Category: "beverage", SKU: "BEV-TEA-01", Price: decimal.RequireFromString("1.75"), Stock: 60, MinStock: 10},
		{Name: "Phone Charger", Category: "accessories", SKU: "ACC-CHRG-01", Price: decimal.RequireFromString("12.00"), Stock: 8, MinStock: 10},
	}
	for _, item := range items {
		item.ID = xid.New("item")
		item.Active = true
		item.CreatedAt = now
		item.UpdatedAt = now
		s.items[item.ID] = item
		s.movements = append(s.movements, domain.StockMovement{
			ID:         xid.New("mov"),
			ItemID:     item.ID,
			Delta:      item.Stock,
			StockAfter: item.Stock,
			Reason:     domain.MovementReasonInitial,
			CreatedAt:  now,
		})
	}

	for _, sp := range []domain.Salesperson{
		{Name: "Amina Yusuf", Phone: "+254700000001"},
		{Name: "Brian Otieno", Phone: "+254700000002"},
		{Name: "Carla Mendes", Phone: "+254700000003"},
	} {
		sp.ID = xid.New("sp")
		sp.TotalSales = decimal.Zero
		sp.Active = true
		sp.CreatedAt = now
		sp.UpdatedAt = now
		s.salespeople[sp.ID] = sp
	}

	return s
}

func (s *Store) ListItems(_ context.Context, includeInactive bool) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if item.Active || includeInactive {
			result = append(result, item)
		}
	}
	slices.SortFunc(result, func(a, b domain.Item) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (s *Store) GetItem(_ context.Context, id string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %s", store.ErrNotFound, id)
	}
	return &item, nil
}

func (s *Store) ListStockMovements(_ context.Context, itemID string, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	result := make([]domain.StockMovement, 0, limit)
	for i := len(s.movements) - 1; i >= 0 && len(result) < limit; i-- {
		if itemID == "" || s.movements[i].ItemID == itemID {
			result = append(result, s.movements[i])
		}
	}
	return result, nil
}

func (s *Store) ListSalespeople(_ context.Context, includeInactive bool) ([]domain.Salesperson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Salesperson, 0, len(s.salespeople))
	for _, sp := range s.salespeople {
		if sp.Active || includeInactive {
			result = append(result, sp)
		}
	}
	slices.SortFunc(result, func(a, b domain.Salesperson) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (s *Store) GetSalesperson(_ context.Context, id string) (*domain.Salesperson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.salespeople[id]
	if !ok {
		return nil, fmt.Errorf("%w: salesperson %s", store.ErrNotFound, id)
	}
	return &sp, nil
}

func (s *Store) ListAllocations(_ context.Context, filter domain.AllocationFilter) ([]domain.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Allocation, 0)
	for _, a := range s.allocations {
		if matchesFilter(a, filter) {
			result = append(result, a)
		}
	}
	slices.SortFunc(result, compareAllocations)
	return result, nil
}

func (s *Store) GetAllocation(_ context.Context, id string) (*domain.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.allocations[id]
	if !ok {
		return nil, fmt.Errorf("%w: allocation %s", store.ErrNotFound, id)
	}
	return &a, nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		s:                  s,
		items:              map[string]domain.Item{},
		salespeople:        map[string]domain.Salesperson{},
		allocations:        map[string]domain.Allocation{},
		deletedAllocations: map[string]struct{}{},
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// memTx is an overlay over the committed maps. Reads see staged writes first.
type memTx struct {
	s                  *Store
	items              map[string]domain.Item
	salespeople        map[string]domain.Salesperson
	allocations        map[string]domain.Allocation
	deletedAllocations map[string]struct{}
	movements          []domain.StockMovement
}

func (t *memTx) commit() {
	for id, item := range t.items {
		t.s.items[id] = item
	}
	for id, sp := range t.salespeople {
		t.s.salespeople[id] = sp
	}
	for id, a := range t.allocations {
		t.s.allocations[id] = a
	}
	for id := range t.deletedAllocations {
		delete(t.s.allocations, id)
	}
	t.s.movements = append(t.s.movements, t.movements...)
}

func (t *memTx) item(id string) (domain.Item, bool) {
	if item, ok := t.items[id]; ok {
		return item, true
	}
	item, ok := t.s.items[id]
	return item, ok
}

func (t *memTx) salesperson(id string) (domain.Salesperson, bool) {
	if sp, ok := t.salespeople[id]; ok {
		return sp, true
	}
	sp, ok := t.s.salespeople[id]
	return sp, ok
}

func (t *memTx) allocation(id string) (domain.Allocation, bool) {
	if _, gone := t.deletedAllocations[id]; gone {
		return domain.Allocation{}, false
	}
	if a, ok := t.allocations[id]; ok {
		return a, true
	}
	a, ok := t.s.allocations[id]
	return a, ok
}

func (t *memTx) GetItemForUpdate(_ context.Context, id string) (*domain.Item, error) {
	item, ok := t.item(id)
	if !ok {
		return nil, fmt.Errorf("%w: item %s", store.ErrNotFound, id)
	}
	return &item, nil
}

func (t *memTx) FindActiveItemBySKU(_ context.Context, sku string) (*domain.Item, error) {
	seen := map[string]struct{}{}
	for id, item := range t.items {
		seen[id] = struct{}{}
		if item.Active && strings.EqualFold(item.SKU, sku) {
			return &item, nil
		}
	}
	for id, item := range t.s.items {
		if _, shadowed := seen[id]; shadowed {
			continue
		}
		if item.Active && strings.EqualFold(item.SKU, sku) {
			return &item, nil
		}
	}
	return nil, fmt.Errorf("%w: sku %s", store.ErrNotFound, sku)
}

func (t *memTx) InsertItem(_ context.Context, item domain.Item) error {
	if _, exists := t.item(item.ID); exists {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	t.items[item.ID] = item
	return nil
}

func (t *memTx) UpdateItemDetails(_ context.Context, item domain.Item) error {
	current, ok := t.item(item.ID)
	if !ok {
		return fmt.Errorf("%w: item %s", store.ErrNotFound, item.ID)
	}
	item.Stock = current.Stock
	item.CreatedAt = current.CreatedAt
	t.items[item.ID] = item
	return nil
}

func (t *memTx) UpdateItemStock(_ context.Context, id string, stock int) error {
	item, ok := t.item(id)
	if !ok {
		return fmt.Errorf("%w: item %s", store.ErrNotFound, id)
	}
	item.Stock = stock
	item.UpdatedAt = time.Now().UTC()
	t.items[id] = item
	return nil
}

func (t *memTx) InsertStockMovement(_ context.Context, movement domain.StockMovement) error {
	t.movements = append(t.movements, movement)
	return nil
}

func (t *memTx) GetSalespersonForUpdate(_ context.Context, id string) (*domain.Salesperson, error) {
	sp, ok := t.salesperson(id)
	if !ok {
		return nil, fmt.Errorf("%w: salesperson %s", store.ErrNotFound, id)
	}
	return &sp, nil
}

func (t *memTx) InsertSalesperson(_ context.Context, sp domain.Salesperson) error {
	if _, exists := t.salesperson(sp.ID); exists {
		return fmt.Errorf("salesperson %s already exists", sp.ID)
	}
	t.salespeople[sp.ID] = sp
	return nil
}

func (t *memTx) UpdateSalespersonDetails(_ context.Context, sp domain.Salesperson) error {
	current, ok := t.salesperson(sp.ID)
	if !ok {
		return fmt.Errorf("%w: salesperson %s", store.ErrNotFound, sp.ID)
	}
	current.Name = sp.Name
	current.Phone = sp.Phone
	current.Active = sp.Active
	current.UpdatedAt = sp.UpdatedAt
	t.salespeople[sp.ID] = current
	return nil
}

func (t *memTx) UpdateSalespersonTotals(_ context.Context, sp domain.Salesperson) error {
	current, ok := t.salesperson(sp.ID)
	if !ok {
		return fmt.Errorf("%w: salesperson %s", store.ErrNotFound, sp.ID)
	}
	current.TotalSales = sp.TotalSales
	current.ItemsAllocated = sp.ItemsAllocated
	current.UpdatedAt = sp.UpdatedAt
	t.salespeople[sp.ID] = current
	return nil
}

func (t *memTx) GetAllocationForUpdate(_ context.Context, id string) (*domain.Allocation, error) {
	a, ok := t.allocation(id)
	if !ok {
		return nil, fmt.Errorf("%w: allocation %s", store.ErrNotFound, id)
	}
	return &a, nil
}

func (t *memTx) InsertAllocation(_ context.Context, a domain.Allocation) error {
	if _, exists := t.allocation(a.ID); exists {
		return fmt.Errorf("allocation %s already exists", a.ID)
	}
	delete(t.deletedAllocations, a.ID)
	t.allocations[a.ID] = a
	return nil
}

func (t *memTx) UpdateAllocation(_ context.Context, a domain.Allocation) error {
	if _, ok := t.allocation(a.ID); !ok {
		return fmt.Errorf("%w: allocation %s", store.ErrNotFound, a.ID)
	}
	t.allocations[a.ID] = a
	return nil
}

func (t *memTx) DeleteAllocation(_ context.Context, id string) error {
	if _, ok := t.allocation(id); !ok {
		return fmt.Errorf("%w: allocation %s", store.ErrNotFound, id)
	}
	delete(t.allocations, id)
	t.deletedAllocations[id] = struct{}{}
	return nil
}

func (t *memTx) CountOpenAllocations(_ context.Context, filter domain.AllocationFilter) (int, error) {
	filter.Status = domain.AllocationStatusAllocated
	count := 0
	for id, a := range t.allocations {
		if _, gone := t.deletedAllocations[id]; !gone && matchesFilter(a, filter) {
			count++
		}
	}
	for id, a := range t.s.allocations {
		if _, staged := t.allocations[id]; staged {
			continue
		}
		if _, gone := t.deletedAllocations[id]; gone {
			continue
		}
		if matchesFilter(a, filter) {
			count++
		}
	}
	return count, nil
}

func matchesFilter(a domain.Allocation, filter domain.AllocationFilter) bool {
	if filter.SalespersonID != "" && a.SalespersonID != filter.SalespersonID {
		return false
	}
	if filter.ItemID != "" && a.ItemID != filter.ItemID {
		return false
	}
	if filter.Status != "" && a.Status != filter.Status {
		return false
	}
	if filter.From != nil && a.AllocationDate.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !a.AllocationDate.Before(*filter.To) {
		return false
	}
	return true
}

func compareAllocations(a, b domain.Allocation) int {
	if c := b.AllocationDate.Compare(a.AllocationDate); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
