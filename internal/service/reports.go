package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/store"
)

const maxSummaryDays = 366

// cached serves key from the report cache, computing and storing it on a miss.
// The key carries the cache generation read before computing, so a write that
// commits mid-computation leaves the stored result unreachable. Cache failures
// only cost a recomputation.
func cached[T any](ctx context.Context, s *Service, key string, compute func() (T, error)) (T, error) {
	gen, err := s.reports.Generation(ctx)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache generation unavailable")
		return compute()
	}
	key = fmt.Sprintf("g%d:%s", gen, key)

	var value T
	hit, err := s.reports.Get(ctx, key, &value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache read failed")
	}
	if hit && err == nil {
		return value, nil
	}

	value, err = compute()
	if err != nil {
		return value, err
	}
	if err := s.reports.Set(ctx, key, value, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
	return value, nil
}

func conversionRate(sold int, allocated int) float64 {
	if allocated <= 0 {
		return 0
	}
	rate, _ := decimal.NewFromInt(int64(sold)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(allocated))).
		Round(2).
		Float64()
	return rate
}

// tally accumulates the figures shared by every allocation report.
type tally struct {
	allocations int
	allocated   int
	sold        int
	returned    int
	outstanding int
	revenue     decimal.Decimal
	expected    decimal.Decimal
}

func (t *tally) add(a domain.Allocation) {
	t.allocations++
	t.allocated += a.Quantity
	if a.Status == domain.AllocationStatusAllocated {
		t.outstanding += a.Quantity
		return
	}
	t.sold += a.SoldQuantity
	t.returned += a.ReturnedQuantity()
	t.revenue = t.revenue.Add(a.PaymentReceived)
	t.expected = t.expected.Add(a.ExpectedPayment())
}

func (s *Service) SalespersonRevenue(ctx context.Context, salespersonID string, startDate string, endDate string) (domain.SalespersonRevenue, error) {
	from, to, err := s.parseRange(startDate, endDate)
	if err != nil {
		return domain.SalespersonRevenue{}, err
	}
	key := fmt.Sprintf("revenue:salesperson:%s:%s:%s", salespersonID, startDate, endDate)
	return cached(ctx, s, key, func() (domain.SalespersonRevenue, error) {
		sp, err := s.repo.GetSalesperson(ctx, salespersonID)
		if err != nil {
			return domain.SalespersonRevenue{}, err
		}
		allocations, err := s.repo.ListAllocations(ctx, domain.AllocationFilter{SalespersonID: salespersonID, From: from, To: to})
		if err != nil {
			return domain.SalespersonRevenue{}, err
		}

		report := domain.SalespersonRevenue{
			SalespersonID:   sp.ID,
			SalespersonName: sp.Name,
			Revenue:         decimal.Zero,
			ExpectedRevenue: decimal.Zero,
			ItemsSold:       []domain.ItemSoldLine{},
			DateRange:       domain.DateRange{StartDate: startDate, EndDate: endDate},
		}
		lines := map[string]*domain.ItemSoldLine{}
		for _, a := range allocations {
			if a.Status == domain.AllocationStatusAllocated {
				continue
			}
			report.Revenue = report.Revenue.Add(a.PaymentReceived)
			report.ExpectedRevenue = report.ExpectedRevenue.Add(a.ExpectedPayment())
			report.TotalItemsSold += a.SoldQuantity
			if a.SoldQuantity == 0 {
				continue
			}
			line, ok := lines[a.ItemID]
			if !ok {
				line = &domain.ItemSoldLine{ItemID: a.ItemID, ItemName: a.ItemName, Revenue: decimal.Zero}
				lines[a.ItemID] = line
			}
			line.Quantity += a.SoldQuantity
			line.Revenue = line.Revenue.Add(a.PaymentReceived)
		}
		for _, line := range lines {
			report.ItemsSold = append(report.ItemsSold, *line)
		}
		slices.SortFunc(report.ItemsSold, func(a, b domain.ItemSoldLine) int {
			if a.Quantity != b.Quantity {
				return b.Quantity - a.Quantity
			}
			return strings.Compare(a.ItemName, b.ItemName)
		})
		return report, nil
	})
}

func (s *Service) AllSalespeopleRevenue(ctx context.Context, startDate string, endDate string) (domain.AllSalespeopleRevenue, error) {
	from, to, err := s.parseRange(startDate, endDate)
	if err != nil {
		return domain.AllSalespeopleRevenue{}, err
	}
	key := fmt.Sprintf("revenue:all:%s:%s", startDate, endDate)
	return cached(ctx, s, key, func() (domain.AllSalespeopleRevenue, error) {
		people, err := s.repo.ListSalespeople(ctx, false)
		if err != nil {
			return domain.AllSalespeopleRevenue{}, err
		}
		allocations, err := s.repo.ListAllocations(ctx, domain.AllocationFilter{From: from, To: to})
		if err != nil {
			return domain.AllSalespeopleRevenue{}, err
		}

		tallies := make(map[string]*tally, len(people))
		for _, a := range allocations {
			t, ok := tallies[a.SalespersonID]
			if !ok {
				t = &tally{revenue: decimal.Zero, expected: decimal.Zero}
				tallies[a.SalespersonID] = t
			}
			t.add(a)
		}

		result := domain.AllSalespeopleRevenue{
			DateRange:    domain.DateRange{StartDate: startDate, EndDate: endDate},
			TotalRevenue: decimal.Zero,
			Salespeople:  make([]domain.SalespersonReport, 0, len(people)),
		}
		for _, sp := range people {
			t := tallies[sp.ID]
			if t == nil {
				t = &tally{revenue: decimal.Zero, expected: decimal.Zero}
			}
			result.Salespeople = append(result.Salespeople, domain.SalespersonReport{
				SalespersonID:   sp.ID,
				SalespersonName: sp.Name,
				TotalAllocated:  t.allocated,
				TotalSold:       t.sold,
				TotalReturned:   t.returned,
				Outstanding:     t.outstanding,
				TotalRevenue:    t.revenue,
				ExpectedRevenue: t.expected,
				ConversionRate:  conversionRate(t.sold, t.allocated),
			})
			result.TotalRevenue = result.TotalRevenue.Add(t.revenue)
		}
		slices.SortStableFunc(result.Salespeople, func(a, b domain.SalespersonReport) int {
			return b.TotalRevenue.Cmp(a.TotalRevenue)
		})
		return result, nil
	})
}

func (s *Service) ItemSales(ctx context.Context, itemID string) (domain.ItemSalesReport, error) {
	return cached(ctx, s, "sales:item:"+itemID, func() (domain.ItemSalesReport, error) {
		item, err := s.repo.GetItem(ctx, itemID)
		if err != nil {
			return domain.ItemSalesReport{}, err
		}
		allocations, err := s.repo.ListAllocations(ctx, domain.AllocationFilter{ItemID: itemID})
		if err != nil {
			return domain.ItemSalesReport{}, err
		}

		t := tally{revenue: decimal.Zero, expected: decimal.Zero}
		for _, a := range allocations {
			t.add(a)
		}
		return domain.ItemSalesReport{
			ItemID:           item.ID,
			ItemName:         item.Name,
			ItemPrice:        item.Price,
			TotalAllocated:   t.allocated,
			QuantitySold:     t.sold,
			QuantityReturned: t.returned,
			Outstanding:      t.outstanding,
			Revenue:          t.revenue,
			ConversionRate:   conversionRate(t.sold, t.allocated),
			CurrentStock:     item.Stock,
		}, nil
	})
}

func (s *Service) DailySummary(ctx context.Context, date string) (domain.DailySummary, error) {
	day, err := s.parseDay(date)
	if err != nil {
		return domain.DailySummary{}, err
	}
	summaries, err := s.summarize(ctx, day.Format(dateLayout), day.Format(dateLayout))
	if err != nil {
		return domain.DailySummary{}, err
	}
	return summaries[0], nil
}

// DateRangeSummary returns one summary per calendar day, both ends inclusive.
func (s *Service) DateRangeSummary(ctx context.Context, startDate string, endDate string) ([]domain.DailySummary, error) {
	if strings.TrimSpace(startDate) == "" || strings.TrimSpace(endDate) == "" {
		return nil, fmt.Errorf("%w: startDate and endDate are required", store.ErrValidation)
	}
	return s.summarize(ctx, startDate, endDate)
}

func (s *Service) summarize(ctx context.Context, startDate string, endDate string) ([]domain.DailySummary, error) {
	from, to, err := s.parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	days := int(to.Sub(*from).Hours() / 24)
	if days > maxSummaryDays {
		return nil, fmt.Errorf("%w: date range is limited to %d days", store.ErrValidation, maxSummaryDays)
	}

	key := fmt.Sprintf("summary:%s:%s", from.Format(dateLayout), to.Format(dateLayout))
	return cached(ctx, s, key, func() ([]domain.DailySummary, error) {
		allocations, err := s.repo.ListAllocations(ctx, domain.AllocationFilter{From: from, To: to})
		if err != nil {
			return nil, err
		}

		byDay := make(map[string]*tally, days)
		for _, a := range allocations {
			k := a.AllocationDate.UTC().Format(dateLayout)
			t, ok := byDay[k]
			if !ok {
				t = &tally{revenue: decimal.Zero, expected: decimal.Zero}
				byDay[k] = t
			}
			t.add(a)
		}

		summaries := make([]domain.DailySummary, 0, days)
		for day := *from; day.Before(*to); day = day.AddDate(0, 0, 1) {
			k := day.Format(dateLayout)
			t := byDay[k]
			if t == nil {
				t = &tally{revenue: decimal.Zero, expected: decimal.Zero}
			}
			summaries = append(summaries, domain.DailySummary{
				Date:              k,
				Allocations:       t.allocations,
				QuantityAllocated: t.allocated,
				QuantitySold:      t.sold,
				QuantityReturned:  t.returned,
				Outstanding:       t.outstanding,
				Revenue:           t.revenue,
				ExpectedRevenue:   t.expected,
				PaymentDifference: t.revenue.Sub(t.expected),
				ConversionRate:    conversionRate(t.sold, t.allocated),
			})
		}
		return summaries, nil
	})
}

func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	return cached(ctx, s, "dashboard", func() (domain.Dashboard, error) {
		items, err := s.repo.ListItems(ctx, false)
		if err != nil {
			return domain.Dashboard{}, err
		}
		people, err := s.repo.ListSalespeople(ctx, false)
		if err != nil {
			return domain.Dashboard{}, err
		}
		open, err := s.repo.ListAllocations(ctx, domain.AllocationFilter{Status: domain.AllocationStatusAllocated})
		if err != nil {
			return domain.Dashboard{}, err
		}

		d := domain.Dashboard{
			TotalSales:        decimal.Zero,
			InventoryValue:    decimal.Zero,
			ItemCount:         len(items),
			ActiveSalespeople: len(people),
		}
		for _, item := range items {
			d.TotalStock += item.Stock
			d.InventoryValue = d.InventoryValue.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Stock))))
			if item.Stock == 0 {
				d.OutOfStockItems++
			}
			if item.LowStock() {
				d.LowStockItems++
			}
		}
		for _, sp := range people {
			d.TotalSales = d.TotalSales.Add(sp.TotalSales)
		}
		d.OutstandingAllocations = len(open)
		for _, a := range open {
			d.OutstandingUnits += a.Quantity
		}
		return d, nil
	})
}
