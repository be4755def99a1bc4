package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Currency travels as plain JSON numbers, matching what the dashboard sends.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	AllocationStatusAllocated = "ALLOCATED"
	AllocationStatusSold      = "SOLD"
	AllocationStatusReturned  = "RETURNED"
)

const (
	MovementReasonInitial          = "initial"
	MovementReasonManualSet        = "manual_set"
	MovementReasonAllocation       = "allocation"
	MovementReasonAllocationEdit   = "allocation_edit"
	MovementReasonSettlementReturn = "settlement_return"
	MovementReasonAllocationDelete = "allocation_delete"
)

type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"minStock"`
	Category    string          `json:"category"`
	SKU         string          `json:"sku"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// LowStock reports whether the item sits at or under its reorder threshold.
func (i Item) LowStock() bool {
	return i.Stock <= i.MinStock
}

type ItemCreateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"minStock"`
	Category    string          `json:"category"`
	SKU         string          `json:"sku"`
}

// ItemUpdateRequest is a partial update. Stock, when present, is applied as an
// administrative stock override.
type ItemUpdateRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	MinStock    *int             `json:"minStock,omitempty"`
	Category    *string          `json:"category,omitempty"`
	SKU         *string          `json:"sku,omitempty"`
}

type StockMovement struct {
	ID           string    `json:"id"`
	ItemID       string    `json:"itemId"`
	Delta        int       `json:"delta"`
	StockAfter   int       `json:"stockAfter"`
	Reason       string    `json:"reason"`
	AllocationID string    `json:"allocationId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Salesperson struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	TotalSales     decimal.Decimal `json:"totalSales"`
	ItemsAllocated int             `json:"itemsAllocated"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type SalespersonCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// SalespersonUpdateRequest only carries contact details; totals belong to the
// ledger and are ignored when a client echoes them back.
type SalespersonUpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

type Allocation struct {
	ID              string          `json:"id"`
	SalespersonID   string          `json:"salespersonId"`
	ItemID          string          `json:"itemId"`
	ItemName        string          `json:"itemName"`
	ItemPrice       decimal.Decimal `json:"itemPrice"`
	Quantity        int             `json:"quantity"`
	SoldQuantity    int             `json:"soldQuantity"`
	PaymentReceived decimal.Decimal `json:"paymentReceived"`
	AllocationDate  time.Time       `json:"allocationDate"`
	Status          string          `json:"status"`
	SettledAt       *time.Time      `json:"settledAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ReturnedQuantity is only meaningful once the allocation is settled.
func (a Allocation) ReturnedQuantity() int {
	if a.Status == AllocationStatusAllocated {
		return 0
	}
	return a.Quantity - a.SoldQuantity
}

// ExpectedPayment is soldQuantity × itemPrice. It is derived, never stored.
func (a Allocation) ExpectedPayment() decimal.Decimal {
	return ExpectedPayment(a.SoldQuantity, a.ItemPrice)
}

func ExpectedPayment(soldQuantity int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(soldQuantity)))
}

type AllocationCreateRequest struct {
	SalespersonID  string `json:"salespersonId"`
	ItemID         string `json:"itemId"`
	Quantity       int    `json:"quantity"`
	AllocationDate string `json:"allocationDate"`
}

// AllocationUpdateRequest mirrors the dashboard's edit dialog: the new
// quantity plus whatever sold quantity and payment are staged for settlement.
type AllocationUpdateRequest struct {
	Quantity        *int             `json:"quantity,omitempty"`
	SoldQuantity    *int             `json:"soldQuantity,omitempty"`
	PaymentReceived *decimal.Decimal `json:"paymentReceived,omitempty"`
	Status          *string          `json:"status,omitempty"`
}

// AllocationFilter narrows allocation listings. From is inclusive and To is
// exclusive, both compared against AllocationDate.
type AllocationFilter struct {
	SalespersonID string
	ItemID        string
	Status        string
	From          *time.Time
	To            *time.Time
}

type SettlementEntry struct {
	AllocationID    string          `json:"allocationId"`
	SoldQuantity    int             `json:"soldQuantity"`
	PaymentReceived decimal.Decimal `json:"paymentReceived"`
}

type SettlementOutcome struct {
	*Allocation
	AllocationID string           `json:"allocationId"`
	Expected     *decimal.Decimal `json:"expectedPayment,omitempty"`
	Difference   *decimal.Decimal `json:"paymentDifference,omitempty"`
	Error        string           `json:"error,omitempty"`
	Code         string           `json:"code,omitempty"`
	Err          error            `json:"-"`
}

func (o SettlementOutcome) OK() bool {
	return o.Err == nil
}

type EndOfDayResult struct {
	SalespersonID string              `json:"salespersonId"`
	Outcomes      []SettlementOutcome `json:"outcomes"`
	Salesperson   *Salesperson        `json:"salesperson,omitempty"`
	Succeeded     int                 `json:"succeeded"`
	Failed        int                 `json:"failed"`
}

// UpdatedAllocations returns the allocations that settled successfully.
func (r EndOfDayResult) UpdatedAllocations() []Allocation {
	updated := make([]Allocation, 0, r.Succeeded)
	for _, outcome := range r.Outcomes {
		if outcome.OK() && outcome.Allocation != nil {
			updated = append(updated, *outcome.Allocation)
		}
	}
	return updated
}

type OutstandingAllocation struct {
	Allocation
	StagedExpectedPayment decimal.Decimal `json:"stagedExpectedPayment"`
	StagedReturnQuantity  int             `json:"stagedReturnQuantity"`
}

type OutstandingResponse struct {
	Salesperson           Salesperson             `json:"salesperson"`
	Allocations           []OutstandingAllocation `json:"allocations"`
	TotalQuantity         int                     `json:"totalQuantity"`
	TotalExpectedPayment  decimal.Decimal         `json:"totalExpectedPayment"`
	TotalStagedPayment    decimal.Decimal         `json:"totalStagedPayment"`
	StagedPaymentVariance decimal.Decimal         `json:"stagedPaymentVariance"`
}
