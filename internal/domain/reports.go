package domain

import "github.com/shopspring/decimal"

// SalespersonReport aggregates one salesperson's allocations. Revenue counts
// settled payments only; Outstanding counts units still out in the field.
type SalespersonReport struct {
	SalespersonID   string          `json:"salespersonId"`
	SalespersonName string          `json:"salespersonName"`
	TotalAllocated  int             `json:"totalAllocated"`
	TotalSold       int             `json:"totalSold"`
	TotalReturned   int             `json:"totalReturned"`
	Outstanding     int             `json:"outstanding"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	ExpectedRevenue decimal.Decimal `json:"expectedRevenue"`
	ConversionRate  float64         `json:"conversionRate"`
}

type ItemSoldLine struct {
	ItemID   string          `json:"itemId"`
	ItemName string          `json:"itemName"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type DateRange struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type SalespersonRevenue struct {
	SalespersonID   string          `json:"salespersonId"`
	SalespersonName string          `json:"salespersonName"`
	Revenue         decimal.Decimal `json:"revenue"`
	ExpectedRevenue decimal.Decimal `json:"expectedRevenue"`
	TotalItemsSold  int             `json:"totalItemsSold"`
	ItemsSold       []ItemSoldLine  `json:"itemsSold"`
	DateRange       DateRange       `json:"dateRange"`
}

type AllSalespeopleRevenue struct {
	DateRange    DateRange           `json:"dateRange"`
	TotalRevenue decimal.Decimal     `json:"totalRevenue"`
	Salespeople  []SalespersonReport `json:"salespeople"`
}

type ItemSalesReport struct {
	ItemID           string          `json:"itemId"`
	ItemName         string          `json:"itemName"`
	ItemPrice        decimal.Decimal `json:"itemPrice"`
	TotalAllocated   int             `json:"totalAllocated"`
	QuantitySold     int             `json:"quantitySold"`
	QuantityReturned int             `json:"quantityReturned"`
	Outstanding      int             `json:"outstanding"`
	Revenue          decimal.Decimal `json:"revenue"`
	ConversionRate   float64         `json:"conversionRate"`
	CurrentStock     int             `json:"currentStock"`
}

type DailySummary struct {
	Date              string          `json:"date"`
	Allocations       int             `json:"allocations"`
	QuantityAllocated int             `json:"quantityAllocated"`
	QuantitySold      int             `json:"quantitySold"`
	QuantityReturned  int             `json:"quantityReturned"`
	Outstanding       int             `json:"outstanding"`
	Revenue           decimal.Decimal `json:"revenue"`
	ExpectedRevenue   decimal.Decimal `json:"expectedRevenue"`
	PaymentDifference decimal.Decimal `json:"paymentDifference"`
	ConversionRate    float64         `json:"conversionRate"`
}

type Dashboard struct {
	TotalSales             decimal.Decimal `json:"totalSales"`
	TotalStock             int             `json:"totalStock"`
	ActiveSalespeople      int             `json:"activeSalespeople"`
	ItemCount              int             `json:"itemCount"`
	LowStockItems          int             `json:"lowStockItems"`
	OutOfStockItems        int             `json:"outOfStockItems"`
	OutstandingAllocations int             `json:"outstandingAllocations"`
	OutstandingUnits       int             `json:"outstandingUnits"`
	InventoryValue         decimal.Decimal `json:"inventoryValue"`
}
