package cart

import (
	"github.com/shopspring/decimal"

	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
)

// ComputeTotal derives an order total from its line items. This is the only
// place a total is calculated; callers persist the result rather than
// adjusting stored totals incrementally.
func ComputeTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		qty := decimal.NewFromInt(int64(items[i].Quantity))
		total = total.Add(items[i].PriceAtTime.Mul(qty))
	}
	return total
}
