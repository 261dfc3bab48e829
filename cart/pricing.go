package cart

import "github.com/pvaldez/pizza-express/models"

// Pizza pricing: the first pizza in an order is charged at the full base
// rate, every additional pizza at the discounted rate, regardless of size or
// crust. Topping surcharges ride on top per line item.
const (
	FirstPizzaPrice      = 11.99
	AdditionalPizzaPrice = 10.99

	// TaxRate is flat 8.25%, applied at display/checkout time only.
	TaxRate = 0.0825
)

// Subtotal computes the tiered order subtotal.
//
// Each item's per-pizza topping surcharge is derived as price minus
// FirstPizzaPrice: line prices are computed against the first-pizza base rate
// at add-time, so the surcharge baseline stays FirstPizzaPrice even for units
// that end up billed at the additional rate. An item priced below the base
// yields a negative surcharge, which is accepted as-is. Do not change this
// arithmetic without a product decision; it has to tie out with what the
// builder charged into item.Price.
func Subtotal(items []models.CartItem) float64 {
	var toppingCost float64
	var pizzaCount int

	for _, item := range items {
		perPizza := item.Price - FirstPizzaPrice
		toppingCost += perPizza * float64(item.Quantity)
		pizzaCount += item.Quantity
	}

	var base float64
	switch {
	case pizzaCount == 0:
		return 0
	case pizzaCount == 1:
		base = FirstPizzaPrice
	default:
		base = FirstPizzaPrice + AdditionalPizzaPrice*float64(pizzaCount-1)
	}

	return toppingCost + base
}

// Tax returns the flat sales tax for a subtotal.
func Tax(subtotal float64) float64 {
	return subtotal * TaxRate
}
