package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// CartItem is one configured pizza in a cart: its own line price and quantity.
// Price already includes the per-topping surcharge computed at add-time against
// the first-pizza base rate, so it is not a pure unit price.
type CartItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Size     string   `json:"size"`
	Crust    string   `json:"crust"`
	Toppings []string `json:"toppings"`
	Price    float64  `json:"price"`
	Quantity int      `json:"quantity"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// CartItems is stored as a JSON document column on orders.
type CartItems []CartItem

func (ci CartItems) Value() (driver.Value, error) {
	if ci == nil {
		ci = CartItems{}
	}
	return json.Marshal(ci)
}

func (ci *CartItems) Scan(value interface{}) error {
	if value == nil {
		*ci = CartItems{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CartItems", value)
	}
	if len(data) == 0 {
		*ci = CartItems{}
		return nil
	}
	return json.Unmarshal(data, ci)
}

// CustomerInfo is the checkout contact block, stored as a JSON document column.
type CustomerInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
}

func (c CustomerInfo) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *CustomerInfo) Scan(value interface{}) error {
	if value == nil {
		*c = CustomerInfo{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for CustomerInfo")
	}
	if len(data) == 0 {
		*c = CustomerInfo{}
		return nil
	}
	return json.Unmarshal(data, c)
}

func (c CustomerInfo) FullName() string {
	return c.FirstName + " " + c.LastName
}
