package product

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. ID is zero until the product service assigns one.
// JSON tags follow the camelCase contract of the /api/products resource.
type Product struct {
	ID            int64           `json:"id,omitempty"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category"`
	StockQuantity int             `json:"stockQuantity"`
}

// Blank returns the product a create form starts from.
func Blank() Product {
	return Product{Price: decimal.Zero}
}

// HasID reports whether the product has been persisted.
func (p Product) HasID() bool { return p.ID > 0 }

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool { return p.StockQuantity > 0 }

// WithoutID returns a copy with the identity cleared, as submitted on create.
func (p Product) WithoutID() Product {
	p.ID = 0
	return p
}

// MarshalJSON writes price as a bare JSON number; decimal.Decimal quotes it by default.
func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		Price json.RawMessage `json:"price"`
	}{
		plain: plain(p),
		Price: json.RawMessage(p.Price.String()),
	})
}

// Validate checks the payload the product service accepts and returns every
// violation keyed by JSON field name.
func Validate(p Product) map[string]string {
	errs := map[string]string{}
	if p.Name == "" {
		errs["name"] = "name is required"
	}
	if p.Price.IsNegative() {
		errs["price"] = "price must be >= 0"
	}
	if p.StockQuantity < 0 {
		errs["stockQuantity"] = "stockQuantity must be >= 0"
	}
	return errs
}
