package catalog

import (
	"strings"

	"github.com/wichananm65/inventory-catalog/internal/product"
)

// FormMode is the state of the create/edit form.
type FormMode int

const (
	FormHidden FormMode = iota
	FormCreating
	FormEditing
)

func (m FormMode) String() string {
	switch m {
	case FormCreating:
		return "creating"
	case FormEditing:
		return "editing"
	}
	return "hidden"
}

// State is a point-in-time view of the controller for rendering.
type State struct {
	// Products is the snapshot filtered by SearchTerm, in server order.
	Products   []product.Product
	Summary    Summary
	Loading    bool
	SearchTerm string
	Form       FormMode
	// Target is the product the form edits; nil while the form is hidden.
	Target *product.Product
	// Err is the last failed operation, nil once dismissed or superseded.
	Err error
}

// Summary holds the figures shown above the list.
type Summary struct {
	Total      int
	Categories int
	InStock    int
}

// Filter keeps the products whose name or category contains term, ignoring
// case. An empty term keeps everything.
func Filter(products []product.Product, term string) []product.Product {
	out := make([]product.Product, 0, len(products))
	needle := strings.ToLower(term)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Category), needle) {
			out = append(out, p)
		}
	}
	return out
}

// Summarize counts products, distinct categories and products with stock.
func Summarize(products []product.Product) Summary {
	categories := make(map[string]struct{}, len(products))
	s := Summary{Total: len(products)}
	for _, p := range products {
		categories[p.Category] = struct{}{}
		if p.InStock() {
			s.InStock++
		}
	}
	s.Categories = len(categories)
	return s
}
