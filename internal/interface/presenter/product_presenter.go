package presenter

import (
	"strconv"

	"github.com/wichananm65/inventory-catalog/internal/catalog"
	"github.com/wichananm65/inventory-catalog/internal/product"
)

// ProductPresenter shapes catalog state for the HTML views.
type ProductPresenter struct{}

func NewProductPresenter() *ProductPresenter {
	return &ProductPresenter{}
}

type ProductView struct {
	ID            int64
	Name          string
	Description   string
	Price         string
	Category      string
	StockQuantity int
	InStock       bool
}

// FormView carries the values the create/edit form is filled with. Fields
// are strings so a rejected submission can be shown back exactly as typed.
type FormView struct {
	Editing       bool
	ID            int64
	Name          string
	Description   string
	Price         string
	Category      string
	StockQuantity string
	// Errors holds per-field messages keyed like the product service reports them.
	Errors map[string]string
}

type CatalogView struct {
	Products   []ProductView
	Total      int
	Categories int
	InStock    int
	Loading    bool
	SearchTerm string
	Form       *FormView
	Error      string
	// Empty is true when the loaded collection itself has no products, as
	// opposed to a search that matched nothing.
	Empty bool
}

func (p *ProductPresenter) ToView(prod product.Product) ProductView {
	return ProductView{
		ID:            prod.ID,
		Name:          prod.Name,
		Description:   prod.Description,
		Price:         prod.Price.StringFixed(2),
		Category:      prod.Category,
		StockQuantity: prod.StockQuantity,
		InStock:       prod.InStock(),
	}
}

func (p *ProductPresenter) ToList(products []product.Product) []ProductView {
	result := make([]ProductView, 0, len(products))
	for _, prod := range products {
		result = append(result, p.ToView(prod))
	}
	return result
}

// ToForm fills a form from a product. A blank product starts at zero price and stock.
func (p *ProductPresenter) ToForm(prod product.Product, editing bool) *FormView {
	return &FormView{
		Editing:       editing,
		ID:            prod.ID,
		Name:          prod.Name,
		Description:   prod.Description,
		Price:         prod.Price.StringFixed(2),
		Category:      prod.Category,
		StockQuantity: strconv.Itoa(prod.StockQuantity),
	}
}

func (p *ProductPresenter) ToCatalog(s catalog.State) CatalogView {
	v := CatalogView{
		Products:   p.ToList(s.Products),
		Total:      s.Summary.Total,
		Categories: s.Summary.Categories,
		InStock:    s.Summary.InStock,
		Loading:    s.Loading,
		SearchTerm: s.SearchTerm,
		Empty:      !s.Loading && s.Summary.Total == 0,
	}
	if s.Target != nil {
		v.Form = p.ToForm(*s.Target, s.Form == catalog.FormEditing)
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}
