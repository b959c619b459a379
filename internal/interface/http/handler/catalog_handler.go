package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wichananm65/inventory-catalog/internal/catalog"
	"github.com/wichananm65/inventory-catalog/internal/client"
	"github.com/wichananm65/inventory-catalog/internal/interface/presenter"
	"github.com/wichananm65/inventory-catalog/internal/product"
)

//go:embed views/*.html
var viewFS embed.FS

// CatalogHandler renders the catalog controller as HTML pages and turns
// form posts into controller operations. It drives a single controller, so
// every visitor sees and edits the same catalog state.
type CatalogHandler struct {
	ctrl      *catalog.Controller
	presenter *presenter.ProductPresenter
	views     *template.Template
	log       *zap.Logger
}

func NewCatalogHandler(ctrl *catalog.Controller, presenter *presenter.ProductPresenter, log *zap.Logger) *CatalogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogHandler{
		ctrl:      ctrl,
		presenter: presenter,
		views:     template.Must(template.ParseFS(viewFS, "views/*.html")),
		log:       log.Named("web"),
	}
}

func (h *CatalogHandler) RegisterRoutes(app fiber.Router) {
	app.Get("/", h.index)
	app.Post("/refresh", h.refresh)
	app.Get("/products/new", h.newForm)
	app.Get("/products/:id/edit", h.editForm)
	app.Post("/products", h.save)
	app.Post("/form/close", h.closeForm)
	app.Get("/products/:id/delete", h.confirmDelete)
	app.Post("/products/:id/delete", h.remove)
	app.Post("/error/dismiss", h.dismissError)
}

func (h *CatalogHandler) index(c *fiber.Ctx) error {
	if q, ok := c.Queries()["q"]; ok {
		h.ctrl.SetSearchTerm(q)
	}
	return h.render(c, fiber.StatusOK, nil, "")
}

func (h *CatalogHandler) refresh(c *fiber.Ctx) error {
	// a failure is kept on the controller and shown by the index page
	_ = h.ctrl.Refresh(c.UserContext())
	return redirectHome(c)
}

func (h *CatalogHandler) newForm(c *fiber.Ctx) error {
	h.ctrl.OpenCreate()
	return redirectHome(c)
}

func (h *CatalogHandler) editForm(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}
	_ = h.ctrl.OpenEdit(c.UserContext(), id)
	return redirectHome(c)
}

func (h *CatalogHandler) save(c *fiber.Ctx) error {
	state := h.ctrl.State()
	if state.Form == catalog.FormHidden {
		return redirectHome(c)
	}

	p, form := parseProductForm(c)
	if state.Target != nil {
		form.ID = state.Target.ID
	}
	form.Editing = state.Form == catalog.FormEditing
	if len(form.Errors) > 0 {
		return h.render(c, fiber.StatusUnprocessableEntity, form, "")
	}

	err := h.ctrl.Save(c.UserContext(), p)
	var ce *client.Error
	switch {
	case err == nil, errors.Is(err, catalog.ErrFormClosed):
		return redirectHome(c)
	case errors.Is(err, catalog.ErrMutationInFlight):
		return h.render(c, fiber.StatusConflict, form, err.Error())
	case errors.As(err, &ce) && ce.Kind == client.KindValidation:
		form.Errors = ce.Fields
		return h.render(c, fiber.StatusUnprocessableEntity, form, "")
	case errors.Is(err, client.ErrNotFound):
		return h.render(c, fiber.StatusNotFound, form, "")
	default:
		return h.render(c, fiber.StatusBadGateway, form, "")
	}
}

func (h *CatalogHandler) closeForm(c *fiber.Ctx) error {
	h.ctrl.CloseForm()
	return redirectHome(c)
}

func (h *CatalogHandler) confirmDelete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	target := product.Product{ID: id}
	for _, p := range h.ctrl.Products() {
		if p.ID == id {
			target = p
			break
		}
	}
	return h.execute(c, fiber.StatusOK, "confirm.html", h.presenter.ToView(target))
}

func (h *CatalogHandler) remove(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	confirmed := c.FormValue("confirm") == "yes"
	err = h.ctrl.Remove(c.UserContext(), id, func(product.Product) bool { return confirmed })
	if errors.Is(err, catalog.ErrMutationInFlight) {
		return h.render(c, fiber.StatusConflict, nil, err.Error())
	}
	return redirectHome(c)
}

func (h *CatalogHandler) dismissError(c *fiber.Ctx) error {
	h.ctrl.ClearError()
	return redirectHome(c)
}

// render shows the catalog page. form replaces the controller's form values
// when a submission has to be shown back; notice overrides the error banner.
func (h *CatalogHandler) render(c *fiber.Ctx, status int, form *presenter.FormView, notice string) error {
	view := h.presenter.ToCatalog(h.ctrl.State())
	if form != nil {
		view.Form = form
	}
	if notice != "" {
		view.Error = notice
	}
	return h.execute(c, status, "catalog.html", view)
}

func (h *CatalogHandler) execute(c *fiber.Ctx, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := h.views.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error("render failed", zap.String("view", name), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("render failed")
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

func redirectHome(c *fiber.Ctx) error {
	return c.Redirect("/", fiber.StatusSeeOther)
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid product id")
	}
	return id, nil
}

// parseProductForm reads the submitted fields. Numbers that do not parse
// are reported per field; everything else is left to the product service.
func parseProductForm(c *fiber.Ctx) (product.Product, *presenter.FormView) {
	form := &presenter.FormView{
		Name:          c.FormValue("name"),
		Description:   c.FormValue("description"),
		Price:         c.FormValue("price"),
		Category:      c.FormValue("category"),
		StockQuantity: c.FormValue("stockQuantity"),
	}
	p := product.Product{
		Name:        form.Name,
		Description: form.Description,
		Category:    form.Category,
	}

	errs := map[string]string{}
	price, err := decimal.NewFromString(strings.TrimSpace(form.Price))
	if err != nil {
		errs["price"] = "price must be a number"
	}
	p.Price = price

	stock, err := strconv.Atoi(strings.TrimSpace(form.StockQuantity))
	if err != nil {
		errs["stockQuantity"] = "stockQuantity must be a whole number"
	}
	p.StockQuantity = stock

	if len(errs) > 0 {
		form.Errors = errs
	}
	return p, form
}
