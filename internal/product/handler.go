package product

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BasePath is where the product resource is mounted.
const BasePath = "/api/products"

type Handler struct {
	service    *Service
	log        *zap.Logger
	allowReset bool
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, log: log}
}

// AllowReset enables POST /dev/reset-products.
func (h *Handler) AllowReset(allow bool) *Handler {
	h.allowReset = allow
	return h
}

func (h *Handler) RegisterRoutes(app fiber.Router) {
	g := app.Group(BasePath)
	g.Get("", h.listProducts)
	g.Post("", h.createProduct)
	g.Get("/:id", h.getProduct)
	g.Put("/:id", h.updateProduct)
	g.Delete("/:id", h.deleteProduct)

	// dev-only endpoint to reset products, enabled by ALLOW_RESET_PRODUCTS
	app.Post("/dev/reset-products", h.resetProducts)
}

func (h *Handler) listProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return h.internalError(c, "list products", err)
	}
	return c.JSON(products)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	p, err := h.service.GetByID(c.UserContext(), id)
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
	}
	if err != nil {
		return h.internalError(c, "get product", err)
	}
	return c.JSON(p)
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	p := new(Product)
	if err := c.BodyParser(p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	// validate payload and return all validation errors together
	if ves := Validate(*p); len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}

	created, err := h.service.Create(c.UserContext(), *p)
	if errors.Is(err, ErrInvalid) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err != nil {
		return h.internalError(c, "create product", err)
	}
	h.log.Info("product created", zap.Int64("id", created.ID), zap.String("name", created.Name))
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	p := new(Product)
	if err := c.BodyParser(p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	// validate payload before attempting update
	if ves := Validate(*p); len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}

	updated, err := h.service.Update(c.UserContext(), id, *p)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
	case errors.Is(err, ErrInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case err != nil:
		return h.internalError(c, "update product", err)
	}
	h.log.Info("product updated", zap.Int64("id", id))
	return c.JSON(updated)
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	err = h.service.Delete(c.UserContext(), id)
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
	}
	if err != nil {
		return h.internalError(c, "delete product", err)
	}
	h.log.Info("product deleted", zap.Int64("id", id))
	return c.SendStatus(fiber.StatusNoContent)
}

// resetProducts replaces the stored products with the posted list, or with
// SampleProducts when the body is not a JSON array. An empty array clears everything.
func (h *Handler) resetProducts(c *fiber.Ctx) error {
	if !h.allowReset {
		return c.Status(fiber.StatusForbidden).SendString("reset not allowed")
	}

	var products []Product
	if err := c.BodyParser(&products); err != nil {
		products = SampleProducts()
	}
	for _, p := range products {
		if ves := Validate(p); len(ves) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
		}
	}

	if err := h.service.ResetProducts(c.UserContext(), products); err != nil {
		return h.internalError(c, "reset products", err)
	}
	h.log.Warn("products reset", zap.Int("count", len(products)))

	stored, err := h.service.List(c.UserContext())
	if err != nil {
		return h.internalError(c, "list products", err)
	}
	return c.JSON(stored)
}

func (h *Handler) internalError(c *fiber.Ctx, op string, err error) error {
	h.log.Error(op+" failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid product id")
	}
	return id, nil
}

// SampleProducts is the catalog the product service starts with when no
// database is configured.
func SampleProducts() []Product {
	return []Product{
		{
			Name:          "Cordless Drill",
			Description:   "18V drill driver with two batteries",
			Price:         decimal.RequireFromString("89.99"),
			Category:      "Tools",
			StockQuantity: 14,
		},
		{
			Name:          "Socket Set",
			Description:   "40 piece metric socket set",
			Price:         decimal.RequireFromString("34.50"),
			Category:      "Tools",
			StockQuantity: 0,
		},
		{
			Name:          "USB-C Hub",
			Description:   "7-in-1 hub with HDMI and card reader",
			Price:         decimal.RequireFromString("45.00"),
			Category:      "Electronics",
			StockQuantity: 32,
		},
		{
			Name:          "Desk Lamp",
			Description:   "LED lamp with adjustable colour temperature",
			Price:         decimal.RequireFromString("27.95"),
			Category:      "Home",
			StockQuantity: 8,
		},
	}
}
