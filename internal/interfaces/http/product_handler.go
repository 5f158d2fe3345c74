package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cavebenin/emecef-pos/internal/application/billing"
	"github.com/cavebenin/emecef-pos/internal/application/dto"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

// ProductHandler catalogue de l'écran de caisse.
type ProductHandler struct {
	uc  *billing.CatalogUseCase
	log *logger.Logger
}

// NewProductHandler construit le handler.
func NewProductHandler(uc *billing.CatalogUseCase, log *logger.Logger) *ProductHandler {
	return &ProductHandler{uc: uc, log: log}
}

// List GET /api/products?limit=&offset=
func (h *ProductHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "paramètres invalides")
	}
	resp, err := h.uc.ListProducts(c.UserContext(), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}
