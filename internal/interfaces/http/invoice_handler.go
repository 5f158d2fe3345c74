package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cavebenin/emecef-pos/internal/application/billing"
	"github.com/cavebenin/emecef-pos/internal/application/dto"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

// InvoiceHandler routes /api/invoices (factures locales).
type InvoiceHandler struct {
	uc  *billing.InvoiceUseCase
	log *logger.Logger
}

// NewInvoiceHandler construit le handler.
func NewInvoiceHandler(uc *billing.InvoiceUseCase, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{uc: uc, log: log}
}

// List GET /api/invoices?type=&q=&limit=&offset=
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	var in dto.InvoiceListRequest
	if err := c.QueryParser(&in); err != nil {
		return badRequest(c, "paramètres invalides")
	}
	resp, err := h.uc.ListInvoices(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// GetByID GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	resp, err := h.uc.GetInvoice(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// UpdateNotes PATCH /api/invoices/:id
func (h *InvoiceHandler) UpdateNotes(c *fiber.Ctx) error {
	var in dto.UpdateInvoiceNotesRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "corps invalide")
	}
	resp, err := h.uc.UpdateNotes(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// Delete DELETE /api/invoices/:id
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.DeleteInvoice(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DownloadPDF GET /api/invoices/:id/pdf
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	pdf, filename, err := h.uc.DownloadPDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}
