package http

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/cavebenin/emecef-pos/internal/application/dto"
	appemecef "github.com/cavebenin/emecef-pos/internal/application/emecef"
	"github.com/cavebenin/emecef-pos/internal/domain/emecef"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

// EmecefHandler routes /api/emcf : points de vente, soumission et finalisation.
type EmecefHandler struct {
	svc *appemecef.Service
	log *logger.Logger
}

// NewEmecefHandler construit le handler.
func NewEmecefHandler(svc *appemecef.Service, log *logger.Logger) *EmecefHandler {
	return &EmecefHandler{svc: svc, log: log}
}

// ── Points de vente ──────────────────────────────────────────────────────────

// ListPointsOfSale GET /api/emcf/pos
func (h *EmecefHandler) ListPointsOfSale(c *fiber.Ctx) error {
	list, err := h.svc.ListPointsOfSale(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}

// GetActivePointOfSale GET /api/emcf/pos/active
func (h *EmecefHandler) GetActivePointOfSale(c *fiber.Ctx) error {
	pos, err := h.svc.GetActivePointOfSale(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(pos)
}

// CreatePointOfSale POST /api/emcf/pos (admin)
func (h *EmecefHandler) CreatePointOfSale(c *fiber.Ctx) error {
	var in dto.UpsertPointOfSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "corps invalide")
	}
	in.ID = ""
	pos, err := h.svc.UpsertPointOfSale(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pos)
}

// UpdatePointOfSale PUT /api/emcf/pos/:id (admin)
func (h *EmecefHandler) UpdatePointOfSale(c *fiber.Ctx) error {
	var in dto.UpsertPointOfSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "corps invalide")
	}
	in.ID = c.Params("id")
	pos, err := h.svc.UpsertPointOfSale(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(pos)
}

// DeletePointOfSale DELETE /api/emcf/pos/:id (admin)
func (h *EmecefHandler) DeletePointOfSale(c *fiber.Ctx) error {
	if err := h.svc.DeletePointOfSale(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ActivatePointOfSale POST /api/emcf/pos/:id/activate (admin)
func (h *EmecefHandler) ActivatePointOfSale(c *fiber.Ctx) error {
	if err := h.svc.SetActivePointOfSale(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ── Dispositif ───────────────────────────────────────────────────────────────

// Status GET /api/emcf/status?pos_id=
func (h *EmecefHandler) Status(c *fiber.Ctx) error {
	resp, err := h.svc.Status(c.UserContext(), c.Query("pos_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// SubmitInvoice POST /api/emcf/invoices?pos_id=
// Le corps est transmis tel quel au validateur : toute forme JSON est acceptée
// ici, les règles métier produisent les erreurs 422.
func (h *EmecefHandler) SubmitInvoice(c *fiber.Ctx) error {
	raw, err := decodeAny(c.Body())
	if err != nil {
		return writeError(c, h.log, emecef.Newf(emecef.ErrInvalidPayload, "JSON illisible: %v", err))
	}
	resp, err := h.svc.SubmitInvoice(c.UserContext(), c.Query("pos_id"), raw, GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetInvoice GET /api/emcf/invoices/:uid?pos_id=
func (h *EmecefHandler) GetInvoice(c *fiber.Ctx) error {
	resp, err := h.svc.GetInvoice(c.UserContext(), c.Params("uid"), c.Query("pos_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// PendingStatus GET /api/emcf/pending/:uid
func (h *EmecefHandler) PendingStatus(c *fiber.Ctx) error {
	resp, err := h.svc.PendingStatus(c.Params("uid"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// ConfirmInvoice POST /api/emcf/invoices/:uid/confirm
func (h *EmecefHandler) ConfirmInvoice(c *fiber.Ctx) error {
	resp, err := h.svc.ConfirmInvoice(c.UserContext(), c.Params("uid"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// CancelInvoice POST /api/emcf/invoices/:uid/cancel
func (h *EmecefHandler) CancelInvoice(c *fiber.Ctx) error {
	resp, err := h.svc.CancelInvoice(c.UserContext(), c.Params("uid"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// FinalizeInvoice POST /api/emcf/invoices/:uid/finalize/:action
func (h *EmecefHandler) FinalizeInvoice(c *fiber.Ctx) error {
	action, err := emecef.ParseFinalizeAction(c.Params("action"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	resp, err := h.svc.FinalizeInvoice(c.UserContext(), c.Params("uid"), action, GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// decodeAny décode un JSON quelconque en conservant les nombres exacts.
func decodeAny(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
