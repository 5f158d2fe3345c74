package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/cavebenin/emecef-pos/internal/application/dto"
	"github.com/cavebenin/emecef-pos/internal/domain"
	"github.com/cavebenin/emecef-pos/internal/domain/emecef"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

// StatusForKind statut HTTP d'une erreur e-MECeF selon sa famille.
func StatusForKind(k emecef.Kind) int {
	switch k {
	case emecef.KindValidation:
		return fiber.StatusUnprocessableEntity
	case emecef.KindConfiguration:
		return fiber.StatusPreconditionFailed
	case emecef.KindTimeout:
		return fiber.StatusGatewayTimeout
	case emecef.KindTransport, emecef.KindProtocol, emecef.KindBusiness:
		return fiber.StatusBadGateway
	case emecef.KindState:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError traduit err en réponse JSON dto.ErrorResponse. Les erreurs
// e-MECeF portent la réponse brute de l'API dans Details.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var fe *emecef.Error
	if errors.As(err, &fe) {
		resp := dto.ErrorResponse{Code: fe.Code.Error(), Message: fe.Message}
		if resp.Message == "" {
			resp.Message = fe.Error()
		}
		switch {
		case fe.Body != nil:
			resp.Details = fe.Body
		case fe.RawBody != "":
			resp.Details = fiber.Map{emecef.RawKey: fe.RawBody}
		}
		if fe.Payload != nil {
			resp.Payload = fe.Payload
		}
		status := StatusForKind(fe.Kind())
		if status >= fiber.StatusInternalServerError {
			log.Warn().Err(err).Str("path", c.Path()).Int("status", status).Msg("échec e-MECeF")
		}
		return c.Status(status).JSON(resp)
	}

	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrImmutable):
		status, code = fiber.StatusConflict, "IMMUTABLE"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrConflict):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrInsufficientStock):
		status, code = fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = fiber.StatusUnauthorized, "UNAUTHORIZED"
	}
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("erreur interne")
		return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: "erreur interne"})
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: msg})
}
