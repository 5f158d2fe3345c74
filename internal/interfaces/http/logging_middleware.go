package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cavebenin/emecef-pos/pkg/logger"
)

// AccessLog journalise chaque requête (méthode, chemin, statut, durée).
// L'en-tête Authorization n'est jamais journalisé.
func AccessLog(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("user_id", GetUserID(c)).
			Msg("requête HTTP")
		return err
	}
}
