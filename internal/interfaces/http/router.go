package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/cavebenin/emecef-pos/internal/application/billing"
	appemecef "github.com/cavebenin/emecef-pos/internal/application/emecef"
	"github.com/cavebenin/emecef-pos/pkg/jwt"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

// RouterDeps dépendances du routeur.
type RouterDeps struct {
	Emecef    *appemecef.Service
	Invoices  *billing.InvoiceUseCase
	Catalog   *billing.CatalogUseCase
	JWTSecret string
	Logger    *logger.Logger
}

// Router enregistre les routes de l'API. Tout /api exige un JWT ;
// les modifications de points de vente exigent le rôle admin.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	admin := RequireRole(jwt.RoleAdmin)

	emcf := api.Group("/emcf")
	eh := NewEmecefHandler(deps.Emecef, log)
	emcf.Get("/pos", eh.ListPointsOfSale)
	emcf.Get("/pos/active", eh.GetActivePointOfSale)
	emcf.Post("/pos", admin, eh.CreatePointOfSale)
	emcf.Put("/pos/:id", admin, eh.UpdatePointOfSale)
	emcf.Delete("/pos/:id", admin, eh.DeletePointOfSale)
	emcf.Post("/pos/:id/activate", admin, eh.ActivatePointOfSale)
	emcf.Get("/status", eh.Status)
	emcf.Post("/invoices", eh.SubmitInvoice)
	emcf.Get("/invoices/:uid", eh.GetInvoice)
	emcf.Post("/invoices/:uid/confirm", eh.ConfirmInvoice)
	emcf.Post("/invoices/:uid/cancel", eh.CancelInvoice)
	emcf.Post("/invoices/:uid/finalize/:action", eh.FinalizeInvoice)
	emcf.Get("/pending/:uid", eh.PendingStatus)

	if deps.Invoices != nil {
		invoices := api.Group("/invoices")
		ih := NewInvoiceHandler(deps.Invoices, log)
		invoices.Get("/", ih.List)
		invoices.Get("/:id", ih.GetByID)
		invoices.Get("/:id/pdf", ih.DownloadPDF)
		invoices.Patch("/:id", ih.UpdateNotes)
		invoices.Delete("/:id", ih.Delete)
	}

	if deps.Catalog != nil {
		ph := NewProductHandler(deps.Catalog, log)
		api.Get("/products", ph.List)
	}
}

// NewApp application fiber avec récupération de panique, journal d'accès et /health.
func NewApp(name string, log *logger.Logger, cfg ...fiber.Config) *fiber.App {
	c := fiber.Config{AppName: name}
	if len(cfg) > 0 {
		c = cfg[0]
		c.AppName = name
	}
	app := fiber.New(c)
	app.Use(recover.New())
	app.Use(AccessLog(log))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": name})
	})
	return app
}
