package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cavebenin/emecef-pos/internal/application/billing"
	appemecef "github.com/cavebenin/emecef-pos/internal/application/emecef"
	domainemecef "github.com/cavebenin/emecef-pos/internal/domain/emecef"
	infraemecef "github.com/cavebenin/emecef-pos/internal/infrastructure/emecef"
	infrapdf "github.com/cavebenin/emecef-pos/internal/infrastructure/pdf"
	"github.com/cavebenin/emecef-pos/internal/infrastructure/postgres"
	"github.com/cavebenin/emecef-pos/internal/infrastructure/secret"
	httpRouter "github.com/cavebenin/emecef-pos/internal/interfaces/http"
	"github.com/cavebenin/emecef-pos/pkg/config"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("charger la configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("emcf_credentials_mode", cfg.EMCF.CredentialsMode).
		Msg("démarrage de l'application")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET requis")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString()); err != nil {
			log.Fatal().Err(err).Msg("migrations PostgreSQL")
		}
		log.Info().Msg("migrations appliquées")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("connexion à PostgreSQL")
	}
	defer pool.Close()

	// Sans EMCF_TOKEN_SECRET, les jetons restent en clair : l'interface doit
	// alors rester nil, pas un *secret.Cipher nil.
	var cipher appemecef.TokenCipher
	c, err := secret.New(cfg.EMCF.TokenSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("clé de chiffrement des jetons")
	}
	if c != nil {
		cipher = c
	} else {
		log.Warn().Msg("EMCF_TOKEN_SECRET absent : jetons e-MECeF stockés en clair")
	}

	posRepo := postgres.NewPointOfSaleRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	emcfLog := log.Component("emecef")
	resolver := appemecef.NewCredentialResolver(posRepo, cipher, appemecef.EnvCredentials{
		BaseURL: cfg.EMCF.BaseURL,
		Token:   cfg.EMCF.Token,
		Mode:    cfg.EMCF.CredentialsMode,
	}, emcfLog)
	fiscalClient := infraemecef.NewClient(cfg.EMCF.Timeout(), emcfLog)

	emcfSvc := appemecef.NewService(
		posRepo, resolver, fiscalClient, cipher,
		appemecef.NewIdentityCache(time.Now),
		appemecef.NewPendingStore(cfg.EMCF.PendingTTL(), time.Now),
		txRunner,
		appemecef.Config{
			DateFormat:         domainemecef.ParseDateFormat(cfg.EMCF.DateFormat),
			InfoRefresh:        cfg.EMCF.InfoRefresh(),
			SweepInterval:      cfg.EMCF.SweepInterval(),
			ConfirmedRetention: cfg.EMCF.ConfirmedRetention(),
		},
		emcfLog,
	)
	go emcfSvc.RunExpirySweeper(ctx)

	// PDF : représentation imprimable des factures certifiées
	invoiceUC := billing.NewInvoiceUseCase(invoiceRepo, infrapdf.NewMarotoPDFGenerator(), billing.Seller{
		Name:    cfg.Company.Name,
		IFU:     cfg.Company.IFU,
		Address: cfg.Company.Address,
		Contact: cfg.Company.Phone,
	})
	catalogUC := billing.NewCatalogUseCase(productRepo)

	// WriteTimeout au-delà du délai e-MECeF pour que le 504 parvienne au client.
	app := httpRouter.NewApp(cfg.App.Name, log.Component("http"), fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.EMCF.Timeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	})
	httpRouter.Router(app, httpRouter.RouterDeps{
		Emecef:    emcfSvc,
		Invoices:  invoiceUC,
		Catalog:   catalogUC,
		JWTSecret: cfg.JWT.Secret,
		Logger:    log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("serveur HTTP arrêté")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("signal d'arrêt reçu, fermeture du serveur...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("arrêt du serveur")
	}

	log.Info().Msg("application arrêtée")
}
