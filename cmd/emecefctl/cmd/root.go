// Package cmd commandes d'exploitation de emecef-pos : sonde du dispositif,
// normalisation à blanc, migrations et jetons opérateur.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cavebenin/emecef-pos/pkg/config"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "emecefctl",
	Short: "Outils d'exploitation du service e-MECeF",
	Long: `emecefctl regroupe les opérations hors serveur HTTP :

  # Sonder le dispositif e-MECeF configuré (EMCF_BASE_URL, EMCF_TOKEN)
  emecefctl status

  # Valider et normaliser une facture sans la soumettre
  emecefctl normalize facture.json

  # Appliquer les migrations
  emecefctl migrate up

  # Émettre un jeton opérateur
  emecefctl token --user caisse-1 --role caissier`,
	SilenceUsage: true,
}

// Execute lance la commande racine.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "journal détaillé")
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.App.LogLevel
	if verbose {
		level = "debug"
	}
	return cfg, logger.New(logger.Config{Env: cfg.App.Env, Level: level}), nil
}
