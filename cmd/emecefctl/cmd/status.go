package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	appemecef "github.com/cavebenin/emecef-pos/internal/application/emecef"
	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
	infraemecef "github.com/cavebenin/emecef-pos/internal/infrastructure/emecef"
)

var (
	statusURL   string
	statusToken string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Sonde GET /info/status du dispositif e-MECeF",
	Long: `Interroge le dispositif avec les identifiants d'environnement
(EMCF_BASE_URL, EMCF_TOKEN) ou ceux passés en option.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusURL, "url", "", "URL de base e-MECeF (défaut : EMCF_BASE_URL)")
	statusCmd.Flags().StringVar(&statusToken, "token", "", "jeton bearer (défaut : EMCF_TOKEN)")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	creds := domain.Credentials{
		BaseURL: firstSet(statusURL, cfg.EMCF.BaseURL),
		Token:   appemecef.NormalizeToken(firstSet(statusToken, cfg.EMCF.Token)),
		Source:  appemecef.SourceEnv,
	}
	if creds.BaseURL == "" || creds.Token == "" {
		return domain.Newf(domain.ErrNotConfigured, "URL et jeton requis (--url/--token ou EMCF_BASE_URL/EMCF_TOKEN)")
	}

	client := infraemecef.NewClient(cfg.EMCF.Timeout(), log.Component("emecef"))
	resp, err := client.Status(cmd.Context(), creds)
	if err != nil {
		return err
	}
	if info := domain.VendorInfoFrom(resp); info != nil {
		log.Info().Str("nim", info.Nim).Str("ifu", info.Ifu).Msg("dispositif e-MECeF joignable")
	} else {
		log.Warn().Msg("réponse /status sans nim ni ifu")
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("écriture de la réponse: %w", err)
	}
	return nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
