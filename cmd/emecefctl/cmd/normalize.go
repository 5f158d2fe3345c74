package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
)

var (
	normalizeDateFormat string
	normalizeNim        string
	normalizeIfu        string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <fichier.json>",
	Short: "Valide et normalise une facture sans la soumettre",
	Long: `Applique à un corps de facture les mêmes règles que POST /api/emcf/invoices
(validation puis normalisation) et affiche le payload qui serait envoyé à la DGI.
Aucun appel réseau n'est effectué.`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().StringVar(&normalizeDateFormat, "date-format", "iso", "format de date (iso|dgi)")
	normalizeCmd.Flags().StringVar(&normalizeNim, "nim", "", "NIM du dispositif à injecter")
	normalizeCmd.Flags().StringVar(&normalizeIfu, "ifu", "", "IFU vendeur à injecter")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	body, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("lecture %s: %w", args[0], err)
	}
	raw, err := domain.DecodeObject(body)
	if err != nil {
		return domain.Newf(domain.ErrInvalidPayload, "JSON illisible: %v", err)
	}
	if err := domain.Validate(raw); err != nil {
		return err
	}

	var info *domain.VendorInfo
	if normalizeNim != "" || normalizeIfu != "" {
		info = &domain.VendorInfo{Nim: normalizeNim, Ifu: normalizeIfu}
	}
	payload := domain.NewNormalizer(domain.ParseDateFormat(normalizeDateFormat), time.Now).Normalize(raw, info)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("écriture du payload: %w", err)
	}
	if delta := payload.PaymentDelta(); delta != 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "avertissement %s : écart de %d FCFA entre paiements et total\n",
			domain.WarningPaymentMismatch, delta)
	}
	return nil
}
