package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cavebenin/emecef-pos/pkg/jwt"
)

var (
	tokenUser string
	tokenRole string
	tokenTTL  int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Émet un JWT opérateur signé avec JWT_SECRET",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "identifiant de l'opérateur")
	tokenCmd.Flags().StringVar(&tokenRole, "role", jwt.RoleCashier, "rôle (admin|caissier)")
	tokenCmd.Flags().IntVar(&tokenTTL, "ttl", 0, "durée de validité en minutes (défaut : JWT_EXPIRATION_MINUTES)")
	_ = tokenCmd.MarkFlagRequired("user")
}

func runToken(cmd *cobra.Command, _ []string) error {
	if tokenRole != jwt.RoleAdmin && tokenRole != jwt.RoleCashier {
		return fmt.Errorf("rôle %q inconnu (admin|caissier)", tokenRole)
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ttl := tokenTTL
	if ttl <= 0 {
		ttl = cfg.JWT.Expiration
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, tokenUser, tokenRole, cfg.JWT.Issuer, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
