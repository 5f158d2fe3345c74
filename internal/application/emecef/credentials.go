package emecef

import (
	"context"
	"fmt"
	"strings"

	"github.com/cavebenin/emecef-pos/internal/domain"
	domainemecef "github.com/cavebenin/emecef-pos/internal/domain/emecef"
	"github.com/cavebenin/emecef-pos/internal/domain/entity"
	"github.com/cavebenin/emecef-pos/internal/domain/repository"
	"github.com/cavebenin/emecef-pos/pkg/config"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

// Origines des identifiants résolus.
const (
	SourceDB    = "db"
	SourceEnv   = "env"
	SourceMixed = "db+env"
)

// EnvCredentials surcharges d'environnement (EMCF_BASE_URL, EMCF_TOKEN).
type EnvCredentials struct {
	BaseURL string
	Token   string
	Mode    string // config.CredentialsModeOverride | config.CredentialsModeFallback
}

// CredentialResolver choisit l'URL et le jeton d'un appel e-MECeF.
type CredentialResolver struct {
	repo   repository.PointOfSaleRepository
	cipher TokenCipher
	env    EnvCredentials
	log    *logger.Logger
}

// NewCredentialResolver construit le résolveur. cipher peut être nil.
func NewCredentialResolver(repo repository.PointOfSaleRepository, cipher TokenCipher, env EnvCredentials, log *logger.Logger) *CredentialResolver {
	if env.Mode == "" {
		env.Mode = config.CredentialsModeFallback
	}
	env.BaseURL = strings.TrimSpace(env.BaseURL)
	env.Token = NormalizeToken(env.Token)
	return &CredentialResolver{repo: repo, cipher: cipher, env: env, log: log}
}

// Resolve retourne les identifiants du point de vente posID, ou du point de
// vente actif si posID est vide. nil, nil si rien n'est configuré.
func (r *CredentialResolver) Resolve(ctx context.Context, posID string) (*domainemecef.Credentials, error) {
	var pos *entity.PointOfSale
	var err error
	if posID != "" {
		pos, err = r.repo.GetByID(ctx, posID)
		if err != nil {
			return nil, fmt.Errorf("lecture point de vente: %w", err)
		}
		if pos == nil {
			return nil, fmt.Errorf("point de vente %q: %w", posID, domain.ErrNotFound)
		}
	} else {
		pos, err = r.repo.GetActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("lecture point de vente actif: %w", err)
		}
	}

	var dbURL, dbToken, dbID string
	if pos != nil {
		dbID = pos.ID
		dbURL = strings.TrimSpace(pos.BaseURL)
		dbToken = NormalizeToken(r.storedToken(pos))
	}

	baseURL, urlSrc := merge(dbURL, r.env.BaseURL, r.env.Mode)
	token, tokSrc := merge(dbToken, r.env.Token, r.env.Mode)
	if baseURL == "" && token == "" {
		return nil, nil
	}

	source := urlSrc
	if urlSrc != tokSrc && urlSrc != "" && tokSrc != "" {
		source = SourceMixed
	} else if source == "" {
		source = tokSrc
	}
	return &domainemecef.Credentials{PosID: dbID, BaseURL: baseURL, Token: token, Source: source}, nil
}

// storedToken déchiffre le jeton stocké. Un échec de déchiffrement n'est pas
// fatal : la valeur stockée est utilisée comme texte clair.
func (r *CredentialResolver) storedToken(pos *entity.PointOfSale) string {
	if !pos.TokenEncrypted || pos.Token == "" {
		return pos.Token
	}
	if r.cipher == nil {
		r.log.Warn().Str("pos_id", pos.ID).Msg("jeton chiffré mais aucune clé EMCF_TOKEN_SECRET : valeur utilisée telle quelle")
		return pos.Token
	}
	plain, err := r.cipher.Decrypt(pos.Token)
	if err != nil {
		r.log.Warn().Err(err).Str("pos_id", pos.ID).Msg("déchiffrement du jeton impossible : valeur utilisée telle quelle")
		return pos.Token
	}
	return plain
}

func merge(dbValue, envValue, mode string) (string, string) {
	if mode == config.CredentialsModeOverride {
		if envValue != "" {
			return envValue, SourceEnv
		}
		if dbValue != "" {
			return dbValue, SourceDB
		}
		return "", ""
	}
	if dbValue != "" {
		return dbValue, SourceDB
	}
	if envValue != "" {
		return envValue, SourceEnv
	}
	return "", ""
}

// NormalizeToken retire les espaces et un préfixe "Bearer " (insensible à la casse).
func NormalizeToken(token string) string {
	t := strings.TrimSpace(token)
	if len(t) >= 7 && strings.EqualFold(t[:7], "bearer ") {
		t = strings.TrimSpace(t[7:])
	}
	return t
}

// requireCredentials lève EMCF_NON_CONFIGURE avant tout appel réseau.
func requireCredentials(creds *domainemecef.Credentials) error {
	switch {
	case creds == nil:
		return domainemecef.Newf(domainemecef.ErrNotConfigured, "aucun point de vente e-MECeF actif et aucune variable EMCF_BASE_URL/EMCF_TOKEN")
	case creds.BaseURL == "":
		return domainemecef.Newf(domainemecef.ErrNotConfigured, "URL de l'API e-MECeF manquante")
	case creds.Token == "":
		return domainemecef.Newf(domainemecef.ErrNotConfigured, "jeton e-MECeF manquant")
	}
	return nil
}
