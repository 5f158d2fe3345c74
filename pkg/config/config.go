package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config regroupe la configuration de l'application (lue via Viper depuis
// l'environnement et, en option, un fichier .env / config.env).
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
	EMCF    EMCFConfig
	Company CompanyConfig
}

// AppConfig configuration générale.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string // trace, debug, info, warn, error
}

// DBConfig configuration PostgreSQL.
// Si DatabaseURL est renseigné, il est utilisé tel quel comme DSN.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	AutoMigrate bool // applique les migrations embarquées au démarrage
}

// ConnectionString retourne DATABASE_URL si défini, sinon le DSN construit.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN construit le DSN PostgreSQL (mot de passe encodé).
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuration JWT des opérateurs.
type JWTConfig struct {
	Secret     string
	Expiration int // minutes
	Issuer     string
}

// HTTPConfig configuration du serveur HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr adresse d'écoute (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CompanyConfig identité du vendeur imprimée sur les factures PDF.
type CompanyConfig struct {
	Name    string
	IFU     string
	Address string
	Phone   string
}

// Modes de fusion des identifiants e-MECeF d'environnement avec ceux de la base.
const (
	CredentialsModeOverride = "override" // l'environnement remplace la base
	CredentialsModeFallback = "fallback" // l'environnement comble les vides
)

// EMCFConfig paramètres du dispositif e-MECeF (DGI Bénin).
// BaseURL et Token sont des surcharges facultatives du point de vente actif.
type EMCFConfig struct {
	BaseURL              string
	Token                string
	CredentialsMode      string // override | fallback
	DateFormat           string // iso | dgi
	InfoRefreshMinutes   int
	TimeoutMS            int
	PendingTTLSeconds    int
	SweepIntervalSeconds int
	RetentionMinutes     int    // conservation d'une facture certifiée non enregistrée
	TokenSecret          string // clé de chiffrement des jetons au repos ; vide = texte clair
}

// Timeout délai réseau par appel.
func (c EMCFConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// InfoRefresh durée de validité de l'identité vendeur (nim/ifu) en cache.
func (c EMCFConfig) InfoRefresh() time.Duration {
	return time.Duration(c.InfoRefreshMinutes) * time.Minute
}

// PendingTTL fenêtre de confirmation/annulation d'une soumission.
func (c EMCFConfig) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLSeconds) * time.Second
}

// SweepInterval période de purge des soumissions expirées.
func (c EMCFConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// ConfirmedRetention délai, après l'échéance, avant l'abandon d'une facture
// certifiée dont l'enregistrement local échoue.
func (c EMCFConfig) ConfirmedRetention() time.Duration {
	return time.Duration(c.RetentionMinutes) * time.Minute
}

// Load lit la configuration. Les variables d'environnement ont priorité.
// Noms attendus : APP_ENV, DB_HOST, JWT_SECRET, EMCF_BASE_URL, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // fichier facultatif

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "emecef-pos"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "emecef_pos"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
			AutoMigrate: getBool(v, "DB_AUTO_MIGRATE", false),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 480),
			Issuer:     getString(v, "JWT_ISSUER", "emecef-pos"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		EMCF: EMCFConfig{
			BaseURL:              strings.TrimSpace(getString(v, "EMCF_BASE_URL", "")),
			Token:                strings.TrimSpace(getString(v, "EMCF_TOKEN", "")),
			CredentialsMode:      strings.ToLower(getString(v, "EMCF_CREDENTIALS_MODE", CredentialsModeFallback)),
			DateFormat:           strings.ToLower(getString(v, "EMCF_DATE_FORMAT", "iso")),
			InfoRefreshMinutes:   getInt(v, "EMCF_INFO_REFRESH_MINUTES", 30),
			TimeoutMS:            getInt(v, "EMCF_TIMEOUT_MS", 25000),
			PendingTTLSeconds:    getInt(v, "EMCF_PENDING_TTL_SECONDS", 120),
			SweepIntervalSeconds: getInt(v, "EMCF_SWEEP_INTERVAL_SECONDS", 30),
			RetentionMinutes:     getInt(v, "EMCF_CONFIRMED_RETENTION_MINUTES", 60),
			TokenSecret:          getString(v, "EMCF_TOKEN_SECRET", ""),
		},
		Company: CompanyConfig{
			Name:    getString(v, "COMPANY_NAME", "Cave"),
			IFU:     getString(v, "COMPANY_IFU", ""),
			Address: getString(v, "COMPANY_ADDRESS", ""),
			Phone:   getString(v, "COMPANY_PHONE", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.EMCF.CredentialsMode {
	case CredentialsModeOverride, CredentialsModeFallback:
	default:
		return fmt.Errorf("config: EMCF_CREDENTIALS_MODE invalide %q (override|fallback)", c.EMCF.CredentialsMode)
	}
	switch c.EMCF.DateFormat {
	case "iso", "dgi":
	default:
		return fmt.Errorf("config: EMCF_DATE_FORMAT invalide %q (iso|dgi)", c.EMCF.DateFormat)
	}
	if c.EMCF.TimeoutMS <= 0 {
		c.EMCF.TimeoutMS = 25000
	}
	if c.EMCF.PendingTTLSeconds <= 0 {
		c.EMCF.PendingTTLSeconds = 120
	}
	if c.EMCF.InfoRefreshMinutes <= 0 {
		c.EMCF.InfoRefreshMinutes = 30
	}
	if c.EMCF.SweepIntervalSeconds <= 0 {
		c.EMCF.SweepIntervalSeconds = 30
	}
	if c.EMCF.RetentionMinutes <= 0 {
		c.EMCF.RetentionMinutes = 60
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
