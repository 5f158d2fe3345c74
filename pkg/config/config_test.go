package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cavebenin/emecef-pos/pkg/config"
)

func TestLoad_ValeursParDefaut(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, config.CredentialsModeFallback, cfg.EMCF.CredentialsMode)
	assert.Equal(t, "iso", cfg.EMCF.DateFormat)
	assert.Equal(t, 25*time.Second, cfg.EMCF.Timeout())
	assert.Equal(t, 2*time.Minute, cfg.EMCF.PendingTTL())
	assert.Equal(t, 30*time.Minute, cfg.EMCF.InfoRefresh())
	assert.Equal(t, 30*time.Second, cfg.EMCF.SweepInterval())
	assert.Equal(t, time.Hour, cfg.EMCF.ConfirmedRetention())
	assert.False(t, cfg.DB.AutoMigrate)
}

func TestLoad_SurchargesEnvironnement(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMCF_BASE_URL", " https://developper.impots.bj/sygmef-emcf ")
	t.Setenv("EMCF_TOKEN", "jeton")
	t.Setenv("EMCF_CREDENTIALS_MODE", "OVERRIDE")
	t.Setenv("EMCF_DATE_FORMAT", "dgi")
	t.Setenv("EMCF_TIMEOUT_MS", "5000")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("COMPANY_NAME", "Cave du Bénin")
	t.Setenv("COMPANY_IFU", "3201234567890")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://developper.impots.bj/sygmef-emcf", cfg.EMCF.BaseURL)
	assert.Equal(t, "jeton", cfg.EMCF.Token)
	assert.Equal(t, config.CredentialsModeOverride, cfg.EMCF.CredentialsMode)
	assert.Equal(t, "dgi", cfg.EMCF.DateFormat)
	assert.Equal(t, 5*time.Second, cfg.EMCF.Timeout())
	assert.True(t, cfg.DB.AutoMigrate)
	assert.Equal(t, "Cave du Bénin", cfg.Company.Name)
	assert.Equal(t, "3201234567890", cfg.Company.IFU)
}

func TestLoad_ModeInvalide(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMCF_CREDENTIALS_MODE", "merge")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_TimeoutNonNumerique(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMCF_TIMEOUT_MS", "abc")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 25*time.Second, cfg.EMCF.Timeout())
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "cave", Password: "p@ss", DBName: "pos", SSLMode: "disable"}
	assert.Equal(t, "postgres://cave:p%40ss@db:5432/pos?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://autre"
	assert.Equal(t, "postgres://autre", c.ConnectionString())
}
