package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquiry-sync-workers/internal/common/errors"
	"inquiry-sync-workers/internal/models"
)

func baseEnv() MapSource {
	return MapSource{
		"INSIGHTLY_API_URL": "https://api.na1.insightly.com/v3.1/",
		"INSIGHTLY_API_KEY": "secret",
	}
}

func TestResolveCRM_Defaults(t *testing.T) {
	cfg, err := ResolveCRM(nil, baseEnv())
	require.NoError(t, err)

	assert.Equal(t, "https://api.na1.insightly.com/v3.1", cfg.APIURL)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "United States", cfg.DefaultCountry)
	assert.Empty(t, cfg.WebURL)
	assert.Nil(t, cfg.DefaultLeadStatusID)
	assert.Nil(t, cfg.LeadSourceFor(models.FormTypeMediationSelfReferral))
	assert.Equal(t, RetryConfig{
		MaxRetries:        3,
		InitialDelayMs:    1000,
		MaxDelayMs:        10000,
		BackoffMultiplier: 2,
	}, cfg.Retry)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestResolveCRM_ManagedSourceWins(t *testing.T) {
	managed := MapSource{
		"crm.api_key":                           "from-vault",
		"crm.default_country":                   "Canada",
		"crm.lead_sources.restorative_referral": "77",
		"crm.retry.max_retries":                 "5",
	}
	env := baseEnv()
	env["INSIGHTLY_DEFAULT_COUNTRY"] = "Mexico"
	env["INSIGHTLY_LEAD_SOURCE_SELF_REFERRAL"] = "12"
	env["INSIGHTLY_DEFAULT_OWNER_USER_ID"] = "900"
	env["INSIGHTLY_WEB_URL"] = "https://crm.na1.insightly.com/"

	cfg, err := ResolveCRM(managed, env)
	require.NoError(t, err)

	assert.Equal(t, "from-vault", cfg.APIKey)
	assert.Equal(t, "Canada", cfg.DefaultCountry)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, "https://crm.na1.insightly.com", cfg.WebURL)
	require.NotNil(t, cfg.DefaultOwnerUserID)
	assert.Equal(t, int64(900), *cfg.DefaultOwnerUserID)
	assert.Equal(t, int64(77), *cfg.LeadSourceFor(models.FormTypeRestorativeReferral))
	assert.Equal(t, int64(12), *cfg.LeadSourceFor(models.FormTypeMediationSelfReferral))
}

func TestResolveCRM_BlankValuesFallThrough(t *testing.T) {
	managed := MapSource{"crm.api_url": "   "}

	cfg, err := ResolveCRM(managed, baseEnv())
	require.NoError(t, err)
	assert.Equal(t, "https://api.na1.insightly.com/v3.1", cfg.APIURL)
}

func TestResolveCRM_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     MapSource
		setting string
	}{
		{
			name:    "missing api url",
			env:     MapSource{"INSIGHTLY_API_KEY": "k"},
			setting: "crm.api_url (INSIGHTLY_API_URL)",
		},
		{
			name:    "missing api key",
			env:     MapSource{"INSIGHTLY_API_URL": "https://x"},
			setting: "crm.api_key (INSIGHTLY_API_KEY)",
		},
		{
			name:    "non numeric retries",
			env:     withEnv(baseEnv(), "INSIGHTLY_MAX_RETRIES", "three"),
			setting: "crm.retry.max_retries (INSIGHTLY_MAX_RETRIES)",
		},
		{
			name:    "zero delay",
			env:     withEnv(baseEnv(), "INSIGHTLY_INITIAL_DELAY_MS", "0"),
			setting: "crm.retry.initial_delay_ms (INSIGHTLY_INITIAL_DELAY_MS)",
		},
		{
			name:    "shrinking multiplier",
			env:     withEnv(baseEnv(), "INSIGHTLY_BACKOFF_MULTIPLIER", "0.5"),
			setting: "crm.retry.backoff_multiplier (INSIGHTLY_BACKOFF_MULTIPLIER)",
		},
		{
			name:    "bad lead source",
			env:     withEnv(baseEnv(), "INSIGHTLY_LEAD_SOURCE_SELF_REFERRAL", "abc"),
			setting: "crm.lead_sources.mediation_self_referral (INSIGHTLY_LEAD_SOURCE_SELF_REFERRAL)",
		},
		{
			name:    "initial above max",
			env:     withEnv(baseEnv(), "INSIGHTLY_INITIAL_DELAY_MS", "20000"),
			setting: "crm.retry.initial_delay_ms (INSIGHTLY_INITIAL_DELAY_MS)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ResolveCRM(nil, tt.env)
			require.Error(t, err)
			assert.Nil(t, cfg)

			var cfgErr *ConfigurationError
			require.True(t, stderrors.As(err, &cfgErr))
			assert.Equal(t, tt.setting, cfgErr.Setting)
			assert.Equal(t, errors.ErrCodeConfiguration, errors.CodeOf(err))
		})
	}
}

func TestViperSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crm_api_key"), []byte("file-secret\n"), 0o600))

	v := viper.New()
	v.Set("crm.api_url", "https://api.example.com")
	v.Set("crm.web_url", "${INSIGHTLY_UNSET_PLACEHOLDER}")

	src := NewViperSource(v, dir)

	val, ok := src.Lookup("crm.api_key")
	assert.True(t, ok)
	assert.Equal(t, "file-secret", val)

	val, ok = src.Lookup("crm.api_url")
	assert.True(t, ok)
	assert.Equal(t, "https://api.example.com", val)

	_, ok = src.Lookup("crm.web_url")
	assert.False(t, ok)

	_, ok = src.Lookup("crm.default_country")
	assert.False(t, ok)
}

func TestEnvSource(t *testing.T) {
	t.Setenv("INSIGHTLY_API_URL", "https://env.example.com")
	t.Setenv("INSIGHTLY_API_KEY", "env-key")

	cfg, err := ResolveCRM(nil, EnvSource{})
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.APIURL)
	assert.Equal(t, "env-key", cfg.APIKey)
}

func withEnv(m MapSource, key, value string) MapSource {
	m[key] = value
	return m
}
