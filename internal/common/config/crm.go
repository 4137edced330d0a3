// internal/common/config/crm.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"inquiry-sync-workers/internal/common/errors"
	"inquiry-sync-workers/internal/models"
)

// RetryConfig is the backoff policy of the CRM HTTP client.
type RetryConfig struct {
	MaxRetries        int
	InitialDelayMs    int
	MaxDelayMs        int
	BackoffMultiplier float64
}

func (r RetryConfig) InitialDelay() time.Duration { return GetDuration(r.InitialDelayMs) }
func (r RetryConfig) MaxDelay() time.Duration     { return GetDuration(r.MaxDelayMs) }

// CRMConfig is resolved once at startup and shared read-only afterwards.
type CRMConfig struct {
	APIURL                   string
	APIKey                   string
	DefaultLeadStatusID      *int64
	LeadSources              map[models.FormType]int64
	DefaultOwnerUserID       *int64
	DefaultResponsibleUserID *int64
	DefaultCountry           string
	WebURL                   string
	Retry                    RetryConfig
	Timeout                  time.Duration
}

// LeadSourceFor returns the configured lead source id for a form type.
func (c *CRMConfig) LeadSourceFor(ft models.FormType) *int64 {
	id, ok := c.LeadSources[ft]
	if !ok {
		return nil
	}
	return &id
}

// ConfigurationError reports a missing or malformed CRM setting.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Setting, e.Reason)
}

func (e *ConfigurationError) ErrorCode() errors.ErrorCode {
	return errors.ErrCodeConfiguration
}

// Source is one layer of configuration values.
type Source interface {
	Lookup(key string) (string, bool)
}

// MapSource is a fixed set of values.
type MapSource map[string]string

func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// EnvSource reads process environment variables.
type EnvSource struct{}

func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// ViperSource reads managed values: a mounted secret file first, then the
// loaded configuration tree.
type ViperSource struct {
	v          *viper.Viper
	secretsDir string
}

// NewViperSource wraps v. Secret files are looked up in secretsDir as the
// setting key with dots replaced by underscores, e.g. crm_api_key.
func NewViperSource(v *viper.Viper, secretsDir string) *ViperSource {
	return &ViperSource{v: v, secretsDir: secretsDir}
}

func (s *ViperSource) Lookup(key string) (string, bool) {
	if s.secretsDir != "" {
		name := strings.ReplaceAll(key, ".", "_")
		if data, err := os.ReadFile(filepath.Join(s.secretsDir, name)); err == nil {
			return strings.TrimSpace(string(data)), true
		}
	}
	if s.v == nil || !s.v.IsSet(key) {
		return "", false
	}
	val := s.v.GetString(key)
	// an unexpanded ${VAR} placeholder means the variable was not set
	if strings.HasPrefix(val, "${") {
		return "", false
	}
	return val, true
}

type crmSetting struct {
	managed string
	env     string
}

func (s crmSetting) name() string {
	return fmt.Sprintf("%s (%s)", s.managed, s.env)
}

var (
	settingAPIURL             = crmSetting{"crm.api_url", "INSIGHTLY_API_URL"}
	settingAPIKey             = crmSetting{"crm.api_key", "INSIGHTLY_API_KEY"}
	settingLeadStatusID       = crmSetting{"crm.default_lead_status_id", "INSIGHTLY_DEFAULT_LEAD_STATUS_ID"}
	settingSourceSelfReferral = crmSetting{"crm.lead_sources.mediation_self_referral", "INSIGHTLY_LEAD_SOURCE_SELF_REFERRAL"}
	settingSourceRestorative  = crmSetting{"crm.lead_sources.restorative_referral", "INSIGHTLY_LEAD_SOURCE_RESTORATIVE_REFERRAL"}
	settingOwnerUserID        = crmSetting{"crm.default_owner_user_id", "INSIGHTLY_DEFAULT_OWNER_USER_ID"}
	settingResponsibleUserID  = crmSetting{"crm.default_responsible_user_id", "INSIGHTLY_DEFAULT_RESPONSIBLE_USER_ID"}
	settingDefaultCountry     = crmSetting{"crm.default_country", "INSIGHTLY_DEFAULT_COUNTRY"}
	settingWebURL             = crmSetting{"crm.web_url", "INSIGHTLY_WEB_URL"}
	settingMaxRetries         = crmSetting{"crm.retry.max_retries", "INSIGHTLY_MAX_RETRIES"}
	settingInitialDelay       = crmSetting{"crm.retry.initial_delay_ms", "INSIGHTLY_INITIAL_DELAY_MS"}
	settingMaxDelay           = crmSetting{"crm.retry.max_delay_ms", "INSIGHTLY_MAX_DELAY_MS"}
	settingMultiplier         = crmSetting{"crm.retry.backoff_multiplier", "INSIGHTLY_BACKOFF_MULTIPLIER"}
	settingTimeout            = crmSetting{"crm.timeout_ms", "INSIGHTLY_TIMEOUT_MS"}
)

const (
	DefaultCountry           = "United States"
	DefaultMaxRetries        = 3
	DefaultInitialDelayMs    = 1000
	DefaultMaxDelayMs        = 10000
	DefaultBackoffMultiplier = 2.0
	DefaultCRMTimeoutMs      = 30000
)

type crmResolver struct {
	managed Source
	env     Source
	err     error
}

// ResolveCRM builds the CRM configuration. Each setting is taken from the
// managed source first, then the environment, then its default.
func ResolveCRM(managed, env Source) (*CRMConfig, error) {
	r := &crmResolver{managed: managed, env: env}

	cfg := &CRMConfig{
		APIURL:                   strings.TrimRight(r.required(settingAPIURL), "/"),
		APIKey:                   r.required(settingAPIKey),
		DefaultLeadStatusID:      r.optionalID(settingLeadStatusID),
		DefaultOwnerUserID:       r.optionalID(settingOwnerUserID),
		DefaultResponsibleUserID: r.optionalID(settingResponsibleUserID),
		DefaultCountry:           r.stringOr(settingDefaultCountry, DefaultCountry),
		WebURL:                   strings.TrimRight(r.stringOr(settingWebURL, ""), "/"),
		LeadSources:              map[models.FormType]int64{},
		Retry: RetryConfig{
			MaxRetries:        r.positiveInt(settingMaxRetries, DefaultMaxRetries),
			InitialDelayMs:    r.positiveInt(settingInitialDelay, DefaultInitialDelayMs),
			MaxDelayMs:        r.positiveInt(settingMaxDelay, DefaultMaxDelayMs),
			BackoffMultiplier: r.multiplier(settingMultiplier, DefaultBackoffMultiplier),
		},
		Timeout: GetDuration(r.positiveInt(settingTimeout, DefaultCRMTimeoutMs)),
	}

	if id := r.optionalID(settingSourceSelfReferral); id != nil {
		cfg.LeadSources[models.FormTypeMediationSelfReferral] = *id
	}
	if id := r.optionalID(settingSourceRestorative); id != nil {
		cfg.LeadSources[models.FormTypeRestorativeReferral] = *id
	}

	if r.err != nil {
		return nil, r.err
	}
	if cfg.Retry.InitialDelayMs > cfg.Retry.MaxDelayMs {
		return nil, &ConfigurationError{
			Setting: settingInitialDelay.name(),
			Reason:  fmt.Sprintf("must not exceed %s", settingMaxDelay.managed),
		}
	}
	return cfg, nil
}

func (r *crmResolver) lookup(s crmSetting) (string, bool) {
	for _, src := range []struct {
		source Source
		key    string
	}{{r.managed, s.managed}, {r.env, s.env}} {
		if src.source == nil {
			continue
		}
		if v, ok := src.source.Lookup(src.key); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func (r *crmResolver) fail(s crmSetting, reason string) {
	if r.err == nil {
		r.err = &ConfigurationError{Setting: s.name(), Reason: reason}
	}
}

func (r *crmResolver) required(s crmSetting) string {
	v, ok := r.lookup(s)
	if !ok {
		r.fail(s, "is required")
	}
	return v
}

func (r *crmResolver) stringOr(s crmSetting, def string) string {
	if v, ok := r.lookup(s); ok {
		return v
	}
	return def
}

func (r *crmResolver) optionalID(s crmSetting) *int64 {
	v, ok := r.lookup(s)
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		r.fail(s, fmt.Sprintf("must be a positive integer, got %q", v))
		return nil
	}
	return &id
}

func (r *crmResolver) positiveInt(s crmSetting, def int) int {
	v, ok := r.lookup(s)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.fail(s, fmt.Sprintf("must be a positive integer, got %q", v))
		return def
	}
	return n
}

func (r *crmResolver) multiplier(s crmSetting, def float64) float64 {
	v, ok := r.lookup(s)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 1 {
		r.fail(s, fmt.Sprintf("must be a number >= 1, got %q", v))
		return def
	}
	return f
}
