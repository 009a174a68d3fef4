package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
// Payment provider credentials are deliberately NOT validated as required:
// the read-only routes (check-license, sync-user) must keep serving even when
// MercadoPago/PayPal credentials are absent. Handlers that depend on a
// provider return 503 when its credentials are missing.
type Config struct {
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`

	// FrontendURL is where payment back_urls/callback_url point; ClientURL is
	// the CORS origin (usually the same host). BackendURL is this service's
	// public base, used to build provider notification URLs.
	ClientURL   string `mapstructure:"CLIENT_URL"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`
	BackendURL  string `mapstructure:"BACKEND_URL"`

	// SQLitePath is the local license table location.
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	MPAccessToken string `mapstructure:"MP_ACCESS_TOKEN"`

	PayPalClientID string `mapstructure:"PAYPAL_CLIENT_ID"`
	PayPalSecret   string `mapstructure:"PAYPAL_SECRET"`
	PayPalAPIBase  string `mapstructure:"PAYPAL_API_BASE"`

	// PremiumPriceCOP is the unit price attached to MercadoPago preferences.
	// Kept high enough to clear provider minimums in COP/ARS.
	PremiumPriceCOP float64 `mapstructure:"PREMIUM_PRICE_COP"`
	PremiumTitle    string  `mapstructure:"PREMIUM_TITLE"`

	// PremiumPassCode is the single configured promo code secret.
	PremiumPassCode string `mapstructure:"PREMIUM_PASS_CODE"`

	// Official app pass validation endpoint and its bearer credential.
	OfficialPassValidateURL string `mapstructure:"OFFICIAL_PASS_VALIDATE_URL"`
	OfficialPassAPIKey      string `mapstructure:"OFFICIAL_PASS_API_KEY"`

	SMTPHost      string `mapstructure:"SMTP_HOST"`
	SMTPPort      string `mapstructure:"SMTP_PORT"`
	SMTPUser      string `mapstructure:"SMTP_USER"`
	SMTPPass      string `mapstructure:"SMTP_PASS"`
	SupportInbox  string `mapstructure:"SUPPORT_INBOX"`
	SupportSender string `mapstructure:"SUPPORT_SENDER"`
}

var appConfig *Config

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("SQLITE_PATH", "licenses.db")
	viper.SetDefault("FRONTEND_URL", "https://smart-audio-eq.pages.dev")
	viper.SetDefault("BACKEND_URL", "https://smart-audio-eq-1.onrender.com")
	viper.SetDefault("PAYPAL_API_BASE", "https://api-m.paypal.com")
	viper.SetDefault("PREMIUM_PRICE_COP", 20000.0)
	viper.SetDefault("PREMIUM_TITLE", "Smart Audio EQ Premium")
	viper.SetDefault("SMTP_HOST", "smtp.mailtrap.io")
	viper.SetDefault("SMTP_PORT", "2525")

	// Bind environment variables
	for _, key := range []string{
		"PORT", "GIN_MODE", "CLIENT_URL", "FRONTEND_URL", "BACKEND_URL",
		"SQLITE_PATH",
		"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
		"MP_ACCESS_TOKEN",
		"PAYPAL_CLIENT_ID", "PAYPAL_SECRET", "PAYPAL_API_BASE",
		"PREMIUM_PRICE_COP", "PREMIUM_TITLE", "PREMIUM_PASS_CODE",
		"OFFICIAL_PASS_VALIDATE_URL", "OFFICIAL_PASS_API_KEY",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS",
		"SUPPORT_INBOX", "SUPPORT_SENDER",
	} {
		viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if cfg.SQLitePath == "" {
		return nil, errors.New("SQLITE_PATH must not be empty")
	}

	appConfig = &cfg
	return appConfig, nil
}

// HasMercadoPago reports whether MercadoPago credentials are configured.
func (c *Config) HasMercadoPago() bool {
	return c.MPAccessToken != ""
}

// HasPayPal reports whether PayPal credentials are configured.
func (c *Config) HasPayPal() bool {
	return c.PayPalClientID != "" && c.PayPalSecret != ""
}

// HasFirebase reports whether any Firebase credential source is configured.
func (c *Config) HasFirebase() bool {
	return c.FirebaseProjectID != "" ||
		c.GoogleApplicationCredentials != "" ||
		c.FirebaseServiceAccountJSONBase64 != ""
}

// GetConfig returns the loaded application configuration.
// It will panic if LoadConfig has not been called successfully.
func GetConfig() *Config {
	if appConfig == nil {
		panic("config not loaded; call LoadConfig first")
	}
	return appConfig
}
