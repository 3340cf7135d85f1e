// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/navcache"
	"github.com/dalemusser/storefront/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the storefront.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STOREFRONT_MONGO_URI, STOREFRONT_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "storefront", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "storefront-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	// API tokens
	{Name: "jwt_secret", Default: "", Desc: "HS256 secret for API bearer tokens (blank disables /api/auth/token)"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Bearer token lifetime"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Public origin for OAuth callbacks, checkout redirects and email links
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL of the storefront"},
	{Name: "site_name", Default: "Storefront", Desc: "Shop name used in emails"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host (blank disables mail)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@storefront.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Storefront", Desc: "From display name"},
	{Name: "contact_email", Default: "", Desc: "Recipient of contact form messages"},

	// Image storage
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded images"},
	{Name: "storage_local_url", Default: "/uploads", Desc: "URL prefix for serving local files"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "images/", Desc: "S3 key prefix"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "S3-compatible endpoint (blank for AWS)"},
	{Name: "storage_s3_public_url", Default: "", Desc: "Public URL objects are served from (CDN or bucket)"},
	{Name: "storage_s3_access_key", Default: "", Desc: "S3 access key (blank uses the default credential chain)"},
	{Name: "storage_s3_secret_key", Default: "", Desc: "S3 secret key"},

	// Payments
	{Name: "payment_provider", Default: "none", Desc: "Payment provider: 'stripe' or 'none'"},
	{Name: "payment_secret_key", Default: "", Desc: "Payment provider secret API key"},
	{Name: "payment_webhook_secret", Default: "", Desc: "Payment webhook signing secret"},
	{Name: "currency", Default: "usd", Desc: "ISO currency code for checkout sessions"},

	// Pricing
	{Name: "shipping_flat_fee", Default: "10.00", Desc: "Shipping charged below the free-shipping threshold"},
	{Name: "free_shipping_threshold", Default: "100.00", Desc: "Subtotal above which shipping is free"},
	{Name: "tax_rate", Default: "0.08", Desc: "Tax rate applied to the subtotal, in [0,1)"},

	// Navigation cache
	{Name: "redis_addr", Default: "", Desc: "Redis address for the navigation cache (blank means in-memory)"},
	{Name: "nav_cache_ttl", Default: "5m", Desc: "How long navigation data is reused"},

	// Rate limiting
	{Name: "rate_limit_rps", Default: "1", Desc: "Sustained requests per second per IP on auth and contact endpoints"},
	{Name: "rate_limit_burst", Default: 10, Desc: "Burst allowance per IP on auth and contact endpoints"},

	// Reconciler
	{Name: "reconcile_schedule", Default: workers.DefaultSchedule, Desc: "Cron spec for the reconciler"},
	{Name: "pending_order_ttl", Default: "24h", Desc: "Pending orders older than this are cancelled (0 disables)"},

	// Database call deadlines
	{Name: "timeout_short", Default: "", Desc: "Deadline for single-document calls (e.g., 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "Deadline for list queries and checkout (e.g., 10s)"},
	{Name: "timeout_long", Default: "", Desc: "Deadline for aggregations and reconciliation (e.g., 60s)"},

	// Audit trail
	{Name: "audit_log_auth", Default: "all", Desc: "Auth events destination: all, db, log, off"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin events destination: all, db, log, off"},
	{Name: "audit_log_order", Default: "all", Desc: "Order events destination: all, db, log, off"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of a user to promote (or create) as admin on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STOREFRONT_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STOREFRONT", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		JWTSecret: appValues.String("jwt_secret"),
		JWTTTL:    appValues.Duration("jwt_ttl", 24*time.Hour),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		BaseURL:  strings.TrimRight(appValues.String("base_url"), "/"),
		SiteName: appValues.String("site_name"),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),
		ContactEmail: appValues.String("contact_email"),

		// Image storage
		StorageType:        strings.ToLower(appValues.String("storage_type")),
		StorageLocalPath:   appValues.String("storage_local_path"),
		StorageLocalURL:    appValues.String("storage_local_url"),
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageS3Endpoint:  appValues.String("storage_s3_endpoint"),
		StorageS3PublicURL: appValues.String("storage_s3_public_url"),
		StorageS3AccessKey: appValues.String("storage_s3_access_key"),
		StorageS3SecretKey: appValues.String("storage_s3_secret_key"),

		// Payments
		PaymentProvider:      strings.ToLower(appValues.String("payment_provider")),
		PaymentSecretKey:     appValues.String("payment_secret_key"),
		PaymentWebhookSecret: appValues.String("payment_webhook_secret"),
		Currency:             strings.ToLower(appValues.String("currency")),

		// Navigation cache
		RedisAddr:   appValues.String("redis_addr"),
		NavCacheTTL: appValues.Duration("nav_cache_ttl", navcache.DefaultTTL),

		RateLimitBurst: appValues.Int("rate_limit_burst"),

		ReconcileSchedule: appValues.String("reconcile_schedule"),
		PendingOrderTTL:   appValues.Duration("pending_order_ttl", 24*time.Hour),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),

		AuditAuth:  strings.ToLower(appValues.String("audit_log_auth")),
		AuditAdmin: strings.ToLower(appValues.String("audit_log_admin")),
		AuditOrder: strings.ToLower(appValues.String("audit_log_order")),

		AdminEmail: appValues.String("admin_email"),
	}

	// Money and rates are parsed as decimals so "0.08" stays exact.
	money := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"shipping_flat_fee", &appCfg.ShippingFlatFee},
		{"free_shipping_threshold", &appCfg.FreeShippingThreshold},
		{"tax_rate", &appCfg.TaxRate},
	}
	for _, m := range money {
		d, err := decimal.NewFromString(strings.TrimSpace(appValues.String(m.key)))
		if err != nil {
			return nil, AppConfig{}, fmt.Errorf("%s: %w", m.key, err)
		}
		*m.dst = d
	}

	rps, err := strconv.ParseFloat(strings.TrimSpace(appValues.String("rate_limit_rps")), 64)
	if err != nil {
		return nil, AppConfig{}, fmt.Errorf("rate_limit_rps: %w", err)
	}
	appCfg.RateLimitRPS = rps

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Everything that would otherwise fail on first use (a bad Mongo URI, an
// S3 backend without a bucket, a payment provider without a key) is
// rejected here.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(appCfg)
}

func validateApp(appCfg AppConfig) error {
	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_type=local requires storage_local_path")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_type=s3 requires storage_s3_bucket")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 's3', got %q", appCfg.StorageType)
	}

	switch appCfg.PaymentProvider {
	case "none", "":
	case "stripe":
		if appCfg.PaymentSecretKey == "" {
			return fmt.Errorf("payment_provider=stripe requires payment_secret_key")
		}
	default:
		return fmt.Errorf("payment_provider must be 'stripe' or 'none', got %q", appCfg.PaymentProvider)
	}

	if appCfg.TaxRate.IsNegative() || appCfg.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax_rate must be in [0,1), got %s", appCfg.TaxRate)
	}
	if appCfg.ShippingFlatFee.IsNegative() || appCfg.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("shipping_flat_fee and free_shipping_threshold must not be negative")
	}
	if appCfg.RateLimitRPS <= 0 || appCfg.RateLimitBurst <= 0 {
		return fmt.Errorf("rate_limit_rps and rate_limit_burst must be positive")
	}

	audits := []struct{ key, val string }{
		{"audit_log_auth", appCfg.AuditAuth},
		{"audit_log_admin", appCfg.AuditAdmin},
		{"audit_log_order", appCfg.AuditOrder},
	}
	for _, a := range audits {
		switch a.val {
		case "", auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", a.key, a.val)
		}
	}
	return nil
}
