// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/shopspring/decimal"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// AppConfig is where everything specific to the storefront lives: the
// database, auth secrets, the payment provider, pricing rules and the
// background workers.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: storefront-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// API bearer tokens (blank secret disables /api/auth/token)
	JWTSecret string
	JWTTTL    time.Duration

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Public origin used for OAuth callbacks, payment redirects and email links
	BaseURL  string // e.g., "https://shop.example" or "http://localhost:3000"
	SiteName string

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string // From email address (e.g., orders@shop.example)
	MailFromName string
	ContactEmail string // Where contact form messages are delivered

	// Image storage
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/uploads")

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageS3Endpoint  string // S3-compatible endpoint (MinIO, R2); blank for AWS
	StorageS3PublicURL string // CDN or bucket URL objects are served from
	StorageS3AccessKey string // blank uses the default AWS credential chain
	StorageS3SecretKey string

	// Payments
	PaymentProvider      string // "stripe" or "none"
	PaymentSecretKey     string
	PaymentWebhookSecret string
	Currency             string

	// Pricing
	ShippingFlatFee       decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal

	// Navigation cache
	RedisAddr   string // blank means in-memory
	NavCacheTTL time.Duration

	// Rate limiting for login, register, forgot-password and contact
	RateLimitRPS   float64
	RateLimitBurst int

	// Reconciler
	ReconcileSchedule string // cron spec
	PendingOrderTTL   time.Duration

	// Database call deadlines (zero keeps the built-in defaults)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Audit trail destinations: "all", "db", "log" or "off"
	AuditAuth  string
	AuditAdmin string
	AuditOrder string

	// Admin bootstrap
	AdminEmail string // promoted (or created) as admin on startup
}
