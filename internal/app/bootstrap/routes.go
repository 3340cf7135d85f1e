// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"

	accountfeature "github.com/dalemusser/storefront/internal/app/features/account"
	auditlogfeature "github.com/dalemusser/storefront/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/storefront/internal/app/features/authgoogle"
	cartfeature "github.com/dalemusser/storefront/internal/app/features/cart"
	categoriesfeature "github.com/dalemusser/storefront/internal/app/features/categories"
	collectionsfeature "github.com/dalemusser/storefront/internal/app/features/collections"
	contactfeature "github.com/dalemusser/storefront/internal/app/features/contact"
	dashboardfeature "github.com/dalemusser/storefront/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/storefront/internal/app/features/errors"
	healthfeature "github.com/dalemusser/storefront/internal/app/features/health"
	loginfeature "github.com/dalemusser/storefront/internal/app/features/login"
	navigationfeature "github.com/dalemusser/storefront/internal/app/features/navigation"
	ordersfeature "github.com/dalemusser/storefront/internal/app/features/orders"
	passwordresetfeature "github.com/dalemusser/storefront/internal/app/features/passwordreset"
	productsfeature "github.com/dalemusser/storefront/internal/app/features/products"
	reviewsfeature "github.com/dalemusser/storefront/internal/app/features/reviews"
	searchfeature "github.com/dalemusser/storefront/internal/app/features/search"
	uploadsfeature "github.com/dalemusser/storefront/internal/app/features/uploads"
	usersfeature "github.com/dalemusser/storefront/internal/app/features/users"
	"github.com/dalemusser/storefront/internal/app/store/audit"
	"github.com/dalemusser/storefront/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/app/system/gates"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/app/system/metrics"
	"github.com/dalemusser/storefront/internal/app/system/navcache"
	"github.com/dalemusser/storefront/internal/app/system/payments"
	"github.com/dalemusser/storefront/internal/app/system/pricing"
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The storefront applies request ids,
// request metrics and session loading globally, then mounts the public
// catalog API, the signed-in customer API, the admin API and the gated page
// paths.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	rt := deps.runtime
	if rt == nil {
		rt = &runtimeDeps{}
	}
	if rt.NavCache == nil {
		rt.NavCache = navcache.New(navcache.NewMemory(), logger, navcache.WithTTL(appCfg.NavCacheTTL))
	}

	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadSessionUser fetches fresh user data on each request.
	// This makes role changes take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	var tokens *auth.TokenIssuer
	if appCfg.JWTSecret != "" {
		tokens = auth.NewTokenIssuer(appCfg.JWTSecret, appCfg.JWTTTL)
		sessionMgr.SetTokenIssuer(tokens)
	}

	errLog := apierr.NewErrorLogger(logger)
	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditAuth,
		Admin: appCfg.AuditAdmin,
		Order: appCfg.AuditOrder,
	})
	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
	gateway := newGateway(appCfg, logger)
	priceCfg := pricing.Config{
		FlatShipping:     appCfg.ShippingFlatFee,
		FreeShippingOver: appCfg.FreeShippingThreshold,
		TaxRate:          appCfg.TaxRate,
	}

	// Separate buckets so contact form traffic cannot lock anyone out of sign-in.
	authLimiter := ratelimit.New(appCfg.RateLimitRPS, appCfg.RateLimitBurst)
	contactLimiter := ratelimit.New(appCfg.RateLimitRPS, appCfg.RateLimitBurst)
	rt.Limiters = append(rt.Limiters, authLimiter, contactLimiter)

	errorsHandler := errorsfeature.NewHandler(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metrics.Middleware())

	// Global auth middleware: loads the session or bearer user into context.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Readiness and liveness for load balancers. The nav cache only counts
	// when it is shared (redis); the memory backend cannot fail.
	checks := []healthfeature.Check{healthfeature.MongoCheck(deps.MongoClient)}
	if rt.NavCache.Backend() != "memory" {
		checks = append(checks, healthfeature.Check{Name: "cache:" + rt.NavCache.Backend(), Probe: rt.NavCache.Ping})
	}
	healthHandler := healthfeature.NewHandler(gateway.Name(), logger, checks...)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Get("/metrics", metrics.Handler())

	// Uploaded images on local disk
	if appCfg.StorageType != "s3" && strings.HasPrefix(appCfg.StorageLocalURL, "/") {
		prefix := strings.TrimRight(appCfg.StorageLocalURL, "/")
		r.Handle(prefix+"/*", fileserver.Handler(prefix, appCfg.StorageLocalPath))
	}

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, tokens, errLog, auditLogger, logger)
	authRouter := loginfeature.Routes(loginHandler, authLimiter)
	resetHandler := passwordresetfeature.NewHandler(db, mail, appCfg.BaseURL, appCfg.SiteName, errLog, auditLogger, logger)
	passwordresetfeature.Register(authRouter, resetHandler, authLimiter)
	r.Mount("/api/auth", authRouter)

	googleHandler := authgooglefeature.NewHandler(db, sessionMgr, oauthstate.New(db),
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, auditLogger, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler, authLimiter))

	// Public catalog
	productsHandler := productsfeature.NewHandler(db, errLog, auditLogger, logger)
	r.Mount("/api/products", productsfeature.Routes(productsHandler))

	reviewsHandler := reviewsfeature.NewHandler(db, errLog, logger)
	r.Mount("/api/products/{productID}/reviews", reviewsfeature.ProductRoutes(reviewsHandler, sessionMgr))
	r.Mount("/api/reviews", reviewsfeature.Routes(reviewsHandler, sessionMgr))

	categoriesHandler := categoriesfeature.NewHandler(db, errLog, auditLogger, logger)
	r.Mount("/api/categories", categoriesfeature.Routes(categoriesHandler))

	collectionsHandler := collectionsfeature.NewHandler(db, errLog, auditLogger, logger)
	r.Mount("/api/collections", collectionsfeature.Routes(collectionsHandler))

	navHandler := navigationfeature.NewHandler(db, rt.NavCache, errLog, logger)
	r.Mount("/api/navigation", navigationfeature.Routes(navHandler))

	searchHandler := searchfeature.NewHandler(db, errLog, logger)
	r.Mount("/api/search", searchfeature.Routes(searchHandler))

	cartHandler := cartfeature.NewHandler(db, priceCfg, errLog, logger)
	r.Mount("/api/cart", cartfeature.Routes(cartHandler))

	contactHandler := contactfeature.NewHandler(mail, appCfg.ContactEmail, appCfg.SiteName, errLog, logger)
	r.Mount("/api/contact", contactfeature.Routes(contactHandler, contactLimiter))

	// Checkout and orders
	ordersHandler := ordersfeature.NewHandler(db, gateway, priceCfg, mail, ordersfeature.Settings{
		BaseURL:  appCfg.BaseURL,
		Currency: appCfg.Currency,
		SiteName: appCfg.SiteName,
	}, errLog, auditLogger, logger)
	r.Mount("/api/orders", ordersfeature.Routes(ordersHandler, sessionMgr))
	r.Mount("/api/webhooks", ordersfeature.WebhookRoutes(ordersHandler))

	// Signed-in customer
	accountHandler := accountfeature.NewHandler(db, errLog, auditLogger, logger)
	r.Mount("/api/account", accountfeature.Routes(accountHandler, sessionMgr))
	r.Mount("/api/account/orders", ordersfeature.AccountRoutes(ordersHandler, sessionMgr))

	// Admin back-office
	dashboardHandler := dashboardfeature.NewHandler(db, errLog, logger)
	r.Mount("/api/admin/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))
	r.Mount("/api/admin/products", productsfeature.AdminRoutes(productsHandler, sessionMgr))
	r.Mount("/api/admin/categories", categoriesfeature.AdminRoutes(categoriesHandler, sessionMgr))
	r.Mount("/api/admin/collections", collectionsfeature.AdminRoutes(collectionsHandler, sessionMgr))
	r.Mount("/api/admin/orders", ordersfeature.AdminRoutes(ordersHandler, sessionMgr))
	r.Mount("/api/admin/navigation", navigationfeature.AdminRoutes(navHandler, sessionMgr))

	usersHandler := usersfeature.NewHandler(db, errLog, auditLogger, logger)
	r.Mount("/api/admin/users", usersfeature.Routes(usersHandler, sessionMgr))

	auditHandler := auditlogfeature.NewHandler(db, errLog, logger)
	r.Mount("/api/admin/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	if rt.Storage != nil {
		uploadsHandler := uploadsfeature.NewHandler(rt.Storage, errLog, logger)
		r.Mount("/api/admin/uploads", uploadsfeature.Routes(uploadsHandler, sessionMgr))
	}

	// Page paths have no handlers here; a page server behind this service
	// inherits the redirects.
	rules := gates.DefaultRules()
	pages := r.With(gates.Pages(sessionMgr, rules))
	for _, rule := range rules {
		pages.HandleFunc(rule.Prefix, errorsHandler.NotFound)
		pages.HandleFunc(rule.Prefix+"/*", errorsHandler.NotFound)
	}

	return r, nil
}

// newGateway returns the configured payment provider.
func newGateway(appCfg AppConfig, logger *zap.Logger) payments.Gateway {
	if appCfg.PaymentProvider == "stripe" {
		logger.Info("payments enabled", zap.String("provider", "stripe"))
		return payments.NewStripe(appCfg.PaymentSecretKey, appCfg.PaymentWebhookSecret, logger)
	}
	logger.Warn("no payment provider configured; orders stay pending until marked paid")
	return payments.Disabled{}
}
