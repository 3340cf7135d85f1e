// Package authgoogle signs shoppers in with their Google account using the
// authorization-code flow with PKCE. A verified Google email is matched to an
// existing account (and linked) or becomes a new customer.
package authgoogle

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dalemusser/storefront/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultUserInfoURL is Google's userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// stateTTL bounds how long a sign-in attempt may take.
const stateTTL = 10 * time.Minute

const callbackPath = "/auth/google/callback"

var scopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	StateStore *oauthstate.Store
	Audit      *auditlog.Logger
	Log        *zap.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint and UserInfoURL point at Google; tests swap in a fake.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	stateStore *oauthstate.Store,
	clientID, clientSecret, baseURL string,
	audit *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:        userstore.New(db),
		SessionMgr:   sessionMgr,
		StateStore:   stateStore,
		Audit:        audit,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + callbackPath,
		Endpoint:     google.Endpoint,
		UserInfoURL:  DefaultUserInfoURL,
	}
}

// IsConfigured reports whether both client credentials are set.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

func (h *Handler) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes:       scopes,
		Endpoint:     h.Endpoint,
	}
}

// failure is the reason code the sign-in page receives as ?error=.
type failure string

const (
	failNotConfigured failure = "google_not_configured"
	failDenied        failure = "google_denied"
	failState         failure = "invalid_state"
	failCode          failure = "invalid_code"
	failExchange      failure = "token_exchange"
	failUserInfo      failure = "user_info"
	failUnverified    failure = "email_unverified"
	failSession       failure = "session"
	failInternal      failure = "internal"
)

// fail logs err (at warn for client-caused reasons, error otherwise) and sends
// the browser back to the sign-in page.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, why failure, err error) {
	fields := []zap.Field{zap.String("reason", string(why))}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	switch why {
	case failDenied, failState, failCode, failUnverified, failNotConfigured:
		h.Log.Warn("google sign-in rejected", fields...)
	default:
		h.Log.Error("google sign-in failed", fields...)
	}
	http.Redirect(w, r, "/login?error="+url.QueryEscape(string(why)), http.StatusSeeOther)
}
