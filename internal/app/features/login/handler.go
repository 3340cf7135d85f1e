// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"time"

	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/app/system/authutil"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/validate"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// errBadCredentials is deliberately the same for an unknown email and a wrong
// password.
var errBadCredentials = errors.New("invalid email or password")

type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	ErrLog     *apierr.ErrorLogger
	Audit      *auditlog.Logger
	SessionMgr *auth.SessionManager
	Tokens     *auth.TokenIssuer // nil when bearer tokens are disabled
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, tokens *auth.TokenIssuer, errLog *apierr.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		ErrLog:     errLog,
		Audit:      audit,
		SessionMgr: sessionMgr,
		Tokens:     tokens,
	}
}

// UserView is the signed-in identity returned by the auth endpoints.
type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResponse struct {
	User     UserView `json:"user"`
	Redirect string   `json:"redirect,omitempty"`
}

func viewOf(u *models.User) UserView {
	return UserView{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Role: u.Role}
}

func sessionUser(u *models.User) *auth.SessionUser {
	return &auth.SessionUser{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Role: u.Role}
}

type registerInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required"`
	Return   string `json:"return"`
}

// HandleRegister handles POST /api/auth/register and signs the new user in.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return
	}
	email, err := authutil.NormalizeEmail(in.Email)
	if err != nil {
		apierr.Invalid(w, map[string]string{"email": err.Error()})
		return
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		apierr.Invalid(w, map[string]string{"password": err.Error()})
		return
	}
	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).Create(ctx, models.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		apierr.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create user failed", err, "")
		return
	}

	if err := h.SessionMgr.Login(w, r, sessionUser(&u)); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err, "")
		return
	}
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))
	h.Audit.Registered(ctx, r, u.ID, "password")
	jsonutil.Created(w, authResponse{User: viewOf(&u), Redirect: urlutil.SafeReturn(in.Return, "", "/")})
}

type credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Return   string `json:"return"`
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var in credentials
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return in, false
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return in, false
	}
	return in, true
}

// authenticate checks an email and password and records failures in the
// audit trail. Accounts without a password (Google sign-in only) never match.
func (h *Handler) authenticate(ctx context.Context, r *http.Request, email, password string) (*models.User, error) {
	u, err := userstore.New(h.DB).GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.Audit.LoginFailedUserNotFound(ctx, r, email)
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() {
		h.Audit.LoginFailedNoPassword(ctx, r, u.ID, u.Email)
		return nil, errBadCredentials
	}
	if !authutil.CheckPassword(password, u.PasswordHash) {
		h.Audit.LoginFailedWrongPassword(ctx, r, u.ID, u.Email)
		return nil, errBadCredentials
	}
	return u, nil
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.authenticate(ctx, r, in.Email, in.Password)
	if errors.Is(err, errBadCredentials) {
		h.Log.Info("login failed", zap.String("ip", ratelimit.ClientIP(r)))
		apierr.Unauthorized(w, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user for login failed", err, "")
		return
	}

	if err := h.SessionMgr.Login(w, r, sessionUser(u)); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err, "")
		return
	}
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()), zap.String("method", "password"))
	h.Audit.LoginSuccess(ctx, r, u.ID, "password", u.Email)

	def := "/"
	if u.IsAdmin() {
		def = "/admin"
	}
	jsonutil.OK(w, authResponse{User: viewOf(u), Redirect: urlutil.SafeReturn(in.Return, "", def)})
}

// HandleLogout handles POST /api/auth/logout. It is safe to call when not
// signed in.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.Audit.Logout(r.Context(), r, u.ID)
	}
	if err := h.SessionMgr.Logout(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeMe handles GET /api/auth/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Unauthorized(w, "sign in required")
		return
	}
	jsonutil.OK(w, UserView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserView  `json:"user"`
}

// HandleToken handles POST /api/auth/token. It exchanges credentials for a
// bearer token and does not touch the session.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if h.Tokens == nil {
		apierr.NotFound(w, "bearer tokens are not enabled")
		return
	}
	in, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.authenticate(ctx, r, in.Email, in.Password)
	if errors.Is(err, errBadCredentials) {
		apierr.Unauthorized(w, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user for token failed", err, "")
		return
	}

	tok, exp, err := h.Tokens.Issue(sessionUser(u))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "issue token failed", err, "")
		return
	}
	h.Log.Info("bearer token issued", zap.String("user_id", u.ID.Hex()), zap.Time("expires_at", exp))
	h.Audit.LoginSuccess(ctx, r, u.ID, "token", u.Email)
	jsonutil.OK(w, tokenResponse{Token: tok, TokenType: "Bearer", ExpiresAt: exp, User: viewOf(u)})
}
