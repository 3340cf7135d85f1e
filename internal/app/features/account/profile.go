// internal/app/features/account/profile.go
package account

import (
	"context"
	"errors"
	"net/http"
	"time"

	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/authutil"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/validate"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Profile is the account view returned to its owner.
type Profile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	HasPassword   bool      `json:"has_password"`
	GoogleLinked  bool      `json:"google_linked"`
	PasswordRules string    `json:"password_rules"`
	CreatedAt     time.Time `json:"created_at"`
}

func toProfile(u *models.User) Profile {
	return Profile{
		ID:            u.ID.Hex(),
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		HasPassword:   u.HasPassword(),
		GoogleLinked:  u.GoogleID != "",
		PasswordRules: authutil.PasswordRules(),
		CreatedAt:     u.CreatedAt,
	}
}

// loadUser fetches the signed-in user, writing the error response itself.
func (h *Handler) loadUser(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	uid, ok := authz.UserID(r)
	if !ok {
		apierr.Unauthorized(w, "sign in required")
		return nil, false
	}
	user, err := userstore.New(h.DB).GetByID(ctx, uid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Unauthorized(w, "account no longer exists")
		return nil, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load account failed", err, "")
		return nil, false
	}
	return user, true
}

// ServeProfile handles GET /api/account.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, ok := h.loadUser(ctx, w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, toProfile(user))
}

type profileInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// HandleUpdateProfile handles PUT /api/account.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in profileInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, ok := h.loadUser(ctx, w, r)
	if !ok {
		return
	}
	usrStore := userstore.New(h.DB)
	if err := usrStore.UpdateName(ctx, user.ID, in.Name); err != nil {
		h.ErrLog.LogServerError(w, r, "update name failed", err, "")
		return
	}
	user, err := usrStore.GetByID(ctx, user.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload account failed", err, "")
		return
	}
	jsonutil.OK(w, toProfile(user))
}

type passwordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// HandleChangePassword handles PUT /api/account/password. Accounts created
// through Google sign-in have no password yet and may set one without
// supplying a current password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in passwordInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, ok := h.loadUser(ctx, w, r)
	if !ok {
		return
	}

	first := !user.HasPassword()
	if !first {
		if !authutil.CheckPassword(in.CurrentPassword, user.PasswordHash) {
			apierr.BadRequest(w, "current password is incorrect")
			return
		}
		if authutil.CheckPassword(in.NewPassword, user.PasswordHash) {
			apierr.BadRequest(w, "new password must differ from the current one")
			return
		}
	}
	if err := authutil.ValidatePassword(in.NewPassword); err != nil {
		apierr.Invalid(w, map[string]string{"new_password": err.Error()})
		return
	}

	hash, err := authutil.HashPassword(in.NewPassword)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "")
		return
	}
	if err := userstore.New(h.DB).SetPassword(ctx, user.ID, hash); err != nil {
		h.ErrLog.LogServerError(w, r, "update password failed", err, "")
		return
	}

	h.Audit.PasswordChanged(ctx, r, user.ID, first)
	h.Log.Info("password changed", zap.String("user_id", user.ID.Hex()))
	w.WriteHeader(http.StatusNoContent)
}
