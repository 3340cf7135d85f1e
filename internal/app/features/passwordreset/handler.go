// internal/app/features/passwordreset/handler.go
package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/authutil"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/validate"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *apierr.ErrorLogger
	Audit    *auditlog.Logger
	Mailer   mailer.Sender
	BaseURL  string // reset links point at BaseURL + "/reset-password?token="
	SiteName string

	now func() time.Time
}

func NewHandler(db *mongo.Database, m mailer.Sender, baseURL, siteName string, errLog *apierr.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if siteName == "" {
		siteName = "Storefront"
	}
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		Audit:    audit,
		Mailer:   m,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		SiteName: siteName,
		now:      time.Now,
	}
}

// forgotResponse is identical whether or not the account exists.
var forgotResponse = map[string]string{
	"message": "If an account exists for that email, a reset link is on its way.",
}

type forgotInput struct {
	Email string `json:"email" validate:"required,max=254"`
}

// HandleForgot handles POST /api/auth/forgot-password. It always answers 200
// with the same body so it cannot be used to discover accounts.
func (h *Handler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var in forgotInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.sendReset(ctx, r, in.Email); err != nil {
		// Logged only; the caller still gets the generic answer.
		h.Log.Error("password reset request failed", zap.Error(err))
	}
	jsonutil.OK(w, forgotResponse)
}

func (h *Handler) sendReset(ctx context.Context, r *http.Request, email string) error {
	users := userstore.New(h.DB)
	u, err := users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.Log.Info("password reset for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	token, hash := authutil.NewResetToken()
	if err := users.SetResetToken(ctx, u.ID, hash, h.now().Add(authutil.ResetTokenTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	h.Audit.PasswordResetRequested(ctx, r, u.ID)

	link := h.BaseURL + "/reset-password?token=" + url.QueryEscape(token)
	msg := mailer.BuildResetEmail(u.Email, mailer.ResetEmailData{
		SiteName:  h.SiteName,
		Name:      u.Name,
		ResetLink: link,
		ExpiresIn: formatExpiryDuration(authutil.ResetTokenTTL),
	})
	if err := h.Mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	h.Log.Info("password reset email sent", zap.String("user_id", u.ID.Hex()))
	return nil
}

type resetInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleReset handles POST /api/auth/reset-password. A token works once and
// only until it expires.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var in resetInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
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

	u, err := userstore.New(h.DB).ConsumeResetToken(ctx, authutil.HashToken(in.Token), hash, h.now())
	if errors.Is(err, userstore.ErrInvalidResetToken) {
		apierr.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reset password failed", err, "")
		return
	}

	h.Audit.PasswordReset(ctx, r, u.ID)
	h.Log.Info("password reset completed", zap.String("user_id", u.ID.Hex()))
	jsonutil.OK(w, map[string]string{"message": "Your password has been reset. You can sign in now."})
}

// formatExpiryDuration formats a time.Duration as a human-readable string
// e.g., "10 minutes", "1 hour", "30 minutes"
func formatExpiryDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
