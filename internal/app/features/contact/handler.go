// internal/app/features/contact/handler.go
package contact

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/htmlsanitize"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/validate"
	"go.uber.org/zap"
)

type Handler struct {
	Log      *zap.Logger
	ErrLog   *apierr.ErrorLogger
	Mailer   mailer.Sender
	To       string // contact_email
	SiteName string
}

func NewHandler(m mailer.Sender, to, siteName string, errLog *apierr.ErrorLogger, logger *zap.Logger) *Handler {
	if siteName == "" {
		siteName = "Storefront"
	}
	return &Handler{
		Log:      logger,
		ErrLog:   errLog,
		Mailer:   m,
		To:       strings.TrimSpace(to),
		SiteName: siteName,
	}
}

type contactInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// HandleContact handles POST /api/contact.
func (h *Handler) HandleContact(w http.ResponseWriter, r *http.Request) {
	var in contactInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = htmlsanitize.PlainText(strings.TrimSpace(in.Subject))
	in.Message = htmlsanitize.PlainText(strings.TrimSpace(in.Message))
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return
	}

	if h.To == "" {
		h.Log.Warn("contact message dropped: no contact address configured")
		apierr.Write(w, http.StatusServiceUnavailable, "contact form is not available")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	msg := mailer.BuildContactEmail(h.To, mailer.ContactEmailData{
		SiteName: h.SiteName,
		Name:     in.Name,
		Email:    in.Email,
		Subject:  in.Subject,
		Message:  in.Message,
	})
	if err := h.Mailer.Send(ctx, msg); err != nil {
		h.ErrLog.LogServerError(w, r, "send contact email failed", err, "Your message could not be sent. Please try again later.")
		return
	}

	h.Log.Info("contact message sent", zap.String("from", in.Email))
	jsonutil.OK(w, map[string]string{"message": "Thanks, we will be in touch."})
}
