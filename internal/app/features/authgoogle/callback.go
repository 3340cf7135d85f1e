package authgoogle

import (
	"context"
	"net/http"

	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ServeCallback handles GET /auth/google/callback. The state is single-use:
// a replayed callback is rejected even when the code is still valid.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if e := query.Get(r, "error"); e != "" {
		h.Log.Debug("google returned an error", zap.String("error", e),
			zap.String("description", query.Get(r, "error_description")))
		h.fail(w, r, failDenied, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	st, ok, err := h.StateStore.Consume(ctx, query.Get(r, "state"))
	switch {
	case err != nil:
		h.fail(w, r, failInternal, err)
		return
	case !ok:
		h.fail(w, r, failState, nil)
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		h.fail(w, r, failCode, nil)
		return
	}

	cfg := h.config()
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(st.Verifier))
	if err != nil {
		h.fail(w, r, failExchange, err)
		return
	}
	id, err := h.identify(ctx, cfg.Client(ctx, tok))
	if err != nil {
		h.fail(w, r, failUserInfo, err)
		return
	}
	if id.Email == "" || !id.EmailVerified {
		h.fail(w, r, failUnverified, nil)
		return
	}

	user, created, err := h.resolve(ctx, id)
	if err != nil {
		h.fail(w, r, failInternal, err)
		return
	}
	if err := h.SessionMgr.Login(w, r, &auth.SessionUser{
		ID:    user.ID.Hex(),
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}); err != nil {
		h.fail(w, r, failSession, err)
		return
	}

	if created {
		h.Audit.Registered(ctx, r, user.ID, "google")
	}
	h.Audit.LoginSuccess(ctx, r, user.ID, "google", user.Email)
	h.Log.Info("google sign-in", zap.String("user_id", user.ID.Hex()), zap.Bool("new_account", created))

	http.Redirect(w, r, urlutil.SafeReturn(st.ReturnURL, "", "/"), http.StatusSeeOther)
}

