package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/dalemusser/storefront/internal/app/store/oauthstate"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"golang.org/x/oauth2"
)

// ServeLogin handles GET /auth/google?return=/path. It records the state and
// PKCE verifier, then redirects to Google's consent screen.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.fail(w, r, failNotConfigured, nil)
		return
	}

	state, err := newState()
	if err != nil {
		h.fail(w, r, failInternal, err)
		return
	}
	verifier := oauth2.GenerateVerifier()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	if err := h.StateStore.Save(ctx, oauthstate.State{
		State:     state,
		Verifier:  verifier,
		ReturnURL: query.Get(r, "return"),
		ExpiresAt: time.Now().Add(stateTTL),
	}); err != nil {
		h.fail(w, r, failInternal, err)
		return
	}

	http.Redirect(w, r, h.config().AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), http.StatusTemporaryRedirect)
}

// newState returns 32 random bytes, URL-safe encoded.
func newState() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
