package users

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/ids"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
)

// userRow is a user as shown to admins. Credentials never leave the server.
type userRow struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	HasPassword   bool      `json:"has_password"`
	GoogleLinked  bool      `json:"google_linked"`
	WishlistCount int       `json:"wishlist_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func toRow(u models.User) userRow {
	return userRow{
		ID:            u.ID.Hex(),
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		HasPassword:   u.HasPassword(),
		GoogleLinked:  u.GoogleID != "",
		WishlistCount: len(u.Wishlist),
		CreatedAt:     u.CreatedAt,
	}
}

// ServeList handles GET /api/admin/users.
//
// Filters: role (user|admin) and q, matched against name and email.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	role := strings.ToLower(strings.TrimSpace(query.Get(r, "role")))
	if role != "" && !userstore.ValidRole(role) {
		apierr.Invalid(w, map[string]string{"role": `must be "user" or "admin"`})
		return
	}
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, total, err := userstore.New(h.DB).List(ctx, userstore.ListFilter{
		Role:  role,
		Query: query.Get(r, "q"),
	}, page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list users failed", err, "")
		return
	}

	rows := make([]userRow, 0, len(list))
	for _, u := range list {
		rows = append(rows, toRow(u))
	}
	jsonutil.OK(w, paging.NewResult(rows, total, page))
}

// ServeUser handles GET /api/admin/users/{id}.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.NotFound(w, "user not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "user not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user failed", err, "")
		return
	}
	jsonutil.OK(w, toRow(*u))
}
