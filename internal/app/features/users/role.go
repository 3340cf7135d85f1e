package users

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/ids"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/validate"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type roleInput struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// HandleRole handles PATCH /api/admin/users/{id}/role.
func (h *Handler) HandleRole(w http.ResponseWriter, r *http.Request) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.NotFound(w, "user not found")
		return
	}

	var in roleInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return
	}

	// An admin cannot change their own role; another admin has to.
	_, _, actor, _ := authz.UserCtx(r)
	if actor == id {
		apierr.BadRequest(w, "you can't change your own role")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users := userstore.New(h.DB)
	u, err := users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "user not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user failed", err, "")
		return
	}
	from := u.Role
	if from != in.Role {
		if err := users.SetRole(ctx, id, in.Role); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				apierr.NotFound(w, "user not found")
				return
			}
			h.ErrLog.LogServerError(w, r, "set role failed", err, "")
			return
		}
		u.Role = in.Role
		h.Audit.UserRoleChanged(ctx, r, actor.Hex(), id, from, in.Role)
	}

	h.Log.Info("user role changed",
		zap.String("user_id", id.Hex()),
		zap.String("role", in.Role),
		zap.String("by", actor.Hex()))
	jsonutil.OK(w, toRow(*u))
}
