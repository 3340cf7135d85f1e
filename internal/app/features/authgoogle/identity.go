package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// identity is the subset of Google's userinfo response we use.
type identity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// identify calls the userinfo endpoint with an authorized client.
func (h *Handler) identify(ctx context.Context, client *http.Client) (identity, error) {
	var id identity
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.UserInfoURL, nil)
	if err != nil {
		return id, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return id, fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return id, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return id, fmt.Errorf("userinfo: decode: %w", err)
	}
	return id, nil
}

// resolve maps a Google identity to a storefront account. Lookup order is the
// linked Google id, then the email (which links it), then a new customer.
func (h *Handler) resolve(ctx context.Context, id identity) (*models.User, bool, error) {
	if u, err := h.Users.GetByGoogleID(ctx, id.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		return u, false, err
	}

	u, err := h.Users.GetByEmail(ctx, id.Email)
	if err == nil {
		if err := h.Users.LinkGoogle(ctx, u.ID, id.ID); err != nil {
			return nil, false, fmt.Errorf("link google account: %w", err)
		}
		u.GoogleID = id.ID
		return u, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	name := id.Name
	if name == "" {
		name = id.Email
	}
	nu, err := h.Users.Create(ctx, models.User{
		Name:     name,
		Email:    id.Email,
		GoogleID: id.ID,
		Role:     models.RoleUser,
	})
	if err != nil {
		return nil, false, err
	}
	return &nu, true, nil
}
