// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a storefront customer or an administrator.
//
// NOTE:
//   - PasswordHash is empty for accounts created through Google sign-in.
//   - Users are never hard-deleted.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	EmailCI      string             `bson:"email_ci" json:"-"` // lowercase, diacritics-stripped
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	Role         string             `bson:"role" json:"role"` // user | admin
	GoogleID     string             `bson:"google_id,omitempty" json:"-"`

	// Password reset: only the sha256 of the emailed token is stored.
	ResetTokenHash    string     `bson:"reset_token_hash,omitempty" json:"-"`
	ResetTokenExpires *time.Time `bson:"reset_token_expires,omitempty" json:"-"`

	Wishlist []primitive.ObjectID `bson:"wishlist,omitempty" json:"wishlist,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// HasPassword reports whether the account can sign in with credentials.
func (u User) HasPassword() bool { return u.PasswordHash != "" }
