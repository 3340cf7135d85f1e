// internal/app/system/authutil/authutil.go
package authutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128

	// ResetTokenTTL is how long a password reset link stays valid.
	ResetTokenTTL = time.Hour
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	ErrPasswordCommon   = errors.New("password is too common")
	ErrInvalidEmail     = errors.New("a valid email address is required")
)

var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"12345678":   {},
	"123456789":  {},
	"qwertyuiop": {},
	"iloveyou1":  {},
	"sunshine1":  {},
	"football1":  {},
	"welcome1":   {},
	"letmein12":  {},
	"abcd1234":   {},
	"shopping":   {},
}

// ValidatePassword applies the length and common-password rules.
func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(pw) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	if _, bad := commonPasswords[strings.ToLower(pw)]; bad {
		return ErrPasswordCommon
	}
	return nil
}

// PasswordRules is the human-readable summary shown next to password fields.
func PasswordRules() string {
	return fmt.Sprintf("Use %d to %d characters. Avoid common passwords.", MinPasswordLength, MaxPasswordLength)
}

// HashPassword returns a bcrypt hash of the plain-text password.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares a plain-text candidate against a bcrypt hash.
func CheckPassword(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NormalizeEmail trims and validates an address. Lowercasing and the folded
// lookup copy are left to the user store.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if !isValidEmail(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func isValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || strings.Count(email, "@") != 1 {
		return false
	}
	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	if dot < 1 || dot == len(domain)-1 || strings.HasPrefix(domain, ".") {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}

// NewResetToken returns a random token for the reset link and the hash to
// store. Only the hash is persisted.
func NewResetToken() (token, hash string) {
	token = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	return token, HashToken(token)
}

// HashToken is the sha256 hex digest of a reset token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
