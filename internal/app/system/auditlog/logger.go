// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/storefront/internal/app/store/audit"
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of events.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off" // disabled
)

// Config holds audit logging configuration. Each field is one of All, DB,
// Log or Off; an empty value means All.
type Config struct {
	// Auth controls sign-in, sign-out, registration and password events.
	Auth string
	// Admin controls catalog edits and role changes made by admins.
	Admin string
	// Order controls checkout, payment and fulfilment transitions.
	Order string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// requestInfo returns the client IP and user agent, tolerating a nil request
// for events raised outside a handler.
func requestInfo(r *http.Request) (ip, ua string) {
	if r == nil {
		return "", ""
	}
	return ratelimit.ClientIP(r), r.UserAgent()
}

// ActorID returns the hex id of the signed-in user behind r, or "" when the
// request is anonymous.
func ActorID(r *http.Request) string {
	if r == nil {
		return ""
	}
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ""
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.SubjectID != nil {
		fields = append(fields, zap.String("subject_id", event.SubjectID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryOrder:
		setting = l.config.Order
	}
	if setting == "" {
		setting = All
	}

	if setting == Off {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}

	if setting == All || setting == DB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) auth(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, success bool, reason string, details map[string]string) {
	ip, ua := requestInfo(r)
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		IP:            ip,
		UserAgent:     ua,
		Success:       success,
		FailureReason: reason,
		Details:       details,
	})
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in. method is "password", "google" or "token".
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, method, email string) {
	l.auth(ctx, r, audit.EventLoginSuccess, &userID, true, "", map[string]string{
		"auth_method": method,
		"email":       email,
	})
}

// LoginFailedUserNotFound logs a sign-in attempt for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.auth(ctx, r, audit.EventLoginFailedUserNotFound, nil, false, "user not found", map[string]string{
		"attempted_email": attemptedEmail,
	})
}

// LoginFailedWrongPassword logs a sign-in attempt with a bad password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventLoginFailedWrongPassword, &userID, false, "wrong password", map[string]string{
		"email": email,
	})
}

// LoginFailedNoPassword logs a password sign-in attempt against a Google-only account.
func (l *Logger) LoginFailedNoPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventLoginFailedNoPassword, &userID, false, "account has no password", map[string]string{
		"email": email,
	})
}

// Logout logs a sign-out. Accepts the string id carried by SessionUser.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	l.auth(ctx, r, audit.EventLogout, objectID(userIDStr), true, "", nil)
}

// Registered logs a new customer account.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) {
	l.auth(ctx, r, audit.EventRegistered, &userID, true, "", map[string]string{
		"auth_method": method,
	})
}

// PasswordChanged logs a password change from the account page. first is
// true when a Google-only account set its first password.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID, first bool) {
	l.auth(ctx, r, audit.EventPasswordChanged, &userID, true, "", map[string]string{
		"first_password": strconv.FormatBool(first),
	})
}

// PasswordResetRequested logs a reset email sent to a known account.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.auth(ctx, r, audit.EventPasswordResetRequested, &userID, true, "", nil)
}

// PasswordReset logs a password set through a reset token.
func (l *Logger) PasswordReset(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.auth(ctx, r, audit.EventPasswordReset, &userID, true, "", nil)
}

// --- Admin Events ---

// UserRoleChanged logs an admin changing another user's role.
func (l *Logger) UserRoleChanged(ctx context.Context, r *http.Request, actorIDStr string, targetUserID primitive.ObjectID, from, to string) {
	ip, ua := requestInfo(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserRoleChanged,
		UserID:    &targetUserID,
		ActorID:   objectID(actorIDStr),
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details: map[string]string{
			"from": from,
			"to":   to,
		},
	})
}

// CatalogChanged logs an admin creating, updating or deleting a product,
// category or collection. eventType is one of the audit.EventProduct*,
// EventCategory* or EventCollection* constants.
func (l *Logger) CatalogChanged(ctx context.Context, r *http.Request, actorIDStr, eventType string, subjectID primitive.ObjectID, title string) {
	ip, ua := requestInfo(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   objectID(actorIDStr),
		SubjectID: &subjectID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details: map[string]string{
			"title": title,
		},
	})
}

// --- Order Events ---

// OrderPlaced logs checkout creating a pending order.
func (l *Logger) OrderPlaced(ctx context.Context, r *http.Request, userID, orderID primitive.ObjectID, total string) {
	ip, ua := requestInfo(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryOrder,
		EventType: audit.EventOrderPlaced,
		UserID:    &userID,
		SubjectID: &orderID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details: map[string]string{
			"total": total,
		},
	})
}

// OrderPaid logs an order moving to paid. source is "verify", "webhook" or "admin".
func (l *Logger) OrderPaid(ctx context.Context, r *http.Request, userID, orderID primitive.ObjectID, source string) {
	ip, ua := requestInfo(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryOrder,
		EventType: audit.EventOrderPaid,
		UserID:    &userID,
		SubjectID: &orderID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details: map[string]string{
			"source": source,
		},
	})
}

// OrderStatusChanged logs an admin moving an order through fulfilment.
func (l *Logger) OrderStatusChanged(ctx context.Context, r *http.Request, actorIDStr string, userID, orderID primitive.ObjectID, from, to string) {
	ip, ua := requestInfo(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryOrder,
		EventType: audit.EventOrderStatusChanged,
		UserID:    &userID,
		ActorID:   objectID(actorIDStr),
		SubjectID: &orderID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details: map[string]string{
			"from": from,
			"to":   to,
		},
	})
}

// --- Helper functions ---

func objectID(hex string) *primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &oid
}
