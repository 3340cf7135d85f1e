package userstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrInvalidResetToken is returned when a reset token is unknown, used, or expired.
	ErrInvalidResetToken = errors.New("reset token is invalid or has expired")
	errBadRole           = errors.New(`role must be "user"|"admin"`)
	errEmailRequired     = errors.New("email is required")
)

// GetByID loads a user by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email_ci": foldEmail(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByGoogleID looks up a user linked to a Google account.
func (s *Store) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"google_id": googleID}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.EmailCI = foldEmail(u.Email)
	if u.Email == "" {
		return models.User{}, errEmailRequired
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if !ValidRole(u.Role) {
		return models.User{}, errBadRole
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// ValidRole reports whether role is one a user may hold.
func ValidRole(role string) bool {
	return role == models.RoleUser || role == models.RoleAdmin
}

// UpdateName changes the display name.
func (s *Store) UpdateName(ctx context.Context, id primitive.ObjectID, name string) error {
	return s.set(ctx, id, bson.M{"name": strings.TrimSpace(name)})
}

// SetPassword stores a new bcrypt hash and clears any pending reset token.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"password_hash": hash, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"reset_token_hash": "", "reset_token_expires": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetResetToken records the hash of a freshly issued reset token, replacing
// any earlier one.
func (s *Store) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	return s.set(ctx, id, bson.M{
		"reset_token_hash":    tokenHash,
		"reset_token_expires": expires.UTC(),
	})
}

// ConsumeResetToken sets a new password for the user holding tokenHash, if the
// token has not expired at now. The token is cleared in the same update so it
// cannot be used twice.
func (s *Store) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error) {
	if tokenHash == "" {
		return nil, ErrInvalidResetToken
	}
	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"reset_token_hash":    tokenHash,
			"reset_token_expires": bson.M{"$gt": now.UTC()},
		},
		bson.M{
			"$set":   bson.M{"password_hash": passwordHash, "updated_at": now.UTC()},
			"$unset": bson.M{"reset_token_hash": "", "reset_token_expires": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrInvalidResetToken
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// LinkGoogle attaches a Google account id to an existing user.
func (s *Store) LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID string) error {
	return s.set(ctx, id, bson.M{"google_id": googleID})
}

// SetRole changes the user's role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !ValidRole(role) {
		return errBadRole
	}
	return s.set(ctx, id, bson.M{"role": role})
}

// EnsureAdmin promotes the user with email to admin, creating the account when
// it does not exist. passwordHash is only applied to a newly created account.
func (s *Store) EnsureAdmin(ctx context.Context, email, name, passwordHash string) (u models.User, created bool, err error) {
	existing, err := s.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			if err := s.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
				return models.User{}, false, err
			}
			existing.Role = models.RoleAdmin
		}
		return *existing, false, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		if name == "" {
			name = "Administrator"
		}
		u, err := s.Create(ctx, models.User{
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         models.RoleAdmin,
		})
		if err != nil {
			return models.User{}, false, err
		}
		return u, true, nil
	default:
		return models.User{}, false, err
	}
}

// Names maps each id in ids to the user's name. Unknown ids are omitted.
func (s *Store) Names(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "email": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		name := u.Name
		if name == "" {
			name = u.Email
		}
		out[u.ID] = name
	}
	return out, cur.Err()
}

// Wishlist returns the product ids on the user's wishlist.
func (s *Store) Wishlist(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	var u models.User
	proj := options.FindOne().SetProjection(bson.M{"wishlist": 1})
	if err := s.c.FindOne(ctx, bson.M{"_id": id}, proj).Decode(&u); err != nil {
		return nil, err
	}
	if u.Wishlist == nil {
		return []primitive.ObjectID{}, nil
	}
	return u.Wishlist, nil
}

// AddToWishlist adds productID to the wishlist. Adding twice is a no-op.
func (s *Store) AddToWishlist(ctx context.Context, id, productID primitive.ObjectID) error {
	return s.update(ctx, id, bson.M{
		"$addToSet": bson.M{"wishlist": productID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveFromWishlist removes productID from the wishlist.
func (s *Store) RemoveFromWishlist(ctx context.Context, id, productID primitive.ObjectID) error {
	return s.update(ctx, id, bson.M{
		"$pull": bson.M{"wishlist": productID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// PullFromWishlists removes a deleted product from every wishlist.
func (s *Store) PullFromWishlists(ctx context.Context, productID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"wishlist": productID},
		bson.M{"$pull": bson.M{"wishlist": productID}},
	)
	return err
}

// ListFilter narrows the admin user list.
type ListFilter struct {
	Role  string
	Query string // matched against name and email
}

func (f ListFilter) bson() bson.M {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = f.Role
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"email_ci": primitive.Regex{Pattern: regexp.QuoteMeta(text.Fold(s))}},
		}
	}
	return q
}

// List returns one page of users, newest first, and the total matching count.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Page) ([]models.User, int64, error) {
	filter := f.bson()
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := p.ApplyToFind(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Count returns the number of users.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	return s.update(ctx, id, bson.M{"$set": fields})
}

func (s *Store) update(ctx context.Context, id primitive.ObjectID, upd bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, upd)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func foldEmail(email string) string {
	return text.Fold(strings.TrimSpace(email))
}
