// internal/app/store/orders/orderstore.go
package orderstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/orderflow"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNoItems = errors.New("order has no items")
	// ErrStatusChanged is returned when the order moved to another status
	// between the read and the write.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// revenueStatuses are the statuses whose totals count as collected revenue.
var revenueStatuses = bson.A{models.OrderPaid, models.OrderShipped, models.OrderDelivered}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("orders")}
}

// Create inserts a pending order. Money fields are stored as given; the caller
// computes them once with pricing.OrderTotals.
func (s *Store) Create(ctx context.Context, o models.Order) (models.Order, error) {
	if len(o.Items) == 0 {
		return models.Order{}, ErrNoItems
	}
	now := time.Now().UTC()
	o.ID = primitive.NewObjectID()
	o.Status = models.OrderPending
	o.PaidAt = nil
	o.CreatedAt = now
	o.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, o); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

// GetByID loads an order. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	var o models.Order
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	return o, err
}

// GetForUser loads an order only when it belongs to userID.
func (s *Store) GetForUser(ctx context.Context, id, userID primitive.ObjectID) (models.Order, error) {
	var o models.Order
	err := s.c.FindOne(ctx, bson.M{"_id": id, "user": userID}).Decode(&o)
	return o, err
}

// GetByPaymentSession loads the order a payment session was created for.
func (s *Store) GetByPaymentSession(ctx context.Context, sessionID string) (models.Order, error) {
	var o models.Order
	if sessionID == "" {
		return o, mongo.ErrNoDocuments
	}
	err := s.c.FindOne(ctx, bson.M{"payment_session_id": sessionID}).Decode(&o)
	return o, err
}

// SetPaymentSession records the gateway session id on the order.
func (s *Store) SetPaymentSession(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"payment_session_id": sessionID,
		"updated_at":         time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkPaid moves a pending order to paid. The status check and the write are a
// single conditional update, so of several concurrent callers exactly one sees
// transitioned=true. Calling it on an order that is already past pending
// returns that order with transitioned=false and no error.
func (s *Store) MarkPaid(ctx context.Context, id primitive.ObjectID, now time.Time) (o models.Order, transitioned bool, err error) {
	now = now.UTC()
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.OrderPending},
		bson.M{"$set": bson.M{"status": models.OrderPaid, "paid_at": now, "updated_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&o)
	if err == nil {
		return o, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, false, err
	}
	o, err = s.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, false, err
	}
	return o, false, nil
}

// UpdateStatus applies an admin status change allowed by orderflow. It returns
// the order as stored after the change. Moving to paid is not handled here;
// it goes through MarkPaid so inventory is decremented exactly once.
func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, to string) (models.Order, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if err := orderflow.Check(cur.Status, to); err != nil {
		return models.Order{}, err
	}
	if cur.Status == to {
		return cur, nil
	}

	var out models.Order
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": cur.Status},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, ErrStatusChanged
	}
	if err != nil {
		return models.Order{}, err
	}
	return out, nil
}

// CancelStalePending cancels pending orders created before cutoff and returns
// how many were cancelled.
func (s *Store) CancelStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"status": models.OrderPending, "created_at": bson.M{"$lt": cutoff.UTC()}},
		bson.M{"$set": bson.M{"status": models.OrderCancelled, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListForUser returns one page of userID's orders, newest first.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, p paging.Page) ([]models.Order, int64, error) {
	return s.list(ctx, bson.M{"user": userID}, p)
}

// List returns one page of all orders, optionally narrowed to a status.
func (s *Store) List(ctx context.Context, status string, p paging.Page) ([]models.Order, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.list(ctx, filter, p)
}

// Recent returns the newest limit orders.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.Order, error) {
	items, _, err := s.list(ctx, bson.M{}, paging.New(1, limit))
	return items, err
}

func (s *Store) list(ctx context.Context, filter bson.M, p paging.Page) ([]models.Order, int64, error) {
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := p.ApplyToFind(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Count returns the number of orders.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// CountByStatus returns the number of orders in each status. Every known
// status is present, with zero when no orders hold it.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(orderflow.Statuses()))
	for _, st := range orderflow.Statuses() {
		out[st] = 0
	}

	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode status count: %w", err)
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}

// Revenue sums the totals of paid, shipped and delivered orders.
func (s *Store) Revenue(ctx context.Context) (float64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": bson.M{"$in": revenueStatuses}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "sum": bson.M{"$sum": "$total"}}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var row struct {
		Sum float64 `bson:"sum"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
	}
	return row.Sum, cur.Err()
}
