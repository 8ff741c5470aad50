package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateOrder method persists a new pending recharge order. The trade
// reference is the document ID, so inserting the same reference twice fails.
func (ms *MongoStorage) CreateOrder(order *Order) error {
	if order.TradeNo == "" || order.UserID == 0 {
		return ErrInvalidData
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if order.Status == "" {
		order.Status = OrderStatusPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if _, err := ms.orders.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrInvalidData
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// Order method returns the order with the given trade reference. If the order
// doesn't exist, it returns a specific error.
func (ms *MongoStorage) Order(tradeNo string) (*Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result := ms.orders.FindOne(ctx, bson.M{"_id": tradeNo})
	order := &Order{}
	if err := result.Decode(order); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// OrdersByUser method returns the orders of the user with the given ID,
// newest first.
func (ms *MongoStorage) OrdersByUser(userID uint64) ([]Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := ms.orders.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()
	var orders []Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkOrderPaid method flips the order with the given trade reference from
// pending to paid, atomically. It returns the updated order. If the order
// doesn't exist it returns ErrNotFound, and if it exists but is no longer
// pending it returns ErrOrderNotPending, so a duplicate webhook delivery can
// be distinguished from an unknown trade reference and never credits twice.
func (ms *MongoStorage) MarkOrderPaid(tradeNo string) (*Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": tradeNo, "status": OrderStatusPending}
	updateDoc := bson.M{"$set": bson.M{
		"status": OrderStatusPaid,
		"paidAt": time.Now(),
	}}
	result := ms.orders.FindOneAndUpdate(ctx, filter, updateDoc)
	order := &Order{}
	if err := result.Decode(order); err != nil {
		if err != mongo.ErrNoDocuments {
			return nil, err
		}
		// distinguish a missing order from an already settled one
		if _, err := ms.Order(tradeNo); err != nil {
			return nil, err
		}
		return nil, ErrOrderNotPending
	}
	// the decoded document is the pre-update one, reflect the transition
	order.Status = OrderStatusPaid
	return order, nil
}

// MarkOrderCredited method records that the user balance was incremented for
// the order with the given trade reference. Fulfillment only acknowledges a
// redelivery for a paid order once this marker is set, so a credit that
// failed after the paid transition is retried instead of silently dropped.
func (ms *MongoStorage) MarkOrderCredited(tradeNo string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	updateDoc := bson.M{"$set": bson.M{"credited": true}}
	result, err := ms.orders.UpdateOne(ctx, bson.M{"_id": tradeNo}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
