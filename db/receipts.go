package db

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Receipt method returns the payment receipt for the given checkout-session
// identifier. If no receipt exists, it returns ErrNotFound.
func (ms *MongoStorage) Receipt(sessionID string) (*PaymentReceipt, error) {
	if sessionID == "" {
		return nil, ErrInvalidData
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result := ms.receipts.FindOne(ctx, bson.M{"_id": sessionID})
	receipt := &PaymentReceipt{}
	if err := result.Decode(receipt); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return receipt, nil
}

// ReceiptsByUser method returns all payment receipts recorded for the given
// user, most recent first.
func (ms *MongoStorage) ReceiptsByUser(uid string) ([]*PaymentReceipt, error) {
	if uid == "" {
		return nil, ErrInvalidData
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := ms.receipts.Find(ctx, bson.M{"userID": uid}, opts)
	if err != nil {
		return nil, err
	}
	var receipts []*PaymentReceipt
	if err := cursor.All(ctx, &receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

// ApplyPaymentReceipt applies a paid checkout session to the user's
// entitlement exactly once. Within a single transaction it checks whether a
// receipt already exists for the checkout-session identifier, and only if it
// doesn't, it increments the user's credit balance, overwrites the plan and
// inserts the receipt. It returns whether this call performed the writes.
//
// Both the webhook and the client confirmation path race through here with
// the same session; the transaction guarantees that only one of them observes
// the receipt as absent. The driver retries the closure on transient write
// conflicts, so every attempt re-runs the full check-then-act sequence.
func (ms *MongoStorage) ApplyPaymentReceipt(ctx context.Context, receipt *PaymentReceipt) (bool, error) {
	if receipt == nil || receipt.SessionID == "" || receipt.UserID == "" {
		return false, ErrInvalidData
	}
	if !IsPurchasablePlan(receipt.Plan) {
		return false, ErrInvalidData
	}
	applied := false
	err := ms.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		applied = false
		// the receipt existence check is the idempotency gate
		count, err := ms.receipts.CountDocuments(sessCtx, bson.M{"_id": receipt.SessionID})
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		// credit the user and overwrite the plan
		update := bson.M{
			"$inc": bson.M{"sessionCredits": receipt.Credits},
			"$set": bson.M{"plan": receipt.Plan},
		}
		opts := options.Update().SetUpsert(true)
		if _, err := ms.users.UpdateOne(sessCtx, bson.M{"_id": receipt.UserID}, update, opts); err != nil {
			return err
		}
		// record the receipt; the unique _id backstops a duplicate insert in
		// case two non-conflicting transactions ever reach this point
		stored := *receipt
		stored.CreatedAt = time.Now()
		if _, err := ms.receipts.InsertOne(sessCtx, &stored); err != nil {
			if strings.Contains(err.Error(), "duplicate key error") {
				return ErrAlreadyExists
			}
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		if strings.Contains(err.Error(), ErrAlreadyExists.Error()) {
			return false, nil
		}
		return false, err
	}
	return applied, nil
}
