package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (ms *MongoStorage) fetchUserFromDB(ctx context.Context, uid string) (*User, error) {
	// find the user in the database
	result := ms.users.FindOne(ctx, bson.M{"_id": uid})
	user := &User{}
	if err := result.Decode(user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// User method returns the user with the given identity subject. If the user
// doesn't exist, it returns a specific error. If other errors occur, it
// returns the error.
func (ms *MongoStorage) User(uid string) (*User, error) {
	if uid == "" {
		return nil, ErrInvalidData
	}
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return ms.fetchUserFromDB(ctx, uid)
}

// UserByCustomerID method returns the user holding the given billing customer
// identifier, as resolved from a provider event.
func (ms *MongoStorage) UserByCustomerID(customerID string) (*User, error) {
	if customerID == "" {
		return nil, ErrInvalidData
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result := ms.users.FindOne(ctx, bson.M{"customerID": customerID})
	user := &User{}
	if err := result.Decode(user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// SetUser method creates or updates the user in the database. Only the
// non-zero fields of the provided user are written, so it behaves as a merge
// write over the existing document.
func (ms *MongoStorage) SetUser(user *User) error {
	if user.UID == "" {
		return ErrInvalidData
	}
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	updateDoc, err := dynamicUpdateDocument(user, nil)
	if err != nil {
		return err
	}
	opts := options.Update().SetUpsert(true)
	if _, err := ms.users.UpdateOne(ctx, bson.M{"_id": user.UID}, updateDoc, opts); err != nil {
		return err
	}
	return nil
}

// SetUserCustomerID persists the lazily provisioned billing customer
// identifier on the user record, creating the record if needed. It must be
// called before the customer id is first used on the provider side, so a
// crashed request never leaves an unrecorded customer in use.
func (ms *MongoStorage) SetUserCustomerID(uid, customerID string) error {
	if uid == "" || customerID == "" {
		return ErrInvalidData
	}
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	update := bson.M{"$set": bson.M{"customerID": customerID}}
	opts := options.Update().SetUpsert(true)
	if _, err := ms.users.UpdateOne(ctx, bson.M{"_id": uid}, update, opts); err != nil {
		return err
	}
	return nil
}

// SetUserPlan overwrites the plan and credit allotment of the user. It is the
// last-write-wins path used by subscription lifecycle events, where the
// subscription state itself is the source of truth and repeated delivery
// converges to the same value. One-time payments never use this method, they
// go through ApplyPaymentReceipt instead.
func (ms *MongoStorage) SetUserPlan(uid string, plan PlanName, credits int64) error {
	if uid == "" {
		return ErrInvalidData
	}
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	update := bson.M{"$set": bson.M{"plan": plan, "sessionCredits": credits}}
	opts := options.Update().SetUpsert(true)
	if _, err := ms.users.UpdateOne(ctx, bson.M{"_id": uid}, update, opts); err != nil {
		return err
	}
	return nil
}

// DelUser method deletes the user from the database. If an error occurs, it
// returns the error.
func (ms *MongoStorage) DelUser(user *User) error {
	if user.UID == "" {
		return ErrInvalidData
	}
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	_, err := ms.users.DeleteOne(ctx, bson.M{"_id": user.UID})
	return err
}
