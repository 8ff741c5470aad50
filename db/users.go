package db

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextUserID internal method returns the next available user ID. If an error
// occurs, it returns the error. This method must be called with the keysLock
// held.
func (ms *MongoStorage) nextUserID(ctx context.Context) (uint64, error) {
	var user User
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	if err := ms.users.FindOne(ctx, bson.M{}, opts).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return user.ID + 1, nil
}

// User method returns the user with the given ID. If the user doesn't exist,
// it returns a specific error. If other errors occur, it returns the error.
func (ms *MongoStorage) User(id uint64) (*User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result := ms.users.FindOne(ctx, bson.M{"_id": id})
	user := &User{}
	if err := result.Decode(user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// UserByEmail method returns the user with the given email. If the user
// doesn't exist, it returns a specific error. If other errors occur, it
// returns the error.
func (ms *MongoStorage) UserByEmail(email string) (*User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result := ms.users.FindOne(ctx, bson.M{"email": email})
	user := &User{}
	if err := result.Decode(user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// SetUser method creates or updates the user in the database. If the user
// already exists, it updates the document fields, if not, it creates it
// assigning the next sequential ID. It returns the user ID.
func (ms *MongoStorage) SetUser(user *User) (uint64, error) {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if user.ID == 0 {
		nextID, err := ms.nextUserID(ctx)
		if err != nil {
			return 0, err
		}
		user.ID = nextID
	}
	updateDoc, err := dynamicUpdateDocument(user, nil)
	if err != nil {
		return 0, err
	}
	opts := options.Update().SetUpsert(true)
	if _, err := ms.users.UpdateOne(ctx, bson.M{"_id": user.ID}, updateDoc, opts); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return 0, ErrInvalidData
		}
		return 0, err
	}
	return user.ID, nil
}

// AddUserBalance method atomically increments the balance of the user with
// the given ID by the given amount. It returns a specific error if the user
// doesn't exist.
func (ms *MongoStorage) AddUserBalance(userID uint64, amount float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	updateDoc := bson.M{"$inc": bson.M{"balance": amount}}
	result, err := ms.users.UpdateOne(ctx, bson.M{"_id": userID}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DelUser method deletes the user with the given ID.
func (ms *MongoStorage) DelUser(user *User) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := ms.users.DeleteOne(ctx, bson.M{"_id": user.ID})
	return err
}
