package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Setting method returns the value of the setting with the given key. If the
// setting doesn't exist, it returns a specific error.
func (ms *MongoStorage) Setting(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result := ms.settings.FindOne(ctx, bson.M{"_id": key})
	setting := &Setting{}
	if err := result.Decode(setting); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", ErrNotFound
		}
		return "", err
	}
	return setting.Value, nil
}

// SetSetting method creates or overwrites the setting with the given key.
// Re-registration of the webhook endpoint overwrites the stored secret here.
func (ms *MongoStorage) SetSetting(key, value string) error {
	if key == "" {
		return ErrInvalidData
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := ms.settings.ReplaceOne(ctx, bson.M{"_id": key}, &Setting{Key: key, Value: value}, opts)
	return err
}
