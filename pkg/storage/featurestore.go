package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrFeaturesNotFound = errors.New("features not found")

// featureCache is the part of *redis.Client the feature store needs.
type featureCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// FeatureStore caches assembled patient feature vectors as JSON documents
// under <prefix>:<patient id>.
type FeatureStore struct {
	cache  featureCache
	prefix string
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewFeatureStore(cache featureCache, prefix string, ttl time.Duration, log logrus.FieldLogger) *FeatureStore {
	if prefix == "" {
		prefix = "features"
	}
	return &FeatureStore{cache: cache, prefix: prefix, ttl: ttl, log: log}
}

func (fs *FeatureStore) key(patientID string) string {
	return fmt.Sprintf("%s:%s", fs.prefix, patientID)
}

// MaterializeFeatures writes one document per patient. The first failure
// aborts the batch.
func (fs *FeatureStore) MaterializeFeatures(ctx context.Context, features map[string]map[string]interface{}) error {
	for patientID, doc := range features {
		if err := fs.Put(ctx, patientID, doc); err != nil {
			return err
		}
	}
	fs.log.WithFields(logrus.Fields{
		"patients": len(features),
		"ttl":      fs.ttl.String(),
	}).Info("Materialized patient features")
	return nil
}

func (fs *FeatureStore) Put(ctx context.Context, patientID string, doc map[string]interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal features for %s: %w", patientID, err)
	}
	if err := fs.cache.Set(ctx, fs.key(patientID), data, fs.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache features for %s: %w", patientID, err)
	}
	return nil
}

func (fs *FeatureStore) GetFeatures(ctx context.Context, patientID string) (map[string]interface{}, error) {
	data, err := fs.cache.Get(ctx, fs.key(patientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrFeaturesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read features for %s: %w", patientID, err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode features for %s: %w", patientID, err)
	}
	return doc, nil
}
