package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/chatdesk/internal/store"
	"github.com/capitalize-ai/chatdesk/pkg/metrics"
)

// DefaultBucket is the key-value bucket holding the chat desk collections.
const DefaultBucket = "CHATDESK"

// KVStore is a store.Store backed by a JetStream key-value bucket.
type KVStore struct {
	kv jetstream.KeyValue
}

// EnsureBucket opens bucket, creating it when it does not exist yet.
func EnsureBucket(ctx context.Context, client *Client, bucket string) (*KVStore, error) {
	js := client.JetStream()

	kv, err := js.KeyValue(ctx, bucket)
	if err == nil {
		return &KVStore{kv: kv}, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, fmt.Errorf("failed to open bucket %s: %w", bucket, err)
	}

	kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Chat history, projects and voice settings",
		History:     1,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	return &KVStore{kv: kv}, nil
}

// Load returns the latest value of key.
func (s *KVStore) Load(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		metrics.RecordStore(store.BackendNATS, key, "load", store.ErrNotFound)
		return nil, store.ErrNotFound
	}
	metrics.RecordStore(store.BackendNATS, key, "load", err)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return entry.Value(), nil
}

// Save puts value under key, replacing any previous revision.
func (s *KVStore) Save(ctx context.Context, key string, value []byte) error {
	_, err := s.kv.Put(ctx, key, value)
	metrics.RecordStore(store.BackendNATS, key, "save", err)
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}
