// Package storage persists roster collections as JSON documents under fixed
// keys. Backends only move bytes; encoding lives in the generic helpers.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection keys
const (
	KeyClasses      = "naturequest_classes"
	KeyGuilds       = "naturequest_guilds"
	KeyMissions     = "naturequest_missions"
	KeyStudents     = "naturequest_students"
	KeyItems        = "naturequest_items"
	KeyActivityLogs = "naturequest_activity_logs"
)

// Keys lists every collection key
var Keys = []string{KeyClasses, KeyGuilds, KeyMissions, KeyStudents, KeyItems, KeyActivityLogs}

var ErrCorrupt = errors.New("stored collection is corrupt")

// BatchSaver is implemented by adapters that can write several keys in one
// transaction. SaveSnapshot prefers it over key-by-key saves.
type BatchSaver interface {
	SaveAll(ctx context.Context, entries map[string][]byte) error
}

// Adapter is a key-value store for serialized collections
type Adapter interface {
	// Load returns the stored bytes and whether the key exists
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

// LoadCollection reads and decodes the collection under key. A missing key
// yields an empty slice.
func LoadCollection[T any](ctx context.Context, a Adapter, key string) ([]T, error) {
	data, ok, err := a.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}

	out := []T{}
	if !ok || len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return out, nil
}

// SaveCollection encodes items and stores them under key
func SaveCollection[T any](ctx context.Context, a Adapter, key string, items []T) error {
	data, err := encodeCollection(key, items)
	if err != nil {
		return err
	}
	if err := a.Save(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func encodeCollection[T any](key string, items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return data, nil
}
