package storage

import (
	"context"
	"fmt"

	"naturequest/internal/models"
)

// LoadSnapshot reads every roster collection
func LoadSnapshot(ctx context.Context, a Adapter) (models.Snapshot, error) {
	var snap models.Snapshot
	var err error

	if snap.Classes, err = LoadCollection[models.Class](ctx, a, KeyClasses); err != nil {
		return snap, err
	}
	if snap.Guilds, err = LoadCollection[models.Guild](ctx, a, KeyGuilds); err != nil {
		return snap, err
	}
	if snap.Missions, err = LoadCollection[models.Mission](ctx, a, KeyMissions); err != nil {
		return snap, err
	}
	if snap.Students, err = LoadCollection[models.Student](ctx, a, KeyStudents); err != nil {
		return snap, err
	}
	if snap.Items, err = LoadCollection[models.Item](ctx, a, KeyItems); err != nil {
		return snap, err
	}
	if snap.ActivityLog, err = LoadCollection[models.ActivityLog](ctx, a, KeyActivityLogs); err != nil {
		return snap, err
	}
	return snap, nil
}

// SaveSnapshot writes every roster collection. Adapters implementing
// BatchSaver store all keys atomically; the others are written key by key,
// so a failure part way leaves earlier keys updated.
func SaveSnapshot(ctx context.Context, a Adapter, snap models.Snapshot) error {
	entries, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	if bs, ok := a.(BatchSaver); ok {
		if err := bs.SaveAll(ctx, entries); err != nil {
			return fmt.Errorf("failed to save roster: %w", err)
		}
		return nil
	}

	for _, key := range Keys {
		if err := a.Save(ctx, key, entries[key]); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}
	return nil
}

func encodeSnapshot(snap models.Snapshot) (map[string][]byte, error) {
	entries := make(map[string][]byte, len(Keys))
	var err error

	if entries[KeyClasses], err = encodeCollection(KeyClasses, snap.Classes); err != nil {
		return nil, err
	}
	if entries[KeyGuilds], err = encodeCollection(KeyGuilds, snap.Guilds); err != nil {
		return nil, err
	}
	if entries[KeyMissions], err = encodeCollection(KeyMissions, snap.Missions); err != nil {
		return nil, err
	}
	if entries[KeyStudents], err = encodeCollection(KeyStudents, snap.Students); err != nil {
		return nil, err
	}
	if entries[KeyItems], err = encodeCollection(KeyItems, snap.Items); err != nil {
		return nil, err
	}
	if entries[KeyActivityLogs], err = encodeCollection(KeyActivityLogs, snap.ActivityLog); err != nil {
		return nil, err
	}
	return entries, nil
}
