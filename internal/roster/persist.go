package roster

import (
	"context"
	"slices"

	"naturequest/internal/catalog"
	"naturequest/internal/models"
	"naturequest/internal/storage"
)

// Snapshot returns a deep copy of the whole roster
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		Classes:     make([]models.Class, len(s.classes)),
		Guilds:      make([]models.Guild, len(s.guilds)),
		Missions:    make([]models.Mission, len(s.missions)),
		Students:    make([]models.Student, len(s.students)),
		Items:       slices.Clone(s.items),
		ActivityLog: slices.Clone(s.activity),
	}
	for i, c := range s.classes {
		snap.Classes[i] = cloneClass(c)
	}
	for i, g := range s.guilds {
		snap.Guilds[i] = cloneGuild(g)
	}
	for i, m := range s.missions {
		snap.Missions[i] = cloneMission(m)
	}
	for i, st := range s.students {
		snap.Students[i] = st.Clone()
	}
	return snap
}

// replaceLocked swaps in the snapshot's collections. An empty item list
// falls back to the seed catalog. Guild totals are recomputed.
func (s *Store) replaceLocked(snap models.Snapshot) {
	s.classes = orEmpty(snap.Classes)
	s.guilds = orEmpty(snap.Guilds)
	s.missions = orEmpty(snap.Missions)
	s.students = orEmpty(snap.Students)
	s.activity = orEmpty(snap.ActivityLog)
	s.items = snap.Items
	if len(s.items) == 0 {
		s.items = catalog.Items()
	}

	for i := range s.students {
		s.students[i] = s.students[i].Clone()
	}
	for i := range s.classes {
		s.classes[i] = cloneClass(s.classes[i])
		if s.classes[i].Students == nil {
			s.classes[i].Students = []string{}
		}
	}
	for i := range s.guilds {
		s.guilds[i] = cloneGuild(s.guilds[i])
		if s.guilds[i].Members == nil {
			s.guilds[i].Members = []string{}
		}
	}
	s.recomputeAllGuildsLocked()
}

// Restore replaces the whole roster with snap and flushes it
func (s *Store) Restore(ctx context.Context, snap models.Snapshot) error {
	return s.mutate(ctx, func() (bool, error) {
		s.replaceLocked(snap)
		return true, nil
	})
}

// Load replaces the roster with what the adapter holds, without flushing
func (s *Store) Load(ctx context.Context, a storage.Adapter) error {
	snap, err := storage.LoadSnapshot(ctx, a)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.replaceLocked(snap)
	s.mu.Unlock()
	return nil
}

// Save writes the current roster to the adapter, ordered with the flushes
func (s *Store) Save(ctx context.Context, a storage.Adapter) error {
	s.mu.Lock()
	snap, gen := s.snapshotForFlushLocked()
	s.mu.Unlock()
	return s.writeOrdered(gen, func() error { return storage.SaveSnapshot(ctx, a, snap) })
}

// Flusher returns a flush hook that writes every snapshot to a
func Flusher(a storage.Adapter) func(context.Context, models.Snapshot) error {
	return func(ctx context.Context, snap models.Snapshot) error {
		return storage.SaveSnapshot(ctx, a, snap)
	}
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return slices.Clone(in)
}
