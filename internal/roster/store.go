// Package roster owns the in-memory game state: classes, guilds, missions,
// students, the item catalog and the activity feed. Every mutation runs under
// one write lock, then the store publishes activity entries and calls its
// flush hook outside the lock.
package roster

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"naturequest/internal/catalog"
	"naturequest/internal/leaderboard"
	"naturequest/internal/models"
	"naturequest/internal/validation"
)

var (
	ErrClassNotFound   = errors.New("class not found")
	ErrGuildNotFound   = errors.New("guild not found")
	ErrMissionNotFound = errors.New("mission not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrItemNotFound    = errors.New("item not found")

	ErrWrongClass    = errors.New("student belongs to a different class")
	ErrNotMember     = errors.New("student is not a member of the guild")
	ErrStudentBanned = errors.New("student is temporarily banned")

	// ErrFlush wraps persistence failures. The in-memory change is kept.
	ErrFlush = errors.New("failed to persist roster")
)

// IsNotFound reports whether err is one of the lookup errors
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClassNotFound) || errors.Is(err, ErrGuildNotFound) ||
		errors.Is(err, ErrMissionNotFound) || errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrItemNotFound)
}

// DefaultActivityLimit caps the stored activity feed
const DefaultActivityLimit = 500

// Actor identifies who triggered a mutation, for activity attribution
type Actor struct {
	ID   string
	Name string
}

// Options configures a Store. Zero values get working defaults.
type Options struct {
	Now          func() time.Time
	NewID        func(prefix string) string
	Roll         func() float64 // uniform in [0, 1), drives item reward chances
	HashPassword func(plain string) (string, error)

	// Flush persists the state after every successful mutation
	Flush func(ctx context.Context, snap models.Snapshot) error
	// OnActivity receives every new activity entry, outside the lock
	OnActivity func(entry models.ActivityLog)

	ActivityLimit int
}

// Store is the roster aggregate
type Store struct {
	mu sync.RWMutex

	classes  []models.Class
	guilds   []models.Guild
	missions []models.Mission
	students []models.Student
	items    []models.Item
	activity []models.ActivityLog // most recent first

	pending []models.ActivityLog
	opts    Options

	// generation counts snapshots taken for persistence, under mu. Flushes
	// run one at a time under flushMu and skip snapshots older than flushed.
	generation uint64
	flushMu    sync.Mutex
	flushed    uint64
}

// New returns an empty store holding the seed item catalog
func New(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func(prefix string) string { return prefix + "-" + uuid.NewString() }
	}
	if opts.Roll == nil {
		opts.Roll = rand.Float64
	}
	if opts.HashPassword == nil {
		opts.HashPassword = func(plain string) (string, error) {
			hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
			return string(hash), err
		}
	}
	if opts.ActivityLimit <= 0 {
		opts.ActivityLimit = DefaultActivityLimit
	}

	return &Store{
		classes:  []models.Class{},
		guilds:   []models.Guild{},
		missions: []models.Mission{},
		students: []models.Student{},
		items:    catalog.Items(),
		activity: []models.ActivityLog{},
		opts:     opts,
	}
}

// mutate runs fn under the write lock. fn reports whether it changed state;
// unchanged state skips the flush.
func (s *Store) mutate(ctx context.Context, fn func() (bool, error)) error {
	s.mu.Lock()
	changed, err := fn()
	events := s.pending
	s.pending = nil
	var snap models.Snapshot
	var gen uint64
	flush := err == nil && changed && s.opts.Flush != nil
	if flush {
		snap, gen = s.snapshotForFlushLocked()
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}

	if s.opts.OnActivity != nil {
		for _, e := range events {
			s.opts.OnActivity(e)
		}
	}

	if flush {
		if ferr := s.writeOrdered(gen, func() error { return s.opts.Flush(ctx, snap) }); ferr != nil {
			return fmt.Errorf("%w: %v", ErrFlush, ferr)
		}
	}
	return nil
}

// snapshotForFlushLocked copies the state and stamps it with a new generation
func (s *Store) snapshotForFlushLocked() (models.Snapshot, uint64) {
	s.generation++
	return s.snapshotLocked(), s.generation
}

// writeOrdered runs write unless a snapshot newer than gen is already
// stored. Writes never overlap.
func (s *Store) writeOrdered(gen uint64, write func() error) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if gen <= s.flushed {
		return nil
	}
	if err := write(); err != nil {
		return err
	}
	s.flushed = gen
	return nil
}

// recordLocked prepends an activity entry and queues it for publishing
func (s *Store) recordLocked(t models.ActivityType, description string, actor Actor, metadata map[string]any) {
	entry := models.ActivityLog{
		ID:          s.opts.NewID("log"),
		Type:        t,
		Description: description,
		UserID:      actor.ID,
		UserName:    actor.Name,
		Timestamp:   s.opts.Now(),
		Metadata:    metadata,
	}

	s.activity = slices.Insert(s.activity, 0, entry)
	if len(s.activity) > s.opts.ActivityLimit {
		s.activity = s.activity[:s.opts.ActivityLimit]
	}
	s.pending = append(s.pending, entry)
}

// index helpers, lock held

func (s *Store) classIndex(id string) int {
	return slices.IndexFunc(s.classes, func(c models.Class) bool { return c.ID == id })
}

func (s *Store) guildIndex(id string) int {
	return slices.IndexFunc(s.guilds, func(g models.Guild) bool { return g.ID == id })
}

func (s *Store) missionIndex(id string) int {
	return slices.IndexFunc(s.missions, func(m models.Mission) bool { return m.ID == id })
}

func (s *Store) studentIndex(id string) int {
	return slices.IndexFunc(s.students, func(st models.Student) bool { return st.ID == id })
}

func (s *Store) itemIndex(id string) int {
	return slices.IndexFunc(s.items, func(it models.Item) bool { return it.ID == id })
}

// Getters

func (s *Store) Class(id string) (models.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.classIndex(id)
	if i < 0 {
		return models.Class{}, ErrClassNotFound
	}
	return cloneClass(s.classes[i]), nil
}

// Classes lists every class, or only teacherID's when it is set
func (s *Store) Classes(teacherID string) []models.Class {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Class, 0, len(s.classes))
	for _, c := range s.classes {
		if teacherID == "" || c.TeacherID == teacherID {
			out = append(out, cloneClass(c))
		}
	}
	return out
}

func (s *Store) Guild(id string) (models.Guild, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.guildIndex(id)
	if i < 0 {
		return models.Guild{}, ErrGuildNotFound
	}
	return cloneGuild(s.guilds[i]), nil
}

// Guilds lists the guilds of classID, or all of them when classID is empty
func (s *Store) Guilds(classID string) []models.Guild {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Guild, 0, len(s.guilds))
	for _, g := range s.guilds {
		if classID == "" || g.ClassID == classID {
			out = append(out, cloneGuild(g))
		}
	}
	return out
}

func (s *Store) Mission(id string) (models.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.missionIndex(id)
	if i < 0 {
		return models.Mission{}, ErrMissionNotFound
	}
	return cloneMission(s.missions[i]), nil
}

func (s *Store) Missions(classID string) []models.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Mission, 0, len(s.missions))
	for _, m := range s.missions {
		if classID == "" || m.ClassID == classID {
			out = append(out, cloneMission(m))
		}
	}
	return out
}

func (s *Store) Student(id string) (models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.studentIndex(id)
	if i < 0 {
		return models.Student{}, ErrStudentNotFound
	}
	return s.students[i].Clone(), nil
}

// StudentByEmail finds a student by login email, case-sensitively
func (s *Store) StudentByEmail(email string) (models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.Email == email {
			return st.Clone(), nil
		}
	}
	return models.Student{}, ErrStudentNotFound
}

func (s *Store) Students(classID string) []models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Student, 0, len(s.students))
	for _, st := range s.students {
		if classID == "" || st.ClassID == classID {
			out = append(out, st.Clone())
		}
	}
	return out
}

func (s *Store) Item(id string) (models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.itemIndex(id)
	if i < 0 {
		return models.Item{}, ErrItemNotFound
	}
	return s.items[i], nil
}

func (s *Store) Items() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Activity returns up to limit entries, most recent first. limit <= 0 means all.
func (s *Store) Activity(limit int) []models.ActivityLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.activity) {
		limit = len(s.activity)
	}
	return slices.Clone(s.activity[:limit])
}

// Leaderboard ranks students by total XP, optionally within one class
func (s *Store) Leaderboard(classID string) []models.LeaderboardEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return leaderboard.Rank(s.students, s.guilds, classID)
}

// GuildLeaderboard ranks guilds by their derived total XP
func (s *Store) GuildLeaderboard(classID string) []models.GuildStanding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return leaderboard.GuildRank(s.guilds, classID)
}

func cloneClass(c models.Class) models.Class {
	c.Students = slices.Clone(c.Students)
	return c
}

func cloneGuild(g models.Guild) models.Guild {
	g.Members = slices.Clone(g.Members)
	return g
}

func cloneMission(m models.Mission) models.Mission {
	m.Requirements = slices.Clone(m.Requirements)
	if m.ItemReward != nil {
		reward := *m.ItemReward
		m.ItemReward = &reward
	}
	if m.Deadline != nil {
		deadline := *m.Deadline
		m.Deadline = &deadline
	}
	return m
}

var errEmptyPatch = validation.Invalid("patch", "no fields to update")
