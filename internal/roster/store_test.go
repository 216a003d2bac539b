package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naturequest/internal/models"
	"naturequest/internal/progression"
	"naturequest/internal/storage"
	"naturequest/internal/validation"
)

var testNow = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

var teacher = Actor{ID: "teacher-1", Name: "Prof. Helena"}

type fixture struct {
	store   *Store
	roll    float64
	flushes int
	events  []models.ActivityLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{roll: 0.99}
	seq := 0
	f.store = New(Options{
		Now: func() time.Time { return testNow },
		NewID: func(prefix string) string {
			seq++
			return fmt.Sprintf("%s-%d", prefix, seq)
		},
		Roll:         func() float64 { return f.roll },
		HashPassword: func(plain string) (string, error) { return "hashed:" + plain, nil },
		Flush: func(context.Context, models.Snapshot) error {
			f.flushes++
			return nil
		},
		OnActivity: func(e models.ActivityLog) { f.events = append(f.events, e) },
	})
	return f
}

func (f *fixture) class(t *testing.T, name string) models.Class {
	t.Helper()
	c, err := f.store.CreateClass(context.Background(), models.CreateClassInput{Name: name}, teacher.ID)
	require.NoError(t, err)
	return c
}

func (f *fixture) student(t *testing.T, classID, name string) models.Student {
	t.Helper()
	st, err := f.store.AddStudent(context.Background(), models.AddStudentInput{
		Name:    name,
		Email:   fmt.Sprintf("%s@escola.edu.br", classID+"."+name),
		ClassID: classID,
	})
	require.NoError(t, err)
	return st
}

func (f *fixture) guild(t *testing.T, classID, name string) models.Guild {
	t.Helper()
	g, err := f.store.CreateGuild(context.Background(), models.CreateGuildInput{
		Name:    name,
		ClassID: classID,
		Emblem:  "gear",
		Color:   "#B87333",
	}, teacher)
	require.NoError(t, err)
	return g
}

func (f *fixture) mission(t *testing.T, classID string, xp int, reward *models.ItemReward) models.Mission {
	t.Helper()
	m, err := f.store.CreateMission(context.Background(), models.CreateMissionInput{
		Title:      "Exploradores da Célula",
		Type:       models.MissionWeekly,
		Subject:    models.SubjectBiology,
		Difficulty: models.DifficultyMedium,
		XPReward:   xp,
		ClassID:    classID,
		ItemReward: reward,
	}, teacher)
	require.NoError(t, err)
	return m
}

func TestCreateClass(t *testing.T) {
	f := newFixture(t)
	c := f.class(t, "Ciências 7A")

	assert.Equal(t, "Ciências 7A", c.Name)
	assert.Equal(t, teacher.ID, c.TeacherID)
	assert.Regexp(t, `^NQCIN[A-Z0-9]{4}$`, c.InviteCode)
	assert.Empty(t, c.Students)
	assert.Equal(t, 1, f.flushes)

	found, err := f.store.ClassByInviteCode(c.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	_, err = f.store.CreateClass(context.Background(), models.CreateClassInput{Name: "   "}, teacher.ID)
	assert.True(t, validation.IsValidationError(err))
	assert.Equal(t, 1, f.flushes, "rejected input must not flush")
}

func TestUpdatePatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, "7A")

	_, err := f.store.UpdateClass(ctx, c.ID, models.ClassPatch{})
	assert.True(t, validation.IsValidationError(err), "empty patch")

	name := "7º Ano A"
	updated, err := f.store.UpdateClass(ctx, c.ID, models.ClassPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	blank := " "
	_, err = f.store.UpdateClass(ctx, c.ID, models.ClassPatch{Name: &blank})
	assert.True(t, validation.IsValidationError(err))

	_, err = f.store.UpdateClass(ctx, "class-404", models.ClassPatch{Name: &name})
	assert.ErrorIs(t, err, ErrClassNotFound)

	bad := "skull"
	g := f.guild(t, c.ID, "Guerreiros")
	_, err = f.store.UpdateGuild(ctx, g.ID, models.GuildPatch{Emblem: &bad})
	assert.True(t, validation.IsValidationError(err))

	xp := 0
	m := f.mission(t, c.ID, 100, nil)
	_, err = f.store.UpdateMission(ctx, m.ID, models.MissionPatch{XPReward: &xp})
	assert.True(t, validation.IsValidationError(err))
}

func TestAddStudent(t *testing.T) {
	f := newFixture(t)
	c := f.class(t, "7A")
	st := f.student(t, c.ID, "joao")

	assert.Equal(t, 1, st.Level)
	assert.Equal(t, 0, st.XP)
	assert.Equal(t, 100, st.XPToNextLevel)
	assert.Equal(t, models.BaselineStats(), st.Stats)
	assert.Empty(t, st.Inventory)

	class, err := f.store.Class(c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{st.ID}, class.Students)

	require.Len(t, f.events, 1)
	assert.Equal(t, models.ActivityStudentJoined, f.events[0].Type)

	_, err = f.store.AddStudent(context.Background(), models.AddStudentInput{Name: "x", Email: "x@escola.edu.br", ClassID: "class-404"})
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestDeleteClassCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.class(t, "7A")
	b := f.class(t, "8B")
	st := f.student(t, a.ID, "joao")
	other := f.student(t, b.ID, "maria")
	g := f.guild(t, a.ID, "Guerreiros")
	f.guild(t, b.ID, "Bronze")
	f.mission(t, a.ID, 100, nil)
	f.mission(t, b.ID, 100, nil)
	require.NoError(t, f.store.AddStudentToGuild(ctx, g.ID, st.ID))

	require.NoError(t, f.store.DeleteClass(ctx, a.ID))

	_, err := f.store.Class(a.ID)
	assert.ErrorIs(t, err, ErrClassNotFound)
	assert.Empty(t, f.store.Guilds(a.ID))
	assert.Empty(t, f.store.Missions(a.ID))
	assert.Len(t, f.store.Guilds(""), 1)
	assert.Len(t, f.store.Missions(""), 1)

	orphan, err := f.store.Student(st.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, orphan.ClassID, "students keep the deleted class id")
	assert.Empty(t, orphan.GuildID)

	untouched, err := f.store.Student(other.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, untouched.ClassID)

	flushes := f.flushes
	require.NoError(t, f.store.DeleteClass(ctx, "class-404"))
	assert.Equal(t, flushes, f.flushes, "no-op delete does not flush")
}

func TestGuildMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, "7A")
	other := f.class(t, "8B")
	st := f.student(t, c.ID, "joao")
	outsider := f.student(t, other.ID, "maria")
	first := f.guild(t, c.ID, "Guerreiros")
	second := f.guild(t, c.ID, "Bronze")

	t.Run("add links both sides", func(t *testing.T) {
		require.NoError(t, f.store.AddStudentToGuild(ctx, first.ID, st.ID))
		g, _ := f.store.Guild(first.ID)
		s, _ := f.store.Student(st.ID)
		assert.Equal(t, []string{st.ID}, g.Members)
		assert.Equal(t, first.ID, s.GuildID)
	})

	t.Run("other class is rejected", func(t *testing.T) {
		err := f.store.AddStudentToGuild(ctx, first.ID, outsider.ID)
		assert.ErrorIs(t, err, ErrWrongClass)
	})

	t.Run("leader must be a member", func(t *testing.T) {
		_, err := f.store.SetGuildLeader(ctx, first.ID, outsider.ID)
		assert.ErrorIs(t, err, ErrNotMember)
		g, err := f.store.SetGuildLeader(ctx, first.ID, st.ID)
		require.NoError(t, err)
		assert.Equal(t, st.ID, g.LeaderID)
	})

	t.Run("moving clears the old guild and its leader", func(t *testing.T) {
		require.NoError(t, f.store.AddStudentToGuild(ctx, second.ID, st.ID))
		old, _ := f.store.Guild(first.ID)
		moved, _ := f.store.Guild(second.ID)
		s, _ := f.store.Student(st.ID)
		assert.Empty(t, old.Members)
		assert.Empty(t, old.LeaderID)
		assert.Equal(t, []string{st.ID}, moved.Members)
		assert.Equal(t, second.ID, s.GuildID)
	})

	t.Run("remove clears both sides", func(t *testing.T) {
		require.NoError(t, f.store.RemoveStudentFromGuild(ctx, second.ID, st.ID))
		g, _ := f.store.Guild(second.ID)
		s, _ := f.store.Student(st.ID)
		assert.Empty(t, g.Members)
		assert.Empty(t, s.GuildID)
	})

	t.Run("unknown ids are a no-op", func(t *testing.T) {
		assert.NoError(t, f.store.AddStudentToGuild(ctx, "guild-404", st.ID))
		assert.NoError(t, f.store.RemoveStudentFromGuild(ctx, second.ID, "student-404"))
	})

	t.Run("delete guild clears member references", func(t *testing.T) {
		require.NoError(t, f.store.AddStudentToGuild(ctx, first.ID, st.ID))
		require.NoError(t, f.store.DeleteGuild(ctx, first.ID))
		s, _ := f.store.Student(st.ID)
		assert.Empty(t, s.GuildID)
	})
}

func TestCreateGuildRejectsUnknownEmblem(t *testing.T) {
	f := newFixture(t)
	c := f.class(t, "7A")
	_, err := f.store.CreateGuild(context.Background(), models.CreateGuildInput{
		Name: "Guerreiros", ClassID: c.ID, Emblem: "skull", Color: "#B87333",
	}, teacher)
	assert.True(t, validation.IsValidationError(err))
}

func TestGuildTotalsAreDerived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, "7A")
	a := f.student(t, c.ID, "joao")
	b := f.student(t, c.ID, "maria")
	g := f.guild(t, c.ID, "Guerreiros")
	m := f.mission(t, c.ID, 300, nil)

	require.NoError(t, f.store.AddStudentToGuild(ctx, g.ID, a.ID))
	require.NoError(t, f.store.AddStudentToGuild(ctx, g.ID, b.ID))
	_, err := f.store.CompleteMission(ctx, m.ID, a.ID)
	require.NoError(t, err)

	guild, _ := f.store.Guild(g.ID)
	assert.Equal(t, 300, guild.TotalXP)
	assert.Equal(t, 3, guild.Level)

	_, err = f.store.GivePunishment(ctx, a.ID, models.PunishmentInput{
		Type: models.PunishmentXPLoss, Reason: "Atraso", XPLoss: 100,
	}, teacher)
	require.NoError(t, err)
	guild, _ = f.store.Guild(g.ID)
	assert.Equal(t, 200, guild.TotalXP)
	assert.Equal(t, 2, guild.Level)

	require.NoError(t, f.store.RemoveStudent(ctx, a.ID))
	guild, _ = f.store.Guild(g.ID)
	assert.Equal(t, 0, guild.TotalXP)
	assert.Equal(t, []string{b.ID}, guild.Members)

	standings := f.store.GuildLeaderboard(c.ID)
	require.Len(t, standings, 1)
	assert.Equal(t, 1, standings[0].Members)
}

func TestCompleteMission(t *testing.T) {
	ctx := context.Background()

	t.Run("awards xp and records activity", func(t *testing.T) {
		f := newFixture(t)
		c := f.class(t, "7A")
		st := f.student(t, c.ID, "joao")
		m := f.mission(t, c.ID, 250, nil)

		got, err := f.store.CompleteMission(ctx, m.ID, st.ID)
		require.NoError(t, err)
		assert.Equal(t, 250, got.XPEarned)
		assert.Equal(t, 2, got.LevelsGained)
		assert.Equal(t, 3, got.Student.Level)
		assert.Equal(t, 0, got.Student.XP)
		assert.Equal(t, 225, got.Student.XPToNextLevel)
		assert.Equal(t, []string{m.ID}, got.Student.CompletedMissions)
		assert.Nil(t, got.ItemAwarded)

		feed := f.store.Activity(1)
		require.Len(t, feed, 1)
		assert.Equal(t, models.ActivityMissionCompleted, feed[0].Type)
	})

	t.Run("second completion is rejected", func(t *testing.T) {
		f := newFixture(t)
		c := f.class(t, "7A")
		st := f.student(t, c.ID, "joao")
		m := f.mission(t, c.ID, 50, nil)

		_, err := f.store.CompleteMission(ctx, m.ID, st.ID)
		require.NoError(t, err)
		_, err = f.store.CompleteMission(ctx, m.ID, st.ID)
		assert.ErrorIs(t, err, progression.ErrMissionAlreadyCompleted)

		s, _ := f.store.Student(st.ID)
		assert.Equal(t, 50, s.TotalXP)
	})

	t.Run("mission from another class", func(t *testing.T) {
		f := newFixture(t)
		a := f.class(t, "7A")
		b := f.class(t, "8B")
		st := f.student(t, a.ID, "joao")
		m := f.mission(t, b.ID, 50, nil)

		_, err := f.store.CompleteMission(ctx, m.ID, st.ID)
		assert.ErrorIs(t, err, ErrWrongClass)
	})

	t.Run("banned student", func(t *testing.T) {
		f := newFixture(t)
		c := f.class(t, "7A")
		st := f.student(t, c.ID, "joao")
		m := f.mission(t, c.ID, 50, nil)
		_, err := f.store.GivePunishment(ctx, st.ID, models.PunishmentInput{
			Type: models.PunishmentTemporaryBan, Reason: "Conduta", Duration: 60,
		}, teacher)
		require.NoError(t, err)

		_, err = f.store.CompleteMission(ctx, m.ID, st.ID)
		assert.ErrorIs(t, err, ErrStudentBanned)
	})

	t.Run("item reward drops below the chance", func(t *testing.T) {
		f := newFixture(t)
		c := f.class(t, "7A")
		st := f.student(t, c.ID, "joao")
		m := f.mission(t, c.ID, 50, &models.ItemReward{ItemID: "item-4", Quantity: 2, Chance: 0.5})

		f.roll = 0.2
		got, err := f.store.CompleteMission(ctx, m.ID, st.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ItemAwarded)
		assert.Equal(t, 2, got.ItemAwarded.Quantity)
		require.Len(t, got.Student.Inventory, 1)
		assert.Equal(t, "item-4", got.Student.Inventory[0].ItemID)

		feed := f.store.Activity(2)
		assert.Equal(t, models.ActivityItemRewarded, feed[0].Type)
		assert.Equal(t, models.ActivityMissionCompleted, feed[1].Type)
	})

	t.Run("item reward misses above the chance", func(t *testing.T) {
		f := newFixture(t)
		c := f.class(t, "7A")
		st := f.student(t, c.ID, "joao")
		m := f.mission(t, c.ID, 50, &models.ItemReward{ItemID: "item-4", Quantity: 1, Chance: 0.5})

		f.roll = 0.7
		got, err := f.store.CompleteMission(ctx, m.ID, st.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ItemAwarded)
		assert.Empty(t, got.Student.Inventory)
	})

	t.Run("unknown ids", func(t *testing.T) {
		f := newFixture(t)
		c := f.class(t, "7A")
		st := f.student(t, c.ID, "joao")
		_, err := f.store.CompleteMission(ctx, "mission-404", st.ID)
		assert.ErrorIs(t, err, ErrMissionNotFound)
		assert.True(t, IsNotFound(err))
	})
}

func TestCreateMissionValidatesReward(t *testing.T) {
	f := newFixture(t)
	c := f.class(t, "7A")
	_, err := f.store.CreateMission(context.Background(), models.CreateMissionInput{
		Title:      "Forças da Natureza",
		Type:       models.MissionSpecial,
		Subject:    models.SubjectPhysics,
		Difficulty: models.DifficultyHard,
		XPReward:   300,
		ClassID:    c.ID,
		ItemReward: &models.ItemReward{ItemID: "item-404", Quantity: 1},
	}, teacher)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestStudentItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, "7A")
	st := f.student(t, c.ID, "joao")

	_, err := f.store.GiveItem(ctx, st.ID, "item-5", 1, teacher)
	require.NoError(t, err)

	equipped, err := f.store.EquipItem(ctx, st.ID, "item-5")
	require.NoError(t, err)
	assert.Equal(t, "item-5", equipped.EquippedItems[models.SlotBody])

	views, stats, err := f.store.StudentInventory(st.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Equipped)
	assert.Equal(t, 8, stats.Constitution)

	unequipped, err := f.store.UnequipItem(ctx, st.ID, "item-5")
	require.NoError(t, err)
	assert.Empty(t, unequipped.EquippedItems)

	_, err = f.store.GiveItem(ctx, st.ID, "item-5", 0, teacher)
	assert.True(t, validation.IsValidationError(err))
	_, err = f.store.GiveItem(ctx, st.ID, "item-404", 1, teacher)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestEquipmentNoOpsSkipFlush(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, "7A")
	st := f.student(t, c.ID, "joao")
	_, err := f.store.GiveItem(ctx, st.ID, "item-4", 2, teacher)
	require.NoError(t, err)
	_, err = f.store.GiveItem(ctx, st.ID, "item-5", 1, teacher)
	require.NoError(t, err)

	steps := []struct {
		name      string
		unequip   bool
		itemID    string
		wantFlush bool
	}{
		{name: "equip consumable", itemID: "item-4", wantFlush: false},
		{name: "equip item not owned", itemID: "item-1", wantFlush: false},
		{name: "unequip item not equipped", unequip: true, itemID: "item-5", wantFlush: false},
		{name: "equip armor", itemID: "item-5", wantFlush: true},
		{name: "equip armor again", itemID: "item-5", wantFlush: false},
		{name: "unequip armor", unequip: true, itemID: "item-5", wantFlush: true},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			before := f.flushes
			if step.unequip {
				_, err = f.store.UnequipItem(ctx, st.ID, step.itemID)
			} else {
				_, err = f.store.EquipItem(ctx, st.ID, step.itemID)
			}
			require.NoError(t, err)
			if step.wantFlush {
				assert.Equal(t, before+1, f.flushes)
			} else {
				assert.Equal(t, before, f.flushes)
			}
		})
	}
}

func TestActivityMetadataCarriesClassID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, "7A")
	st := f.student(t, c.ID, "joao")
	m := f.mission(t, c.ID, 50, &models.ItemReward{ItemID: "item-4", Quantity: 1, Chance: 1})

	_, err := f.store.CompleteMission(ctx, m.ID, st.ID)
	require.NoError(t, err)
	_, err = f.store.GivePunishment(ctx, st.ID, models.PunishmentInput{
		Type:   models.PunishmentWarning,
		Reason: "Conversa durante a prova",
	}, teacher)
	require.NoError(t, err)
	_, err = f.store.GiveItem(ctx, st.ID, "item-5", 1, teacher)
	require.NoError(t, err)

	seen := map[models.ActivityType]bool{}
	for _, e := range f.events {
		seen[e.Type] = true
		assert.Equal(t, c.ID, e.Metadata["classId"], "%s entry", e.Type)
	}
	for _, want := range []models.ActivityType{
		models.ActivityMissionCompleted,
		models.ActivityItemRewarded,
		models.ActivityPunishmentGiven,
	} {
		assert.True(t, seen[want], "%s published", want)
	}
}

func TestUpdateStudentMovesClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.class(t, "7A")
	b := f.class(t, "8B")
	st := f.student(t, a.ID, "joao")
	g := f.guild(t, a.ID, "Guerreiros")
	require.NoError(t, f.store.AddStudentToGuild(ctx, g.ID, st.ID))

	_, err := f.store.UpdateStudent(ctx, st.ID, models.StudentPatch{})
	assert.True(t, validation.IsValidationError(err))

	updated, err := f.store.UpdateStudent(ctx, st.ID, models.StudentPatch{ClassID: &b.ID})
	require.NoError(t, err)
	assert.Equal(t, b.ID, updated.ClassID)
	assert.Empty(t, updated.GuildID)

	from, _ := f.store.Class(a.ID)
	to, _ := f.store.Class(b.ID)
	guild, _ := f.store.Guild(g.ID)
	assert.Empty(t, from.Students)
	assert.Equal(t, []string{st.ID}, to.Students)
	assert.Empty(t, guild.Members)
}

func TestResetStudentPassword(t *testing.T) {
	f := newFixture(t)
	c := f.class(t, "7A")
	st := f.student(t, c.ID, "joao")

	plain, err := f.store.ResetStudentPassword(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Len(t, plain, 8)

	s, _ := f.store.Student(st.ID)
	assert.Equal(t, "hashed:"+plain, s.PasswordHash)

	_, err = f.store.ResetStudentPassword(context.Background(), "student-404")
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestActivityFeed(t *testing.T) {
	f := newFixture(t)
	f.store.opts.ActivityLimit = 3
	c := f.class(t, "7A")
	for _, name := range []string{"a", "b", "c", "d"} {
		f.student(t, c.ID, name)
	}

	feed := f.store.Activity(0)
	require.Len(t, feed, 3)
	assert.Equal(t, "d entrou para a turma 7A", feed[0].Description)
	assert.Len(t, f.store.Activity(2), 2)
	assert.Len(t, f.events, 4, "every entry is published")
}

func TestFlushFailureKeepsMemory(t *testing.T) {
	boom := errors.New("disk full")
	s := New(Options{Flush: func(context.Context, models.Snapshot) error { return boom }})

	c, err := s.CreateClass(context.Background(), models.CreateClassInput{Name: "7A"}, teacher.ID)
	assert.ErrorIs(t, err, ErrFlush)
	assert.Contains(t, err.Error(), "disk full")

	kept, err := s.Class(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "7A", kept.Name)
}

func TestOverlappingFlushesKeepNewestState(t *testing.T) {
	ctx := context.Background()
	adapter := storage.NewMemory()
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	s := New(Options{Flush: func(ctx context.Context, snap models.Snapshot) error {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return storage.SaveSnapshot(ctx, adapter, snap)
	}})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	create := func(name string) {
		defer wg.Done()
		_, err := s.CreateClass(ctx, models.CreateClassInput{Name: name}, teacher.ID)
		errs <- err
	}

	wg.Add(1)
	go create("7A")
	<-entered

	wg.Add(1)
	go create("7B")
	require.Eventually(t, func() bool { return len(s.Classes("")) == 2 }, time.Second, time.Millisecond)

	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := storage.LoadSnapshot(ctx, adapter)
	require.NoError(t, err)
	assert.Len(t, stored.Classes, 2)
}

func TestWriteOrderedSkipsStaleSnapshots(t *testing.T) {
	s := New(Options{})
	var written []uint64
	write := func(gen uint64) func() error {
		return func() error {
			written = append(written, gen)
			return nil
		}
	}

	require.NoError(t, s.writeOrdered(2, write(2)))
	require.NoError(t, s.writeOrdered(1, write(1)))
	require.NoError(t, s.writeOrdered(3, write(3)))
	assert.Equal(t, []uint64{2, 3}, written)

	failed := errors.New("disk full")
	assert.ErrorIs(t, s.writeOrdered(4, func() error { return failed }), failed)
	require.NoError(t, s.writeOrdered(4, write(4)), "a failed generation can be retried")
	assert.Equal(t, []uint64{2, 3, 4}, written)
}

func TestSnapshotRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded, err := f.store.SeedDemo(ctx, teacher.ID)
	require.NoError(t, err)
	require.True(t, seeded)

	adapter := storage.NewMemory()
	require.NoError(t, f.store.Save(ctx, adapter))

	loaded := New(Options{})
	require.NoError(t, loaded.Load(ctx, adapter))

	want := f.store.Snapshot()
	got := loaded.Snapshot()
	assert.Equal(t, len(want.Students), len(got.Students))
	for i := range want.Students {
		assert.Equal(t, want.Students[i].ID, got.Students[i].ID)
		assert.Equal(t, want.Students[i].TotalXP, got.Students[i].TotalXP)
		assert.Equal(t, want.Students[i].GuildID, got.Students[i].GuildID)
	}
	assert.Equal(t, want.Classes, got.Classes)
	assert.Equal(t, want.Guilds, got.Guilds)
	require.Len(t, got.Missions, len(want.Missions))
	for i := range want.Missions {
		assert.Equal(t, want.Missions[i].ID, got.Missions[i].ID)
		assert.Equal(t, want.Missions[i].XPReward, got.Missions[i].XPReward)
	}
	assert.Len(t, got.Items, len(want.Items))
}

func TestRestoreUsesFlushHook(t *testing.T) {
	adapter := storage.NewMemory()
	s := New(Options{Flush: Flusher(adapter)})
	ctx := context.Background()

	require.NoError(t, s.Restore(ctx, models.Snapshot{
		Classes: []models.Class{{ID: "class-1", Name: "7A"}},
	}))

	c, err := s.Class("class-1")
	require.NoError(t, err)
	assert.NotNil(t, c.Students)
	assert.NotEmpty(t, s.Items(), "empty item list falls back to the catalog")

	snap, err := storage.LoadSnapshot(ctx, adapter)
	require.NoError(t, err)
	require.Len(t, snap.Classes, 1)
	assert.Equal(t, "7A", snap.Classes[0].Name)
}

func TestSeedDemoOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeded, err := f.store.SeedDemo(ctx, teacher.ID)
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Len(t, f.store.Classes(""), 2)
	assert.Len(t, f.store.Students(""), 5)
	assert.Len(t, f.store.Missions(""), 4)

	for _, st := range f.store.Students("") {
		assert.Less(t, st.XP, st.XPToNextLevel, st.Name)
	}
	for _, g := range f.store.Guilds("") {
		assert.Len(t, g.Members, 2)
		assert.NotEmpty(t, g.LeaderID)
		assert.Positive(t, g.TotalXP)
	}

	seeded, err = f.store.SeedDemo(ctx, teacher.ID)
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Len(t, f.store.Classes(""), 2)
}

func TestDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.store.Dispatch(ctx, Command{
		Kind:    CmdCreateClass,
		Actor:   teacher,
		Payload: models.CreateClassInput{Name: "7A"},
	})
	require.NoError(t, err)
	class, ok := out.(models.Class)
	require.True(t, ok)

	out, err = f.store.Dispatch(ctx, Command{
		Kind:    CmdAddStudent,
		Payload: &models.AddStudentInput{Name: "João", Email: "joao@escola.edu.br", ClassID: class.ID},
	})
	require.NoError(t, err)
	st := out.(models.Student)

	_, err = f.store.Dispatch(ctx, Command{Kind: CmdGiveItem, StudentID: st.ID, ItemID: "item-4", Actor: teacher})
	require.NoError(t, err)
	s, _ := f.store.Student(st.ID)
	require.Len(t, s.Inventory, 1)
	assert.Equal(t, 1, s.Inventory[0].Quantity)

	_, err = f.store.Dispatch(ctx, Command{Kind: CmdCreateGuild, Payload: models.CreateClassInput{Name: "x"}})
	assert.ErrorIs(t, err, ErrBadPayload)

	_, err = f.store.Dispatch(ctx, Command{Kind: "launch_rocket"})
	assert.ErrorIs(t, err, ErrUnknownCommand)

	out, err = f.store.Dispatch(ctx, Command{Kind: CmdDeleteClass, ClassID: class.ID})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Empty(t, f.store.Classes(""))
}
