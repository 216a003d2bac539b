package service

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naturequest/internal/database"
	"naturequest/internal/models"
	"naturequest/internal/progression"
	"naturequest/internal/validation"
)

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "naturequest_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), "../../migrations"))

	s := NewUserService(db)
	s.now = func() time.Time { return authNow }
	require.NoError(t, s.SeedItems(context.Background()))
	return s
}

var ana = models.UpsertUser{ID: "oid-ana", Email: "ana@escola.edu.br", Name: "Ana", Role: models.RoleStudent, ClassID: "class-1"}

func TestUpsertCreatesThenRefreshes(t *testing.T) {
	s := newTestUserService(t)
	ctx := context.Background()

	user, created, err := s.Upsert(ctx, ana)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "class-1", user.ClassID)
	assert.Equal(t, 1, user.Level)

	again := ana
	again.Name = "Ana Souza"
	user, created, err = s.Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Ana Souza", user.Name)

	_, _, err = s.Upsert(ctx, models.UpsertUser{ID: "x", Email: "not-an-email", Name: "X", Role: models.RoleStudent})
	assert.True(t, validation.IsValidationError(err))
}

func TestUserUpdateAndDelete(t *testing.T) {
	s := newTestUserService(t)
	ctx := context.Background()
	_, _, err := s.Upsert(ctx, ana)
	require.NoError(t, err)

	_, err = s.Update(ctx, ana.ID, models.UserPatch{})
	assert.True(t, validation.IsValidationError(err), "empty patch is rejected")

	name := "Ana Souza"
	user, err := s.Update(ctx, ana.ID, models.UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, user.Name)

	_, err = s.Update(ctx, "missing", models.UserPatch{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, s.Delete(ctx, ana.ID))
	_, err = s.Get(ctx, ana.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, s.Delete(ctx, ana.ID), ErrUserNotFound)
}

func TestUserList(t *testing.T) {
	s := newTestUserService(t)
	ctx := context.Background()
	_, _, err := s.Upsert(ctx, ana)
	require.NoError(t, err)

	users, err := s.List(ctx, models.RoleStudent, "")
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = s.List(ctx, "janitor", "")
	assert.True(t, validation.IsValidationError(err))
}

func TestAddXP(t *testing.T) {
	s := newTestUserService(t)
	ctx := context.Background()
	_, _, err := s.Upsert(ctx, ana)
	require.NoError(t, err)

	user, gained, err := s.AddXP(ctx, ana.ID, 250)
	require.NoError(t, err)
	assert.Equal(t, 2, gained)
	assert.Equal(t, 3, user.Level)
	assert.Equal(t, 0, user.XP)
	assert.Equal(t, 225, user.XPToNextLevel)
	assert.Equal(t, 250, user.TotalXP)

	_, _, err = s.AddXP(ctx, ana.ID, 0)
	assert.True(t, validation.IsValidationError(err))

	_, _, err = s.AddXP(ctx, ana.ID, math.MaxInt)
	assert.True(t, validation.IsValidationError(err))

	user, _, err = s.AddXP(ctx, ana.ID, progression.MaxXPAmount)
	require.NoError(t, err)
	assert.Equal(t, 250+progression.MaxXPAmount, user.TotalXP)
	assert.GreaterOrEqual(t, user.XP, 0)

	_, _, err = s.AddXP(ctx, "missing", 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGrantItem(t *testing.T) {
	s := newTestUserService(t)
	ctx := context.Background()
	_, _, err := s.Upsert(ctx, ana)
	require.NoError(t, err)

	require.NoError(t, s.GrantItem(ctx, ana.ID, "item-4", 2))
	require.NoError(t, s.GrantItem(ctx, ana.ID, "item-4", 1))

	inv, err := s.Inventory(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, 3, inv[0].Quantity)

	assert.ErrorIs(t, s.GrantItem(ctx, ana.ID, "item-404", 1), ErrItemNotFound)
	assert.ErrorIs(t, s.GrantItem(ctx, "missing", "item-4", 1), ErrUserNotFound)
	assert.True(t, validation.IsValidationError(s.GrantItem(ctx, ana.ID, "item-4", 0)))

	_, err = s.Inventory(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
