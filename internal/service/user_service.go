package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"naturequest/internal/catalog"
	"naturequest/internal/database"
	"naturequest/internal/models"
	"naturequest/internal/progression"
	"naturequest/internal/repository"
	"naturequest/internal/validation"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrItemNotFound = errors.New("item not found")
)

// UserService backs the relational Users API
type UserService struct {
	db    *database.DB
	users *repository.UserRepository
	items *repository.ItemRepository
	now   func() time.Time
}

// NewUserService creates a new user service
func NewUserService(db *database.DB) *UserService {
	return &UserService{
		db:    db,
		users: repository.NewUserRepository(db),
		items: repository.NewItemRepository(db),
		now:   time.Now,
	}
}

// SeedItems copies the catalog items into the items table
func (s *UserService) SeedItems(ctx context.Context) error {
	added, err := s.items.SeedCatalog(ctx, catalog.Items())
	if err != nil {
		return fmt.Errorf("failed to seed items: %w", err)
	}
	if added > 0 {
		log.Printf("Seeded %d catalog items", added)
	}
	return nil
}

func (s *UserService) List(ctx context.Context, role models.Role, classID string) ([]models.User, error) {
	if role != "" && !role.Valid() {
		return nil, validation.Invalid("role", "role must be one of student teacher admin")
	}
	return s.users.List(ctx, role, classID)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Upsert creates the user, or refreshes name, email and last login when the
// id is already known. created reports which of the two happened.
func (s *UserService) Upsert(ctx context.Context, in models.UpsertUser) (user *models.User, created bool, err error) {
	if err := validation.Struct(in); err != nil {
		return nil, false, err
	}

	exists, err := s.users.Exists(ctx, in.ID)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	if exists {
		err = s.users.UpdateLogin(ctx, in.ID, in.Name, in.Email, now)
	} else {
		err = s.users.Create(ctx, in, now)
	}
	if err != nil {
		return nil, false, err
	}

	user, err = s.Get(ctx, in.ID)
	return user, !exists, err
}

// Update applies a partial update and returns the refreshed user
func (s *UserService) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	ok, err := s.users.Update(ctx, id, patch)
	if errors.Is(err, repository.ErrNoFields) {
		return nil, validation.Invalid("body", "no fields to update")
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.Get(ctx, id)
}

// Delete deactivates the user
func (s *UserService) Delete(ctx context.Context, id string) error {
	ok, err := s.users.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserService) Inventory(ctx context.Context, id string) ([]models.InventoryView, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.users.Inventory(ctx, id)
}

// GrantItem adds quantity of itemID to the user's inventory
func (s *UserService) GrantItem(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity < 1 {
		return validation.Invalid("quantity", "quantity must be at least 1")
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
	}
	return s.items.Grant(ctx, userID, itemID, quantity, s.now())
}

// AddXP runs the level loop on the stored progression inside one transaction
func (s *UserService) AddXP(ctx context.Context, id string, amount int) (*models.User, int, error) {
	if amount <= 0 {
		return nil, 0, validation.Invalid("xpAmount", "xpAmount must be positive")
	}
	if amount > progression.MaxXPAmount {
		return nil, 0, validation.Invalid("xpAmount", fmt.Sprintf("xpAmount must be at most %d", progression.MaxXPAmount))
	}

	var gained int
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		users := s.users.WithTx(tx)
		user, err := users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		outcome, err := progression.AddXP(models.Student{
			ID:            user.ID,
			Level:         user.Level,
			XP:            user.XP,
			XPToNextLevel: user.XPToNextLevel,
			TotalXP:       user.TotalXP,
		}, amount)
		if err != nil {
			return err
		}
		user.Level = outcome.Student.Level
		user.XP = outcome.Student.XP
		user.XPToNextLevel = outcome.Student.XPToNextLevel
		user.TotalXP = outcome.Student.TotalXP
		gained = outcome.LevelsGained

		return users.SaveProgress(ctx, user)
	})
	if err != nil {
		return nil, 0, err
	}

	user, err := s.Get(ctx, id)
	return user, gained, err
}
