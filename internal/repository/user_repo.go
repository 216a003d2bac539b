package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"naturequest/internal/database"
	"naturequest/internal/models"
)

// ErrNoFields is returned by Update when the patch sets nothing
var ErrNoFields = errors.New("no fields to update")

const userColumns = `id, email, name, role, COALESCE(class_id, ''), COALESCE(guild_id, ''),
	level, xp, xp_to_next_level, total_xp,
	strength, intelligence, wisdom, dexterity, constitution, charisma,
	is_active, created_at, last_login`

// UserRepository handles database operations for users
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *UserRepository) WithTx(tx *database.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.ClassID,
		&user.GuildID,
		&user.Level,
		&user.XP,
		&user.XPToNextLevel,
		&user.TotalXP,
		&user.Stats.Strength,
		&user.Stats.Intelligence,
		&user.Stats.Wisdom,
		&user.Stats.Dexterity,
		&user.Stats.Constitution,
		&user.Stats.Charisma,
		&user.IsActive,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List returns active users ordered by name. Empty filters match everything.
func (r *UserRepository) List(ctx context.Context, role models.Role, classID string) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE is_active = " + r.db.GetDialect().BoolValue(true)
	var args []any
	if role != "" {
		query += " AND role = ?"
		args = append(args, role)
	}
	if classID != "" {
		query += " AND class_id = ?"
		args = append(args, classID)
	}
	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// GetByID retrieves an active user. Inactive and missing users return nil.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ? AND is_active = " + r.db.GetDialect().BoolValue(true)
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Exists reports whether a row with id exists, active or not
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return count > 0, nil
}

// Create inserts a user with the starting progression values
func (r *UserRepository) Create(ctx context.Context, in models.UpsertUser, now time.Time) error {
	query := `
		INSERT INTO users (id, email, name, role, class_id, is_active, created_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	var classID any
	if in.ClassID != "" {
		classID = in.ClassID
	}
	_, err := r.db.ExecContext(ctx, query, in.ID, in.Email, in.Name, in.Role, classID, true, now, now)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateLogin refreshes the identity fields on a repeat login and reactivates the row
func (r *UserRepository) UpdateLogin(ctx context.Context, id, name, email string, now time.Time) error {
	query := `
		UPDATE users
		SET name = ?, email = ?, last_login = ?, is_active = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query, name, email, now, true, id)
	if err != nil {
		return fmt.Errorf("failed to update login: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of patch to an active user.
// It reports false when no active row matched.
func (r *UserRepository) Update(ctx context.Context, id string, patch models.UserPatch) (bool, error) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.ClassID != nil {
		set("class_id", nullable(*patch.ClassID))
	}
	if patch.GuildID != nil {
		set("guild_id", nullable(*patch.GuildID))
	}
	if patch.Level != nil {
		set("level", *patch.Level)
	}
	if patch.XP != nil {
		set("xp", *patch.XP)
	}
	if s := patch.Stats; s != nil {
		if s.Strength != nil {
			set("strength", *s.Strength)
		}
		if s.Intelligence != nil {
			set("intelligence", *s.Intelligence)
		}
		if s.Wisdom != nil {
			set("wisdom", *s.Wisdom)
		}
		if s.Dexterity != nil {
			set("dexterity", *s.Dexterity)
		}
		if s.Constitution != nil {
			set("constitution", *s.Constitution)
		}
		if s.Charisma != nil {
			set("charisma", *s.Charisma)
		}
	}

	if len(sets) == 0 {
		return false, ErrNoFields
	}

	query := "UPDATE users SET " + strings.Join(sets, ", ") +
		" WHERE id = ? AND is_active = " + r.db.GetDialect().BoolValue(true)
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update user: %w", err)
	}
	return affected(result)
}

// SoftDelete marks the user inactive. It reports false when no active row matched.
func (r *UserRepository) SoftDelete(ctx context.Context, id string) (bool, error) {
	dialect := r.db.GetDialect()
	query := "UPDATE users SET is_active = " + dialect.BoolValue(false) +
		" WHERE id = ? AND is_active = " + dialect.BoolValue(true)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return affected(result)
}

// SaveProgress writes the progression columns computed by the XP service
func (r *UserRepository) SaveProgress(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET level = ?, xp = ?, xp_to_next_level = ?, total_xp = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query, user.Level, user.XP, user.XPToNextLevel, user.TotalXP, user.ID)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Inventory returns the user's entries joined with their item definitions
func (r *UserRepository) Inventory(ctx context.Context, userID string) ([]models.InventoryView, error) {
	query := `
		SELECT inv.item_id, inv.quantity, inv.equipped, inv.acquired_at, ` + itemColumns("it") + `
		FROM inventory inv
		JOIN items it ON it.id = inv.item_id
		WHERE inv.user_id = ?
		ORDER BY inv.acquired_at, inv.item_id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	views := []models.InventoryView{}
	for rows.Next() {
		var view models.InventoryView
		dest := []any{&view.ItemID, &view.Quantity, &view.Equipped, &view.AcquiredAt}
		var stats, effects string
		dest = append(dest, itemDest(&view.Item, &stats, &effects)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		if err := decodeItemJSON(&view.Item, stats, effects); err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inventory: %w", err)
	}

	return views, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func affected(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return rows > 0, nil
}
