package models

import "time"

// Role is the application role mapped from the identity provider
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User is a row of the relational users table behind the Users API
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          Role      `json:"role"`
	ClassID       string    `json:"classId,omitempty"`
	GuildID       string    `json:"guildId,omitempty"`
	Level         int       `json:"level"`
	XP            int       `json:"xp"`
	XPToNextLevel int       `json:"xpToNextLevel"`
	TotalXP       int       `json:"totalXp"`
	Stats         Stats     `json:"stats"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	LastLogin     time.Time `json:"lastLogin"`
}

// StatsPatch is a partial attribute update
type StatsPatch struct {
	Strength     *int `json:"strength,omitempty" validate:"omitempty,min=0"`
	Intelligence *int `json:"intelligence,omitempty" validate:"omitempty,min=0"`
	Wisdom       *int `json:"wisdom,omitempty" validate:"omitempty,min=0"`
	Dexterity    *int `json:"dexterity,omitempty" validate:"omitempty,min=0"`
	Constitution *int `json:"constitution,omitempty" validate:"omitempty,min=0"`
	Charisma     *int `json:"charisma,omitempty" validate:"omitempty,min=0"`
}

// UserPatch is the body of PUT /api/users/{id}
type UserPatch struct {
	Name    *string     `json:"name,omitempty" validate:"omitempty,notblank"`
	ClassID *string     `json:"classId,omitempty"`
	GuildID *string     `json:"guildId,omitempty"`
	Level   *int        `json:"level,omitempty" validate:"omitempty,min=1"`
	XP      *int        `json:"xp,omitempty" validate:"omitempty,min=0"`
	Stats   *StatsPatch `json:"stats,omitempty"`
}

// UpsertUser is the body of POST /api/users
type UpsertUser struct {
	ID      string `json:"id" validate:"notblank"`
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name" validate:"notblank"`
	Role    Role   `json:"role" validate:"required,oneof=student teacher admin"`
	ClassID string `json:"classId,omitempty"`
}

// Principal is the authenticated caller extracted from a session token
type Principal struct {
	Subject string   `json:"sub"`
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Role    Role     `json:"role"`
	Groups  []string `json:"groups,omitempty"`
}

// IsStaff reports whether the principal may manage classes
func (p *Principal) IsStaff() bool {
	return p != nil && (p.Role == RoleTeacher || p.Role == RoleAdmin)
}
