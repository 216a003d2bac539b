package models

import (
	"maps"
	"slices"
	"time"
)

// Stats is the six-attribute block shared by students and item bonuses
type Stats struct {
	Strength     int `json:"strength"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Charisma     int `json:"charisma"`
}

// BaselineStats returns the attribute block given to every new student
func BaselineStats() Stats {
	return Stats{
		Strength:     5,
		Intelligence: 5,
		Wisdom:       5,
		Dexterity:    5,
		Constitution: 5,
		Charisma:     5,
	}
}

// InventoryEntry is one stack of an item owned by a student
type InventoryEntry struct {
	ItemID     string    `json:"itemId"`
	Quantity   int       `json:"quantity"`
	AcquiredAt time.Time `json:"acquiredAt"`
	Equipped   bool      `json:"equipped"`
}

// Student is a player in a class
type Student struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Email             string           `json:"email"`
	Avatar            string           `json:"avatar,omitempty"`
	ClassID           string           `json:"classId"`
	GuildID           string           `json:"guildId,omitempty"`
	Level             int              `json:"level"`
	XP                int              `json:"xp"`
	XPToNextLevel     int              `json:"xpToNextLevel"`
	TotalXP           int              `json:"totalXp"`
	Stats             Stats            `json:"stats"`
	Inventory         []InventoryEntry `json:"inventory"`
	EquippedItems     map[Slot]string  `json:"equippedItems"`
	Achievements      []string         `json:"achievements"`
	CompletedMissions []string         `json:"completedMissions"`
	Punishments       []Punishment     `json:"punishments"`
	PasswordHash      string           `json:"passwordHash,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	LastLogin         time.Time        `json:"lastLogin"`
}

// NewStudent builds a student with the starting progression values
func NewStudent(id, name, email, classID string, now time.Time) Student {
	return Student{
		ID:                id,
		Name:              name,
		Email:             email,
		ClassID:           classID,
		Level:             1,
		XP:                0,
		XPToNextLevel:     100,
		TotalXP:           0,
		Stats:             BaselineStats(),
		Inventory:         []InventoryEntry{},
		EquippedItems:     map[Slot]string{},
		Achievements:      []string{},
		CompletedMissions: []string{},
		Punishments:       []Punishment{},
		CreatedAt:         now,
		LastLogin:         now,
	}
}

// HasCompleted reports whether the mission is already recorded for the student
func (s *Student) HasCompleted(missionID string) bool {
	for _, id := range s.CompletedMissions {
		if id == missionID {
			return true
		}
	}
	return false
}

// FindItem returns the index of the inventory entry holding itemID, or -1
func (s *Student) FindItem(itemID string) int {
	for i, entry := range s.Inventory {
		if entry.ItemID == itemID {
			return i
		}
	}
	return -1
}

// StudentPatch lists the student fields a teacher may edit. Nil means unchanged.
type StudentPatch struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,notblank,max=100"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Avatar  *string `json:"avatar,omitempty"`
	ClassID *string `json:"classId,omitempty" validate:"omitempty,notblank"`
	Stats   *Stats  `json:"stats,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p StudentPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Avatar == nil && p.ClassID == nil && p.Stats == nil
}

// Clone returns a copy that shares no slices or maps with s
func (s Student) Clone() Student {
	out := s
	out.Inventory = slices.Clone(s.Inventory)
	out.EquippedItems = maps.Clone(s.EquippedItems)
	out.Achievements = slices.Clone(s.Achievements)
	out.CompletedMissions = slices.Clone(s.CompletedMissions)
	out.Punishments = slices.Clone(s.Punishments)
	if out.EquippedItems == nil {
		out.EquippedItems = map[Slot]string{}
	}
	return out
}
