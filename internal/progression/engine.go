// Package progression computes XP and level transitions for students.
// Every function takes a student by value and returns an updated copy.
package progression

import (
	"errors"
	"math"
	"time"

	"naturequest/internal/models"
)

var (
	ErrMissionAlreadyCompleted = errors.New("mission already completed")
	ErrInvalidXPAmount         = errors.New("xp amount must be positive")
	ErrXPAmountTooLarge        = errors.New("xp amount exceeds the maximum award")
)

const (
	// DefaultThreshold is the XP needed to leave level 1
	DefaultThreshold = 100
	// MaxXPAmount caps a single award
	MaxXPAmount = 1_000_000
)

// Outcome is the result of awarding XP
type Outcome struct {
	Student      models.Student
	LevelsGained int
}

// ApplyMissionCompletion awards the mission's XP and records it as completed.
// A mission already present in CompletedMissions is rejected with
// ErrMissionAlreadyCompleted and the student is returned unchanged.
func ApplyMissionCompletion(student models.Student, mission models.Mission) (Outcome, error) {
	if student.HasCompleted(mission.ID) {
		return Outcome{Student: student}, ErrMissionAlreadyCompleted
	}
	if err := checkAmount(mission.XPReward); err != nil {
		return Outcome{Student: student}, err
	}

	out := student.Clone()
	gained := award(&out, mission.XPReward)
	out.CompletedMissions = append(out.CompletedMissions, mission.ID)

	return Outcome{Student: out, LevelsGained: gained}, nil
}

// AddXP awards amount outside of any mission
func AddXP(student models.Student, amount int) (Outcome, error) {
	if err := checkAmount(amount); err != nil {
		return Outcome{Student: student}, err
	}

	out := student.Clone()
	gained := award(&out, amount)
	return Outcome{Student: out, LevelsGained: gained}, nil
}

func checkAmount(amount int) error {
	switch {
	case amount <= 0:
		return ErrInvalidXPAmount
	case amount > MaxXPAmount:
		return ErrXPAmountTooLarge
	}
	return nil
}

// award adds amount to the student and consumes every threshold it crosses
func award(s *models.Student, amount int) int {
	s.TotalXP = addSaturating(s.TotalXP, amount)
	level, xp, threshold, gained := LevelUp(s.Level, addSaturating(s.XP, amount), s.XPToNextLevel)
	s.Level = level
	s.XP = xp
	s.XPToNextLevel = threshold
	return gained
}

// LevelUp loops until xp is below the threshold. Each crossing adds a level,
// subtracts the crossed threshold and grows the next one by half, rounded down.
func LevelUp(level, xp, threshold int) (newLevel, newXP, newThreshold, gained int) {
	if level < 1 {
		level = 1
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	for xp >= threshold {
		xp -= threshold
		level++
		gained++
		threshold = grow(threshold)
	}

	return level, xp, threshold, gained
}

// grow returns threshold*3/2, pinned at math.MaxInt instead of wrapping
func grow(threshold int) int {
	if threshold > math.MaxInt/3 {
		return math.MaxInt
	}
	return threshold * 3 / 2
}

// addSaturating adds two non-negative values, stopping at math.MaxInt
func addSaturating(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// ApplyPunishment deducts XP and removes items as the record specifies, then
// appends the record. Levels are never reduced.
func ApplyPunishment(student models.Student, p models.Punishment) models.Student {
	out := student.Clone()

	if p.XPLoss > 0 {
		out.XP = max(0, out.XP-p.XPLoss)
		out.TotalXP = max(0, out.TotalXP-p.XPLoss)
	}

	if len(p.ItemLoss) > 0 {
		lost := make(map[string]bool, len(p.ItemLoss))
		for _, id := range p.ItemLoss {
			lost[id] = true
		}

		kept := make([]models.InventoryEntry, 0, len(out.Inventory))
		for _, entry := range out.Inventory {
			if !lost[entry.ItemID] {
				kept = append(kept, entry)
			}
		}
		out.Inventory = kept

		for slot, itemID := range out.EquippedItems {
			if lost[itemID] {
				delete(out.EquippedItems, slot)
			}
		}
	}

	if p.Type == models.PunishmentTemporaryBan && p.Duration > 0 && p.ExpiresAt == nil {
		expires := p.GivenAt.Add(time.Duration(p.Duration) * time.Minute)
		p.ExpiresAt = &expires
	}

	out.Punishments = append(out.Punishments, p)
	return out
}

// ActiveBan returns the temporary ban in force at now, if any
func ActiveBan(student models.Student, now time.Time) (models.Punishment, bool) {
	for _, p := range student.Punishments {
		if p.Type != models.PunishmentTemporaryBan || p.ExpiresAt == nil {
			continue
		}
		if now.Before(*p.ExpiresAt) {
			return p, true
		}
	}
	return models.Punishment{}, false
}
