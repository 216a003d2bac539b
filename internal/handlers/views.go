package handlers

import (
	"log"
	"time"

	"github.com/jinzhu/copier"
	"github.com/samber/lo"

	"naturequest/internal/models"
	"naturequest/internal/roster"
)

// StudentView is a student as returned by the API, without the password hash
type StudentView struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	Email             string                  `json:"email"`
	Avatar            string                  `json:"avatar,omitempty"`
	ClassID           string                  `json:"classId"`
	GuildID           string                  `json:"guildId,omitempty"`
	Level             int                     `json:"level"`
	XP                int                     `json:"xp"`
	XPToNextLevel     int                     `json:"xpToNextLevel"`
	TotalXP           int                     `json:"totalXp"`
	Stats             models.Stats            `json:"stats"`
	Inventory         []models.InventoryEntry `json:"inventory"`
	EquippedItems     map[models.Slot]string  `json:"equippedItems"`
	Achievements      []string                `json:"achievements"`
	CompletedMissions []string                `json:"completedMissions"`
	Punishments       []models.Punishment     `json:"punishments"`
	CreatedAt         time.Time               `json:"createdAt"`
	LastLogin         time.Time               `json:"lastLogin"`
}

// CompletionView is a mission completion with the student view
type CompletionView struct {
	Student      StudentView        `json:"student"`
	XPEarned     int                `json:"xpEarned"`
	LevelsGained int                `json:"levelsGained"`
	ItemAwarded  *models.ItemReward `json:"itemAwarded,omitempty"`
}

// StudentInventoryView is the inventory of a roster student with its stat totals
type StudentInventoryView struct {
	Items []models.InventoryView `json:"items"`
	Stats models.Stats           `json:"stats"`
}

func newStudentView(s models.Student) StudentView {
	var view StudentView
	if err := copier.CopyWithOption(&view, &s, copier.Option{DeepCopy: true}); err != nil {
		log.Printf("Error building view for student %s: %v", s.ID, err)
	}
	return view
}

func newStudentViews(students []models.Student) []StudentView {
	return lo.Map(students, func(s models.Student, _ int) StudentView {
		return newStudentView(s)
	})
}

// present converts roster results that carry a student into their views
func present(result any) any {
	switch v := result.(type) {
	case models.Student:
		return newStudentView(v)
	case roster.Completion:
		return CompletionView{
			Student:      newStudentView(v.Student),
			XPEarned:     v.XPEarned,
			LevelsGained: v.LevelsGained,
			ItemAwarded:  v.ItemAwarded,
		}
	}
	return result
}
