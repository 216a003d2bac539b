package roster

import (
	"context"
	"fmt"
	"slices"

	"naturequest/internal/inventory"
	"naturequest/internal/models"
	"naturequest/internal/progression"
	"naturequest/internal/validation"
)

// Completion describes what a student earned for finishing a mission
type Completion struct {
	Student      models.Student     `json:"student"`
	XPEarned     int                `json:"xpEarned"`
	LevelsGained int                `json:"levelsGained"`
	ItemAwarded  *models.ItemReward `json:"itemAwarded,omitempty"`
}

func (s *Store) CreateMission(ctx context.Context, in models.CreateMissionInput, actor Actor) (models.Mission, error) {
	if err := validation.Struct(in); err != nil {
		return models.Mission{}, err
	}

	var created models.Mission
	err := s.mutate(ctx, func() (bool, error) {
		if s.classIndex(in.ClassID) < 0 {
			return false, ErrClassNotFound
		}
		if in.ItemReward != nil && s.itemIndex(in.ItemReward.ItemID) < 0 {
			return false, ErrItemNotFound
		}

		created = cloneMission(models.Mission{
			ID:           s.opts.NewID("mission"),
			Title:        in.Title,
			Description:  in.Description,
			Type:         in.Type,
			Subject:      in.Subject,
			Difficulty:   in.Difficulty,
			XPReward:     in.XPReward,
			ItemReward:   in.ItemReward,
			Deadline:     in.Deadline,
			CreatedBy:    actor.ID,
			ClassID:      in.ClassID,
			CreatedAt:    s.opts.Now(),
			Requirements: in.Requirements,
		})
		s.missions = append(s.missions, created)
		s.recordLocked(models.ActivityMissionCreated,
			fmt.Sprintf("Nova missão \"%s\" criada", in.Title), actor,
			map[string]any{"missionId": created.ID, "classId": in.ClassID})
		return true, nil
	})
	return cloneMission(created), err
}

func (s *Store) UpdateMission(ctx context.Context, id string, patch models.MissionPatch) (models.Mission, error) {
	if patch.IsEmpty() {
		return models.Mission{}, errEmptyPatch
	}
	if err := validation.Struct(patch); err != nil {
		return models.Mission{}, err
	}

	var updated models.Mission
	err := s.mutate(ctx, func() (bool, error) {
		i := s.missionIndex(id)
		if i < 0 {
			return false, ErrMissionNotFound
		}
		m := &s.missions[i]
		if patch.Title != nil {
			m.Title = *patch.Title
		}
		if patch.Description != nil {
			m.Description = *patch.Description
		}
		if patch.Type != nil {
			m.Type = *patch.Type
		}
		if patch.Subject != nil {
			m.Subject = *patch.Subject
		}
		if patch.Difficulty != nil {
			m.Difficulty = *patch.Difficulty
		}
		if patch.XPReward != nil {
			m.XPReward = *patch.XPReward
		}
		if patch.Deadline != nil {
			deadline := *patch.Deadline
			m.Deadline = &deadline
		}
		updated = cloneMission(*m)
		return true, nil
	})
	return updated, err
}

// DeleteMission removes the mission. Students keep it in CompletedMissions.
func (s *Store) DeleteMission(ctx context.Context, id string) error {
	return s.mutate(ctx, func() (bool, error) {
		i := s.missionIndex(id)
		if i < 0 {
			return false, nil
		}
		s.missions = slices.Delete(s.missions, i, i+1)
		return true, nil
	})
}

// CompleteMission awards the mission to the student: XP and levels through
// the progression engine, then the optional item reward, then guild totals.
func (s *Store) CompleteMission(ctx context.Context, missionID, studentID string) (Completion, error) {
	var result Completion
	err := s.mutate(ctx, func() (bool, error) {
		mi := s.missionIndex(missionID)
		if mi < 0 {
			return false, ErrMissionNotFound
		}
		si := s.studentIndex(studentID)
		if si < 0 {
			return false, ErrStudentNotFound
		}
		mission := s.missions[mi]
		student := s.students[si]

		if mission.ClassID != student.ClassID {
			return false, ErrWrongClass
		}
		if _, banned := progression.ActiveBan(student, s.opts.Now()); banned {
			return false, ErrStudentBanned
		}

		outcome, err := progression.ApplyMissionCompletion(student, mission)
		if err != nil {
			return false, err
		}
		updated := outcome.Student

		var awarded *models.ItemReward
		if reward := mission.ItemReward; reward != nil && s.rollReward(reward.Chance) {
			if ii := s.itemIndex(reward.ItemID); ii >= 0 {
				qty := max(reward.Quantity, 1)
				withItem, err := inventory.GiveItem(updated, s.items[ii], qty, s.opts.Now())
				if err == nil {
					updated = withItem
					awarded = &models.ItemReward{ItemID: reward.ItemID, Quantity: qty, Chance: reward.Chance}
				}
			}
		}

		s.students[si] = updated
		s.recomputeGuildLocked(updated.GuildID)

		actor := Actor{ID: updated.ID, Name: updated.Name}
		s.recordLocked(models.ActivityMissionCompleted,
			fmt.Sprintf("%s completou \"%s\"", updated.Name, mission.Title), actor,
			map[string]any{"missionId": mission.ID, "classId": mission.ClassID, "xpEarned": mission.XPReward, "levelsGained": outcome.LevelsGained})
		if awarded != nil {
			s.recordLocked(models.ActivityItemRewarded,
				fmt.Sprintf("%s recebeu %s", updated.Name, s.items[s.itemIndex(awarded.ItemID)].Name), actor,
				map[string]any{"itemId": awarded.ItemID, "quantity": awarded.Quantity, "missionId": mission.ID, "classId": mission.ClassID})
		}

		result = Completion{
			Student:      updated.Clone(),
			XPEarned:     mission.XPReward,
			LevelsGained: outcome.LevelsGained,
			ItemAwarded:  awarded,
		}
		return true, nil
	})
	return result, err
}

// rollReward decides a drop. A chance outside (0, 1) always drops.
func (s *Store) rollReward(chance float64) bool {
	if chance <= 0 || chance >= 1 {
		return true
	}
	return s.opts.Roll() < chance
}
