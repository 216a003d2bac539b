package roster

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/samber/lo"

	"naturequest/internal/credentials"
	"naturequest/internal/inventory"
	"naturequest/internal/models"
	"naturequest/internal/progression"
	"naturequest/internal/validation"
)

// AddStudent creates a baseline student and appends it to its class
func (s *Store) AddStudent(ctx context.Context, in models.AddStudentInput) (models.Student, error) {
	if err := validation.Struct(in); err != nil {
		return models.Student{}, err
	}

	var created models.Student
	err := s.mutate(ctx, func() (bool, error) {
		ci := s.classIndex(in.ClassID)
		if ci < 0 {
			return false, ErrClassNotFound
		}

		created = models.NewStudent(s.opts.NewID("student"), in.Name, in.Email, in.ClassID, s.opts.Now())
		created.Avatar = in.Avatar
		s.students = append(s.students, created)
		s.classes[ci].Students = append(s.classes[ci].Students, created.ID)

		s.recordLocked(models.ActivityStudentJoined,
			fmt.Sprintf("%s entrou para a turma %s", created.Name, s.classes[ci].Name),
			Actor{ID: created.ID, Name: created.Name},
			map[string]any{"classId": in.ClassID})
		return true, nil
	})
	return created.Clone(), err
}

// UpdateStudent applies the patch. Moving a student to another class takes it
// out of its guild.
func (s *Store) UpdateStudent(ctx context.Context, id string, patch models.StudentPatch) (models.Student, error) {
	if patch.IsEmpty() {
		return models.Student{}, errEmptyPatch
	}
	if err := validation.Struct(patch); err != nil {
		return models.Student{}, err
	}

	var updated models.Student
	err := s.mutate(ctx, func() (bool, error) {
		si := s.studentIndex(id)
		if si < 0 {
			return false, ErrStudentNotFound
		}
		if patch.ClassID != nil && *patch.ClassID != s.students[si].ClassID {
			to := s.classIndex(*patch.ClassID)
			if to < 0 {
				return false, ErrClassNotFound
			}
			st := &s.students[si]
			if from := s.classIndex(st.ClassID); from >= 0 {
				s.classes[from].Students = lo.Without(s.classes[from].Students, st.ID)
			}
			s.classes[to].Students = append(s.classes[to].Students, st.ID)
			if st.GuildID != "" {
				s.detachLocked(st.GuildID, st.ID)
				st.GuildID = ""
			}
			st.ClassID = *patch.ClassID
		}

		st := &s.students[si]
		if patch.Name != nil {
			st.Name = *patch.Name
		}
		if patch.Email != nil {
			st.Email = *patch.Email
		}
		if patch.Avatar != nil {
			st.Avatar = *patch.Avatar
		}
		if patch.Stats != nil {
			st.Stats = *patch.Stats
		}
		updated = st.Clone()
		return true, nil
	})
	return updated, err
}

// RemoveStudent deletes the student and unlinks it from its class and guild.
// Unknown ids are a no-op.
func (s *Store) RemoveStudent(ctx context.Context, id string) error {
	return s.mutate(ctx, func() (bool, error) {
		si := s.studentIndex(id)
		if si < 0 {
			return false, nil
		}
		st := s.students[si]

		if ci := s.classIndex(st.ClassID); ci >= 0 {
			s.classes[ci].Students = lo.Without(s.classes[ci].Students, id)
		}
		s.students = slices.Delete(s.students, si, si+1)
		if st.GuildID != "" {
			s.detachLocked(st.GuildID, id)
		}
		return true, nil
	})
}

// ResetStudentPassword stores a new password hash and returns the plain
// password. It is not kept anywhere else.
func (s *Store) ResetStudentPassword(ctx context.Context, id string) (string, error) {
	plain, err := credentials.GenerateStudentPassword()
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := s.opts.HashPassword(plain)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.mutate(ctx, func() (bool, error) {
		si := s.studentIndex(id)
		if si < 0 {
			return false, ErrStudentNotFound
		}
		s.students[si].PasswordHash = hash
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return plain, nil
}

// GivePunishment applies the punishment through the progression engine and
// records it in the activity feed
func (s *Store) GivePunishment(ctx context.Context, studentID string, in models.PunishmentInput, actor Actor) (models.Student, error) {
	if err := validation.Struct(in); err != nil {
		return models.Student{}, err
	}

	var updated models.Student
	err := s.mutate(ctx, func() (bool, error) {
		si := s.studentIndex(studentID)
		if si < 0 {
			return false, ErrStudentNotFound
		}

		p := models.Punishment{
			ID:       s.opts.NewID("punishment"),
			Type:     in.Type,
			Reason:   in.Reason,
			XPLoss:   in.XPLoss,
			ItemLoss: slices.Clone(in.ItemLoss),
			Duration: in.Duration,
			GivenBy:  actor.ID,
			GivenAt:  s.opts.Now(),
		}
		s.students[si] = progression.ApplyPunishment(s.students[si], p)
		st := s.students[si]
		s.recomputeGuildLocked(st.GuildID)

		s.recordLocked(models.ActivityPunishmentGiven,
			fmt.Sprintf("%s recebeu uma punição: %s", st.Name, in.Reason), actor,
			map[string]any{"studentId": st.ID, "classId": st.ClassID, "punishmentId": p.ID, "type": string(p.Type)})
		updated = st.Clone()
		return true, nil
	})
	return updated, err
}

// GiveItem adds quantity of an item to the student's inventory
func (s *Store) GiveItem(ctx context.Context, studentID, itemID string, quantity int, actor Actor) (models.Student, error) {
	if quantity < 1 {
		return models.Student{}, validation.Invalid("quantity", "quantity must be at least 1")
	}

	var updated models.Student
	err := s.mutate(ctx, func() (bool, error) {
		si := s.studentIndex(studentID)
		if si < 0 {
			return false, ErrStudentNotFound
		}
		ii := s.itemIndex(itemID)
		if ii < 0 {
			return false, ErrItemNotFound
		}

		out, err := inventory.GiveItem(s.students[si], s.items[ii], quantity, s.opts.Now())
		if err != nil {
			return false, err
		}
		s.students[si] = out
		s.recordLocked(models.ActivityItemRewarded,
			fmt.Sprintf("%s recebeu %s", out.Name, s.items[ii].Name), actor,
			map[string]any{"studentId": out.ID, "classId": out.ClassID, "itemId": itemID, "quantity": quantity})
		updated = out.Clone()
		return true, nil
	})
	return updated, err
}

func (s *Store) EquipItem(ctx context.Context, studentID, itemID string) (models.Student, error) {
	var updated models.Student
	err := s.mutate(ctx, func() (bool, error) {
		si := s.studentIndex(studentID)
		if si < 0 {
			return false, ErrStudentNotFound
		}
		ii := s.itemIndex(itemID)
		if ii < 0 {
			return false, ErrItemNotFound
		}

		before := s.students[si]
		out, err := inventory.EquipItem(before, s.items[ii])
		if err != nil {
			return false, err
		}
		s.students[si] = out
		updated = out.Clone()
		return equipmentChanged(before, out), nil
	})
	return updated, err
}

func (s *Store) UnequipItem(ctx context.Context, studentID, itemID string) (models.Student, error) {
	var updated models.Student
	err := s.mutate(ctx, func() (bool, error) {
		si := s.studentIndex(studentID)
		if si < 0 {
			return false, ErrStudentNotFound
		}
		before := s.students[si]
		s.students[si] = inventory.UnequipItem(before, itemID)
		updated = s.students[si].Clone()
		return equipmentChanged(before, s.students[si]), nil
	})
	return updated, err
}

// equipmentChanged reports whether an equip or unequip moved anything
func equipmentChanged(before, after models.Student) bool {
	if !maps.Equal(before.EquippedItems, after.EquippedItems) {
		return true
	}
	return !slices.EqualFunc(before.Inventory, after.Inventory, func(a, b models.InventoryEntry) bool {
		return a.ItemID == b.ItemID && a.Equipped == b.Equipped
	})
}

// StudentInventory joins the student's entries with item definitions and
// returns the stats including equipped bonuses
func (s *Store) StudentInventory(studentID string) ([]models.InventoryView, models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	si := s.studentIndex(studentID)
	if si < 0 {
		return nil, models.Stats{}, ErrStudentNotFound
	}
	lookup := func(id string) (models.Item, bool) {
		if i := s.itemIndex(id); i >= 0 {
			return s.items[i], true
		}
		return models.Item{}, false
	}
	st := s.students[si]
	return inventory.Views(st, lookup), inventory.EffectiveStats(st, lookup), nil
}
