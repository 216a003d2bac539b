package roster

import (
	"context"
	"fmt"
	"slices"

	"naturequest/internal/credentials"
	"naturequest/internal/models"
	"naturequest/internal/validation"
)

// CreateClass adds an empty class owned by teacherID with a fresh invite code
func (s *Store) CreateClass(ctx context.Context, in models.CreateClassInput, teacherID string) (models.Class, error) {
	if err := validation.Struct(in); err != nil {
		return models.Class{}, err
	}
	code, err := credentials.GenerateInviteCode(in.Name)
	if err != nil {
		return models.Class{}, fmt.Errorf("failed to generate invite code: %w", err)
	}

	var created models.Class
	err = s.mutate(ctx, func() (bool, error) {
		created = models.Class{
			ID:         s.opts.NewID("class"),
			Name:       in.Name,
			TeacherID:  teacherID,
			Students:   []string{},
			InviteCode: code,
			CreatedAt:  s.opts.Now(),
		}
		s.classes = append(s.classes, created)
		return true, nil
	})
	return cloneClass(created), err
}

// ClassByInviteCode finds the class a student joins with code
func (s *Store) ClassByInviteCode(code string) (models.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.classes {
		if c.InviteCode == code {
			return cloneClass(c), nil
		}
	}
	return models.Class{}, ErrClassNotFound
}

func (s *Store) UpdateClass(ctx context.Context, id string, patch models.ClassPatch) (models.Class, error) {
	if patch.IsEmpty() {
		return models.Class{}, errEmptyPatch
	}
	if err := validation.Struct(patch); err != nil {
		return models.Class{}, err
	}

	var updated models.Class
	err := s.mutate(ctx, func() (bool, error) {
		i := s.classIndex(id)
		if i < 0 {
			return false, ErrClassNotFound
		}
		if patch.Name != nil {
			s.classes[i].Name = *patch.Name
		}
		updated = cloneClass(s.classes[i])
		return true, nil
	})
	return updated, err
}

// DeleteClass removes the class with its guilds and missions. Students of the
// class are kept with their classId pointing at the deleted class; members of
// removed guilds lose their guild reference. Unknown ids are a no-op.
func (s *Store) DeleteClass(ctx context.Context, id string) error {
	return s.mutate(ctx, func() (bool, error) {
		i := s.classIndex(id)
		if i < 0 {
			return false, nil
		}
		s.classes = slices.Delete(s.classes, i, i+1)

		removedGuilds := make(map[string]bool)
		s.guilds = slices.DeleteFunc(s.guilds, func(g models.Guild) bool {
			if g.ClassID == id {
				removedGuilds[g.ID] = true
				return true
			}
			return false
		})
		s.missions = slices.DeleteFunc(s.missions, func(m models.Mission) bool {
			return m.ClassID == id
		})

		for j := range s.students {
			if removedGuilds[s.students[j].GuildID] {
				s.students[j].GuildID = ""
			}
		}
		return true, nil
	})
}
