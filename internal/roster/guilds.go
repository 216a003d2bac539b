package roster

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"naturequest/internal/catalog"
	"naturequest/internal/models"
	"naturequest/internal/validation"
)

func (s *Store) CreateGuild(ctx context.Context, in models.CreateGuildInput, actor Actor) (models.Guild, error) {
	if err := validation.Struct(in); err != nil {
		return models.Guild{}, err
	}
	if !catalog.IsEmblem(in.Emblem) {
		return models.Guild{}, validation.Invalid("emblem", "emblem must be one of the guild emblems")
	}

	var created models.Guild
	err := s.mutate(ctx, func() (bool, error) {
		if s.classIndex(in.ClassID) < 0 {
			return false, ErrClassNotFound
		}
		created = models.Guild{
			ID:          s.opts.NewID("guild"),
			Name:        in.Name,
			ClassID:     in.ClassID,
			Members:     []string{},
			Emblem:      in.Emblem,
			Color:       in.Color,
			Level:       1,
			Description: in.Description,
		}
		s.guilds = append(s.guilds, created)
		s.recordLocked(models.ActivityGuildCreated,
			fmt.Sprintf("Guilda \"%s\" foi criada", in.Name), actor,
			map[string]any{"guildId": created.ID, "classId": in.ClassID})
		return true, nil
	})
	return cloneGuild(created), err
}

func (s *Store) UpdateGuild(ctx context.Context, id string, patch models.GuildPatch) (models.Guild, error) {
	if patch.IsEmpty() {
		return models.Guild{}, errEmptyPatch
	}
	if err := validation.Struct(patch); err != nil {
		return models.Guild{}, err
	}
	if patch.Emblem != nil && !catalog.IsEmblem(*patch.Emblem) {
		return models.Guild{}, validation.Invalid("emblem", "emblem must be one of the guild emblems")
	}

	var updated models.Guild
	err := s.mutate(ctx, func() (bool, error) {
		i := s.guildIndex(id)
		if i < 0 {
			return false, ErrGuildNotFound
		}
		g := &s.guilds[i]
		if patch.Name != nil {
			g.Name = *patch.Name
		}
		if patch.Description != nil {
			g.Description = *patch.Description
		}
		if patch.Emblem != nil {
			g.Emblem = *patch.Emblem
		}
		if patch.Color != nil {
			g.Color = *patch.Color
		}
		updated = cloneGuild(*g)
		return true, nil
	})
	return updated, err
}

// DeleteGuild removes the guild and clears its members' guild reference
func (s *Store) DeleteGuild(ctx context.Context, id string) error {
	return s.mutate(ctx, func() (bool, error) {
		i := s.guildIndex(id)
		if i < 0 {
			return false, nil
		}
		for _, memberID := range s.guilds[i].Members {
			if j := s.studentIndex(memberID); j >= 0 && s.students[j].GuildID == id {
				s.students[j].GuildID = ""
			}
		}
		s.guilds = slices.Delete(s.guilds, i, i+1)
		return true, nil
	})
}

// AddStudentToGuild links both sides. A student already in another guild is
// moved. Unknown guild or student ids are a no-op.
func (s *Store) AddStudentToGuild(ctx context.Context, guildID, studentID string) error {
	return s.mutate(ctx, func() (bool, error) {
		gi := s.guildIndex(guildID)
		si := s.studentIndex(studentID)
		if gi < 0 || si < 0 {
			return false, nil
		}
		if s.guilds[gi].ClassID != s.students[si].ClassID {
			return false, ErrWrongClass
		}
		if s.guilds[gi].HasMember(studentID) && s.students[si].GuildID == guildID {
			return false, nil
		}

		if previous := s.students[si].GuildID; previous != "" && previous != guildID {
			s.detachLocked(previous, studentID)
		}

		if !s.guilds[gi].HasMember(studentID) {
			s.guilds[gi].Members = append(s.guilds[gi].Members, studentID)
		}
		s.students[si].GuildID = guildID
		s.recomputeGuildLocked(guildID)
		return true, nil
	})
}

// RemoveStudentFromGuild clears both sides of the link. Removing the leader
// leaves the guild without one.
func (s *Store) RemoveStudentFromGuild(ctx context.Context, guildID, studentID string) error {
	return s.mutate(ctx, func() (bool, error) {
		gi := s.guildIndex(guildID)
		if gi < 0 || !s.guilds[gi].HasMember(studentID) {
			return false, nil
		}
		s.detachLocked(guildID, studentID)
		if si := s.studentIndex(studentID); si >= 0 && s.students[si].GuildID == guildID {
			s.students[si].GuildID = ""
		}
		return true, nil
	})
}

func (s *Store) SetGuildLeader(ctx context.Context, guildID, studentID string) (models.Guild, error) {
	var updated models.Guild
	err := s.mutate(ctx, func() (bool, error) {
		gi := s.guildIndex(guildID)
		if gi < 0 {
			return false, ErrGuildNotFound
		}
		if !s.guilds[gi].HasMember(studentID) {
			return false, ErrNotMember
		}
		s.guilds[gi].LeaderID = studentID
		updated = cloneGuild(s.guilds[gi])
		return true, nil
	})
	return updated, err
}

// detachLocked drops studentID from the guild's member list and leadership,
// then recomputes its totals. The student record is left to the caller.
func (s *Store) detachLocked(guildID, studentID string) {
	gi := s.guildIndex(guildID)
	if gi < 0 {
		return
	}
	g := &s.guilds[gi]
	g.Members = lo.Without(g.Members, studentID)
	if g.LeaderID == studentID {
		g.LeaderID = ""
	}
	s.recomputeGuildLocked(guildID)
}

// recomputeGuildLocked derives TotalXP from the members and Level from the
// catalog level table
func (s *Store) recomputeGuildLocked(guildID string) {
	gi := s.guildIndex(guildID)
	if gi < 0 {
		return
	}
	g := &s.guilds[gi]
	total := 0
	for _, memberID := range g.Members {
		if si := s.studentIndex(memberID); si >= 0 {
			total += s.students[si].TotalXP
		}
	}
	g.TotalXP = total
	g.Level = catalog.LevelForXP(total)
}

func (s *Store) recomputeAllGuildsLocked() {
	for _, g := range s.guilds {
		s.recomputeGuildLocked(g.ID)
	}
}
