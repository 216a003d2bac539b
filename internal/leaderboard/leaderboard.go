// Package leaderboard ranks students and guilds by total XP.
package leaderboard

import (
	"sort"

	"github.com/samber/lo"

	"naturequest/internal/models"
)

// Rank orders students by TotalXP, highest first. When classID is not empty
// only that class is ranked. Ties keep their input order and every entry gets
// a distinct rank from 1 to n.
func Rank(students []models.Student, guilds []models.Guild, classID string) []models.LeaderboardEntry {
	pool := students
	if classID != "" {
		pool = lo.Filter(students, func(s models.Student, _ int) bool {
			return s.ClassID == classID
		})
	}

	ordered := make([]models.Student, len(pool))
	copy(ordered, pool)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TotalXP > ordered[j].TotalXP
	})

	guildNames := lo.SliceToMap(guilds, func(g models.Guild) (string, string) {
		return g.ID, g.Name
	})

	return lo.Map(ordered, func(s models.Student, i int) models.LeaderboardEntry {
		return models.LeaderboardEntry{
			Rank:        i + 1,
			StudentID:   s.ID,
			StudentName: s.Name,
			Avatar:      s.Avatar,
			Level:       s.Level,
			XP:          s.TotalXP,
			GuildName:   guildNames[s.GuildID],
		}
	})
}

// GuildRank orders guilds by their TotalXP with the same tie rule as Rank
func GuildRank(guilds []models.Guild, classID string) []models.GuildStanding {
	pool := guilds
	if classID != "" {
		pool = lo.Filter(guilds, func(g models.Guild, _ int) bool {
			return g.ClassID == classID
		})
	}

	ordered := make([]models.Guild, len(pool))
	copy(ordered, pool)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TotalXP > ordered[j].TotalXP
	})

	return lo.Map(ordered, func(g models.Guild, i int) models.GuildStanding {
		return models.GuildStanding{
			Rank:    i + 1,
			GuildID: g.ID,
			Name:    g.Name,
			Emblem:  g.Emblem,
			Color:   g.Color,
			Members: len(g.Members),
			Level:   g.Level,
			TotalXP: g.TotalXP,
		}
	})
}
