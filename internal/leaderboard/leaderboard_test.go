package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naturequest/internal/models"
)

func student(id, classID, guildID string, totalXP int) models.Student {
	return models.Student{ID: id, Name: "Aluno " + id, ClassID: classID, GuildID: guildID, TotalXP: totalXP, Level: 1}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	students := []models.Student{
		student("a", "class-1", "", 300),
		student("b", "class-1", "", 300),
		student("c", "class-1", "", 100),
	}

	entries := Rank(students, nil, "")
	require.Len(t, entries, 3)

	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})
	assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].StudentID, entries[1].StudentID, entries[2].StudentID})
	assert.Equal(t, 300, entries[0].XP)
}

func TestRankOrdersByTotalXP(t *testing.T) {
	students := []models.Student{
		student("low", "class-1", "", 10),
		student("high", "class-1", "", 900),
		student("mid", "class-1", "", 450),
	}

	entries := Rank(students, nil, "")
	assert.Equal(t, "high", entries[0].StudentID)
	assert.Equal(t, "mid", entries[1].StudentID)
	assert.Equal(t, "low", entries[2].StudentID)
	assert.Equal(t, "low", students[0].ID, "input must not be reordered")
}

func TestRankFiltersClassAndResolvesGuilds(t *testing.T) {
	guilds := []models.Guild{{ID: "guild-1", Name: "Guardiões do Cobre"}}
	students := []models.Student{
		student("a", "class-1", "guild-1", 50),
		student("b", "class-2", "", 500),
		student("c", "class-1", "guild-missing", 70),
	}

	entries := Rank(students, guilds, "class-1")
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].StudentID)
	assert.Empty(t, entries[0].GuildName)
	assert.Equal(t, "Guardiões do Cobre", entries[1].GuildName)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil, nil, ""))
	assert.Empty(t, Rank([]models.Student{student("a", "class-1", "", 1)}, nil, "class-9"))
}

func TestGuildRank(t *testing.T) {
	guilds := []models.Guild{
		{ID: "g1", Name: "Cobre", ClassID: "class-1", TotalXP: 200, Members: []string{"a"}},
		{ID: "g2", Name: "Latão", ClassID: "class-1", TotalXP: 900, Members: []string{"b", "c"}},
		{ID: "g3", Name: "Ferro", ClassID: "class-2", TotalXP: 5000},
		{ID: "g4", Name: "Bronze", ClassID: "class-1", TotalXP: 200},
	}

	standings := GuildRank(guilds, "class-1")
	require.Len(t, standings, 3)
	assert.Equal(t, "g2", standings[0].GuildID)
	assert.Equal(t, 2, standings[0].Members)
	assert.Equal(t, "g1", standings[1].GuildID)
	assert.Equal(t, "g4", standings[2].GuildID)
	assert.Equal(t, 3, standings[2].Rank)
}
