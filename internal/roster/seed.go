package roster

import (
	"context"
	"fmt"

	"naturequest/internal/catalog"
	"naturequest/internal/credentials"
	"naturequest/internal/models"
	"naturequest/internal/progression"
)

type demoStudent struct {
	name  string
	email string
	class int
	guild int // -1 for none
	level int
	xp    int
	total int
	stats models.Stats
}

var demoStudents = []demoStudent{
	{"João Pereira", "joao.pereira@escola.edu.br", 0, 0, 5, 120, 1120,
		models.Stats{Strength: 8, Intelligence: 12, Wisdom: 10, Dexterity: 7, Constitution: 9, Charisma: 6}},
	{"Maria Santos", "maria.santos@escola.edu.br", 0, 0, 7, 80, 2830,
		models.Stats{Strength: 6, Intelligence: 15, Wisdom: 13, Dexterity: 8, Constitution: 7, Charisma: 11}},
	{"Pedro Costa", "pedro.costa@escola.edu.br", 0, 1, 3, 40, 290,
		models.Stats{Strength: 10, Intelligence: 7, Wisdom: 6, Dexterity: 9, Constitution: 11, Charisma: 5}},
	{"Ana Oliveira", "ana.oliveira@escola.edu.br", 0, 1, 6, 200, 1950,
		models.Stats{Strength: 7, Intelligence: 13, Wisdom: 12, Dexterity: 10, Constitution: 8, Charisma: 9}},
	{"Lucas Ferreira", "lucas.ferreira@escola.edu.br", 1, -1, 2, 60, 160,
		models.Stats{Strength: 9, Intelligence: 6, Wisdom: 5, Dexterity: 11, Constitution: 8, Charisma: 7}},
}

// SeedDemo fills an empty store with two classes, two guilds, five students
// and the catalog missions. A store that already has classes is left alone.
func (s *Store) SeedDemo(ctx context.Context, teacherID string) (bool, error) {
	codes := make([]string, 2)
	for i, name := range []string{"7º Ano A", "8º Ano B"} {
		code, err := credentials.GenerateInviteCode(name)
		if err != nil {
			return false, fmt.Errorf("failed to generate invite code: %w", err)
		}
		codes[i] = code
	}

	seeded := false
	err := s.mutate(ctx, func() (bool, error) {
		if len(s.classes) > 0 {
			return false, nil
		}
		now := s.opts.Now()

		classes := []models.Class{
			{ID: s.opts.NewID("class"), Name: "7º Ano A", TeacherID: teacherID, Students: []string{}, InviteCode: codes[0], CreatedAt: now},
			{ID: s.opts.NewID("class"), Name: "8º Ano B", TeacherID: teacherID, Students: []string{}, InviteCode: codes[1], CreatedAt: now},
		}
		guilds := []models.Guild{
			{ID: s.opts.NewID("guild"), Name: "Guerreiros do Vapor", ClassID: classes[0].ID, Members: []string{},
				Emblem: "gear", Color: "#B87333", Level: 1, Description: "Mestres das máquinas e da ciência"},
			{ID: s.opts.NewID("guild"), Name: "Máscaras de Bronze", ClassID: classes[0].ID, Members: []string{},
				Emblem: "mask", Color: "#D4AF37", Level: 1, Description: "Guardiões dos saberes ancestrais"},
		}

		for _, d := range demoStudents {
			st := models.NewStudent(s.opts.NewID("student"), d.name, d.email, classes[d.class].ID, now)
			st.Level = d.level
			st.XP = d.xp
			st.XPToNextLevel = thresholdForLevel(d.level)
			st.TotalXP = d.total
			st.Stats = d.stats
			classes[d.class].Students = append(classes[d.class].Students, st.ID)
			if d.guild >= 0 {
				st.GuildID = guilds[d.guild].ID
				guilds[d.guild].Members = append(guilds[d.guild].Members, st.ID)
				if guilds[d.guild].LeaderID == "" {
					guilds[d.guild].LeaderID = st.ID
				}
			}
			s.students = append(s.students, st)
		}

		s.classes = append(s.classes, classes...)
		s.guilds = append(s.guilds, guilds...)
		s.missions = append(s.missions, catalog.Missions(classes[0].ID, teacherID, now)...)
		s.recomputeAllGuildsLocked()

		for _, g := range guilds {
			s.recordLocked(models.ActivityGuildCreated,
				fmt.Sprintf("Guilda \"%s\" foi criada", g.Name),
				Actor{ID: teacherID}, map[string]any{"guildId": g.ID, "classId": g.ClassID})
		}
		seeded = true
		return true, nil
	})
	return seeded, err
}

// thresholdForLevel replays the level-up growth from the starting threshold
func thresholdForLevel(level int) int {
	threshold := progression.DefaultThreshold
	for l := 1; l < level; l++ {
		threshold = threshold * 3 / 2
	}
	return threshold
}
