// Package catalog holds the read-only reference data of the game: seed items
// and missions, guild palettes, the level table and display names.
package catalog

import (
	"time"

	"naturequest/internal/models"
)

// GuildColors are the palette choices offered when creating a guild
var GuildColors = []string{
	"#B87333", // copper
	"#D4AF37", // brass
	"#CD853F", // terracotta
	"#4682B4", // steel blue
	"#6B8E23", // olive
	"#8B4513", // saddle brown
	"#9932CC", // dark orchid
	"#2E8B57", // sea green
}

// GuildEmblems are the emblem tags offered when creating a guild
var GuildEmblems = []string{
	"gear",
	"feather",
	"mask",
	"totem",
	"compass",
	"flame",
	"tree",
	"mountain",
}

// LevelXPRequirements maps a level to the cumulative XP needed to leave it.
// Guild levels are derived from it.
var LevelXPRequirements = []int{
	100, 250, 500, 1000, 1750, 2750, 4000, 5500, 7250, 9250,
	11500, 14000, 16750, 19750, 23000, 26500, 30250, 34250, 38500, 43000,
}

// LevelForXP returns the level reached with totalXP on the cumulative table
func LevelForXP(totalXP int) int {
	level := 1
	for _, required := range LevelXPRequirements {
		if totalXP < required {
			break
		}
		level++
	}
	return level
}

var RarityColors = map[models.Rarity]string{
	models.RarityCommon:    "#8B7355",
	models.RarityUncommon:  "#6B8E23",
	models.RarityRare:      "#4682B4",
	models.RarityEpic:      "#9932CC",
	models.RarityLegendary: "#FFD700",
}

var RarityNames = map[models.Rarity]string{
	models.RarityCommon:    "Comum",
	models.RarityUncommon:  "Incomum",
	models.RarityRare:      "Raro",
	models.RarityEpic:      "Épico",
	models.RarityLegendary: "Lendário",
}

var SubjectNames = map[models.Subject]string{
	models.SubjectBiology:   "Biologia",
	models.SubjectChemistry: "Química",
	models.SubjectPhysics:   "Física",
	models.SubjectGeology:   "Geologia",
	models.SubjectEcology:   "Ecologia",
	models.SubjectGeneral:   "Geral",
}

var DifficultyNames = map[models.Difficulty]string{
	models.DifficultyEasy:   "Fácil",
	models.DifficultyMedium: "Médio",
	models.DifficultyHard:   "Difícil",
	models.DifficultyExpert: "Especialista",
}

var MissionTypeNames = map[models.MissionType]string{
	models.MissionDaily:   "Diária",
	models.MissionWeekly:  "Semanal",
	models.MissionMonthly: "Mensal",
	models.MissionSpecial: "Especial",
}

var PunishmentNames = map[models.PunishmentType]string{
	models.PunishmentWarning:      "Advertência",
	models.PunishmentXPLoss:       "Perda de XP",
	models.PunishmentItemLoss:     "Perda de Item",
	models.PunishmentTemporaryBan: "Banimento Temporário",
}

// IsEmblem reports whether tag is one of the known guild emblems
func IsEmblem(tag string) bool {
	for _, e := range GuildEmblems {
		if e == tag {
			return true
		}
	}
	return false
}

// Items returns a fresh copy of the seed item catalog
func Items() []models.Item {
	return []models.Item{
		{
			ID:                "item-1",
			Name:              "Machado de Bronze",
			Description:       "Um machado forjado em bronze antigo, símbolo de força.",
			Type:              models.ItemTypeWeapon,
			Rarity:            models.RarityRare,
			Icon:              "🪓",
			IndigenousName:    "Takware",
			IndigenousMeaning: "Machado de guerra Tupi",
			Stats:             &models.Stats{Strength: 5, Constitution: 2},
			LevelRequirement:  3,
			Tradable:          true,
			MaxStack:          1,
		},
		{
			ID:                "item-2",
			Name:              "Máscara Xamânica",
			Description:       "Máscara usada em rituais de conhecimento.",
			Type:              models.ItemTypeAccessory,
			Rarity:            models.RarityEpic,
			Icon:              "🎭",
			IndigenousName:    "Karowá",
			IndigenousMeaning: "Máscara ritual",
			Stats:             &models.Stats{Intelligence: 8, Wisdom: 5},
			LevelRequirement:  5,
			Tradable:          false,
			MaxStack:          1,
		},
		{
			ID:                "item-3",
			Name:              "Cocar de Penas Douradas",
			Description:       "Cocar cerimonial que confere carisma e sabedoria.",
			Type:              models.ItemTypeHead,
			Rarity:            models.RarityLegendary,
			Icon:              "👑",
			IndigenousName:    "Akará",
			IndigenousMeaning: "Cocar de penas",
			Stats:             &models.Stats{Charisma: 10, Wisdom: 5, Intelligence: 3},
			LevelRequirement:  10,
			Tradable:          false,
			MaxStack:          1,
		},
		{
			ID:          "item-4",
			Name:        "Poção de Sabedoria",
			Description: "Elixir que aumenta temporariamente a inteligência.",
			Type:        models.ItemTypeConsumable,
			Rarity:      models.RarityUncommon,
			Icon:        "🧪",
			Effects:     []models.ItemEffect{{Type: models.EffectStatBoost, Value: 5, Duration: 3600}},
			Tradable:    true,
			MaxStack:    10,
		},
		{
			ID:               "item-5",
			Name:             "Armadura de Couro",
			Description:      "Proteção básica de couro reforçado.",
			Type:             models.ItemTypeArmor,
			Rarity:           models.RarityCommon,
			Icon:             "🛡️",
			Stats:            &models.Stats{Constitution: 3},
			LevelRequirement: 1,
			Tradable:         true,
			MaxStack:         1,
		},
	}
}

// Missions returns the demo missions for classID, created by teacherID
func Missions(classID, teacherID string, now time.Time) []models.Mission {
	deadline := func(days int) *time.Time {
		d := now.AddDate(0, 0, days)
		return &d
	}
	return []models.Mission{
		{
			ID:          "mission-1",
			Title:       "Exploradores da Célula",
			Description: "Estude a estrutura das células e complete o quiz sobre organelos.",
			Type:        models.MissionWeekly,
			Subject:     models.SubjectBiology,
			Difficulty:  models.DifficultyMedium,
			XPReward:    150,
			ClassID:     classID,
			CreatedBy:   teacherID,
			CreatedAt:   now,
			Deadline:    deadline(7),
			Requirements: []models.MissionRequirement{
				{Type: "quiz", Description: "Quiz sobre organelos"},
			},
		},
		{
			ID:          "mission-2",
			Title:       "Alquimistas da Tabela Periódica",
			Description: "Memorize os 20 primeiros elementos da tabela periódica.",
			Type:        models.MissionDaily,
			Subject:     models.SubjectChemistry,
			Difficulty:  models.DifficultyEasy,
			XPReward:    75,
			ClassID:     classID,
			CreatedBy:   teacherID,
			CreatedAt:   now,
			Deadline:    deadline(1),
			ItemReward:  &models.ItemReward{ItemID: "item-4", Quantity: 1, Chance: 0.5},
		},
		{
			ID:          "mission-3",
			Title:       "Forças da Natureza",
			Description: "Experimento prático sobre as três leis de Newton.",
			Type:        models.MissionSpecial,
			Subject:     models.SubjectPhysics,
			Difficulty:  models.DifficultyHard,
			XPReward:    300,
			ClassID:     classID,
			CreatedBy:   teacherID,
			CreatedAt:   now,
			Deadline:    deadline(15),
			ItemReward:  &models.ItemReward{ItemID: "item-5", Quantity: 1},
		},
		{
			ID:          "mission-4",
			Title:       "Guardiões do Planeta",
			Description: "Pesquisa sobre biomas brasileiros e sua preservação.",
			Type:        models.MissionMonthly,
			Subject:     models.SubjectEcology,
			Difficulty:  models.DifficultyMedium,
			XPReward:    250,
			ClassID:     classID,
			CreatedBy:   teacherID,
			CreatedAt:   now,
			Deadline:    deadline(30),
		},
	}
}
