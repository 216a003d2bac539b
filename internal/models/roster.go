package models

import "time"

// Class is a teacher's group of students
type Class struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	TeacherID  string    `json:"teacherId"`
	Students   []string  `json:"students"`
	InviteCode string    `json:"inviteCode"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Guild is a team of students inside one class.
// TotalXP and Level are derived from the members and recomputed by the roster.
type Guild struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ClassID     string   `json:"classId"`
	Members     []string `json:"members"`
	LeaderID    string   `json:"leaderId"`
	Emblem      string   `json:"emblem"`
	Color       string   `json:"color"`
	TotalXP     int      `json:"totalXp"`
	Level       int      `json:"level"`
	Description string   `json:"description,omitempty"`
}

// HasMember reports whether studentID belongs to the guild
func (g *Guild) HasMember(studentID string) bool {
	for _, id := range g.Members {
		if id == studentID {
			return true
		}
	}
	return false
}

type MissionType string

const (
	MissionDaily   MissionType = "daily"
	MissionWeekly  MissionType = "weekly"
	MissionMonthly MissionType = "monthly"
	MissionSpecial MissionType = "special"
)

type Subject string

const (
	SubjectBiology   Subject = "biology"
	SubjectChemistry Subject = "chemistry"
	SubjectPhysics   Subject = "physics"
	SubjectGeology   Subject = "geology"
	SubjectEcology   Subject = "ecology"
	SubjectGeneral   Subject = "general"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// MissionRequirement describes how a mission is evaluated
type MissionRequirement struct {
	Type        string `json:"type" validate:"oneof=quiz assignment practical research"`
	Description string `json:"description" validate:"notblank"`
	MinScore    *int   `json:"minScore,omitempty"`
}

// ItemReward is an optional drop granted on mission completion.
// Chance is a probability in [0,1]; zero means always.
type ItemReward struct {
	ItemID   string  `json:"itemId" validate:"notblank"`
	Quantity int     `json:"quantity" validate:"min=1"`
	Chance   float64 `json:"chance,omitempty" validate:"gte=0,lte=1"`
}

// Mission is a task students complete for XP
type Mission struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Type         MissionType          `json:"type"`
	Subject      Subject              `json:"subject"`
	Difficulty   Difficulty           `json:"difficulty"`
	XPReward     int                  `json:"xpReward"`
	ItemReward   *ItemReward          `json:"itemReward,omitempty"`
	Deadline     *time.Time           `json:"deadline,omitempty"`
	CreatedBy    string               `json:"createdBy"`
	ClassID      string               `json:"classId"`
	CreatedAt    time.Time            `json:"createdAt"`
	Requirements []MissionRequirement `json:"requirements,omitempty"`
}

type PunishmentType string

const (
	PunishmentWarning      PunishmentType = "warning"
	PunishmentXPLoss       PunishmentType = "xp_loss"
	PunishmentItemLoss     PunishmentType = "item_loss"
	PunishmentTemporaryBan PunishmentType = "temporary_ban"
)

// Punishment is a disciplinary record. Duration is in minutes.
type Punishment struct {
	ID        string         `json:"id"`
	Type      PunishmentType `json:"type"`
	Reason    string         `json:"reason"`
	XPLoss    int            `json:"xpLoss,omitempty"`
	ItemLoss  []string       `json:"itemLoss,omitempty"`
	Duration  int            `json:"duration,omitempty"`
	GivenBy   string         `json:"givenBy"`
	GivenAt   time.Time      `json:"givenAt"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
}

type ActivityType string

const (
	ActivityMissionCreated   ActivityType = "mission_created"
	ActivityMissionCompleted ActivityType = "mission_completed"
	ActivityStudentJoined    ActivityType = "student_joined"
	ActivityGuildCreated     ActivityType = "guild_created"
	ActivityItemRewarded     ActivityType = "item_rewarded"
	ActivityPunishmentGiven  ActivityType = "punishment_given"
)

// ActivityLog is one entry of the class feed
type ActivityLog struct {
	ID          string         `json:"id"`
	Type        ActivityType   `json:"type"`
	Description string         `json:"description"`
	UserID      string         `json:"userId"`
	UserName    string         `json:"userName"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// LeaderboardEntry is one row of a ranking
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Avatar      string `json:"avatar,omitempty"`
	Level       int    `json:"level"`
	XP          int    `json:"xp"`
	GuildName   string `json:"guildName,omitempty"`
}

// GuildStanding is one row of the guild ranking
type GuildStanding struct {
	Rank    int    `json:"rank"`
	GuildID string `json:"guildId"`
	Name    string `json:"name"`
	Emblem  string `json:"emblem"`
	Color   string `json:"color"`
	Members int    `json:"members"`
	Level   int    `json:"level"`
	TotalXP int    `json:"totalXp"`
}

// Snapshot is the full roster state, used for persistence and backups
type Snapshot struct {
	Classes     []Class       `json:"classes"`
	Guilds      []Guild       `json:"guilds"`
	Missions    []Mission     `json:"missions"`
	Students    []Student     `json:"students"`
	Items       []Item        `json:"items"`
	ActivityLog []ActivityLog `json:"activityLogs"`
}
