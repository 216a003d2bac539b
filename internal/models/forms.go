package models

import "time"

// Inputs accepted by roster mutators. Validation tags are enforced by the
// validation package before any state changes.

type CreateClassInput struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

type CreateGuildInput struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	ClassID     string `json:"classId" validate:"notblank"`
	Description string `json:"description,omitempty" validate:"max=500"`
	Emblem      string `json:"emblem" validate:"notblank"`
	Color       string `json:"color" validate:"required,hexcolor"`
}

type CreateMissionInput struct {
	Title        string               `json:"title" validate:"notblank,max=200"`
	Description  string               `json:"description" validate:"max=2000"`
	Type         MissionType          `json:"type" validate:"required,oneof=daily weekly monthly special"`
	Subject      Subject              `json:"subject" validate:"required,oneof=biology chemistry physics geology ecology general"`
	Difficulty   Difficulty           `json:"difficulty" validate:"required,oneof=easy medium hard expert"`
	XPReward     int                  `json:"xpReward" validate:"required,min=1,max=1000000"`
	ClassID      string               `json:"classId" validate:"notblank"`
	Deadline     *time.Time           `json:"deadline,omitempty"`
	ItemReward   *ItemReward          `json:"itemReward,omitempty"`
	Requirements []MissionRequirement `json:"requirements,omitempty" validate:"dive"`
}

type AddStudentInput struct {
	Name    string `json:"name" validate:"notblank,max=100"`
	Email   string `json:"email" validate:"required,email"`
	ClassID string `json:"classId" validate:"notblank"`
	Avatar  string `json:"avatar,omitempty"`
}

type PunishmentInput struct {
	Type     PunishmentType `json:"type" validate:"required,oneof=warning xp_loss item_loss temporary_ban"`
	Reason   string         `json:"reason" validate:"notblank"`
	XPLoss   int            `json:"xpLoss,omitempty" validate:"min=0"`
	ItemLoss []string       `json:"itemLoss,omitempty"`
	Duration int            `json:"duration,omitempty" validate:"min=0"`
}

// Patches list the editable fields of each entity. A nil field is left unchanged.

type ClassPatch struct {
	Name *string `json:"name,omitempty" validate:"omitempty,notblank,max=100"`
}

func (p ClassPatch) IsEmpty() bool { return p.Name == nil }

type GuildPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Emblem      *string `json:"emblem,omitempty" validate:"omitempty,notblank"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

func (p GuildPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Emblem == nil && p.Color == nil
}

type MissionPatch struct {
	Title       *string      `json:"title,omitempty" validate:"omitempty,notblank,max=200"`
	Description *string      `json:"description,omitempty" validate:"omitempty,max=2000"`
	Type        *MissionType `json:"type,omitempty" validate:"omitempty,oneof=daily weekly monthly special"`
	Subject     *Subject     `json:"subject,omitempty" validate:"omitempty,oneof=biology chemistry physics geology ecology general"`
	Difficulty  *Difficulty  `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard expert"`
	XPReward    *int         `json:"xpReward,omitempty" validate:"omitempty,min=1,max=1000000"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
}

func (p MissionPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Type == nil && p.Subject == nil &&
		p.Difficulty == nil && p.XPReward == nil && p.Deadline == nil
}
