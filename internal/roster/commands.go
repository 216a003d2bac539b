package roster

import (
	"context"
	"errors"
	"fmt"

	"naturequest/internal/models"
)

// CommandKind names a roster mutation
type CommandKind string

const (
	CmdCreateClass            CommandKind = "create_class"
	CmdUpdateClass            CommandKind = "update_class"
	CmdDeleteClass            CommandKind = "delete_class"
	CmdCreateGuild            CommandKind = "create_guild"
	CmdUpdateGuild            CommandKind = "update_guild"
	CmdDeleteGuild            CommandKind = "delete_guild"
	CmdAddStudentToGuild      CommandKind = "add_student_to_guild"
	CmdRemoveStudentFromGuild CommandKind = "remove_student_from_guild"
	CmdSetGuildLeader         CommandKind = "set_guild_leader"
	CmdCreateMission          CommandKind = "create_mission"
	CmdUpdateMission          CommandKind = "update_mission"
	CmdDeleteMission          CommandKind = "delete_mission"
	CmdCompleteMission        CommandKind = "complete_mission"
	CmdAddStudent             CommandKind = "add_student"
	CmdUpdateStudent          CommandKind = "update_student"
	CmdRemoveStudent          CommandKind = "remove_student"
	CmdResetStudentPassword   CommandKind = "reset_student_password"
	CmdGivePunishment         CommandKind = "give_punishment"
	CmdGiveItem               CommandKind = "give_item"
	CmdEquipItem              CommandKind = "equip_item"
	CmdUnequipItem            CommandKind = "unequip_item"
)

var (
	ErrUnknownCommand = errors.New("unknown roster command")
	ErrBadPayload     = errors.New("command payload has the wrong type")
)

// Command is one mutation request. Only the ids the kind needs are read;
// Payload carries the input or patch value for kinds that take one.
type Command struct {
	Kind      CommandKind
	Actor     Actor
	ClassID   string
	GuildID   string
	MissionID string
	StudentID string
	ItemID    string
	Quantity  int
	Payload   any
}

// Dispatch routes cmd to its mutator. The result is whatever the mutator
// returns: an entity, a Completion, a plain password, or nil for deletes.
func (s *Store) Dispatch(ctx context.Context, cmd Command) (any, error) {
	switch cmd.Kind {
	case CmdCreateClass:
		in, err := payload[models.CreateClassInput](cmd)
		if err != nil {
			return nil, err
		}
		return s.CreateClass(ctx, in, cmd.Actor.ID)
	case CmdUpdateClass:
		patch, err := payload[models.ClassPatch](cmd)
		if err != nil {
			return nil, err
		}
		return s.UpdateClass(ctx, cmd.ClassID, patch)
	case CmdDeleteClass:
		return nil, s.DeleteClass(ctx, cmd.ClassID)

	case CmdCreateGuild:
		in, err := payload[models.CreateGuildInput](cmd)
		if err != nil {
			return nil, err
		}
		return s.CreateGuild(ctx, in, cmd.Actor)
	case CmdUpdateGuild:
		patch, err := payload[models.GuildPatch](cmd)
		if err != nil {
			return nil, err
		}
		return s.UpdateGuild(ctx, cmd.GuildID, patch)
	case CmdDeleteGuild:
		return nil, s.DeleteGuild(ctx, cmd.GuildID)
	case CmdAddStudentToGuild:
		return nil, s.AddStudentToGuild(ctx, cmd.GuildID, cmd.StudentID)
	case CmdRemoveStudentFromGuild:
		return nil, s.RemoveStudentFromGuild(ctx, cmd.GuildID, cmd.StudentID)
	case CmdSetGuildLeader:
		return s.SetGuildLeader(ctx, cmd.GuildID, cmd.StudentID)

	case CmdCreateMission:
		in, err := payload[models.CreateMissionInput](cmd)
		if err != nil {
			return nil, err
		}
		return s.CreateMission(ctx, in, cmd.Actor)
	case CmdUpdateMission:
		patch, err := payload[models.MissionPatch](cmd)
		if err != nil {
			return nil, err
		}
		return s.UpdateMission(ctx, cmd.MissionID, patch)
	case CmdDeleteMission:
		return nil, s.DeleteMission(ctx, cmd.MissionID)
	case CmdCompleteMission:
		return s.CompleteMission(ctx, cmd.MissionID, cmd.StudentID)

	case CmdAddStudent:
		in, err := payload[models.AddStudentInput](cmd)
		if err != nil {
			return nil, err
		}
		return s.AddStudent(ctx, in)
	case CmdUpdateStudent:
		patch, err := payload[models.StudentPatch](cmd)
		if err != nil {
			return nil, err
		}
		return s.UpdateStudent(ctx, cmd.StudentID, patch)
	case CmdRemoveStudent:
		return nil, s.RemoveStudent(ctx, cmd.StudentID)
	case CmdResetStudentPassword:
		return s.ResetStudentPassword(ctx, cmd.StudentID)
	case CmdGivePunishment:
		in, err := payload[models.PunishmentInput](cmd)
		if err != nil {
			return nil, err
		}
		return s.GivePunishment(ctx, cmd.StudentID, in, cmd.Actor)

	case CmdGiveItem:
		return s.GiveItem(ctx, cmd.StudentID, cmd.ItemID, max(cmd.Quantity, 1), cmd.Actor)
	case CmdEquipItem:
		return s.EquipItem(ctx, cmd.StudentID, cmd.ItemID)
	case CmdUnequipItem:
		return s.UnequipItem(ctx, cmd.StudentID, cmd.ItemID)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
}

// payload accepts both T and *T
func payload[T any](cmd Command) (T, error) {
	switch v := cmd.Payload.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s expects %T", ErrBadPayload, cmd.Kind, zero)
}
