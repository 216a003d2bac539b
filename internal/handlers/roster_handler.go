package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/spf13/cast"

	"naturequest/internal/models"
	"naturequest/internal/roster"
	"naturequest/internal/service"
	"naturequest/internal/validation"
)

// RosterHandler serves classes, students, missions, guilds and items
type RosterHandler struct {
	store        *roster.Store
	emailService *service.EmailService
}

// NewRosterHandler creates a new roster handler. emailService may be nil.
func NewRosterHandler(store *roster.Store, emailService *service.EmailService) *RosterHandler {
	return &RosterHandler{
		store:        store,
		emailService: emailService,
	}
}

type studentRef struct {
	StudentID string `json:"studentId"`
}

type itemRequest struct {
	StudentID string `json:"studentId"`
	ItemID    string `json:"itemId"`
	Quantity  any    `json:"quantity,omitempty"`
}

func actorFrom(r *http.Request) roster.Actor {
	p := GetPrincipalFromContext(r.Context())
	if p == nil {
		return roster.Actor{}
	}
	return roster.Actor{ID: p.Subject, Name: p.Name}
}

// dispatch runs cmd and writes its presented result
func (h *RosterHandler) dispatch(w http.ResponseWriter, r *http.Request, cmd roster.Command, status int, message string) (any, bool) {
	cmd.Actor = actorFrom(r)
	result, err := h.store.Dispatch(r.Context(), cmd)
	if err != nil {
		respondWithServiceError(w, err, "Error running "+string(cmd.Kind))
		return nil, false
	}
	respond(w, status, present(result), message)
	return result, true
}

// decodeCommand decodes the body into a T payload and dispatches cmd
func decodeCommand[T any](h *RosterHandler, w http.ResponseWriter, r *http.Request, cmd roster.Command, status int, message string) (any, bool) {
	var body T
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidBody, "", nil)
		return nil, false
	}
	cmd.Payload = body
	return h.dispatch(w, r, cmd, status, message)
}

// selfOrStaff resolves which roster student the caller may act for. Staff
// may name any student; a student may only act for themselves.
func (h *RosterHandler) selfOrStaff(r *http.Request, requested string) (string, int, error) {
	p := GetPrincipalFromContext(r.Context())
	if p.IsStaff() {
		if requested == "" {
			return "", http.StatusBadRequest, validation.Invalid("studentId", "studentId is required")
		}
		return requested, 0, nil
	}

	own, err := h.store.StudentByEmail(p.Email)
	if err != nil {
		return "", http.StatusForbidden, errors.New("no student profile for this account")
	}
	if requested != "" && requested != own.ID {
		return "", http.StatusForbidden, errors.New("students may only act for themselves")
	}
	return own.ID, 0, nil
}

// Classes

func (h *RosterHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.store.Classes(r.URL.Query().Get("teacherId")), "")
}

func (h *RosterHandler) CreateClass(w http.ResponseWriter, r *http.Request) {
	decodeCommand[models.CreateClassInput](h, w, r, roster.Command{Kind: roster.CmdCreateClass}, http.StatusCreated, "class created")
}

func (h *RosterHandler) UpdateClass(w http.ResponseWriter, r *http.Request) {
	cmd := roster.Command{Kind: roster.CmdUpdateClass, ClassID: r.PathValue("id")}
	decodeCommand[models.ClassPatch](h, w, r, cmd, http.StatusOK, "class updated")
}

func (h *RosterHandler) DeleteClass(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, roster.Command{Kind: roster.CmdDeleteClass, ClassID: r.PathValue("id")}, http.StatusOK, "class deleted")
}

func (h *RosterHandler) ClassStudents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.store.Class(id); err != nil {
		respondWithServiceError(w, err, "Error loading class")
		return
	}
	respond(w, http.StatusOK, newStudentViews(h.store.Students(id)), "")
}

// Students

func (h *RosterHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, newStudentViews(h.store.Students(r.URL.Query().Get("classId"))), "")
}

func (h *RosterHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	decodeCommand[models.AddStudentInput](h, w, r, roster.Command{Kind: roster.CmdAddStudent}, http.StatusCreated, "student added")
}

func (h *RosterHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	cmd := roster.Command{Kind: roster.CmdUpdateStudent, StudentID: r.PathValue("id")}
	decodeCommand[models.StudentPatch](h, w, r, cmd, http.StatusOK, "student updated")
}

func (h *RosterHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, roster.Command{Kind: roster.CmdRemoveStudent, StudentID: r.PathValue("id")}, http.StatusOK, "student removed")
}

func (h *RosterHandler) ResetStudentPassword(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := h.store.Dispatch(r.Context(), roster.Command{
		Kind:      roster.CmdResetStudentPassword,
		Actor:     actorFrom(r),
		StudentID: id,
	})
	if err != nil {
		respondWithServiceError(w, err, "Error resetting password")
		return
	}
	password := cast.ToString(result)

	if student, err := h.store.Student(id); err == nil {
		h.notify(r.Context(), func(ctx context.Context) error {
			return h.emailService.SendPasswordNotice(ctx, student, password)
		})
	}
	respond(w, http.StatusOK, map[string]string{"password": password}, "password reset")
}

func (h *RosterHandler) GivePunishment(w http.ResponseWriter, r *http.Request) {
	cmd := roster.Command{Kind: roster.CmdGivePunishment, StudentID: r.PathValue("id")}
	result, ok := decodeCommand[models.PunishmentInput](h, w, r, cmd, http.StatusCreated, "punishment given")
	if !ok {
		return
	}
	student := result.(models.Student)
	if n := len(student.Punishments); n > 0 {
		p := student.Punishments[n-1]
		h.notify(r.Context(), func(ctx context.Context) error {
			return h.emailService.SendPunishmentNotice(ctx, student, p)
		})
	}
}

func (h *RosterHandler) StudentInventory(w http.ResponseWriter, r *http.Request) {
	items, stats, err := h.store.StudentInventory(r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err, "Error loading inventory")
		return
	}
	respond(w, http.StatusOK, StudentInventoryView{Items: items, Stats: stats}, "")
}

// notify sends an email without failing the request
func (h *RosterHandler) notify(ctx context.Context, send func(context.Context) error) {
	if h.emailService == nil || !h.emailService.IsEnabled() {
		return
	}
	if err := send(context.WithoutCancel(ctx)); err != nil {
		log.Printf("Error sending notification: %v", err)
	}
}

// Missions

func (h *RosterHandler) ListMissions(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.store.Missions(r.URL.Query().Get("classId")), "")
}

func (h *RosterHandler) CreateMission(w http.ResponseWriter, r *http.Request) {
	decodeCommand[models.CreateMissionInput](h, w, r, roster.Command{Kind: roster.CmdCreateMission}, http.StatusCreated, "mission created")
}

func (h *RosterHandler) UpdateMission(w http.ResponseWriter, r *http.Request) {
	cmd := roster.Command{Kind: roster.CmdUpdateMission, MissionID: r.PathValue("id")}
	decodeCommand[models.MissionPatch](h, w, r, cmd, http.StatusOK, "mission updated")
}

func (h *RosterHandler) DeleteMission(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, roster.Command{Kind: roster.CmdDeleteMission, MissionID: r.PathValue("id")}, http.StatusOK, "mission deleted")
}

func (h *RosterHandler) CompleteMission(w http.ResponseWriter, r *http.Request) {
	var body studentRef
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidBody, "", nil)
		return
	}
	studentID, status, err := h.selfOrStaff(r, body.StudentID)
	if err != nil {
		respondWithError(w, status, err.Error(), "", nil)
		return
	}
	cmd := roster.Command{Kind: roster.CmdCompleteMission, MissionID: r.PathValue("id"), StudentID: studentID}
	h.dispatch(w, r, cmd, http.StatusOK, "mission completed")
}

// Guilds

func (h *RosterHandler) ListGuilds(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.store.Guilds(r.URL.Query().Get("classId")), "")
}

func (h *RosterHandler) CreateGuild(w http.ResponseWriter, r *http.Request) {
	decodeCommand[models.CreateGuildInput](h, w, r, roster.Command{Kind: roster.CmdCreateGuild}, http.StatusCreated, "guild created")
}

func (h *RosterHandler) UpdateGuild(w http.ResponseWriter, r *http.Request) {
	cmd := roster.Command{Kind: roster.CmdUpdateGuild, GuildID: r.PathValue("id")}
	decodeCommand[models.GuildPatch](h, w, r, cmd, http.StatusOK, "guild updated")
}

func (h *RosterHandler) DeleteGuild(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, roster.Command{Kind: roster.CmdDeleteGuild, GuildID: r.PathValue("id")}, http.StatusOK, "guild deleted")
}

func (h *RosterHandler) AddGuildMember(w http.ResponseWriter, r *http.Request) {
	var body studentRef
	if err := decodeJSON(w, r, &body); err != nil || body.StudentID == "" {
		respondWithError(w, http.StatusBadRequest, ErrInvalidBody, "", nil)
		return
	}
	guildID := r.PathValue("id")
	cmd := roster.Command{Kind: roster.CmdAddStudentToGuild, GuildID: guildID, StudentID: body.StudentID}
	if _, err := h.store.Dispatch(r.Context(), cmd); err != nil {
		respondWithServiceError(w, err, "Error adding guild member")
		return
	}
	h.respondGuild(w, guildID, "member added")
}

func (h *RosterHandler) RemoveGuildMember(w http.ResponseWriter, r *http.Request) {
	guildID := r.PathValue("id")
	cmd := roster.Command{Kind: roster.CmdRemoveStudentFromGuild, GuildID: guildID, StudentID: r.PathValue("studentId")}
	if _, err := h.store.Dispatch(r.Context(), cmd); err != nil {
		respondWithServiceError(w, err, "Error removing guild member")
		return
	}
	h.respondGuild(w, guildID, "member removed")
}

func (h *RosterHandler) SetGuildLeader(w http.ResponseWriter, r *http.Request) {
	var body studentRef
	if err := decodeJSON(w, r, &body); err != nil || body.StudentID == "" {
		respondWithError(w, http.StatusBadRequest, ErrInvalidBody, "", nil)
		return
	}
	cmd := roster.Command{Kind: roster.CmdSetGuildLeader, GuildID: r.PathValue("id"), StudentID: body.StudentID}
	h.dispatch(w, r, cmd, http.StatusOK, "leader updated")
}

// respondGuild answers with the current guild, or 404 when the mutation was a
// no-op on a missing guild
func (h *RosterHandler) respondGuild(w http.ResponseWriter, guildID, message string) {
	guild, err := h.store.Guild(guildID)
	if err != nil {
		respondWithServiceError(w, err, "Error loading guild")
		return
	}
	respond(w, http.StatusOK, guild, message)
}

// Items

func (h *RosterHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.store.Items(), "")
}

func (h *RosterHandler) GiveItem(w http.ResponseWriter, r *http.Request) {
	var body itemRequest
	if err := decodeJSON(w, r, &body); err != nil || body.StudentID == "" || body.ItemID == "" {
		respondWithError(w, http.StatusBadRequest, ErrInvalidBody, "", nil)
		return
	}
	quantity := 1
	if body.Quantity != nil {
		q, err := cast.ToIntE(body.Quantity)
		if err != nil {
			respondWithServiceError(w, validation.Invalid("quantity", "quantity must be a number"), "")
			return
		}
		quantity = q
	}
	if quantity < 1 {
		respondWithServiceError(w, validation.Invalid("quantity", "quantity must be at least 1"), "")
		return
	}

	cmd := roster.Command{Kind: roster.CmdGiveItem, StudentID: body.StudentID, ItemID: body.ItemID, Quantity: quantity}
	h.dispatch(w, r, cmd, http.StatusOK, "item given")
}

func (h *RosterHandler) EquipItem(w http.ResponseWriter, r *http.Request) {
	h.equipment(w, r, roster.CmdEquipItem, "item equipped")
}

func (h *RosterHandler) UnequipItem(w http.ResponseWriter, r *http.Request) {
	h.equipment(w, r, roster.CmdUnequipItem, "item unequipped")
}

func (h *RosterHandler) equipment(w http.ResponseWriter, r *http.Request, kind roster.CommandKind, message string) {
	var body itemRequest
	if err := decodeJSON(w, r, &body); err != nil || body.ItemID == "" {
		respondWithError(w, http.StatusBadRequest, ErrInvalidBody, "", nil)
		return
	}
	studentID, status, err := h.selfOrStaff(r, body.StudentID)
	if err != nil {
		respondWithError(w, status, err.Error(), "", nil)
		return
	}
	h.dispatch(w, r, roster.Command{Kind: kind, StudentID: studentID, ItemID: body.ItemID}, http.StatusOK, message)
}
