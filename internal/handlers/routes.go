package handlers

import "net/http"

// Handlers groups everything RegisterRoutes mounts
type Handlers struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Users      *UserHandler // nil disables the Users API
	Roster     *RosterHandler
	Feed       *FeedHandler
	Admin      *AdminHandler
}

// RegisterRoutes mounts the JSON API on mux
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	m := h.Middleware
	auth := m.RequireAuth
	staff := m.RequireStaff

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"}, "")
	})

	// Auth
	mux.HandleFunc("GET /auth/microsoft/start", h.Auth.StartMicrosoftLogin)
	mux.HandleFunc("GET /auth/microsoft/callback", h.Auth.MicrosoftCallback)
	mux.HandleFunc("GET /auth/profile", auth(h.Auth.Profile))

	// Users
	if h.Users != nil {
		mux.HandleFunc("GET /api/users", auth(h.Users.List))
		mux.HandleFunc("GET /api/users/{id}", auth(h.Users.Get))
		mux.HandleFunc("POST /api/users", staff(h.Users.Upsert))
		mux.HandleFunc("PUT /api/users/{id}", staff(h.Users.Update))
		mux.HandleFunc("DELETE /api/users/{id}", staff(h.Users.Delete))
		mux.HandleFunc("GET /api/users/{id}/inventory", auth(h.Users.Inventory))
		mux.HandleFunc("POST /api/users/{id}/inventory", staff(h.Users.GrantItem))
		mux.HandleFunc("POST /api/users/{id}/xp", staff(h.Users.AddXP))
	}

	// Classes
	mux.HandleFunc("GET /api/classes", auth(h.Roster.ListClasses))
	mux.HandleFunc("POST /api/classes", staff(h.Roster.CreateClass))
	mux.HandleFunc("PUT /api/classes/{id}", staff(h.Roster.UpdateClass))
	mux.HandleFunc("DELETE /api/classes/{id}", staff(h.Roster.DeleteClass))
	mux.HandleFunc("GET /api/classes/{id}/students", auth(h.Roster.ClassStudents))

	// Students
	mux.HandleFunc("GET /api/students", auth(h.Roster.ListStudents))
	mux.HandleFunc("POST /api/students", staff(h.Roster.CreateStudent))
	mux.HandleFunc("PUT /api/students/{id}", staff(h.Roster.UpdateStudent))
	mux.HandleFunc("DELETE /api/students/{id}", staff(h.Roster.DeleteStudent))
	mux.HandleFunc("POST /api/students/{id}/reset-password", staff(h.Roster.ResetStudentPassword))
	mux.HandleFunc("POST /api/students/{id}/punishments", staff(h.Roster.GivePunishment))
	mux.HandleFunc("GET /api/students/{id}/inventory", auth(h.Roster.StudentInventory))

	// Missions
	mux.HandleFunc("GET /api/missions", auth(h.Roster.ListMissions))
	mux.HandleFunc("POST /api/missions", staff(h.Roster.CreateMission))
	mux.HandleFunc("PUT /api/missions/{id}", staff(h.Roster.UpdateMission))
	mux.HandleFunc("DELETE /api/missions/{id}", staff(h.Roster.DeleteMission))
	mux.HandleFunc("POST /api/missions/{id}/complete", auth(h.Roster.CompleteMission))

	// Guilds
	mux.HandleFunc("GET /api/guilds", auth(h.Roster.ListGuilds))
	mux.HandleFunc("POST /api/guilds", staff(h.Roster.CreateGuild))
	mux.HandleFunc("PUT /api/guilds/{id}", staff(h.Roster.UpdateGuild))
	mux.HandleFunc("DELETE /api/guilds/{id}", staff(h.Roster.DeleteGuild))
	mux.HandleFunc("POST /api/guilds/{id}/members", staff(h.Roster.AddGuildMember))
	mux.HandleFunc("DELETE /api/guilds/{id}/members/{studentId}", staff(h.Roster.RemoveGuildMember))
	mux.HandleFunc("PUT /api/guilds/{id}/leader", staff(h.Roster.SetGuildLeader))

	// Items
	mux.HandleFunc("GET /api/items", auth(h.Roster.ListItems))
	mux.HandleFunc("POST /api/items/give", staff(h.Roster.GiveItem))
	mux.HandleFunc("POST /api/items/equip", auth(h.Roster.EquipItem))
	mux.HandleFunc("POST /api/items/unequip", auth(h.Roster.UnequipItem))

	// Rankings and activity
	mux.HandleFunc("GET /api/leaderboard", auth(h.Feed.Leaderboard))
	mux.HandleFunc("GET /api/leaderboard/guilds", auth(h.Feed.GuildLeaderboard))
	mux.HandleFunc("GET /api/activity", auth(h.Feed.Activity))
	mux.HandleFunc("GET /api/activity/ws", auth(h.Feed.ActivityStream))

	// Admin
	mux.HandleFunc("GET /api/admin/export", staff(h.Admin.ExportRoster))
	mux.HandleFunc("POST /api/admin/import", staff(h.Admin.ImportRoster))
}
