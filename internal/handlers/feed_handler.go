package handlers

import (
	"net/http"

	"github.com/spf13/cast"

	"naturequest/internal/activity"
	"naturequest/internal/roster"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// FeedHandler serves rankings and the activity feed
type FeedHandler struct {
	store *roster.Store
	hub   *activity.Hub
}

func NewFeedHandler(store *roster.Store, hub *activity.Hub) *FeedHandler {
	return &FeedHandler{store: store, hub: hub}
}

func (h *FeedHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.store.Leaderboard(r.URL.Query().Get("classId")), "")
}

func (h *FeedHandler) GuildLeaderboard(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.store.GuildLeaderboard(r.URL.Query().Get("classId")), "")
}

// Activity returns the newest entries. A missing or unparsable limit falls
// back to the default; larger values are capped.
func (h *FeedHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := cast.ToInt(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)
	respond(w, http.StatusOK, h.store.Activity(limit), "")
}

func (h *FeedHandler) ActivityStream(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}
