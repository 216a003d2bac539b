package handlers

import (
	"net/http"

	"github.com/spf13/cast"

	"naturequest/internal/models"
	"naturequest/internal/service"
	"naturequest/internal/validation"
)

// UserHandler serves the relational Users API
type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type grantRequest struct {
	ItemID   string `json:"itemId"`
	Quantity any    `json:"quantity"`
}

type xpRequest struct {
	XPAmount any `json:"xpAmount"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.userService.List(r.Context(), models.Role(q.Get("role")), q.Get("classId"))
	if err != nil {
		respondWithServiceError(w, err, "Error listing users")
		return
	}
	respond(w, http.StatusOK, users, "")
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err, "Error loading user")
		return
	}
	respond(w, http.StatusOK, user, "")
}

func (h *UserHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var body models.UpsertUser
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidBody, "", nil)
		return
	}

	user, created, err := h.userService.Upsert(r.Context(), body)
	if err != nil {
		respondWithServiceError(w, err, "Error saving user")
		return
	}
	if created {
		respond(w, http.StatusCreated, user, "user created")
		return
	}
	respond(w, http.StatusOK, user, "user updated")
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidBody, "", nil)
		return
	}

	user, err := h.userService.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		respondWithServiceError(w, err, "Error updating user")
		return
	}
	respond(w, http.StatusOK, user, "user updated")
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithServiceError(w, err, "Error deleting user")
		return
	}
	respond(w, http.StatusOK, nil, "user deleted")
}

func (h *UserHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	inventory, err := h.userService.Inventory(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err, "Error loading inventory")
		return
	}
	respond(w, http.StatusOK, inventory, "")
}

func (h *UserHandler) GrantItem(w http.ResponseWriter, r *http.Request) {
	var body grantRequest
	if err := decodeJSON(w, r, &body); err != nil || body.ItemID == "" {
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

	id := r.PathValue("id")
	if err := h.userService.GrantItem(r.Context(), id, body.ItemID, quantity); err != nil {
		respondWithServiceError(w, err, "Error granting item")
		return
	}
	inventory, err := h.userService.Inventory(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Error loading inventory")
		return
	}
	respond(w, http.StatusCreated, inventory, "item granted")
}

func (h *UserHandler) AddXP(w http.ResponseWriter, r *http.Request) {
	var body xpRequest
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidBody, "", nil)
		return
	}
	amount, err := cast.ToIntE(body.XPAmount)
	if err != nil {
		respondWithServiceError(w, validation.Invalid("xpAmount", "xpAmount must be a number"), "")
		return
	}

	user, gained, err := h.userService.AddXP(r.Context(), r.PathValue("id"), amount)
	if err != nil {
		respondWithServiceError(w, err, "Error adding XP")
		return
	}
	message := "xp added"
	if gained > 0 {
		message = "level up"
	}
	respond(w, http.StatusOK, user, message)
}
